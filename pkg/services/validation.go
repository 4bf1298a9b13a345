package services

import (
	"sort"
	"strings"
)

// ValidationErrors maps a config field name to the problems found with it.
type ValidationErrors map[string][]string

// Add records msg against field.
func (v ValidationErrors) Add(field, msg string) {
	v[field] = append(v[field], msg)
}

// Err returns v as an error, or nil when it holds nothing.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+strings.Join(v[f], ", "))
	}
	return strings.Join(parts, "; ")
}

func requirePresent(errs ValidationErrors, field, value string) {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "can't be blank")
	}
}
