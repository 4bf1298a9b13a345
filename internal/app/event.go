package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/noelia-lencina/codeclimate-services/internal/domain"
)

// ReadEvents decodes a stream of JSON events (one per line, or simply
// concatenated) from path, or from stdin when path is empty or "-", and calls
// fn for each in order. It stops at the first decode error or error from fn.
func ReadEvents(path string, stdin io.Reader, fn func(domain.Event) error) error {
	var r io.Reader = stdin
	path = strings.TrimSpace(path)
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open event file: %w", err)
		}
		defer f.Close()
		r = f
	}
	if r == nil {
		return fmt.Errorf("no event input")
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	for n := 1; ; n++ {
		var evt domain.Event
		err := dec.Decode(&evt)
		if errors.Is(err, io.EOF) {
			if n == 1 {
				return fmt.Errorf("no events in input")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode event %d: %w", n, err)
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}
