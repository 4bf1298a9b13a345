package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/noelia-lencina/codeclimate-services/internal/config"
	"github.com/noelia-lencina/codeclimate-services/pkg/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "servicecheck: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path := cfg.ServicesFile
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfgs, err := services.LoadConfigs(path)
	if err != nil {
		return err
	}

	invalid := 0
	seen := make(map[string]bool, len(cfgs))
	for i, sc := range cfgs {
		errs := services.Validate(sc)
		if seen[sc.ID] && sc.ID != "" {
			errs.Add("id", "is already taken")
		}
		seen[sc.ID] = true

		if len(errs) == 0 {
			fmt.Printf("ok       services[%d] %s (%s)\n", i, sc.ID, sc.Type)
			continue
		}
		invalid++
		fmt.Printf("invalid  services[%d] %s (%s)\n", i, sc.ID, sc.Type)
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			for _, msg := range errs[f] {
				fmt.Printf("    %s %s\n", f, msg)
			}
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d services invalid", invalid, len(cfgs))
	}
	return nil
}
