package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/noelia-lencina/codeclimate-services/internal/app"
	"github.com/noelia-lencina/codeclimate-services/internal/config"
	"github.com/noelia-lencina/codeclimate-services/internal/domain"
	"github.com/noelia-lencina/codeclimate-services/internal/logger"
	"github.com/noelia-lencina/codeclimate-services/pkg/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notifier failed: %v\n", err)
		os.Exit(1)
	}
}

type deliveryReport struct {
	services.Delivery
	Error string `json:"error,omitempty"`
}

type eventReport struct {
	EventID    string           `json:"event_id"`
	EventName  string           `json:"event_name"`
	Deliveries []deliveryReport `json:"deliveries"`
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.InfoObj("notifier starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier, err := app.NewNotifier(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize notifier", "error", err)
		return err
	}
	defer notifier.Close()

	// one JSON report per line, matching the input stream
	enc := json.NewEncoder(os.Stdout)
	var failures []error
	err = app.ReadEvents(cfg.EventFile, os.Stdin, func(evt domain.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		deliveries, dispatchErr := notifier.Notify(ctx, evt)
		if dispatchErr != nil {
			failures = append(failures, dispatchErr)
		}

		report := eventReport{EventID: evt.ID, EventName: evt.Name}
		for _, d := range deliveries {
			report.EventID = d.EventID
			r := deliveryReport{Delivery: d}
			if d.Err != nil {
				r.Error = d.Err.Error()
			}
			report.Deliveries = append(report.Deliveries, r)
		}
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return errors.Join(failures...)
}
