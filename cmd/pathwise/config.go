package main

import (
	"context"
	"fmt"

	"github.com/metalagman/pathwise/internal/app"
	"github.com/metalagman/pathwise/internal/config"
	"go.uber.org/fx"
)

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withApp starts the application graph, populating targets, runs fn and stops the graph.
func withApp(ctx context.Context, fn func(ctx context.Context) error, targets ...any) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runApp(ctx, cfg, fn, fx.Populate(targets...))
}

func runApp(ctx context.Context, cfg config.Config, fn func(ctx context.Context) error, opts ...fx.Option) error {
	a := fx.New(append([]fx.Option{app.Core(cfg), fx.NopLogger}, opts...)...)
	if err := a.Err(); err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	runErr := fn(ctx)
	if err := a.Stop(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop: %w", err)
	}
	return runErr
}
