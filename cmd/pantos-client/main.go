// Package main provides the pantos-client command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"

	"github.com/pantos-io/client-library/pkg/commands"
	"github.com/pantos-io/client-library/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := logger.Config{Level: zapcore.WarnLevel}
	if os.Getenv("PANTOS_CLIENT_DEBUG") != "" {
		cfg = logger.Config{Level: zapcore.DebugLevel, Development: true}
	}
	lggr, err := cfg.New()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = lggr.Sync() }()

	return commands.New(lggr, nil).Root().ExecuteContext(ctx)
}
