// Command castgate serves the casting agency API behind the JWT gate.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonwraymond/castgate/observe"
	"github.com/jonwraymond/castgate/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "castgate:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := server.LoadConfig(ctx)
	if err != nil {
		return err
	}

	app, err := server.New(ctx, cfg)
	if err != nil {
		return err
	}
	logger := app.Logger()
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Error(closeCtx, "close", observe.F("error", err))
		}
	}()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "http server", observe.F("error", err))
		return err
	}
	logger.Info(ctx, "stopped")
	return nil
}
