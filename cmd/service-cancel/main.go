// Command service-cancel asks the orchestrator to cancel a running service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"jobcore/internal/cancel"
	"jobcore/internal/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(config.GetEnv("LOG_LEVEL", "warn")),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cancel.Run(ctx, os.Args[1:], cancel.DefaultOptions())
	stop()
	os.Exit(code)
}
