// Command streamctl is the operator tool for a streambox deployment.
//
//	streamctl seed                      insert the sample catalog into an empty store
//	streamctl promote --email a@b.co    make an account's profile admin
//	streamctl watchlist --movie ID      toggle a movie on your list over the API
//	streamctl watch --movie ID          headless player that checkpoints progress
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "streamctl",
		Usage:    "Manage and exercise a streambox server",
		Commands: runner.register(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("streamctl failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
