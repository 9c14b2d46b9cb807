// Snapshot - capture, review and export photos from a frame source
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/snapshot/internal/cli"
)

func main() {
	// Commands replace this once config (LOG_LEVEL) is loaded
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	stop()
	os.Exit(cli.GetExitCode(err))
}
