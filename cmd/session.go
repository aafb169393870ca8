package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"

	"github.com/papapumpkin/wzpatch/internal/config"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/tui"
	"github.com/papapumpkin/wzpatch/internal/ui"
	"github.com/papapumpkin/wzpatch/internal/workspace"
)

// stageFunc is the body of a command that needs an open workspace.
type stageFunc func(ctx context.Context, ws *workspace.Workspace) error

// loadConfig reads the merged configuration.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// uiMode resolves auto to tui on a terminal and plain otherwise.
func uiMode(mode string) string {
	if mode != config.UIAuto {
		return mode
	}
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return config.UITUI
	}
	return config.UIPlain
}

// runStages opens the workspace and runs fn under the configured progress
// display. Commands print their results after it returns, once the
// interactive view has closed.
func runStages(title string, fn stageFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	work := func(ctx context.Context, sink ui.UI) error {
		ws, err := workspace.Open(ctx, cfg, sink)
		if err != nil {
			return err
		}
		defer ws.Close()
		return fn(ctx, ws)
	}

	mode := uiMode(cfg.UI)
	if mode == config.UITUI {
		err := tui.Run(context.Background(), title, work, tui.WithOutput(os.Stderr))
		if stage.IsCancelled(err) {
			ui.New().Cancelled(title)
		}
		return err
	}

	printer := ui.New()
	var sink ui.UI = printer
	if mode == config.UILog {
		level := slog.LevelInfo
		if cfg.Verbose {
			level = slog.LevelDebug
		}
		sink = ui.NewLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	} else {
		printer.Banner()
	}
	ctx, cancel := setupSignalContext(printer)
	defer cancel()
	err = work(ctx, sink)
	if stage.IsCancelled(err) {
		printer.Cancelled(title)
	}
	return err
}

// openWorkspace opens the workspace for commands that report without a
// progress display.
func openWorkspace(ctx context.Context) (*workspace.Workspace, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return workspace.Open(ctx, cfg, ui.New())
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nfinishing the current item...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
