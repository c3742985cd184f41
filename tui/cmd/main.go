package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/zappabad/matchbook/internal/config"
	"github.com/zappabad/matchbook/internal/driver"
	"github.com/zappabad/matchbook/internal/logging"
	"github.com/zappabad/matchbook/internal/sim"
	"github.com/zappabad/matchbook/internal/tracing"
	"github.com/zappabad/matchbook/tui"
)

// defaultTickInterval paces the simulation when the config leaves it
// unpaced, so the screen has something to follow.
const defaultTickInterval = 50 * time.Millisecond

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./matchbook.yaml if present)")
	logPath := flag.String("log", "matchbook-tui.log", "file to write logs to")
	flag.Parse()

	if err := run(*configPath, *logPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string) error {
	app, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg, err := sim.FromApp(app)
	if err != nil {
		return err
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = defaultTickInterval
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	base, err := logging.New(app.Log.Level, app.Log.Format, logFile)
	if err != nil {
		return err
	}
	defer base.Sync() //nolint:errcheck
	log, _ := logging.WithSession(base)

	if path := app.Trace.File; path != "" {
		shutdown, err := startTracing(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("flush traces", zap.Error(err))
			}
		}()
	}

	s, err := sim.New(cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	model := tui.NewModel(s, driver.New(s.Book, log.Named("console")), app.Instrument.Name, cfg.Decimals)
	_, uiErr := tea.NewProgram(model, tea.WithAltScreen()).Run()

	cancel()
	if err := <-done; err != nil {
		log.Error("simulation stopped", zap.Error(err))
	}
	return uiErr
}

// startTracing exports spans to path until the returned function runs.
func startTracing(path string) (func(context.Context) error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	shutdown, err := tracing.Setup(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		return errors.Join(err, f.Close())
	}, nil
}
