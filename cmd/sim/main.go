// Command sim runs the trader simulation headless and prints a YAML
// report of the days and accounts when it finishes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/zappabad/matchbook/internal/config"
	"github.com/zappabad/matchbook/internal/logging"
	"github.com/zappabad/matchbook/internal/sim"
	"github.com/zappabad/matchbook/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./matchbook.yaml if present)")
	days := flag.Int("days", -1, "override sim.days (0 runs until interrupted)")
	seed := flag.Int64("seed", -1, "override sim.seed")
	flag.Parse()

	if err := run(*configPath, *days, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "sim: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, days int, seed int64) error {
	app, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if days >= 0 {
		app.Sim.Days = days
	}
	if seed >= 0 {
		app.Sim.Seed = seed
	}
	cfg, err := sim.FromApp(app)
	if err != nil {
		return err
	}

	base, err := logging.New(app.Log.Level, app.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	defer base.Sync() //nolint:errcheck
	log, session := logging.WithSession(base)
	log.Info("starting simulation", zap.String("session", session))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if err := s.Run(ctx); err != nil {
		return err
	}
	log.Info("simulation finished",
		zap.Int64("ticks", s.Tick()),
		zap.Int64("dropped_events", s.Traders.DroppedEvents()))

	if path := app.Metrics.Textfile; path != "" {
		if err := s.Book.Metrics().WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	// The report is written after a signal too, so use a fresh context.
	var out io.Writer = os.Stdout
	if path := app.Sim.Report; path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		out = f
	}
	return s.WriteReport(context.Background(), out)
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
