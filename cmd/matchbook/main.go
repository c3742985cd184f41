// Command matchbook reads order book commands from stdin and writes the
// answers to stdout. Logs go to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/zappabad/matchbook/internal/config"
	"github.com/zappabad/matchbook/internal/driver"
	"github.com/zappabad/matchbook/internal/logging"
	"github.com/zappabad/matchbook/internal/orderbook/service"
	"github.com/zappabad/matchbook/internal/sim"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default ./matchbook.yaml if present)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "matchbook: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	app, err := config.Load(configPath)
	if err != nil {
		return err
	}
	simCfg, err := sim.FromApp(app)
	if err != nil {
		return err
	}

	base, err := logging.New(app.Log.Level, app.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	defer base.Sync() //nolint:errcheck
	log, session := logging.WithSession(base)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	book := service.NewService(simCfg.Service, service.WithLogger(log.Named("book")))
	defer book.Close()

	log.Info("driver ready", zap.String("session", session), zap.String("instrument", app.Instrument.Name))
	if err := driver.New(book, log.Named("driver")).Run(ctx, os.Stdin, os.Stdout); err != nil {
		return err
	}

	if path := app.Metrics.Textfile; path != "" {
		if err := book.Metrics().WriteTextfile(path); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
