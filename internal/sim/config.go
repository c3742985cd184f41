package sim

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/activity"
	"github.com/zappabad/matchbook/internal/config"
	"github.com/zappabad/matchbook/internal/orderbook/service"
	"github.com/zappabad/matchbook/internal/trader/runner"
)

// Config holds configuration for a simulation.
type Config struct {
	// Decimals is the price tick size, as a number of decimal places.
	Decimals int32
	// Service is the configuration for the order book service.
	Service service.Config
	// Runner is the configuration for the trader population.
	Runner runner.Config
	// Activity is the configuration for the trader activity feed.
	Activity activity.Config

	TicksPerDay int
	// Days bounds Run. Zero runs until the context is canceled.
	Days int
	// TickInterval paces Run. Zero runs as fast as possible.
	TickInterval time.Duration
	Seed         uint64

	RandomTraders int
	TrendTraders  int
	ValueTraders  int
	StartingCash  decimal.Decimal
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Decimals:      2,
		Service:       service.DefaultConfig(),
		Runner:        runner.DefaultConfig(),
		Activity:      activity.DefaultConfig(),
		TicksPerDay:   390,
		Days:          5,
		Seed:          1,
		RandomTraders: 20,
		TrendTraders:  5,
		ValueTraders:  5,
		StartingCash:  decimal.NewFromInt(10_000),
	}
}

// FromApp maps a loaded configuration file onto a simulation Config.
func FromApp(app *config.App) (Config, error) {
	cfg := DefaultConfig()

	start, err := app.StartPrice()
	if err != nil {
		return cfg, err
	}
	cash, err := app.StartingCash()
	if err != nil {
		return cfg, err
	}

	cfg.Decimals = app.Instrument.Decimals
	cfg.Service.Instrument = app.Instrument.Name
	cfg.Service.StartPrice = start
	cfg.Service.CommandBuffer = app.Service.CommandBuffer
	cfg.Service.TradeTapeSize = app.Service.TradeTapeSize
	cfg.Runner.MaxOrderAge = int64(app.Sim.MaxOrderAge)
	cfg.TicksPerDay = app.Sim.TicksPerDay
	cfg.Days = app.Sim.Days
	cfg.TickInterval = app.Sim.TickInterval
	cfg.Seed = uint64(app.Sim.Seed)
	cfg.RandomTraders = app.Sim.RandomTraders
	cfg.TrendTraders = app.Sim.TrendTraders
	cfg.ValueTraders = app.Sim.ValueTraders
	cfg.StartingCash = cash
	return cfg, nil
}
