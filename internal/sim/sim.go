// Package sim wires the order book, a trader population, and the daily
// candle aggregator into one tick-driven simulation.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zappabad/matchbook/internal/activity"
	"github.com/zappabad/matchbook/internal/candles"
	"github.com/zappabad/matchbook/internal/orderbook/service"
	"github.com/zappabad/matchbook/internal/trader"
	"github.com/zappabad/matchbook/internal/trader/runner"
	"github.com/zappabad/matchbook/internal/trader/strategy"
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// Simulation owns all the subsystems and manages their lifecycle.
type Simulation struct {
	Book     *service.Service
	Candles  *candles.Aggregator
	Traders  *runner.Runner
	Activity *activity.Feed

	cfg    Config
	log    *zap.Logger
	tracer trace.Tracer
	tick   atomic.Int64

	// stepMu serializes Step; the runner requires a single caller.
	stepMu sync.Mutex
	mu     sync.Mutex
}

// New creates a Simulation with its trader population in place.
func New(cfg Config, log *zap.Logger) (*Simulation, error) {
	if cfg.TicksPerDay <= 0 {
		return nil, fmt.Errorf("%w: ticks per day must be positive", ErrInvalidConfig)
	}
	if cfg.Days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative", ErrInvalidConfig)
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Simulation{cfg: cfg, log: log, tracer: otel.Tracer("github.com/zappabad/matchbook/internal/sim")}
	s.Book = service.NewService(cfg.Service, service.WithLogger(log.Named("book")))
	s.Candles = candles.NewAggregator(s.Book)

	master := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	child := func() *rand.Rand { return rand.New(rand.NewPCG(master.Uint64(), master.Uint64())) }

	s.Traders = runner.NewRunner(cfg.Runner, s.Book, s.Candles, child(), log.Named("traders"))
	s.Activity = activity.NewFeed(cfg.Activity)
	s.Activity.Attach(s.Traders.Events())

	var id trader.TraderID
	add := func(n int, build func(*rand.Rand) strategy.Strategy) {
		for range n {
			id++
			rng := child()
			s.Traders.Add(id, build(rng), openingAccount(rng, cfg.StartingCash))
		}
	}

	randomParams := strategy.DefaultRandomParams()
	randomParams.Decimals = cfg.Decimals
	valueParams := strategy.DefaultValueParams()
	valueParams.Decimals = cfg.Decimals

	add(cfg.RandomTraders, func(r *rand.Rand) strategy.Strategy { return strategy.NewRandom(randomParams, r) })
	add(cfg.TrendTraders, func(r *rand.Rand) strategy.Strategy { return strategy.NewTrend(strategy.DefaultTrendParams(), r) })
	add(cfg.ValueTraders, func(r *rand.Rand) strategy.Strategy { return strategy.NewValue(valueParams, r) })

	log.Info("simulation ready",
		zap.Int("traders", int(id)),
		zap.Int("ticks_per_day", cfg.TicksPerDay),
		zap.Int("days", cfg.Days),
		zap.Uint64("seed", cfg.Seed))
	return s, nil
}

// openingAccount scatters cash around base and hands out a starting
// position so sellers exist from the first tick.
func openingAccount(rng *rand.Rand, base decimal.Decimal) trader.Account {
	scale := math.Max(0.1, 1+rng.NormFloat64()*0.15)
	return trader.Account{
		Cash:     base.Mul(decimal.NewFromFloat(scale)).Round(2),
		Position: 50 + rng.Int64N(151),
	}
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int64 { return s.tick.Load() }

// Step advances one tick: traders act, the price is sampled, and on a day
// boundary the day is closed and the book reset. The returned candle is
// set when a day closed with enough samples to form one.
func (s *Simulation) Step(ctx context.Context) (*candles.Candle, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	tick := s.tick.Load() + 1

	if err := s.Traders.Step(ctx, tick); err != nil {
		return nil, fmt.Errorf("tick %d: traders: %w", tick, err)
	}
	if _, err := s.Candles.Tick(ctx); err != nil {
		return nil, fmt.Errorf("tick %d: %w", tick, err)
	}
	s.tick.Store(tick)

	if tick%int64(s.cfg.TicksPerDay) != 0 {
		return nil, nil
	}
	return s.closeDay(ctx, tick)
}

func (s *Simulation) closeDay(ctx context.Context, tick int64) (_ *candles.Candle, err error) {
	ctx, span := s.tracer.Start(ctx, "sim.close_day", trace.WithAttributes(
		attribute.Int64("tick", tick),
		attribute.Int("day", s.Candles.Day()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := s.Traders.Settle(ctx, tick); err != nil {
		return nil, fmt.Errorf("tick %d: settle: %w", tick, err)
	}
	c, ok, err := s.Candles.Rollover(ctx)
	if err != nil {
		return nil, fmt.Errorf("tick %d: %w", tick, err)
	}
	s.Traders.NewDay()
	s.Book.Metrics().ObserveDayRolled()

	if !ok {
		span.AddEvent("no candle")
		s.log.Warn("day closed without a candle", zap.Int64("tick", tick))
		return nil, nil
	}
	span.SetAttributes(
		attribute.String("open", c.Open.String()),
		attribute.String("high", c.High.String()),
		attribute.String("low", c.Low.String()),
		attribute.String("close", c.Close.String()),
	)
	s.log.Info("day closed",
		zap.Int("day", c.Day),
		zap.String("open", c.Open.String()),
		zap.String("high", c.High.String()),
		zap.String("low", c.Low.String()),
		zap.String("close", c.Close.String()))
	return &c, nil
}

// Run steps until the configured number of days has elapsed or ctx is
// done. Context cancellation is not reported as an error.
func (s *Simulation) Run(ctx context.Context) error {
	total := int64(s.cfg.Days) * int64(s.cfg.TicksPerDay)

	ctx, span := s.tracer.Start(ctx, "sim.run", trace.WithAttributes(
		attribute.Int("days", s.cfg.Days),
		attribute.Int("ticks_per_day", s.cfg.TicksPerDay),
		attribute.Int64("seed", int64(s.cfg.Seed)),
	))
	defer func() {
		span.SetAttributes(attribute.Int64("ticks", s.Tick()))
		span.End()
	}()

	var pace <-chan time.Time
	if s.cfg.TickInterval > 0 {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		pace = ticker.C
	}

	for total == 0 || s.Tick() < total {
		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		if _, err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close shuts down all subsystems in reverse dependency order.
func (s *Simulation) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Traders.Close()
	s.Activity.Close()
	s.Book.Close()
}
