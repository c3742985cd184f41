// Package candles samples the reference price once per tick and folds the
// samples into daily OHLC candles.
package candles

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/orderbook/core"
)

// Source is the book being sampled. Rollover resets it between days.
type Source interface {
	CurrentPrice(ctx context.Context) (core.Price, error)
	Reset(ctx context.Context) error
}

// Candle is one day of open/high/low/close.
type Candle struct {
	Day   int
	Open  core.Price
	High  core.Price
	Low   core.Price
	Close core.Price
	Ticks int
}

// Up reports whether the day closed at or above its open.
func (c Candle) Up() bool { return c.Close.GreaterThanOrEqual(c.Open) }

// Aggregator is safe for one writer (Tick, Rollover) alongside any
// number of readers.
type Aggregator struct {
	src Source

	mu    sync.RWMutex
	day   int
	ticks []core.Price
	cur   Candle
	days  []Candle
}

func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src, day: 1}
}

// Tick samples the current price and folds it into today's candle.
// High and low start from the day's first sample, not its second, so the
// open always lies inside the range.
func (a *Aggregator) Tick(ctx context.Context) (core.Price, error) {
	p, err := a.src.CurrentPrice(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sample price: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.ticks = append(a.ticks, p)
	if len(a.ticks) == 1 {
		a.cur = Candle{Day: a.day, Open: p, High: p, Low: p, Close: p, Ticks: 1}
		return p, nil
	}
	a.cur.High = decimal.Max(a.cur.High, p)
	a.cur.Low = decimal.Min(a.cur.Low, p)
	a.cur.Close = p
	a.cur.Ticks = len(a.ticks)
	return p, nil
}

// Rollover closes the day. The candle is kept only if the day saw at
// least two samples; the bool reports whether it was. The source book is
// reset either way.
func (a *Aggregator) Rollover(ctx context.Context) (Candle, bool, error) {
	a.mu.Lock()
	c, ok := a.cur, len(a.ticks) > 1
	if ok {
		a.days = append(a.days, c)
	}
	a.ticks = a.ticks[:0]
	a.cur = Candle{}
	a.day++
	a.mu.Unlock()

	if err := a.src.Reset(ctx); err != nil {
		return c, ok, fmt.Errorf("reset book: %w", err)
	}
	return c, ok, nil
}

// Current returns today's running candle once it has two samples.
func (a *Aggregator) Current() (Candle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cur, len(a.ticks) > 1
}

// Day is the 1-based index of the day in progress.
func (a *Aggregator) Day() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.day
}

// Days returns a copy of the closed candles, oldest first.
func (a *Aggregator) Days() []Candle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Candle, len(a.days))
	copy(out, a.days)
	return out
}

// Ticks returns a copy of today's samples.
func (a *Aggregator) Ticks() []core.Price {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]core.Price, len(a.ticks))
	copy(out, a.ticks)
	return out
}

// MeanClose averages the closes of the last n closed days. It falls back
// to today's samples when no day has closed yet.
func (a *Aggregator) MeanClose(n int) (core.Price, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var vals []core.Price
	if len(a.days) > 0 {
		days := a.days[max(0, len(a.days)-n):]
		vals = make([]core.Price, len(days))
		for i, d := range days {
			vals[i] = d.Close
		}
	} else {
		vals = a.ticks
	}
	if len(vals) == 0 || n <= 0 {
		return decimal.Zero, false
	}
	return decimal.Avg(vals[0], vals[1:]...), true
}
