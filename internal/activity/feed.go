// Package activity collects trader events into a bounded feed for display.
package activity

import (
	"fmt"
	"sync"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/trader"
)

// Config holds configuration for the activity feed.
type Config struct {
	// Capacity is the maximum number of entries to keep.
	Capacity int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{Capacity: 100}
}

// Entry is one rendered trader event.
type Entry struct {
	Tick     int64
	TraderID trader.TraderID
	Type     trader.TraderEventType
	Text     string
}

// Feed listens to trader event streams and keeps the most recent entries.
type Feed struct {
	cfg Config

	mu      sync.RWMutex
	entries []Entry
	counts  map[trader.TraderEventType]int

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewFeed(cfg Config) *Feed {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}
	return &Feed{
		cfg:     cfg,
		entries: make([]Entry, 0, cfg.Capacity),
		counts:  map[trader.TraderEventType]int{},
		closed:  make(chan struct{}),
	}
}

// Attach starts consuming events until the channel closes or the feed does.
func (f *Feed) Attach(events <-chan trader.TraderEvent) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case <-f.closed:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				f.Add(ev)
			}
		}
	}()
}

// Add records one event.
func (f *Feed) Add(ev trader.TraderEvent) {
	e := Entry{Tick: ev.Tick, TraderID: ev.TraderID, Type: ev.Type, Text: Describe(ev)}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) >= f.cfg.Capacity {
		// Remove oldest
		f.entries = f.entries[1:]
	}
	f.entries = append(f.entries, e)
	f.counts[ev.Type]++
}

// Recent returns a copy of the last n entries, oldest first.
func (f *Feed) Recent(n int) []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	src := f.entries[max(0, len(f.entries)-n):]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Count returns how many events of type t were seen, including evicted ones.
func (f *Feed) Count(t trader.TraderEventType) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.counts[t]
}

// Describe renders ev as one line.
func Describe(ev trader.TraderEvent) string {
	switch ev.Type {
	case trader.TraderEventPlacedOrder:
		if ev.Intent == nil {
			return fmt.Sprintf("T%d placed #%d", ev.TraderID, ev.OrderID)
		}
		in := ev.Intent
		if in.Kind == core.OrderKindLimit {
			return fmt.Sprintf("T%d %s %d @ %s #%d", ev.TraderID, in.Side, in.Quantity, in.Price, ev.OrderID)
		}
		return fmt.Sprintf("T%d %s %d @ MKT #%d", ev.TraderID, in.Side, in.Quantity, ev.OrderID)
	case trader.TraderEventFilled:
		return fmt.Sprintf("T%d filled %d @ %s #%d", ev.TraderID, ev.Quantity, ev.Price.StringFixed(2), ev.OrderID)
	case trader.TraderEventCanceled:
		return fmt.Sprintf("T%d canceled %d #%d", ev.TraderID, ev.Quantity, ev.OrderID)
	case trader.TraderEventError:
		return fmt.Sprintf("T%d error: %s", ev.TraderID, ev.Message)
	default:
		return fmt.Sprintf("T%d %s", ev.TraderID, ev.Type)
	}
}

// Close stops every listener and waits for them to return.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		close(f.closed)
	})
	f.wg.Wait()
}
