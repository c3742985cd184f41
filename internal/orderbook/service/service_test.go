package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zappabad/matchbook/internal/orderbook/core"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(DefaultConfig(), WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(svc.Close)
	return svc
}

func TestServiceBasic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	report, err := svc.Submit(ctx, 10, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OrderID != 1 {
		t.Errorf("expected id 1, got %d", report.OrderID)
	}
	if !report.Rested || report.Remaining != 10 {
		t.Errorf("expected 10 resting, got %+v", report)
	}

	snap, err := svc.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Bids) != 1 {
		t.Fatalf("expected 1 level, got %d", len(snap.Bids))
	}
	if !snap.Bids[0].Price.Equal(decimal.NewFromInt(100)) || snap.Bids[0].Quantity != 10 {
		t.Errorf("unexpected level %+v", snap.Bids[0])
	}
	if snap.BidVolume != 10 {
		t.Errorf("expected bid volume 10, got %d", snap.BidVolume)
	}
}

func TestServiceConcurrent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	numOrders := 100
	wg.Add(numOrders)
	for i := 0; i < numOrders; i++ {
		go func(i int) {
			defer wg.Done()
			price := decimal.NewFromInt(int64(100 + i%10))
			if _, err := svc.Submit(ctx, 1, core.SideBuy, core.OrderKindLimit, price); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Quantity(numOrders), snap.BidVolume)
	assert.Equal(t, numOrders, snap.OpenOrders)
	assert.Len(t, snap.Bids, 10)
}

func TestServiceTradesAndQuery(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 5, core.SideSell, core.OrderKindLimit, decimal.NewFromInt(101))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, 5, core.SideSell, core.OrderKindLimit, decimal.NewFromInt(102))
	require.NoError(t, err)
	taker, err := svc.Submit(ctx, 8, core.SideBuy, core.OrderKindMarket, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, taker.Fills, 2)

	trades, err := svc.Trades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(1), trades[0].Seq)
	assert.Equal(t, core.OrderID(1), trades[0].MakerOrderID)
	assert.Equal(t, core.Quantity(3), trades[1].Quantity)
	assert.Equal(t, core.SideBuy, trades[1].TakerSide)

	price, err := svc.CurrentPrice(ctx)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(102)))

	res, err := svc.Query(ctx, taker.OrderID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFullyFilled, res.Status)
	assert.True(t, res.FilledPrice.Equal(decimal.RequireFromString("101.375")))

	res, err = svc.Query(ctx, taker.OrderID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusNone, res.Status)

	expected := `
# HELP matchbook_trades_total Individual fills.
# TYPE matchbook_trades_total counter
matchbook_trades_total{instrument="MBK"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(svc.Metrics().Registry(), strings.NewReader(expected), "matchbook_trades_total"))
}

func TestServiceCancel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	report, err := svc.Submit(ctx, 7, core.SideSell, core.OrderKindLimit, decimal.NewFromInt(105))
	require.NoError(t, err)

	cr, ok, err := svc.Cancel(ctx, report.OrderID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, core.Quantity(7), cr.CanceledSize)

	_, ok, err = svc.Cancel(ctx, report.OrderID)
	require.NoError(t, err)
	assert.False(t, ok, "second cancel must be a no-op")

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.AskVolume)
	assert.Empty(t, snap.Asks)
}

func TestServiceOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, p := range []int64{99, 101, 100} {
		_, err := svc.Submit(ctx, 1, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(p))
		require.NoError(t, err)
	}
	orders, err := svc.Orders(ctx, core.SideBuy)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, []core.OrderID{2, 3, 1}, []core.OrderID{orders[0].ID, orders[1].ID, orders[2].ID})

	orders, err = svc.Orders(ctx, core.SideSell)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestServiceRejectsInvalidSubmit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 0, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(100))
	require.ErrorIs(t, err, core.ErrInvalidQuantity)

	_, err = svc.Submit(ctx, 1, core.SideBuy, core.OrderKindLimit, decimal.Zero)
	require.ErrorIs(t, err, core.ErrInvalidPrice)

	report, err := svc.Submit(ctx, 1, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, core.OrderID(1), report.OrderID, "rejections must not consume ids")
}

func TestServiceReset(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, 2, core.SideSell, core.OrderKindLimit, decimal.NewFromInt(110))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, 1, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(110))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, 4, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(90))
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))

	snap, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.BidVolume)
	assert.Zero(t, snap.AskVolume)
	assert.Zero(t, snap.OpenOrders)
	assert.True(t, snap.CurrentPrice.Equal(decimal.NewFromInt(110)))

	report, err := svc.Submit(ctx, 1, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(90))
	require.NoError(t, err)
	assert.Equal(t, core.OrderID(1), report.OrderID)
}

func TestServiceClosed(t *testing.T) {
	svc := NewService(DefaultConfig())
	svc.Close()
	svc.Close()

	_, err := svc.Submit(context.Background(), 1, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(100))
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := svc.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestServiceContextCanceled(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CurrentPrice(ctx)
	// The command may still win the race onto the buffered queue, but the
	// reply wait also watches ctx, so either way no result escapes.
	if err == nil {
		t.Skip("command completed before cancellation was observed")
	}
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubmitReportsIDAfterContextCanceledWhileQueued(t *testing.T) {
	svc := newTestService(t)

	// Hold the processor on a reply nobody reads yet.
	stall := make(chan response)
	svc.cmdCh <- command{typ: cmdCurrentPrice, respCh: stall}
	require.Eventually(t, func() bool { return len(svc.cmdCh) == 0 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		report core.SubmitReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := svc.Submit(ctx, 5, core.SideBuy, core.OrderKindLimit, decimal.NewFromInt(99))
		done <- result{report, err}
	}()
	require.Eventually(t, func() bool { return len(svc.cmdCh) == 1 }, time.Second, time.Millisecond)

	cancel()
	<-stall

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, core.OrderID(1), res.report.OrderID)
		assert.True(t, res.report.Rested)
	case <-time.After(time.Second):
		t.Fatal("submit did not return")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = Config{Instrument: "XYZ", CommandBuffer: 8}.withDefaults()
	assert.Equal(t, "XYZ", cfg.Instrument)
	assert.Equal(t, 8, cfg.CommandBuffer)
	assert.Equal(t, DefaultConfig().TradeTapeSize, cfg.TradeTapeSize)
}
