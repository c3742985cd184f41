package candles

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/matchbook/internal/orderbook/core"
)

type fakeSource struct {
	prices []core.Price
	i      int
	resets int
	err    error
}

func (f *fakeSource) CurrentPrice(context.Context) (core.Price, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	p := f.prices[f.i%len(f.prices)]
	f.i++
	return p, nil
}

func (f *fakeSource) Reset(context.Context) error {
	f.resets++
	return nil
}

func prices(vals ...int64) []core.Price {
	out := make([]core.Price, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromInt(v)
	}
	return out
}

func TestTickBuildsCandle(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{prices: prices(100, 104, 97, 101)}
	a := NewAggregator(src)

	_, err := a.Tick(ctx)
	require.NoError(t, err)
	_, ok := a.Current()
	assert.False(t, ok, "one sample is not a candle yet")

	for i := 0; i < 3; i++ {
		_, err := a.Tick(ctx)
		require.NoError(t, err)
	}

	c, ok := a.Current()
	require.True(t, ok)
	assert.Equal(t, 1, c.Day)
	assert.True(t, c.Open.Equal(decimal.NewFromInt(100)))
	assert.True(t, c.High.Equal(decimal.NewFromInt(104)))
	assert.True(t, c.Low.Equal(decimal.NewFromInt(97)))
	assert.True(t, c.Close.Equal(decimal.NewFromInt(101)))
	assert.Equal(t, 4, c.Ticks)
	assert.True(t, c.Up())
	assert.Len(t, a.Ticks(), 4)
}

func TestHighLowIncludeFirstSample(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(&fakeSource{prices: prices(120, 110, 115)})
	for i := 0; i < 3; i++ {
		_, err := a.Tick(ctx)
		require.NoError(t, err)
	}
	c, _ := a.Current()
	assert.True(t, c.High.Equal(decimal.NewFromInt(120)))
	assert.True(t, c.Low.Equal(decimal.NewFromInt(110)))
	assert.False(t, c.Up())
}

func TestRollover(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{prices: prices(100, 102)}
	a := NewAggregator(src)

	_, err := a.Tick(ctx)
	require.NoError(t, err)
	_, err = a.Tick(ctx)
	require.NoError(t, err)

	c, ok, err := a.Rollover(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, c.Close.Equal(decimal.NewFromInt(102)))
	assert.Equal(t, 1, src.resets)
	assert.Equal(t, 2, a.Day())
	assert.Empty(t, a.Ticks())

	// A day with a single sample is not recorded but still resets the book.
	_, err = a.Tick(ctx)
	require.NoError(t, err)
	_, ok, err = a.Rollover(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, src.resets)

	days := a.Days()
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].Day)
}

func TestMeanClose(t *testing.T) {
	ctx := context.Background()
	a := NewAggregator(&fakeSource{prices: prices(10, 20, 30, 40)})

	_, ok := a.MeanClose(5)
	assert.False(t, ok)

	for i := 0; i < 2; i++ {
		_, err := a.Tick(ctx)
		require.NoError(t, err)
	}
	m, ok := a.MeanClose(5)
	require.True(t, ok)
	assert.True(t, m.Equal(decimal.NewFromInt(15)), "falls back to today's ticks")

	_, _, err := a.Rollover(ctx) // close 20
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := a.Tick(ctx)
		require.NoError(t, err)
	}
	_, _, err = a.Rollover(ctx) // close 40
	require.NoError(t, err)

	m, ok = a.MeanClose(5)
	require.True(t, ok)
	assert.True(t, m.Equal(decimal.NewFromInt(30)))

	m, ok = a.MeanClose(1)
	require.True(t, ok)
	assert.True(t, m.Equal(decimal.NewFromInt(40)))
}

func TestTickPropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	a := NewAggregator(&fakeSource{err: boom})
	_, err := a.Tick(context.Background())
	assert.ErrorIs(t, err, boom)
}
