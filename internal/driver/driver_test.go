package driver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/orderbook/service"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	svc := service.NewService(service.DefaultConfig(), service.WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(svc.Close)
	return New(svc, zaptest.NewLogger(t))
}

func TestSession(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	steps := []struct {
		line string
		want string
	}{
		{"add 10 Buy Limit 100", "Order ID: 1"},
		{"add 4 Sell Limit 99", "Order ID: 2"},
		{"get 2", "Order is fully filled: 4 at 100"},
		{"get 2", "Order not found"},
		{"get 1", "Order is partly filled: 4 at 100"},
		{"current", "Current price: 100"},
		{"buy", "Best buy price: 100"},
		{"sell", "Best sell price: 0"},
		{"buy_volume", "Total buy volume: 6"},
		{"sell_volume", "Total sell volume: 0"},
		{"add 3 Buy Limit 98.5", "Order ID: 3"},
		{"get 3", "Order is pending"},
		{"add 5 Sell Market", "Order ID: 4"},
		{"get 4", "Order is fully filled: 5 at 100"},
		{"cancel 1", "Order 1 canceled: 1 unfilled"},
		{"cancel 1", "Order 1 is not resting"},
		{"add 2 Buy Market", "Order ID: 5"},
		{"get 5", "Order is partly filled: 0 at 0"},
		{"trades 2", "#1 SELL 4 at 100 (taker 2, maker 1)\n#2 SELL 5 at 100 (taker 4, maker 1)"},
	}
	for _, st := range steps {
		out, quit, err := d.Execute(ctx, st.line)
		require.NoError(t, err, st.line)
		assert.False(t, quit)
		assert.Equal(t, st.want, out, st.line)
	}
}

func TestPrint(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	for _, line := range []string{
		"add 10 Buy Limit 100",
		"add 4 Sell Limit 100",
		"add 2 Buy Limit 101",
		"add 7 Sell Limit 103",
	} {
		_, _, err := d.Execute(ctx, line)
		require.NoError(t, err)
	}

	out, _, err := d.Execute(ctx, "print")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"Buy Orders:",
		"Order ID: 3 Quantity: 2 Price: 101 Filled_Price: 0",
		"Order ID: 1 Quantity: 6 Price: 100 Filled_Price: 100",
		"Sell Orders:",
		"Order ID: 4 Quantity: 7 Price: 103 Filled_Price: 0",
		"Current Price: 100",
		"Buy Volume: 8",
		"Sell Volume: 7",
	}, "\n"), out)
}

func TestReset(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	_, _, err := d.Execute(ctx, "add 1 Sell Limit 120")
	require.NoError(t, err)
	_, _, err = d.Execute(ctx, "add 1 Buy Limit 120")
	require.NoError(t, err)
	_, _, err = d.Execute(ctx, "add 9 Buy Limit 90")
	require.NoError(t, err)

	out, _, err := d.Execute(ctx, "reset")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, _, err = d.Execute(ctx, "current")
	require.NoError(t, err)
	assert.Equal(t, "Current price: 120", out)

	out, _, err = d.Execute(ctx, "add 1 Buy Limit 90")
	require.NoError(t, err)
	assert.Equal(t, "Order ID: 1", out)
}

func TestErrors(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want error
	}{
		{"add", ErrUsage},
		{"add x Buy Limit 10", ErrUsage},
		{"add 1 Hold Limit 10", ErrUsage},
		{"add 1 Buy Stop 10", ErrUsage},
		{"add 1 Buy Limit", ErrUsage},
		{"add 1 Buy Limit abc", ErrUsage},
		{"cancel", ErrUsage},
		{"get -1", ErrUsage},
		{"trades 0", ErrUsage},
		{"current now", ErrUsage},
		{"add 0 Buy Limit 10", core.ErrInvalidQuantity},
		{"add 1 Buy Limit -3", core.ErrInvalidPrice},
		{"launch", ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, _, err := d.Execute(ctx, tt.line)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, _, err := d.Execute(ctx, "add 1 Buy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add <qty> <Buy|Sell> <Limit|Market> [price]")

	_, _, err = d.Execute(ctx, "curent")
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.Contains(t, err.Error(), `did you mean "current"`)
}

func TestHugeQuantitiesKeepTheBookTrading(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	_, _, err := d.Execute(ctx, "add 18446744073709551615 Buy Limit 100")
	require.ErrorIs(t, err, core.ErrInvalidQuantity)

	out, _, err := d.Execute(ctx, "add 9223372036854775807 Buy Limit 100")
	require.NoError(t, err)
	assert.Equal(t, "Order ID: 1", out)

	_, _, err = d.Execute(ctx, "add 1 Buy Limit 99")
	require.ErrorIs(t, err, core.ErrVolumeOverflow)

	out, _, err = d.Execute(ctx, "add 1 Sell Market")
	require.NoError(t, err)
	assert.Equal(t, "Order ID: 2", out)

	out, _, err = d.Execute(ctx, "buy_volume")
	require.NoError(t, err)
	assert.Contains(t, out, "9223372036854775806")
}

func TestBlankAndExit(t *testing.T) {
	d := newTestDriver(t)
	ctx := context.Background()

	out, quit, err := d.Execute(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.False(t, quit)

	_, quit, err = d.Execute(ctx, "exit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestHelpListsEveryCommand(t *testing.T) {
	d := newTestDriver(t)
	out, _, err := d.Execute(context.Background(), "help")
	require.NoError(t, err)
	for _, name := range verbs() {
		assert.Contains(t, out, commands[name].usage)
	}
}

func TestRun(t *testing.T) {
	d := newTestDriver(t)

	in := strings.NewReader("add 1 Buy Limit 10\nbogus\n\nbuy_volume\nexit\nadd 1 Buy Limit 10\n")
	var out bytes.Buffer
	require.NoError(t, d.Run(context.Background(), in, &out))

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Order ID: 1", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "error: unknown command"))
	assert.Equal(t, "Total buy volume: 1", lines[2])
}
