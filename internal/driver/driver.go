// Package driver maps text commands onto an order book and renders the
// results as lines of text.
package driver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/orderbook/view"
)

var (
	ErrUsage          = errors.New("usage")
	ErrUnknownCommand = errors.New("unknown command")
)

// Book is the subset of the order book service the driver needs.
type Book interface {
	Submit(ctx context.Context, qty core.Quantity, side core.Side, kind core.OrderKind, price core.Price) (core.SubmitReport, error)
	Cancel(ctx context.Context, id core.OrderID) (core.CancelReport, bool, error)
	Query(ctx context.Context, id core.OrderID) (core.Result, error)
	Snapshot(ctx context.Context) (view.Snapshot, error)
	Orders(ctx context.Context, side core.Side) ([]core.RestingOrder, error)
	Trades(ctx context.Context, n int) ([]view.Trade, error)
	Reset(ctx context.Context) error
}

type handler struct {
	usage string
	run   func(d *Driver, ctx context.Context, args []string) (string, error)
}

var commands map[string]handler

func init() {
	commands = map[string]handler{
		"add":         {"add <qty> <Buy|Sell> <Limit|Market> [price]", (*Driver).add},
		"cancel":      {"cancel <id>", (*Driver).cancel},
		"get":         {"get <id>", (*Driver).get},
		"current":     {"current", (*Driver).current},
		"buy":         {"buy", (*Driver).bestBuy},
		"sell":        {"sell", (*Driver).bestSell},
		"buy_volume":  {"buy_volume", (*Driver).buyVolume},
		"sell_volume": {"sell_volume", (*Driver).sellVolume},
		"reset":       {"reset", (*Driver).reset},
		"print":       {"print", (*Driver).print},
		"trades":      {"trades [n]", (*Driver).trades},
		"help":        {"help", (*Driver).help},
		"exit":        {"exit", nil},
	}
}

const defaultTrades = 10

type Driver struct {
	book Book
	log  *zap.Logger
}

func New(book Book, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{book: book, log: log}
}

// Execute runs one command line. quit is true for "exit". A blank line
// produces no output.
func (d *Driver) Execute(ctx context.Context, line string) (out string, quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false, nil
	}

	verb, args := fields[0], fields[1:]
	h, ok := commands[verb]
	if !ok {
		if s := suggest(verb); s != "" {
			return "", false, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownCommand, verb, s)
		}
		return "", false, fmt.Errorf("%w %q", ErrUnknownCommand, verb)
	}
	if h.run == nil {
		return "", true, nil
	}

	out, err = h.run(d, ctx, args)
	if errors.Is(err, ErrUsage) {
		err = fmt.Errorf("%w: %s", ErrUsage, h.usage)
	}
	return out, false, err
}

// suggest returns the closest known verb within two edits.
func suggest(verb string) string {
	best, bestDist := "", 3
	for _, name := range verbs() {
		if dist := levenshtein.ComputeDistance(verb, name); dist < bestDist {
			best, bestDist = name, dist
		}
	}
	return best
}

func verbs() []string {
	out := make([]string, 0, len(commands))
	for name := range commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run reads commands from r until exit or EOF, writing output and errors
// to w. Command errors are reported and the loop carries on.
func (d *Driver) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, quit, err := d.Execute(ctx, sc.Text())
		if err != nil {
			d.log.Debug("command failed", zap.String("line", sc.Text()), zap.Error(err))
			if _, werr := fmt.Fprintf(w, "error: %v\n", err); werr != nil {
				return werr
			}
			continue
		}
		if out != "" {
			if _, werr := fmt.Fprintln(w, out); werr != nil {
				return werr
			}
		}
		if quit {
			return nil
		}
	}
	return sc.Err()
}

func parseSide(s string) (core.Side, bool) {
	switch {
	case strings.EqualFold(s, "buy"):
		return core.SideBuy, true
	case strings.EqualFold(s, "sell"):
		return core.SideSell, true
	}
	return 0, false
}

func parseKind(s string) (core.OrderKind, bool) {
	switch {
	case strings.EqualFold(s, "limit"):
		return core.OrderKindLimit, true
	case strings.EqualFold(s, "market"):
		return core.OrderKindMarket, true
	}
	return 0, false
}

func parseID(args []string) (core.OrderID, error) {
	if len(args) != 1 {
		return 0, ErrUsage
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return 0, ErrUsage
	}
	return core.OrderID(id), nil
}

func (d *Driver) add(ctx context.Context, args []string) (string, error) {
	if len(args) < 3 || len(args) > 4 {
		return "", ErrUsage
	}
	qty, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return "", ErrUsage
	}
	side, ok := parseSide(args[1])
	if !ok {
		return "", ErrUsage
	}
	kind, ok := parseKind(args[2])
	if !ok {
		return "", ErrUsage
	}
	price := decimal.Zero
	if len(args) == 4 {
		if price, err = decimal.NewFromString(args[3]); err != nil {
			return "", ErrUsage
		}
	} else if kind == core.OrderKindLimit {
		return "", ErrUsage
	}

	report, err := d.book.Submit(ctx, core.Quantity(qty), side, kind, price)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Order ID: %d", report.OrderID), nil
}

func (d *Driver) cancel(ctx context.Context, args []string) (string, error) {
	id, err := parseID(args)
	if err != nil {
		return "", err
	}
	report, ok, err := d.book.Cancel(ctx, id)
	if err != nil {
		return "", err
	}
	if !ok {
		return fmt.Sprintf("Order %d is not resting", id), nil
	}
	return fmt.Sprintf("Order %d canceled: %d unfilled", id, report.CanceledSize), nil
}

func (d *Driver) get(ctx context.Context, args []string) (string, error) {
	id, err := parseID(args)
	if err != nil {
		return "", err
	}
	res, err := d.book.Query(ctx, id)
	if err != nil {
		return "", err
	}
	switch res.Status {
	case core.StatusPending:
		return "Order is pending", nil
	case core.StatusPartlyFilled:
		return fmt.Sprintf("Order is partly filled: %d at %s", res.FilledQuantity, res.FilledPrice), nil
	case core.StatusFullyFilled:
		return fmt.Sprintf("Order is fully filled: %d at %s", res.FilledQuantity, res.FilledPrice), nil
	default:
		return "Order not found", nil
	}
}

func (d *Driver) snapshot(ctx context.Context, args []string) (view.Snapshot, error) {
	if len(args) != 0 {
		return view.Snapshot{}, ErrUsage
	}
	return d.book.Snapshot(ctx)
}

func (d *Driver) current(ctx context.Context, args []string) (string, error) {
	s, err := d.snapshot(ctx, args)
	if err != nil {
		return "", err
	}
	return "Current price: " + s.CurrentPrice.String(), nil
}

func (d *Driver) bestBuy(ctx context.Context, args []string) (string, error) {
	s, err := d.snapshot(ctx, args)
	if err != nil {
		return "", err
	}
	return "Best buy price: " + s.BestBid.String(), nil
}

func (d *Driver) bestSell(ctx context.Context, args []string) (string, error) {
	s, err := d.snapshot(ctx, args)
	if err != nil {
		return "", err
	}
	return "Best sell price: " + s.BestAsk.String(), nil
}

func (d *Driver) buyVolume(ctx context.Context, args []string) (string, error) {
	s, err := d.snapshot(ctx, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Total buy volume: %d", s.BidVolume), nil
}

func (d *Driver) sellVolume(ctx context.Context, args []string) (string, error) {
	s, err := d.snapshot(ctx, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Total sell volume: %d", s.AskVolume), nil
}

func (d *Driver) reset(ctx context.Context, args []string) (string, error) {
	if len(args) != 0 {
		return "", ErrUsage
	}
	return "", d.book.Reset(ctx)
}

func (d *Driver) print(ctx context.Context, args []string) (string, error) {
	s, err := d.snapshot(ctx, args)
	if err != nil {
		return "", err
	}
	bids, err := d.book.Orders(ctx, core.SideBuy)
	if err != nil {
		return "", err
	}
	asks, err := d.book.Orders(ctx, core.SideSell)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Buy Orders:\n")
	writeOrders(&b, bids)
	b.WriteString("Sell Orders:\n")
	writeOrders(&b, asks)
	fmt.Fprintf(&b, "Current Price: %s\n", s.CurrentPrice)
	fmt.Fprintf(&b, "Buy Volume: %d\n", s.BidVolume)
	fmt.Fprintf(&b, "Sell Volume: %d", s.AskVolume)
	return b.String(), nil
}

func writeOrders(b *strings.Builder, orders []core.RestingOrder) {
	for _, o := range orders {
		fmt.Fprintf(b, "Order ID: %d Quantity: %d Price: %s Filled_Price: %s\n",
			o.ID, o.Remaining, o.Price, o.FilledPrice)
	}
}

func (d *Driver) trades(ctx context.Context, args []string) (string, error) {
	n := defaultTrades
	switch len(args) {
	case 0:
	case 1:
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return "", ErrUsage
		}
		n = v
	default:
		return "", ErrUsage
	}

	trades, err := d.book.Trades(ctx, n)
	if err != nil {
		return "", err
	}
	if len(trades) == 0 {
		return "No trades", nil
	}
	lines := make([]string, len(trades))
	for i, t := range trades {
		lines[i] = fmt.Sprintf("#%d %s %d at %s (taker %d, maker %d)",
			t.Seq, t.TakerSide, t.Quantity, t.Price, t.TakerOrderID, t.MakerOrderID)
	}
	return strings.Join(lines, "\n"), nil
}

func (d *Driver) help(_ context.Context, _ []string) (string, error) {
	names := verbs()
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "  " + commands[name].usage
	}
	return "Commands:\n" + strings.Join(lines, "\n"), nil
}
