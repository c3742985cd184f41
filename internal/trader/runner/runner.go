package runner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/orderbook/view"
	"github.com/zappabad/matchbook/internal/trader"
	"github.com/zappabad/matchbook/internal/trader/strategy"
)

// History supplies daily closes to strategies.
type History interface {
	MeanClose(days int) (core.Price, bool)
}

type member struct {
	id       trader.TraderID
	strategy strategy.Strategy
	account  trader.Account
}

// pending is an order the runner still has to reconcile with the book.
// seenQty and seenNotional are the fills already settled into the account.
type pending struct {
	owner        *member
	intent       trader.OrderIntent
	placed       int64
	seenQty      core.Quantity
	seenNotional decimal.Decimal
}

func (p *pending) remaining() core.Quantity { return p.intent.Quantity - p.seenQty }

// Runner drives a population of traders against one book, one tick at a
// time. Step, Settle, and NewDay must be called from a single goroutine;
// Accounts and Events may be read concurrently.
type Runner struct {
	cfg     Config
	sender  strategy.OrderSender
	history History
	rng     *rand.Rand
	log     *zap.Logger

	mu          sync.RWMutex
	members     []*member
	outstanding map[core.OrderID]*pending

	events        chan trader.TraderEvent
	droppedEvents atomic.Int64
	closeOnce     sync.Once
}

// NewRunner creates a Runner with no traders.
func NewRunner(cfg Config, sender strategy.OrderSender, history History, rng *rand.Rand, log *zap.Logger) *Runner {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if cfg.MaxOrderAge < 0 {
		cfg.MaxOrderAge = 0
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		cfg:         cfg,
		sender:      sender,
		history:     history,
		rng:         rng,
		log:         log,
		outstanding: map[core.OrderID]*pending{},
		events:      make(chan trader.TraderEvent, cfg.EventBuffer),
	}
}

// Add registers a trader with its opening account.
func (r *Runner) Add(id trader.TraderID, s strategy.Strategy, acct trader.Account) {
	acct.TraderID = id
	acct.Strategy = s.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = append(r.members, &member{id: id, strategy: s, account: acct})
}

type reader struct {
	snap    view.Snapshot
	history History
}

func (m reader) Snapshot() view.Snapshot { return m.snap }

func (m reader) MeanClose(days int) (core.Price, bool) {
	if m.history == nil {
		return decimal.Zero, false
	}
	return m.history.MeanClose(days)
}

// Step settles outstanding orders, then lets every trader act once.
func (r *Runner) Step(ctx context.Context, tick int64) error {
	if err := r.Settle(ctx, tick); err != nil {
		return err
	}

	snap, err := r.sender.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	mr := reader{snap: snap, history: r.history}

	for _, i := range r.rng.Perm(len(r.members)) {
		m := r.members[i]
		for _, intent := range m.strategy.Step(ctx, tick, mr, r.available(m)) {
			if err := r.place(ctx, tick, m, intent); err != nil {
				return err
			}
		}
	}
	return nil
}

// available is the account minus what outstanding orders have committed.
func (r *Runner) available(m *member) trader.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct := m.account
	for _, p := range r.outstanding {
		if p.owner != m || p.intent.Kind != core.OrderKindLimit {
			continue
		}
		rem := p.remaining()
		if p.intent.Side == core.SideBuy {
			acct.Cash = acct.Cash.Sub(p.intent.Price.Mul(decimal.NewFromInt(int64(rem))))
		} else {
			acct.Position -= int64(rem)
		}
	}
	return acct
}

func (r *Runner) place(ctx context.Context, tick int64, m *member, intent trader.OrderIntent) error {
	report, err := r.sender.Submit(ctx, intent.Quantity, intent.Side, intent.Kind, intent.Price)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		r.emitEvent(trader.TraderEvent{TraderID: m.id, Tick: tick, Type: trader.TraderEventError, Message: err.Error()})
		return nil
	}

	in := intent
	r.emitEvent(trader.TraderEvent{TraderID: m.id, Tick: tick, Type: trader.TraderEventPlacedOrder, OrderID: report.OrderID, Intent: &in})

	p := &pending{owner: m, intent: intent, placed: tick, seenNotional: decimal.Zero}
	var qty core.Quantity
	notional := decimal.Zero
	for _, f := range report.Fills {
		qty += f.Quantity
		notional = notional.Add(f.Price.Mul(decimal.NewFromInt(int64(f.Quantity))))
	}

	r.mu.Lock()
	r.settle(tick, report.OrderID, p, qty, notional)
	// Every order stays tracked until a Query reclaims its record.
	r.outstanding[report.OrderID] = p
	r.mu.Unlock()
	return nil
}

// settle books fills up to a cumulative total. Caller holds mu.
func (r *Runner) settle(tick int64, id core.OrderID, p *pending, totalQty core.Quantity, totalNotional decimal.Decimal) {
	// Totals only grow for one order. A smaller total means the id was
	// reassigned after an outside reset of the book.
	if totalQty <= p.seenQty {
		return
	}
	dq := totalQty - p.seenQty
	dn := totalNotional.Sub(p.seenNotional)
	p.seenQty, p.seenNotional = totalQty, totalNotional

	acct := &p.owner.account
	if p.intent.Side == core.SideBuy {
		acct.Cash = acct.Cash.Sub(dn)
		acct.Position += int64(dq)
	} else {
		acct.Cash = acct.Cash.Add(dn)
		acct.Position -= int64(dq)
	}

	r.emitEvent(trader.TraderEvent{
		TraderID: p.owner.id,
		Tick:     tick,
		Type:     trader.TraderEventFilled,
		OrderID:  id,
		Quantity: dq,
		Price:    dn.Div(decimal.NewFromInt(int64(dq))),
	})
}

// Settle queries every outstanding order, books new fills, forgets orders
// whose records the query reclaimed, and cancels limit orders older than
// MaxOrderAge.
func (r *Runner) Settle(ctx context.Context, tick int64) error {
	r.mu.RLock()
	ids := make([]core.OrderID, 0, len(r.outstanding))
	for id := range r.outstanding {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		res, err := r.sender.Query(ctx, id)
		if err != nil {
			return fmt.Errorf("query order %d: %w", id, err)
		}

		r.mu.Lock()
		p := r.outstanding[id]
		if res.Status != core.StatusNone {
			r.settle(tick, id, p, res.FilledQuantity, res.FilledPrice.Mul(decimal.NewFromInt(int64(res.FilledQuantity))))
		}
		done := res.Status == core.StatusNone ||
			res.Status == core.StatusFullyFilled ||
			p.intent.Kind == core.OrderKindMarket
		if done {
			delete(r.outstanding, id)
		}
		r.mu.Unlock()

		if !done && r.cfg.MaxOrderAge > 0 && tick-p.placed >= r.cfg.MaxOrderAge {
			if err := r.cancel(ctx, tick, id, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) cancel(ctx context.Context, tick int64, id core.OrderID, p *pending) error {
	report, ok, err := r.sender.Cancel(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !ok {
		// Filled since the query; the next Settle reclaims it.
		return nil
	}
	// Anything filled between the query and the cancel traded as maker,
	// at the order's own limit price.
	filled := p.intent.Quantity - report.CanceledSize
	if filled > p.seenQty {
		extra := p.intent.Price.Mul(decimal.NewFromInt(int64(filled - p.seenQty)))
		r.settle(tick, id, p, filled, p.seenNotional.Add(extra))
	}
	delete(r.outstanding, id)
	r.emitEvent(trader.TraderEvent{
		TraderID: p.owner.id,
		Tick:     tick,
		Type:     trader.TraderEventCanceled,
		OrderID:  id,
		Quantity: report.CanceledSize,
	})
	return nil
}

// NewDay forgets every outstanding order, since the book is reset at the
// day boundary, and pays each trader a salary. Call Settle before the
// reset so the last fills of the day are booked.
func (r *Runner) NewDay() {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.outstanding)
	span := r.cfg.SalaryMax.Sub(r.cfg.SalaryMin)
	for _, m := range r.members {
		if !r.cfg.SalaryMax.IsPositive() {
			break
		}
		pay := r.cfg.SalaryMin.Add(span.Mul(decimal.NewFromFloat(r.rng.Float64()))).Round(2)
		m.account.Cash = m.account.Cash.Add(pay)
	}
}

// Accounts returns a copy of every account, in the order traders were added.
func (r *Runner) Accounts() []trader.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]trader.Account, len(r.members))
	for i, m := range r.members {
		out[i] = m.account
	}
	return out
}

// Outstanding returns how many orders await reconciliation.
func (r *Runner) Outstanding() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outstanding)
}

func (r *Runner) emitEvent(ev trader.TraderEvent) {
	if r.cfg.DropEvents {
		select {
		case r.events <- ev:
		default:
			r.droppedEvents.Add(1)
		}
		return
	}
	r.events <- ev
}

// Events returns the trader events channel.
func (r *Runner) Events() <-chan trader.TraderEvent {
	return r.events
}

// DroppedEvents returns the count of dropped events.
func (r *Runner) DroppedEvents() int64 {
	return r.droppedEvents.Load()
}

// Close closes the events channel. The runner must not be stepped again.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.events)
		r.log.Debug("trader runner closed", zap.Int("traders", len(r.members)))
	})
}
