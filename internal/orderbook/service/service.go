package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/zappabad/matchbook/internal/metrics"
	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/orderbook/view"
)

// ErrClosed is returned by every call made after Close.
var ErrClosed = errors.New("orderbook service closed")

type cmdType int

const (
	cmdSubmit cmdType = iota
	cmdCancel
	cmdQuery
	cmdSnapshot
	cmdReset
	cmdCurrentPrice
	cmdTrades
	cmdOrders
)

type command struct {
	typ    cmdType
	qty    core.Quantity
	side   core.Side
	kind   core.OrderKind
	price  core.Price
	id     core.OrderID
	n      int
	respCh chan<- response
}

func (c command) mutates() bool {
	switch c.typ {
	case cmdSubmit, cmdCancel, cmdQuery, cmdReset:
		return true
	}
	return false
}

type response struct {
	submit   core.SubmitReport
	cancel   core.CancelReport
	canceled bool
	result   core.Result
	snapshot view.Snapshot
	price    core.Price
	trades   []view.Trade
	orders   []core.RestingOrder
	err      error
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service owns one matching core and serializes all access to it through
// a single goroutine. Reads go through the same queue, so every answer
// reflects a state between two whole commands.
type Service struct {
	cfg     Config
	core    *core.Core
	tape    *view.TradeTape
	metrics *metrics.Metrics
	log     *zap.Logger

	tradeSeq uint64

	cmdCh     chan command
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewService creates a Service and starts its command processor.
func NewService(cfg Config, opts ...Option) *Service {
	cfg = cfg.withDefaults()

	s := &Service{
		cfg:    cfg,
		tape:   view.NewTradeTape(cfg.TradeTapeSize),
		log:    zap.NewNop(),
		cmdCh:  make(chan command, cfg.CommandBuffer),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(cfg.Instrument)
	}
	s.log = s.log.With(zap.String("instrument", cfg.Instrument))
	s.core = core.New(cfg.StartPrice, core.WithLogger(s.log.Named("core")))
	s.publishBook()

	s.wg.Add(1)
	go s.runCommandProcessor()

	s.log.Info("orderbook service started",
		zap.String("start_price", cfg.StartPrice.String()),
		zap.Int("command_buffer", cfg.CommandBuffer))
	return s
}

// Metrics returns the collectors the service reports into.
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

func (s *Service) runCommandProcessor() {
	defer s.wg.Done()

	for {
		select {
		case <-s.closed:
			return
		case cmd := <-s.cmdCh:
			s.processCommand(cmd)
		}
	}
}

func (s *Service) processCommand(cmd command) {
	var resp response

	switch cmd.typ {
	case cmdSubmit:
		report, err := s.core.Submit(cmd.qty, cmd.side, cmd.kind, cmd.price)
		if err != nil {
			s.metrics.ObserveReject()
			s.log.Warn("order rejected",
				zap.Error(err),
				zap.Uint64("quantity", uint64(cmd.qty)),
				zap.Stringer("side", cmd.side),
				zap.Stringer("kind", cmd.kind),
				zap.String("price", cmd.price.String()))
			resp.err = fmt.Errorf("submit: %w", err)
			break
		}
		trades := view.TradesFromReport(report, s.tradeSeq+1)
		s.tradeSeq += uint64(len(trades))
		s.tape.Append(trades...)
		s.metrics.ObserveSubmit(report)
		s.publishBook()
		resp.submit = report

	case cmdCancel:
		resp.cancel, resp.canceled = s.core.Cancel(cmd.id)
		if resp.canceled {
			s.metrics.ObserveCancel()
			s.publishBook()
		}

	case cmdQuery:
		resp.result = s.core.Query(cmd.id)
		s.publishBook()

	case cmdSnapshot:
		resp.snapshot = view.Capture(s.core)

	case cmdReset:
		s.core.Reset()
		s.publishBook()
		s.log.Info("book reset", zap.String("current_price", s.core.CurrentPrice().String()))

	case cmdCurrentPrice:
		resp.price = s.core.CurrentPrice()

	case cmdTrades:
		resp.trades = s.tape.Last(cmd.n)

	case cmdOrders:
		resp.orders = s.core.Orders(cmd.side)
	}

	if cmd.respCh != nil {
		cmd.respCh <- resp
	}
}

func (s *Service) publishBook() {
	s.metrics.SetBook(s.core.BidVolume(), s.core.AskVolume(), s.core.CurrentPrice(), s.core.OpenOrders())
}

func (s *Service) do(ctx context.Context, cmd command) (response, error) {
	respCh := make(chan response, 1)
	cmd.respCh = respCh

	select {
	case <-s.closed:
		return response{}, ErrClosed
	case <-ctx.Done():
		return response{}, ctx.Err()
	case s.cmdCh <- cmd:
	}

	// Once queued, a mutating command runs whatever ctx does, so its
	// caller waits for the outcome instead of losing an id or a fill.
	done := ctx.Done()
	if cmd.mutates() {
		done = nil
	}

	select {
	case <-s.closed:
		return response{}, ErrClosed
	case <-done:
		return response{}, ctx.Err()
	case resp := <-respCh:
		return resp, resp.err
	}
}

// Submit submits an order. Market orders ignore price. ctx only bounds
// the wait for a queue slot; once queued, Submit returns the report.
func (s *Service) Submit(ctx context.Context, qty core.Quantity, side core.Side, kind core.OrderKind, price core.Price) (core.SubmitReport, error) {
	resp, err := s.do(ctx, command{typ: cmdSubmit, qty: qty, side: side, kind: kind, price: price})
	return resp.submit, err
}

// Cancel cancels a resting order. The bool is false when nothing was
// resting under id.
func (s *Service) Cancel(ctx context.Context, id core.OrderID) (core.CancelReport, bool, error) {
	resp, err := s.do(ctx, command{typ: cmdCancel, id: id})
	return resp.cancel, resp.canceled, err
}

// Query reports an order's fill state; see core.Core.Query for which
// records it reclaims.
func (s *Service) Query(ctx context.Context, id core.OrderID) (core.Result, error) {
	resp, err := s.do(ctx, command{typ: cmdQuery, id: id})
	return resp.result, err
}

func (s *Service) Snapshot(ctx context.Context) (view.Snapshot, error) {
	resp, err := s.do(ctx, command{typ: cmdSnapshot})
	return resp.snapshot, err
}

// Reset clears the book but keeps the reference price and the trade tape.
func (s *Service) Reset(ctx context.Context) error {
	_, err := s.do(ctx, command{typ: cmdReset})
	return err
}

func (s *Service) CurrentPrice(ctx context.Context) (core.Price, error) {
	resp, err := s.do(ctx, command{typ: cmdCurrentPrice})
	return resp.price, err
}

// Trades returns the last n trades in chronological order.
func (s *Service) Trades(ctx context.Context, n int) ([]view.Trade, error) {
	resp, err := s.do(ctx, command{typ: cmdTrades, n: n})
	return resp.trades, err
}

// Orders returns the resting orders on side in priority order.
func (s *Service) Orders(ctx context.Context, side core.Side) ([]core.RestingOrder, error) {
	resp, err := s.do(ctx, command{typ: cmdOrders, side: side})
	return resp.orders, err
}

// Close shuts down the service and waits for the processor to exit.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.log.Info("orderbook service stopped")
	})
	s.wg.Wait()
}
