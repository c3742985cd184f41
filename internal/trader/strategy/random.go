package strategy

import (
	"context"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/trader"
)

// RandomParams tunes a Random trader.
type RandomParams struct {
	// OperationRate is the chance of acting on a tick.
	OperationRate float64
	// TradeMin and TradeMax bound the fraction of cash or position used
	// by one order.
	TradeMin float64
	TradeMax float64
	// MarketRate is the share of orders sent as market orders.
	MarketRate float64
	// Spread is the largest relative distance of a limit price from the
	// reference price, on either side.
	Spread float64
	// MinCash stops buying below this much available cash.
	MinCash  decimal.Decimal
	Decimals int32
}

func DefaultRandomParams() RandomParams {
	return RandomParams{
		OperationRate: 0.10,
		TradeMin:      0.06,
		TradeMax:      0.18,
		MarketRate:    0.2,
		Spread:        0.01,
		MinCash:       decimal.NewFromInt(50),
		Decimals:      2,
	}
}

// Random buys or sells a random slice of its holdings at a price
// scattered around the reference price.
type Random struct {
	p   RandomParams
	rng *rand.Rand
}

func NewRandom(p RandomParams, rng *rand.Rand) *Random {
	return &Random{p: p, rng: rng}
}

func (s *Random) Name() string { return "random" }

func (s *Random) Step(_ context.Context, _ int64, mr MarketReader, available trader.Account) []trader.OrderIntent {
	if s.rng.Float64() >= s.p.OperationRate {
		return nil
	}
	ref := mr.Snapshot().CurrentPrice
	frac := s.p.TradeMin + s.rng.Float64()*(s.p.TradeMax-s.p.TradeMin)
	isMarket := s.rng.Float64() < s.p.MarketRate
	offset := (s.rng.Float64()*2 - 1) * s.p.Spread

	if s.rng.Float64() < 0.5 {
		if available.Cash.LessThan(s.p.MinCash) {
			return nil
		}
		price := quote(ref, offset, s.p.Decimals)
		qty := affordable(available.Cash, decimal.Max(ref, price), frac)
		if isMarket {
			return market(core.SideBuy, qty)
		}
		return limit(core.SideBuy, price, qty)
	}

	qty := sellable(available.Position, frac)
	if isMarket {
		return market(core.SideSell, qty)
	}
	return limit(core.SideSell, quote(ref, offset, s.p.Decimals), qty)
}
