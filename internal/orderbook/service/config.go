package service

import (
	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/orderbook/core"
)

// Config holds configuration for the orderbook service.
type Config struct {
	// Instrument labels logs and metrics.
	Instrument string
	// StartPrice is the reference price before the first trade.
	StartPrice core.Price
	// CommandBuffer is the size of the inbound command channel.
	CommandBuffer int
	// TradeTapeSize is the capacity of the trade tape ring buffer.
	TradeTapeSize int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Instrument:    "MBK",
		StartPrice:    decimal.NewFromInt(100),
		CommandBuffer: 256,
		TradeTapeSize: 1000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Instrument == "" {
		c.Instrument = def.Instrument
	}
	if !c.StartPrice.IsPositive() {
		c.StartPrice = def.StartPrice
	}
	if c.CommandBuffer <= 0 {
		c.CommandBuffer = def.CommandBuffer
	}
	if c.TradeTapeSize <= 0 {
		c.TradeTapeSize = def.TradeTapeSize
	}
	return c
}
