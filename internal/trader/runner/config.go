package runner

import "github.com/shopspring/decimal"

// Config holds configuration for the trader runner.
type Config struct {
	// MaxOrderAge is how many ticks a limit order may rest before the
	// runner cancels it. Zero disables aging.
	MaxOrderAge int64
	// SalaryMin and SalaryMax bound the cash each trader receives when a
	// new day starts.
	SalaryMin decimal.Decimal
	SalaryMax decimal.Decimal
	// EventBuffer is the size of the trader events channel.
	EventBuffer int
	// DropEvents determines whether the events channel drops on overflow.
	DropEvents bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MaxOrderAge: 20,
		SalaryMin:   decimal.NewFromInt(200),
		SalaryMax:   decimal.NewFromInt(400),
		EventBuffer: 256,
		DropEvents:  true,
	}
}
