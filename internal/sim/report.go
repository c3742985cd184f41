package sim

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type DayReport struct {
	Day   int    `yaml:"day"`
	Open  string `yaml:"open"`
	High  string `yaml:"high"`
	Low   string `yaml:"low"`
	Close string `yaml:"close"`
	Ticks int    `yaml:"ticks"`
}

type TraderReport struct {
	ID       int64  `yaml:"id"`
	Strategy string `yaml:"strategy"`
	Cash     string `yaml:"cash"`
	Position int64  `yaml:"position"`
	Equity   string `yaml:"equity"`
}

// Report summarizes a run: closed days and every trader's holdings
// valued at the final reference price.
type Report struct {
	Instrument   string         `yaml:"instrument"`
	Ticks        int64          `yaml:"ticks"`
	CurrentPrice string         `yaml:"current_price"`
	Days         []DayReport    `yaml:"days"`
	Traders      []TraderReport `yaml:"traders"`
}

func (s *Simulation) Report(ctx context.Context) (Report, error) {
	price, err := s.Book.CurrentPrice(ctx)
	if err != nil {
		return Report{}, err
	}

	r := Report{
		Instrument:   s.cfg.Service.Instrument,
		Ticks:        s.Tick(),
		CurrentPrice: price.StringFixed(s.cfg.Decimals),
	}
	for _, d := range s.Candles.Days() {
		r.Days = append(r.Days, DayReport{
			Day:   d.Day,
			Open:  d.Open.StringFixed(s.cfg.Decimals),
			High:  d.High.StringFixed(s.cfg.Decimals),
			Low:   d.Low.StringFixed(s.cfg.Decimals),
			Close: d.Close.StringFixed(s.cfg.Decimals),
			Ticks: d.Ticks,
		})
	}
	for _, a := range s.Traders.Accounts() {
		r.Traders = append(r.Traders, TraderReport{
			ID:       int64(a.TraderID),
			Strategy: a.Strategy,
			Cash:     a.Cash.StringFixed(2),
			Position: a.Position,
			Equity:   a.Equity(price).StringFixed(2),
		})
	}
	return r, nil
}

// WriteReport encodes the run summary as YAML.
func (s *Simulation) WriteReport(ctx context.Context, w io.Writer) error {
	r, err := s.Report(ctx)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}
