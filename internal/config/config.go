// Package config loads process configuration from an optional YAML file
// and MATCHBOOK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type Instrument struct {
	Name       string `mapstructure:"name" validate:"required"`
	Decimals   int32  `mapstructure:"decimals" validate:"gte=0,lte=8"`
	StartPrice string `mapstructure:"start_price" validate:"required"`
}

type Service struct {
	CommandBuffer int `mapstructure:"command_buffer" validate:"gt=0"`
	TradeTapeSize int `mapstructure:"trade_tape_size" validate:"gt=0"`
}

type Sim struct {
	TicksPerDay   int           `mapstructure:"ticks_per_day" validate:"gt=0"`
	Days          int           `mapstructure:"days" validate:"gte=0"`
	TickInterval  time.Duration `mapstructure:"tick_interval" validate:"gte=0"`
	Seed          int64         `mapstructure:"seed"`
	RandomTraders int           `mapstructure:"random_traders" validate:"gte=0"`
	TrendTraders  int           `mapstructure:"trend_traders" validate:"gte=0"`
	ValueTraders  int           `mapstructure:"value_traders" validate:"gte=0"`
	StartingCash  string        `mapstructure:"starting_cash" validate:"required"`
	MaxOrderAge   int           `mapstructure:"max_order_age" validate:"gte=0"`
	Report        string        `mapstructure:"report"`
}

type Metrics struct {
	Textfile string `mapstructure:"textfile"`
}

type Trace struct {
	File string `mapstructure:"file"`
}

// App is the full configuration tree.
type App struct {
	Log        Log        `mapstructure:"log"`
	Instrument Instrument `mapstructure:"instrument"`
	Service    Service    `mapstructure:"service"`
	Sim        Sim        `mapstructure:"sim"`
	Metrics    Metrics    `mapstructure:"metrics"`
	Trace      Trace      `mapstructure:"trace"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("instrument.name", "MBK")
	v.SetDefault("instrument.decimals", 2)
	v.SetDefault("instrument.start_price", "100")

	v.SetDefault("service.command_buffer", 256)
	v.SetDefault("service.trade_tape_size", 1000)

	v.SetDefault("sim.ticks_per_day", 390)
	v.SetDefault("sim.days", 5)
	v.SetDefault("sim.tick_interval", "0s")
	v.SetDefault("sim.seed", 1)
	v.SetDefault("sim.random_traders", 20)
	v.SetDefault("sim.trend_traders", 5)
	v.SetDefault("sim.value_traders", 5)
	v.SetDefault("sim.starting_cash", "10000")
	v.SetDefault("sim.max_order_age", 20)

	v.SetDefault("sim.report", "")

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("trace.file", "")
}

// Load reads path, or ./matchbook.yaml when path is empty and such a file
// exists, then applies environment overrides such as
// MATCHBOOK_SIM_TICKS_PER_DAY. A ./.env file, when present, is loaded into
// the environment first without replacing variables already set.
func Load(path string) (*App, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MATCHBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("matchbook")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &App{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the fields that would otherwise fail deep inside a run.
func (a *App) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := a.StartPrice(); err != nil {
		return err
	}
	if _, err := a.StartingCash(); err != nil {
		return err
	}
	return nil
}

func (a *App) StartPrice() (decimal.Decimal, error) {
	return positiveDecimal("instrument.start_price", a.Instrument.StartPrice)
}

func (a *App) StartingCash() (decimal.Decimal, error) {
	return positiveDecimal("sim.starting_cash", a.Sim.StartingCash)
}

func positiveDecimal(key, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, key)
	}
	return d, nil
}
