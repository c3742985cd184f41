package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matchbook.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "MBK", cfg.Instrument.Name)
	assert.Equal(t, 390, cfg.Sim.TicksPerDay)
	assert.Equal(t, time.Duration(0), cfg.Sim.TickInterval)

	price, err := cfg.StartPrice()
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(100)))
}

func TestLoadFileAndEnv(t *testing.T) {
	path := writeFile(t, `
log:
  level: debug
instrument:
  name: ACME
  start_price: "42.50"
sim:
  ticks_per_day: 10
  tick_interval: 250ms
`)
	t.Setenv("MATCHBOOK_SIM_DAYS", "3")
	t.Setenv("MATCHBOOK_LOG_FORMAT", "console")
	t.Setenv("MATCHBOOK_TRACE_FILE", "spans.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "ACME", cfg.Instrument.Name)
	assert.Equal(t, 10, cfg.Sim.TicksPerDay)
	assert.Equal(t, 3, cfg.Sim.Days)
	assert.Equal(t, 250*time.Millisecond, cfg.Sim.TickInterval)
	assert.Equal(t, "spans.json", cfg.Trace.File)

	price, err := cfg.StartPrice()
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("42.5")))
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad price", "instrument:\n  start_price: abc\n"},
		{"zero price", "instrument:\n  start_price: \"0\"\n"},
		{"no ticks", "sim:\n  ticks_per_day: 0\n"},
		{"negative cash", "sim:\n  starting_cash: \"-5\"\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"too many decimals", "instrument:\n  decimals: 12\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MATCHBOOK_INSTRUMENT_NAME=DOTENV\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("MATCHBOOK_INSTRUMENT_NAME") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "DOTENV", cfg.Instrument.Name)
}
