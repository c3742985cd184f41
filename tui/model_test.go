package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zappabad/matchbook/internal/driver"
	"github.com/zappabad/matchbook/internal/sim"
	"github.com/zappabad/matchbook/tui/panels"
)

func newTestModel(t *testing.T) (*Model, *sim.Simulation) {
	t.Helper()
	cfg := sim.DefaultConfig()
	cfg.TicksPerDay = 10
	cfg.Days = 1
	cfg.RandomTraders = 4
	cfg.TrendTraders = 1
	cfg.ValueTraders = 1

	log := zaptest.NewLogger(t)
	s, err := sim.New(cfg, log)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return NewModel(s, driver.New(s.Book, log), "MBK", cfg.Decimals), s
}

// collect runs cmd and flattens batches into their messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, collect(c)...)
	}
	return out
}

func findResult(t *testing.T, msgs []tea.Msg) panels.ConsoleResultMsg {
	t.Helper()
	for _, m := range msgs {
		if r, ok := m.(panels.ConsoleResultMsg); ok {
			return r
		}
	}
	t.Fatalf("no console result among %v", msgs)
	return panels.ConsoleResultMsg{}
}

func TestFocusCycling(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, FocusConsole, m.Focus())

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, FocusStats, m.Focus())

	m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, FocusConsole, m.Focus())

	m.Update(tea.KeyMsg{Type: tea.KeyF3})
	assert.Equal(t, FocusChart, m.Focus())
}

func TestQuitKeyOnlyOutsideConsole(t *testing.T) {
	m, _ := newTestModel(t)
	q := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}

	_, cmd := m.Update(q)
	for _, msg := range collect(cmd) {
		assert.NotEqual(t, tea.QuitMsg{}, msg)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyF1})
	_, cmd = m.Update(q)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestConsoleCommandRoundTrip(t *testing.T) {
	m, s := newTestModel(t)

	_, cmd := m.Update(panels.ConsoleSubmitMsg{Line: "add 5 sell limit 250"})
	res := findResult(t, collect(cmd))
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "Order ID:")

	m.Update(res)
	assert.Contains(t, m.statusMsg, "add 5 sell limit 250")

	_, cmd = m.Update(panels.ConsoleSubmitMsg{Line: "sell"})
	res = findResult(t, collect(cmd))
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "Best sell price: 250")

	// The traders have not stepped, so the console order is the only one.
	assert.Equal(t, int64(0), s.Tick())
}

func TestConsoleExitQuits(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(panels.ConsoleSubmitMsg{Line: "exit"})
	res := findResult(t, collect(cmd))
	assert.True(t, res.Quit)

	_, cmd = m.Update(res)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestRefreshAppliesSimulationState(t *testing.T) {
	m, s := newTestModel(t)
	for range 10 {
		_, err := s.Step(t.Context())
		require.NoError(t, err)
	}

	msg, ok := m.fetch().(dataMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	assert.Equal(t, int64(10), msg.tick)
	assert.Len(t, msg.accounts, 6)
	assert.Len(t, msg.closed, 1)

	m.Update(tea.WindowSizeMsg{Width: 160, Height: 48})
	m.apply(msg)
	assert.Len(t, m.statsPanel.Accounts(), 6)
	assert.Contains(t, m.View(), "MBK")
}
