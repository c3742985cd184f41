package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/matchbook/internal/activity"
	"github.com/zappabad/matchbook/internal/candles"
	"github.com/zappabad/matchbook/internal/driver"
	"github.com/zappabad/matchbook/internal/orderbook/view"
	"github.com/zappabad/matchbook/internal/sim"
	"github.com/zappabad/matchbook/internal/trader"
	"github.com/zappabad/matchbook/tui/panels"
	"github.com/zappabad/matchbook/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusStats     PanelFocus = 0
	FocusOrderbook PanelFocus = 1
	FocusChart     PanelFocus = 2
	FocusActivity  PanelFocus = 3
	FocusConsole   PanelFocus = 4

	panelCount = 5
)

const (
	refreshInterval = 100 * time.Millisecond
	fetchTimeout    = 250 * time.Millisecond
	tradesShown     = 20
	activityShown   = 200
)

// Model is the main TUI application model.
type Model struct {
	sim    *sim.Simulation
	driver *driver.Driver

	statsPanel     *panels.StatsPanel
	orderbookPanel *panels.OrderbookPanel
	chartPanel     *panels.CandlestickPanel
	activityPanel  *panels.ActivityPanel
	consolePanel   *panels.ConsolePanel

	focusedPanel PanelFocus

	width  int
	height int

	statusMsg string
	ready     bool
}

// NewModel creates a TUI over a running simulation. Console commands go
// through drv, which should drive the simulation's own book.
func NewModel(s *sim.Simulation, drv *driver.Driver, instrument string, decimals int32) *Model {
	return &Model{
		sim:            s,
		driver:         drv,
		statsPanel:     panels.NewStatsPanel(instrument, decimals),
		orderbookPanel: panels.NewOrderbookPanel(decimals),
		chartPanel:     panels.NewCandlestickPanel(decimals),
		activityPanel:  panels.NewActivityPanel(),
		consolePanel:   panels.NewConsolePanel(),
		focusedPanel:   FocusConsole,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.statsPanel.Init(),
		m.orderbookPanel.Init(),
		m.chartPanel.Init(),
		m.activityPanel.Init(),
		m.consolePanel.Init(),
		m.fetch,
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			// The console needs the key for typing.
			if m.focusedPanel != FocusConsole {
				return m, tea.Quit
			}
		case "tab":
			m.cycleFocus(1)
			return m, nil
		case "shift+tab":
			m.cycleFocus(-1)
			return m, nil
		case "f1":
			m.setFocus(FocusStats)
			return m, nil
		case "f2":
			m.setFocus(FocusOrderbook)
			return m, nil
		case "f3":
			m.setFocus(FocusChart)
			return m, nil
		case "f4":
			m.setFocus(FocusActivity)
			return m, nil
		case "f5":
			m.setFocus(FocusConsole)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case panels.ConsoleSubmitMsg:
		cmds = append(cmds, m.execute(msg.Line))

	case panels.ConsoleResultMsg:
		m.consolePanel.ShowResult(msg)
		if msg.Quit {
			return m, tea.Quit
		}
		if msg.Err != nil {
			m.statusMsg = "❌ " + msg.Line
		} else {
			m.statusMsg = "✓ " + msg.Line
		}

	case dataMsg:
		m.apply(msg)
		cmds = append(cmds, m.tickRefresh())
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusStats:
		m.statsPanel, cmd = m.statsPanel.Update(msg)
	case FocusOrderbook:
		m.orderbookPanel, cmd = m.orderbookPanel.Update(msg)
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusActivity:
		m.activityPanel, cmd = m.activityPanel.Update(msg)
	case FocusConsole:
		m.consolePanel, cmd = m.consolePanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.statsPanel.SetFocus(m.focusedPanel == FocusStats)
	m.orderbookPanel.SetFocus(m.focusedPanel == FocusOrderbook)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.activityPanel.SetFocus(m.focusedPanel == FocusActivity)
	m.consolePanel.SetFocus(m.focusedPanel == FocusConsole)

	// Layout:
	// ┌─────────────────────────────────────────────┐
	// │      Stats        │  Orderbook  │   Chart   │
	// │                   │             │           │
	// ├───────────────────┼─────────────┴───────────┤
	// │     Activity      │        Console          │
	// └───────────────────┴─────────────────────────┘

	leftWidth := m.width / 3
	middleWidth := m.width / 3
	rightWidth := m.width - leftWidth - middleWidth

	topHeight := (m.height - 3) * 2 / 3
	bottomHeight := m.height - topHeight - 3

	m.statsPanel.SetSize(leftWidth, topHeight)
	m.orderbookPanel.SetSize(middleWidth, topHeight)
	m.chartPanel.SetSize(rightWidth, topHeight)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.statsPanel.View(),
		m.orderbookPanel.View(),
		m.chartPanel.View(),
	)

	m.activityPanel.SetSize(leftWidth, bottomHeight)
	m.consolePanel.SetSize(m.width-leftWidth, bottomHeight)

	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.activityPanel.View(),
		m.consolePanel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	help := []string{
		styles.StatusBarKeyStyle.Render("F1-F5") + styles.StatusBarDescStyle.Render(" panels"),
		styles.StatusBarKeyStyle.Render("Tab") + styles.StatusBarDescStyle.Render(" cycle"),
		styles.StatusBarKeyStyle.Render("↑↓") + styles.StatusBarDescStyle.Render(" select/history"),
		styles.StatusBarKeyStyle.Render("q/ctrl+c") + styles.StatusBarDescStyle.Render(" quit"),
	}

	helpStr := lipgloss.JoinHorizontal(lipgloss.Center, help[0], " │ ", help[1], " │ ", help[2], " │ ", help[3])

	status := ""
	if m.statusMsg != "" {
		status = " │ " + m.statusMsg
	}

	return styles.StatusBarStyle.Width(m.width).Render(helpStr + status)
}

func (m *Model) setFocus(panel PanelFocus) {
	m.focusedPanel = panel
}

func (m *Model) cycleFocus(delta int) {
	m.focusedPanel = PanelFocus((int(m.focusedPanel) + delta + panelCount) % panelCount)
}

// Focus returns the focused panel.
func (m *Model) Focus() PanelFocus {
	return m.focusedPanel
}

// execute runs a console line off the UI goroutine.
func (m *Model) execute(line string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		out, quit, err := m.driver.Execute(ctx, line)
		return panels.ConsoleResultMsg{Line: line, Output: out, Err: err, Quit: quit}
	}
}

// dataMsg is one refresh's worth of simulation state.
type dataMsg struct {
	snap     view.Snapshot
	trades   []view.Trade
	closed   []candles.Candle
	current  candles.Candle
	building bool
	day      int
	tick     int64
	accounts []trader.Account
	activity []activity.Entry
	err      error
}

// fetch reads everything the panels show. Book reads go through the
// service, so they are consistent with each other but not with the
// candle and trader reads around them.
func (m *Model) fetch() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	msg := dataMsg{
		closed:   m.sim.Candles.Days(),
		day:      m.sim.Candles.Day(),
		tick:     m.sim.Tick(),
		accounts: m.sim.Traders.Accounts(),
		activity: m.sim.Activity.Recent(activityShown),
	}
	msg.current, msg.building = m.sim.Candles.Current()

	var err error
	if msg.snap, err = m.sim.Book.Snapshot(ctx); err != nil {
		msg.err = fmt.Errorf("snapshot: %w", err)
		return msg
	}
	if msg.trades, err = m.sim.Book.Trades(ctx, tradesShown); err != nil {
		msg.err = fmt.Errorf("trades: %w", err)
	}
	return msg
}

func (m *Model) apply(msg dataMsg) {
	if msg.err != nil {
		m.statusMsg = "⚠ " + msg.err.Error()
		return
	}
	m.statsPanel.SetSnapshot(msg.snap, msg.day, msg.tick)
	m.statsPanel.SetDayOpen(msg.current.Open, msg.building)
	m.statsPanel.SetAccounts(msg.accounts)
	m.orderbookPanel.SetLevels(msg.snap.Bids, msg.snap.Asks)
	m.orderbookPanel.SetTrades(msg.trades)
	m.chartPanel.SetCandles(msg.closed, msg.current, msg.building)
	m.activityPanel.SetEntries(msg.activity)
}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return m.fetch()
	})
}
