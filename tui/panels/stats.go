package panels

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/orderbook/view"
	"github.com/zappabad/matchbook/internal/trader"
	"github.com/zappabad/matchbook/tui/styles"
)

// StatsPanel shows the book's headline numbers and a trader leaderboard.
type StatsPanel struct {
	instrument string
	decimals   int32

	snap     view.Snapshot
	dayOpen  decimal.Decimal
	hasOpen  bool
	day      int
	tick     int64
	accounts []trader.Account

	selectedIndex int
	focused       bool
	width         int
	height        int
}

// NewStatsPanel creates a stats panel for one instrument.
func NewStatsPanel(instrument string, decimals int32) *StatsPanel {
	return &StatsPanel{instrument: instrument, decimals: decimals}
}

// Init initializes the panel.
func (p *StatsPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *StatsPanel) Update(msg tea.Msg) (*StatsPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.accounts)-1 {
				p.selectedIndex++
			}
		}
	}
	return p, nil
}

// View renders the panel.
func (p *StatsPanel) View() string {
	var content strings.Builder

	spread := "-"
	if s, ok := p.snap.Spread(); ok {
		spread = styles.FormatPrice(s, p.decimals)
	}

	change, changeStyle := p.dayChange()

	rows := []struct {
		label, value string
		style        lipgloss.Style
	}{
		{"Day / tick", fmt.Sprintf("%d / %d", p.day, p.tick), styles.PriceStyle},
		{"Current", styles.FormatPrice(p.snap.CurrentPrice, p.decimals), changeStyle},
		{"Day change", change, changeStyle},
		{"Best bid", styles.FormatPrice(p.snap.BestBid, p.decimals), styles.PriceStyle},
		{"Best ask", styles.FormatPrice(p.snap.BestAsk, p.decimals), styles.PriceStyle},
		{"Spread", spread, styles.PriceStyle},
		{"Bid volume", p.snap.BidVolume.String(), styles.SizeStyle},
		{"Ask volume", p.snap.AskVolume.String(), styles.SizeStyle},
		{"Open orders", fmt.Sprintf("%d", p.snap.OpenOrders), styles.PriceStyle},
	}
	for _, r := range rows {
		content.WriteString(styles.LabelStyle.Render(fmt.Sprintf("%-12s", r.label)))
		content.WriteString(r.style.Render(r.value))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%-4s %-7s %6s %12s", "ID", "Strat", "Pos", "Equity")))

	// Leave room for the rows above, the title, and the borders.
	visible := p.height - len(rows) - 6
	if visible < 1 {
		visible = 1
	}
	start := 0
	if p.selectedIndex >= visible {
		start = p.selectedIndex - visible + 1
	}
	end := min(start+visible, len(p.accounts))

	for i := start; i < end; i++ {
		a := p.accounts[i]
		row := fmt.Sprintf("%-4d %-7s %6d %12s",
			a.TraderID, a.Strategy, a.Position, a.Equity(p.snap.CurrentPrice).StringFixed(2))

		style := styles.RowStyle
		if i == p.selectedIndex && p.focused {
			style = styles.SelectedRowStyle
		}
		content.WriteString("\n")
		content.WriteString(style.Render(row))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle(fmt.Sprintf("📈 %s", p.instrument), p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// dayChange formats the move since the day's opening sample.
func (p *StatsPanel) dayChange() (string, lipgloss.Style) {
	if !p.hasOpen || !p.dayOpen.IsPositive() {
		return "-", styles.PriceStyle
	}
	delta := p.snap.CurrentPrice.Sub(p.dayOpen)
	pct := delta.Div(p.dayOpen).Shift(2)
	sign := ""
	if delta.IsPositive() {
		sign = "+"
	}
	text := fmt.Sprintf("%s%s (%s%s%%)", sign, delta.StringFixed(p.decimals), sign, pct.StringFixed(2))
	return text, styles.ChangeStyle(delta)
}

// SetFocus sets the focus state of the panel.
func (p *StatsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *StatsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot sets the book snapshot and the simulation clock.
func (p *StatsPanel) SetSnapshot(snap view.Snapshot, day int, tick int64) {
	p.snap = snap
	p.day = day
	p.tick = tick
}

// SetDayOpen sets the opening price of the day in progress; ok is false
// before the day has a candle.
func (p *StatsPanel) SetDayOpen(open decimal.Decimal, ok bool) {
	p.dayOpen = open
	p.hasOpen = ok
}

// SetAccounts replaces the leaderboard, richest trader first.
func (p *StatsPanel) SetAccounts(accounts []trader.Account) {
	price := p.snap.CurrentPrice
	sorted := slices.Clone(accounts)
	slices.SortStableFunc(sorted, func(a, b trader.Account) int {
		return b.Equity(price).Cmp(a.Equity(price))
	})
	p.accounts = sorted
	if p.selectedIndex >= len(p.accounts) {
		p.selectedIndex = max(0, len(p.accounts)-1)
	}
}

// Accounts returns the leaderboard as displayed.
func (p *StatsPanel) Accounts() []trader.Account {
	return p.accounts
}
