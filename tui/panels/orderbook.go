package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/matchbook/internal/orderbook/core"
	"github.com/zappabad/matchbook/internal/orderbook/view"
	"github.com/zappabad/matchbook/tui/styles"
)

// OrderbookPanel displays aggregated depth and the latest trades.
type OrderbookPanel struct {
	decimals     int32
	bids         []view.Level
	asks         []view.Level
	trades       []view.Trade
	scrollOffset int
	focused      bool
	width        int
	height       int
	maxLevels    int
	maxTrades    int
}

// NewOrderbookPanel creates a new orderbook panel.
func NewOrderbookPanel(decimals int32) *OrderbookPanel {
	return &OrderbookPanel{
		decimals:  decimals,
		maxLevels: 10,
		maxTrades: 5,
	}
}

// Init initializes the panel.
func (p *OrderbookPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *OrderbookPanel) Update(msg tea.Msg) (*OrderbookPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.scrollOffset > 0 {
				p.scrollOffset--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.scrollOffset < p.maxScroll() {
				p.scrollOffset++
			}
		}
	}
	return p, nil
}

func (p *OrderbookPanel) maxScroll() int {
	return max(0, max(len(p.bids), len(p.asks))-1)
}

// View renders the panel.
func (p *OrderbookPanel) View() string {
	var content strings.Builder

	availableHeight := p.height - 6 - p.maxTrades - 2
	levelsToShow := min(max(availableHeight, 3), p.maxLevels)

	header := fmt.Sprintf("%8s %10s │ %-10s %-8s", "BidQty", "Bid", "Ask", "AskQty")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	bidsToShow := window(p.bids, p.scrollOffset, levelsToShow)
	asksToShow := window(p.asks, p.scrollOffset, levelsToShow)

	maxRows := max(len(bidsToShow), len(asksToShow))
	if maxRows == 0 {
		content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("Book is empty"))
		content.WriteString("\n")
	}

	for i := 0; i < maxRows; i++ {
		var bidQty, bidPrice, askPrice, askQty string
		if i < len(bidsToShow) {
			bidQty = bidsToShow[i].Quantity.String()
			bidPrice = styles.FormatPrice(bidsToShow[i].Price, p.decimals)
		}
		if i < len(asksToShow) {
			askPrice = styles.FormatPrice(asksToShow[i].Price, p.decimals)
			askQty = asksToShow[i].Quantity.String()
		}

		content.WriteString(styles.SizeStyle.Render(fmt.Sprintf("%8s", bidQty)))
		content.WriteString(" ")
		content.WriteString(styles.BuyStyle.Render(fmt.Sprintf("%10s", bidPrice)))
		content.WriteString(" │ ")
		content.WriteString(styles.SellStyle.Render(fmt.Sprintf("%-10s", askPrice)))
		content.WriteString(" ")
		content.WriteString(styles.SizeStyle.Render(fmt.Sprintf("%-8s", askQty)))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(styles.HeaderStyle.Render("Recent Trades"))
	content.WriteString("\n")

	tradesToShow := p.trades
	if len(tradesToShow) > p.maxTrades {
		tradesToShow = tradesToShow[len(tradesToShow)-p.maxTrades:]
	}
	for _, trade := range tradesToShow {
		sideStyle := styles.SellStyle
		if trade.TakerSide == core.SideBuy {
			sideStyle = styles.BuyStyle
		}
		line := fmt.Sprintf("#%-6d %8s @ %s", trade.Seq, trade.Quantity, styles.FormatPrice(trade.Price, p.decimals))
		content.WriteString(sideStyle.Render(line))
		content.WriteString("\n")
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📊 Orderbook", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func window(levels []view.Level, offset, n int) []view.Level {
	if offset >= len(levels) {
		return nil
	}
	return view.Top(levels[offset:], n)
}

// SetFocus sets the focus state of the panel.
func (p *OrderbookPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *OrderbookPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetLevels sets the orderbook levels, best first on each side.
func (p *OrderbookPanel) SetLevels(bids, asks []view.Level) {
	p.bids = bids
	p.asks = asks
	p.scrollOffset = min(p.scrollOffset, p.maxScroll())
}

// SetTrades sets the recent trades, oldest first.
func (p *OrderbookPanel) SetTrades(trades []view.Trade) {
	p.trades = trades
}
