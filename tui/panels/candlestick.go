package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/zappabad/matchbook/internal/candles"
	"github.com/zappabad/matchbook/tui/styles"
)

// CandlestickPanel charts one candle per simulated day. The day in
// progress is drawn last once it has enough samples.
type CandlestickPanel struct {
	decimals int32
	candles  []candles.Candle

	current    candles.Candle
	hasCurrent bool

	focused bool
	width   int
	height  int

	maxCandles int
}

// NewCandlestickPanel creates a new candlestick chart panel.
func NewCandlestickPanel(decimals int32) *CandlestickPanel {
	return &CandlestickPanel{
		decimals:   decimals,
		maxCandles: 50,
	}
}

// Init initializes the panel.
func (p *CandlestickPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *CandlestickPanel) Update(msg tea.Msg) (*CandlestickPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *CandlestickPanel) View() string {
	var content strings.Builder

	chartWidth := p.width - 4
	chartHeight := max(p.height-6, 5)

	all := p.allCandles()
	if len(all) == 0 {
		content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("No trading data yet..."))
	} else {
		content.WriteString(p.renderChart(chartWidth, chartHeight, all))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle(fmt.Sprintf("📉 Daily candles (%d)", len(p.candles)), p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *CandlestickPanel) allCandles() []candles.Candle {
	if !p.hasCurrent {
		return p.candles
	}
	out := make([]candles.Candle, 0, len(p.candles)+1)
	out = append(out, p.candles...)
	return append(out, p.current)
}

// priceScale maps prices onto chart rows. Row 0 is the top.
type priceScale struct {
	lo, hi float64
	rows   int
}

func newPriceScale(cs []candles.Candle, rows int) priceScale {
	lo, hi := cs[0].Low.InexactFloat64(), cs[0].High.InexactFloat64()
	for _, c := range cs[1:] {
		lo = min(lo, c.Low.InexactFloat64())
		hi = max(hi, c.High.InexactFloat64())
	}

	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = max(hi*0.01, 0.01)
	}
	return priceScale{lo: lo - pad, hi: hi + pad, rows: rows}
}

func (s priceScale) row(price decimal.Decimal) int {
	ratio := (s.hi - price.InexactFloat64()) / (s.hi - s.lo)
	return min(max(int(ratio*float64(s.rows-1)+0.5), 0), s.rows-1)
}

func (s priceScale) price(row int) float64 {
	if s.rows <= 1 {
		return s.lo
	}
	return s.hi - float64(row)/float64(s.rows-1)*(s.hi-s.lo)
}

func (p *CandlestickPanel) renderChart(width, height int, all []candles.Candle) string {
	// 9 columns for the axis, 2 per candle.
	candlesToShow := max((width-10)/2, 1)
	display := all
	if len(display) > candlesToShow {
		display = display[len(display)-candlesToShow:]
	}

	// Two rows for the axis underneath.
	rows := max(height-3, 5)
	scale := newPriceScale(display, rows)

	var result strings.Builder
	for row := 0; row < rows; row++ {
		label := decimal.NewFromFloat(scale.price(row)).StringFixed(p.decimals)
		result.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("%8s │", label)))

		for _, c := range display {
			style := styles.CandleDownStyle
			if c.Up() {
				style = styles.CandleUpStyle
			}
			result.WriteString(style.Render(string(candleChar(c, row, scale))))
			result.WriteString(" ")
		}
		result.WriteString("\n")
	}

	result.WriteString(styles.ChartAxisStyle.Render("─────────┴"))
	for range display {
		result.WriteString(styles.ChartAxisStyle.Render("──"))
	}
	result.WriteString("\n")

	// Day numbers, every fifth day plus both ends.
	result.WriteString(styles.ChartAxisStyle.Render("          "))
	for i := 0; i < len(display); i++ {
		if i == 0 || i == len(display)-1 || i%5 == 0 {
			label := fmt.Sprintf("%-2d", display[i].Day%100)
			result.WriteString(styles.ChartLabelStyle.Render(label))
		} else {
			result.WriteString("  ")
		}
	}

	return result.String()
}

// candleChar returns what to draw for c at row: body, wick, or blank.
func candleChar(c candles.Candle, row int, s priceScale) rune {
	top, bottom := s.row(c.Open), s.row(c.Close)
	if top > bottom {
		top, bottom = bottom, top
	}
	high, low := s.row(c.High), s.row(c.Low)

	switch {
	case row >= top && row <= bottom:
		return '┃'
	case row >= high && row <= low:
		return '│'
	default:
		return ' '
	}
}

// SetFocus sets the focus state of the panel.
func (p *CandlestickPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *CandlestickPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetCandles sets the closed days and, when ok, the day in progress.
func (p *CandlestickPanel) SetCandles(closed []candles.Candle, current candles.Candle, ok bool) {
	if len(closed) > p.maxCandles {
		closed = closed[len(closed)-p.maxCandles:]
	}
	p.candles = closed
	p.current = current
	p.hasCurrent = ok
}
