// Package styles holds the lipgloss palette and the styles shared by the
// panels.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	PrimaryColor = lipgloss.Color("#7C3AED")
	AccentColor  = lipgloss.Color("#F59E0B")

	// Bids, rising prices and up candles share one green; asks and
	// falling prices share one red.
	BuyColor  = lipgloss.Color("#10B981")
	SellColor = lipgloss.Color("#EF4444")

	BackgroundColor  = lipgloss.Color("#1F2937")
	BorderColor      = lipgloss.Color("#374151")
	FocusBorderColor = PrimaryColor

	TextColor          = lipgloss.Color("#F9FAFB")
	TextSecondaryColor = lipgloss.Color("#9CA3AF")
	TextMutedColor     = lipgloss.Color("#6B7280")
)

// Panel frames.
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	FocusedPanelStyle = PanelStyle.
				BorderForeground(FocusBorderColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextSecondaryColor)

	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	SelectedRowStyle = RowStyle.
				Background(BorderColor)
)

// Book and price text.
var (
	BuyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(BuyColor)

	SellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(SellColor)

	PriceStyle     = lipgloss.NewStyle().Foreground(TextColor)
	PriceUpStyle   = lipgloss.NewStyle().Foreground(BuyColor)
	PriceDownStyle = lipgloss.NewStyle().Foreground(SellColor)

	// Level and trade quantities.
	SizeStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)

	TimeStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
)

// Trader activity, one style per event type.
var (
	ActivityOrderStyle  = lipgloss.NewStyle().Foreground(TextColor)
	ActivityFillStyle   = lipgloss.NewStyle().Bold(true).Foreground(AccentColor)
	ActivityCancelStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	ActivityErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(SellColor)
)

// Console.
var (
	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	FocusedInputStyle = InputStyle.
				BorderForeground(FocusBorderColor)

	LabelStyle       = lipgloss.NewStyle().Foreground(TextSecondaryColor)
	PlaceholderStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	PromptStyle      = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	ErrorTextStyle   = lipgloss.NewStyle().Foreground(SellColor)
)

// Candlestick chart.
var (
	CandleUpStyle   = lipgloss.NewStyle().Foreground(BuyColor)
	CandleDownStyle = lipgloss.NewStyle().Foreground(SellColor)
	ChartAxisStyle  = lipgloss.NewStyle().Foreground(TextMutedColor)
	ChartLabelStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)
)

var (
	StatusBarStyle = lipgloss.NewStyle().
			Background(BackgroundColor).
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	StatusBarKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)
	StatusBarDescStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor)
)

// RenderTitle renders a panel title, highlighted when the panel has focus.
func RenderTitle(title string, focused bool) string {
	style := TitleStyle
	if focused {
		style = style.Foreground(FocusBorderColor)
	}
	return style.Render(title)
}

// ChangeStyle colors a price move: green up, red down, plain when flat.
func ChangeStyle(delta decimal.Decimal) lipgloss.Style {
	switch delta.Sign() {
	case 1:
		return PriceUpStyle
	case -1:
		return PriceDownStyle
	default:
		return PriceStyle
	}
}

// FormatPrice renders a price with a fixed number of decimals. The zero
// price means "none" throughout the book and renders as a dash.
func FormatPrice(price decimal.Decimal, decimals int32) string {
	if price.IsZero() {
		return "-"
	}
	if decimals < 0 {
		decimals = 0
	}
	return price.StringFixed(decimals)
}
