package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/matchbook/internal/activity"
	"github.com/zappabad/matchbook/internal/trader"
	"github.com/zappabad/matchbook/tui/styles"
)

// ActivityPanel lists what the simulated traders have been doing.
type ActivityPanel struct {
	entries       []activity.Entry
	selectedIndex int
	scrollOffset  int
	follow        bool
	focused       bool
	width         int
	height        int
}

// NewActivityPanel creates a new activity panel that follows the tail.
func NewActivityPanel() *ActivityPanel {
	return &ActivityPanel{follow: true}
}

// Init initializes the panel.
func (p *ActivityPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *ActivityPanel) Update(msg tea.Msg) (*ActivityPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
				p.follow = false
				if p.selectedIndex < p.scrollOffset {
					p.scrollOffset = p.selectedIndex
				}
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.entries)-1 {
				p.selectedIndex++
				p.keepInView()
			}
			p.follow = p.selectedIndex == len(p.entries)-1
		case key.Matches(msg, key.NewBinding(key.WithKeys("end", "G"))):
			p.follow = true
			p.tail()
		}
	}
	return p, nil
}

func (p *ActivityPanel) visibleItems() int {
	return max(p.height-5, 1)
}

func (p *ActivityPanel) keepInView() {
	if v := p.visibleItems(); p.selectedIndex >= p.scrollOffset+v {
		p.scrollOffset = p.selectedIndex - v + 1
	}
}

func (p *ActivityPanel) tail() {
	p.selectedIndex = max(len(p.entries)-1, 0)
	p.scrollOffset = max(len(p.entries)-p.visibleItems(), 0)
}

// View renders the panel.
func (p *ActivityPanel) View() string {
	var content strings.Builder

	if len(p.entries) == 0 {
		content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).Render("No trader activity yet"))
	} else {
		visible := p.visibleItems()
		start := p.scrollOffset
		end := min(start+visible, len(p.entries))

		for i := start; i < end; i++ {
			e := p.entries[i]

			text := e.Text
			if limit := p.width - 14; limit > 3 && len(text) > limit {
				text = text[:limit-3] + "..."
			}

			line := fmt.Sprintf("%s %s",
				styles.TimeStyle.Render(fmt.Sprintf("%6d", e.Tick)),
				entryStyle(e.Type).Render(text))
			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}

			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}

		if len(p.entries) > visible {
			content.WriteString("\n")
			content.WriteString(lipgloss.NewStyle().Foreground(styles.TextMutedColor).
				Render(fmt.Sprintf(" (%d/%d)", p.selectedIndex+1, len(p.entries))))
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📰 Trader activity", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func entryStyle(t trader.TraderEventType) lipgloss.Style {
	switch t {
	case trader.TraderEventFilled:
		return styles.ActivityFillStyle
	case trader.TraderEventCanceled:
		return styles.ActivityCancelStyle
	case trader.TraderEventError:
		return styles.ActivityErrorStyle
	default:
		return styles.ActivityOrderStyle
	}
}

// SetFocus sets the focus state of the panel.
func (p *ActivityPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *ActivityPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	if p.follow {
		p.tail()
	}
}

// SetEntries replaces the feed contents, oldest first.
func (p *ActivityPanel) SetEntries(entries []activity.Entry) {
	p.entries = entries
	if p.follow {
		p.tail()
		return
	}
	if p.selectedIndex >= len(p.entries) {
		p.selectedIndex = max(len(p.entries)-1, 0)
	}
	p.scrollOffset = min(p.scrollOffset, p.selectedIndex)
}

// Selected returns the highlighted entry.
func (p *ActivityPanel) Selected() (activity.Entry, bool) {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.entries) {
		return p.entries[p.selectedIndex], true
	}
	return activity.Entry{}, false
}
