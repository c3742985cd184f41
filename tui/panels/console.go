package panels

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/matchbook/tui/styles"
)

// ConsolePanel accepts driver commands ("add 10 buy limit 99.5", "get 3")
// and shows their output.
type ConsolePanel struct {
	input textinput.Model

	// history holds submitted lines; cursor indexes into it while
	// recalling with up/down and equals len(history) otherwise.
	history []string
	cursor  int

	output    []consoleLine
	maxOutput int

	focused bool
	width   int
	height  int
}

type consoleLine struct {
	text string
	err  bool
}

// NewConsolePanel creates a new console panel.
func NewConsolePanel() *ConsolePanel {
	input := textinput.New()
	input.Placeholder = "add 10 buy limit 99.50"
	input.Prompt = ""
	input.PlaceholderStyle = styles.PlaceholderStyle
	input.CharLimit = 80
	input.Width = 40

	return &ConsolePanel{
		input:     input,
		maxOutput: 200,
	}
}

// Init initializes the panel.
func (p *ConsolePanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *ConsolePanel) Update(msg tea.Msg) (*ConsolePanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			return p, p.submit()

		case key.Matches(msg, key.NewBinding(key.WithKeys("up"))):
			if p.cursor > 0 {
				p.cursor--
				p.input.SetValue(p.history[p.cursor])
				p.input.CursorEnd()
			}
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("down"))):
			if p.cursor < len(p.history) {
				p.cursor++
			}
			if p.cursor == len(p.history) {
				p.input.SetValue("")
			} else {
				p.input.SetValue(p.history[p.cursor])
			}
			p.input.CursorEnd()
			return p, nil

		case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
			p.input.SetValue("")
			p.cursor = len(p.history)
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *ConsolePanel) submit() tea.Cmd {
	line := strings.TrimSpace(p.input.Value())
	p.input.SetValue("")
	if line == "" {
		return nil
	}
	p.history = append(p.history, line)
	p.cursor = len(p.history)
	p.appendOutput(consoleLine{text: "> " + line})

	return func() tea.Msg {
		return ConsoleSubmitMsg{Line: line}
	}
}

func (p *ConsolePanel) appendOutput(lines ...consoleLine) {
	p.output = append(p.output, lines...)
	if len(p.output) > p.maxOutput {
		p.output = p.output[len(p.output)-p.maxOutput:]
	}
}

// View renders the panel.
func (p *ConsolePanel) View() string {
	var content strings.Builder

	// Title, the boxed prompt, padding, and borders take eight rows.
	visible := max(p.height-8, 1)
	out := p.output
	if len(out) > visible {
		out = out[len(out)-visible:]
	}
	for _, l := range out {
		style := styles.RowStyle
		if l.err {
			style = styles.ErrorTextStyle
		} else if strings.HasPrefix(l.text, "> ") {
			style = styles.LabelStyle
		}
		content.WriteString(style.Render(l.text))
		content.WriteString("\n")
	}
	for i := len(out); i < visible; i++ {
		content.WriteString("\n")
	}

	prompt, box := styles.LabelStyle.Render("> "), styles.InputStyle
	if p.focused {
		prompt, box = styles.PromptStyle.Render("> "), styles.FocusedInputStyle
	}
	boxWidth := max(p.width-6, 14)
	p.input.Width = boxWidth - 5
	content.WriteString(box.Width(boxWidth).Render(prompt + p.input.View()))

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📝 Console", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *ConsolePanel) SetFocus(focused bool) {
	p.focused = focused
	if focused {
		p.input.Focus()
	} else {
		p.input.Blur()
	}
}

// SetSize sets the panel dimensions.
func (p *ConsolePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// ShowResult appends the outcome of a command to the output.
func (p *ConsolePanel) ShowResult(msg ConsoleResultMsg) {
	if msg.Err != nil {
		for _, l := range strings.Split(msg.Err.Error(), "\n") {
			p.appendOutput(consoleLine{text: l, err: true})
		}
		return
	}
	for _, l := range strings.Split(strings.TrimRight(msg.Output, "\n"), "\n") {
		if l != "" {
			p.appendOutput(consoleLine{text: l})
		}
	}
}

// History returns the submitted lines, oldest first.
func (p *ConsolePanel) History() []string {
	return p.history
}

// Output returns the plain text of the output buffer.
func (p *ConsolePanel) Output() []string {
	out := make([]string, len(p.output))
	for i, l := range p.output {
		out[i] = l.text
	}
	return out
}

// ConsoleSubmitMsg is sent when the user enters a command line.
type ConsoleSubmitMsg struct {
	Line string
}

// ConsoleResultMsg carries the output of an executed command line.
type ConsoleResultMsg struct {
	Line   string
	Output string
	Err    error
	Quit   bool
}
