package mcpclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#018BFF")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#018BFF")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDDDDD"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#018BFF")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(1, 0)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9B9B9B")).
			Italic(true)
)

type view int

const (
	viewTools view = iota
	viewArgs
	viewResult
)

type (
	toolsLoadedMsg []ToolInfo
	callDoneMsg    *CallResult
	noticeMsg      string
	errMsg         error
)

// Model is the interactive tool picker. Pick a tool, fill its arguments,
// read the result.
type Model struct {
	ctx    context.Context
	client *Client

	current  view
	tools    []ToolInfo
	selected int
	tool     *ToolInfo

	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	result  viewport.Model
	busy    bool

	notices []string
	width   int
	height  int
	err     error
}

// NewModel builds the TUI model for a connected client.
func NewModel(ctx context.Context, client *Client) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = selectedStyle

	return Model{
		ctx:     ctx,
		client:  client,
		spinner: s,
		result:  viewport.New(80, 20),
	}
}

// Init loads the tool list.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTools(), m.spinner.Tick)
}

func (m Model) loadTools() tea.Cmd {
	return func() tea.Msg {
		tools, err := m.client.Tools(m.ctx)
		if err != nil {
			return errMsg(err)
		}

		return toolsLoadedMsg(tools)
	}
}

func (m Model) call(name string, args map[string]any) tea.Cmd {
	return func() tea.Msg {
		res, err := m.client.Call(m.ctx, name, args)
		if err != nil {
			return errMsg(err)
		}

		return callDoneMsg(res)
	}
}

// Update handles a message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.result.Width = msg.Width
		m.result.Height = max(msg.Height-8, 3)

	case tea.KeyMsg:
		switch m.current {
		case viewArgs:
			return m.handleArgsKey(msg)
		case viewResult:
			return m.handleResultKey(msg)
		default:
			return m.handleToolsKey(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case toolsLoadedMsg:
		m.tools = msg
		m.selected = 0
		m.err = nil

	case noticeMsg:
		m.notices = append(m.notices, string(msg))

	case callDoneMsg:
		m.busy = false
		m.current = viewResult

		text := msg.Text
		if msg.IsError {
			text = errorStyle.Render("Tool error") + "\n" + text
		}

		m.result.SetContent(text)
		m.result.GotoTop()

	case errMsg:
		m.busy = false
		m.err = msg
	}

	return m, nil
}

func (m Model) handleToolsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.tools)-1 {
			m.selected++
		}

	case "r":
		return m, m.loadTools()

	case "enter", "l":
		if len(m.tools) == 0 {
			return m, nil
		}

		tool := m.tools[m.selected]
		m.tool = &tool
		m.err = nil
		m.notices = nil

		if len(tool.Params) == 0 {
			m.busy = true

			return m, m.call(tool.Name, nil)
		}

		m.inputs = newInputs(tool.Params)
		m.focus = 0
		m.current = viewArgs

		return m, textinput.Blink
	}

	return m, nil
}

func newInputs(params []Param) []textinput.Model {
	inputs := make([]textinput.Model, len(params))

	for i, p := range params {
		in := textinput.New()
		in.Prompt = p.Name + ": "
		in.Placeholder = p.Type
		in.CharLimit = 4096

		if i == 0 {
			in.Focus()
		}

		inputs[i] = in
	}

	return inputs
}

func (m Model) handleArgsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "esc":
		m.current = viewTools
		m.inputs = nil

		return m, nil

	case "tab", "down":
		m.setFocus((m.focus + 1) % len(m.inputs))

		return m, nil

	case "shift+tab", "up":
		m.setFocus((m.focus - 1 + len(m.inputs)) % len(m.inputs))

		return m, nil

	case "enter":
		args, err := m.arguments()
		if err != nil {
			m.err = err

			return m, nil
		}

		m.err = nil
		m.busy = true

		return m, m.call(m.tool.Name, args)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)

	return m, cmd
}

func (m *Model) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

// arguments converts the filled inputs. Empty optional inputs are left out
// so server defaults apply.
func (m Model) arguments() (map[string]any, error) {
	args := make(map[string]any, len(m.inputs))

	for i, p := range m.tool.Params {
		raw := strings.TrimSpace(m.inputs[i].Value())
		if raw == "" {
			if p.Required {
				return nil, fmt.Errorf("%s is required", p.Name)
			}

			continue
		}

		v, err := ParseArg(raw, p.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}

		args[p.Name] = v
	}

	return args, nil
}

func (m Model) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "esc", "backspace", "h":
		m.current = viewTools
		m.inputs = nil

		return m, nil
	}

	var cmd tea.Cmd
	m.result, cmd = m.result.Update(msg)

	return m, cmd
}

// View renders the current screen.
func (m Model) View() string {
	var b strings.Builder

	title := " Tools "
	if m.tool != nil && m.current != viewTools {
		title = " " + m.tool.Name + " "
	}

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	switch m.current {
	case viewArgs:
		b.WriteString(m.renderArgs())
	case viewResult:
		b.WriteString(m.result.View())
	default:
		b.WriteString(m.renderTools())
	}

	b.WriteString("\n")

	for _, n := range m.notices {
		b.WriteString(noticeStyle.Render(n))
		b.WriteString("\n")
	}

	if m.busy {
		b.WriteString(m.spinner.View() + " calling...\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderTools() string {
	if len(m.tools) == 0 {
		return dimStyle.Render("No tools.")
	}

	var b strings.Builder

	for i, t := range m.tools {
		line := t.Name
		if t.Description != "" {
			line += " " + dimStyle.Render(truncate(firstLine(t.Description), 60))
		}

		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(normalStyle.Render("  " + line))
		}

		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderArgs() string {
	lines := make([]string, 0, len(m.inputs))

	for i, in := range m.inputs {
		line := in.View()
		if m.tool.Params[i].Required {
			line += dimStyle.Render(" (required)")
		}

		lines = append(lines, line)
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	var help string

	switch m.current {
	case viewArgs:
		help = "tab: next field | enter: call | esc: back"
	case viewResult:
		help = "j/k: scroll | esc: back | q: quit"
	default:
		help = "j/k: navigate | enter: select | r: refresh | q: quit"
	}

	return helpStyle.Render(help)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")

	return line
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-3] + "..."
}

// Notices collects server log messages for the TUI. Pass Handle to
// WithLogHandler before connecting; messages sent before the program starts
// are held until it does.
type Notices struct {
	mu      sync.Mutex
	program *tea.Program
	pending []string
}

// Handle records one server log message.
func (n *Notices) Handle(level, message string) {
	text := level + ": " + message

	n.mu.Lock()
	p := n.program

	if p == nil {
		n.pending = append(n.pending, text)
	}
	n.mu.Unlock()

	if p != nil {
		p.Send(noticeMsg(text))
	}
}

func (n *Notices) attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, text := range pending {
		p.Send(noticeMsg(text))
	}
}

// RunInteractive runs the TUI on client and blocks until the user quits.
// notices may be nil.
func RunInteractive(ctx context.Context, client *Client, notices *Notices, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(NewModel(ctx, client), append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)

	if notices != nil {
		go notices.attach(p)
	}

	_, err := p.Run()

	return err
}
