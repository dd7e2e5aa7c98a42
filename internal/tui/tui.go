package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/team-kosa-skynet/morningstar/internal/stream"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// Coordinator is the part of stream.Controller the view needs
type Coordinator interface {
	CancelAll() error
	Snapshot() []stream.SessionView
	Updates() <-chan struct{}
}

// SubmitFunc turns a question into a running generation
type SubmitFunc func(ctx context.Context, question string) error

// RenderFunc formats a finished answer for a pane of the given width
type RenderFunc func(text string, width int) (string, error)

// Options configure the chat view
type Options struct {
	Coordinator Coordinator
	Submit      SubmitFunc
	Models      []models.ModelInfo
	Question    string // submitted on start when set
	Render      RenderFunc
}

type pane struct {
	model    models.ModelInfo
	viewport viewport.Model
}

type model struct {
	ctx      context.Context
	opts     Options
	panes    []pane
	input    textinput.Model
	spinner  *Spinner
	loading  *LoadingIndicator
	views    map[string]stream.SessionView
	rendered map[string]string // finished answers, keyed by generation and model
	question string
	err      error
	ready    bool
	width    int
	height   int
}

func initialModel(ctx context.Context, opts Options) model {
	input := textinput.New()
	input.Placeholder = "Ask every model a question"
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Focus()

	panes := make([]pane, 0, len(opts.Models))
	for _, m := range opts.Models {
		panes = append(panes, pane{model: m})
	}

	return model{
		ctx:      ctx,
		opts:     opts,
		panes:    panes,
		input:    input,
		spinner:  NewSpinner(),
		loading:  NewLoadingIndicator(),
		views:    make(map[string]stream.SessionView),
		rendered: make(map[string]string),
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, tickCmd(), waitForUpdates(m.opts.Coordinator.Updates())}
	if q := strings.TrimSpace(m.opts.Question); q != "" {
		m.loading.Start("Sending question...")
		cmds = append(cmds, submitCmd(m.ctx, m.opts.Submit, q))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.updateViewports()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEsc:
			return m, cancelCmd(m.opts.Coordinator)

		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.loading.Active() {
				return m, nil
			}
			m.input.Reset()
			m.err = nil
			m.loading.Start("Sending question...")
			return m, submitCmd(m.ctx, m.opts.Submit, q)

		case tea.KeyPgUp, tea.KeyPgDown:
			for i := range m.panes {
				var cmd tea.Cmd
				m.panes[i].viewport, cmd = m.panes[i].viewport.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

	case SubmittedMsg:
		m.loading.Stop()
		if msg.Error != nil {
			m.err = msg.Error
		} else {
			m.question = msg.Question
		}
		return m, nil

	case CancelledMsg:
		m.err = msg.Error
		return m, nil

	case UpdateMsg:
		m.refresh()
		return m, waitForUpdates(m.opts.Coordinator.Updates())

	case TickMsg:
		m.spinner.Next()
		m.loading.Tick()
		if m.animating() {
			m.updateViewports()
		}
		return m, tickCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// refresh pulls the latest snapshot from the coordinator
func (m *model) refresh() {
	views := make(map[string]stream.SessionView, len(m.panes))
	for _, v := range m.opts.Coordinator.Snapshot() {
		views[v.Model.ID] = v
	}
	m.views = views
	m.updateViewports()
}

func (m model) animating() bool {
	if m.loading.Active() {
		return true
	}
	for _, v := range m.views {
		if !v.State.Terminal() {
			return true
		}
	}
	return false
}

func (m *model) resize() {
	n := len(m.panes)
	if n == 0 {
		return
	}
	// header, input, status and footer
	height := m.height - 5
	if height < 3 {
		height = 3
	}
	// one divider column between panes
	width := (m.width - (n - 1)) / n
	if width < 10 {
		width = 10
	}
	for i := range m.panes {
		if m.panes[i].viewport.Width == 0 && m.panes[i].viewport.Height == 0 {
			m.panes[i].viewport = viewport.New(width, height)
			continue
		}
		m.panes[i].viewport.Width = width
		m.panes[i].viewport.Height = height
	}
	m.input.Width = m.width - 4
}

func (m *model) updateViewports() {
	for i := range m.panes {
		atBottom := m.panes[i].viewport.AtBottom()
		m.panes[i].viewport.SetContent(m.renderPane(m.panes[i]))
		if atBottom {
			m.panes[i].viewport.GotoBottom()
		}
	}
}

var stateColors = map[stream.State]lipgloss.Color{
	stream.StateIdle:       lipgloss.Color("245"),
	stream.StateStreaming:  lipgloss.Color("212"),
	stream.StateFinalizing: lipgloss.Color("229"),
	stream.StateDone:       lipgloss.Color("42"),
	stream.StateErrored:    lipgloss.Color("196"),
	stream.StateCancelled:  lipgloss.Color("241"),
}

func (m model) renderPane(p pane) string {
	var s strings.Builder
	width := p.viewport.Width

	v, ok := m.views[p.model.ID]
	state := stream.StateIdle
	if ok {
		state = v.State
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229"))
	badgeStyle := lipgloss.NewStyle().
		Foreground(stateColors[state])

	badge := state.String()
	if ok && !state.Terminal() {
		badge = m.spinner.View() + " " + badge
	}
	name := truncate(p.model.Name, width-runewidth.StringWidth(badge)-2)
	s.WriteString(headerStyle.Render(name) + " " + badgeStyle.Render(badge) + "\n")
	s.WriteString(strings.Repeat("─", max(width-1, 1)) + "\n")

	if !ok {
		emptyStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
		s.WriteString(emptyStyle.Render("Waiting for a question"))
		return s.String()
	}

	textStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))
	if state == stream.StateDone && m.opts.Render != nil {
		s.WriteString(m.renderFinished(v, width))
	} else {
		for _, line := range wrapText(v.Displayed, width-1) {
			s.WriteString(textStyle.Render(line) + "\n")
		}
	}

	if state == stream.StateErrored {
		errStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
		for _, line := range wrapText("error: "+v.Err, width-1) {
			s.WriteString(errStyle.Render(line) + "\n")
		}
	}
	return s.String()
}

// renderFinished formats a done answer once per width
func (m model) renderFinished(v stream.SessionView, width int) string {
	key := fmt.Sprintf("%s/%s/%d", v.Generation, v.Model.ID, width)
	if out, ok := m.rendered[key]; ok {
		return out
	}
	out, err := m.opts.Render(v.Displayed, width)
	if err != nil {
		out = strings.Join(wrapText(v.Displayed, width-1), "\n")
	}
	m.rendered[key] = out
	return out
}

// wrapText wraps text to fit within the specified display width, keeping
// explicit line breaks
func wrapText(text string, width int) []string {
	if width <= 0 {
		return strings.Split(text, "\n")
	}

	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			for runewidth.StringWidth(word) > width {
				if current != "" {
					lines = append(lines, current)
					current = ""
				}
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					head = string([]rune(word)[:1])
				}
				lines = append(lines, head)
				word = word[len(head):]
			}
			switch {
			case current == "":
				current = word
			case runewidth.StringWidth(current)+1+runewidth.StringWidth(word) > width:
				lines = append(lines, current)
				current = word
			default:
				current += " " + word
			}
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, m.renderSplitView(), m.renderStatus(), m.input.View(), footer)
}

func (m model) renderSplitView() string {
	if len(m.panes) == 0 {
		return "No models selected"
	}

	height := m.panes[0].viewport.Height
	dividerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")).
		Height(height)
	divider := dividerStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", height), "\n"))

	columns := make([]string, 0, 2*len(m.panes)-1)
	for i, p := range m.panes {
		if i > 0 {
			columns = append(columns, divider)
		}
		style := lipgloss.NewStyle().
			Width(p.viewport.Width).
			Height(p.viewport.Height)
		columns = append(columns, style.Render(p.viewport.View()))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func (m model) renderHeader() string {
	title := "Morningstar - Model Compare"
	if m.question != "" {
		title = fmt.Sprintf("Morningstar - %s", truncate(m.question, max(m.width-16, 10)))
	}

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63"))

	return style.Render(title)
}

func (m model) renderStatus() string {
	if m.loading.Active() {
		return m.loading.View()
	}
	if m.err != nil {
		return lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Render("Error: " + m.err.Error())
	}
	return ""
}

func (m model) renderFooter() string {
	info := "enter: ask • esc: cancel all • pgup/pgdn: scroll • ctrl+c: quit"

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	return style.Render(info)
}

// Run shows the chat view until the user quits
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(
		initialModel(ctx, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := p.Run()
	return err
}
