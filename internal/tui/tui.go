// Package tui is the full-screen chat front end.
package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/phrase"
	"github.com/abhisek/mathguide/internal/ui/theme"
)

// Engine runs turns and ends sessions.
type Engine interface {
	Handle(ctx context.Context, t guidance.Turn) guidance.DecisionRecord
	EndSession(ctx context.Context, sessionID string) error
}

// Options narrows the problems offered in the session.
type Options struct {
	SessionID  string
	Topic      corpus.Topic
	Difficulty int
}

type speaker int

const (
	tutor speaker = iota
	student
)

type line struct {
	who  speaker
	kind hint.Action
	text string
}

type decisionMsg struct {
	rec  guidance.DecisionRecord
	text string
}

type endedMsg struct{ err error }

// Model is the Bubble Tea model of one tutoring session.
type Model struct {
	ctx     context.Context
	engine  Engine
	phraser phrase.Phraser
	opts    Options

	input  textinput.Model
	lines  []line
	last   guidance.DecisionRecord
	busy   bool
	width  int
	height int
	err    error
}

// New creates the model. The first decision is requested by Init.
func New(ctx context.Context, engine Engine, phraser phrase.Phraser, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "x = 4, hint, new, explain factoring"
	ti.CharLimit = 200
	ti.Focus()

	return Model{
		ctx:     ctx,
		engine:  engine,
		phraser: phraser,
		opts:    opts,
		input:   ti,
		busy:    true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.turn("")
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case decisionMsg:
		m.busy = false
		m.last = msg.rec
		if msg.text != "" {
			m.lines = append(m.lines, line{who: tutor, kind: msg.rec.Kind, text: msg.text})
		}
		return m, nil

	case endedMsg:
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, m.end()
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if m.busy || text == "" {
				return m, nil
			}
			m.lines = append(m.lines, line{who: student, text: text})
			m.input.Reset()
			m.busy = true
			return m, m.turn(text)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// turn runs one engine turn off the UI goroutine.
func (m Model) turn(input string) tea.Cmd {
	return func() tea.Msg {
		rec := m.engine.Handle(m.ctx, guidance.Turn{
			SessionID:  m.opts.SessionID,
			Input:      input,
			Topic:      m.opts.Topic,
			Difficulty: m.opts.Difficulty,
		})
		text, err := m.phraser.Phrase(m.ctx, rec)
		if err != nil {
			text = ""
		}
		return decisionMsg{rec: rec, text: text}
	}
}

func (m Model) end() tea.Cmd {
	return func() tea.Msg {
		return endedMsg{err: m.engine.EndSession(m.ctx, m.opts.SessionID)}
	}
}

func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m Model) render() string {
	header := m.renderHeader()
	footer := theme.Dim.Render("Enter send · Esc end session")
	prompt := theme.Prompt.Render("> ") + m.input.View()
	if m.busy {
		prompt = theme.Dim.Render("thinking...")
	}

	transcript := m.renderTranscript()
	if m.height > 0 {
		room := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - lipgloss.Height(prompt) - 2
		transcript = lastLines(transcript, max(room, 0))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, transcript, "", prompt, footer)
}

func (m Model) renderHeader() string {
	title := "mathguide"
	if m.opts.Topic != "" {
		title += " · " + string(m.opts.Topic)
	}
	status := "starting"
	switch {
	case m.last.Target.ProblemID != "":
		status = fmt.Sprintf("%s · hint %d · %s", m.last.Target.ProblemID, m.last.HintLevel, displayPhase(m.last.Phase))
	case m.last.Kind != hint.ActionNone:
		status = displayPhase(m.last.Phase)
	}
	style := theme.Banner
	if m.width > 0 {
		style = style.Width(m.width)
	}
	return style.Render(title + "   " + theme.Dim.Render(status))
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	width := m.width - 4
	for i, l := range m.lines {
		if i > 0 {
			b.WriteString("\n")
		}
		style := theme.ForAction(l.kind)
		prefix := ""
		if l.who == student {
			style = theme.Body
			prefix = theme.Prompt.Render("you ")
		}
		if width > 20 {
			style = style.Width(width)
		}
		b.WriteString(prefix + style.Render(l.text))
	}
	return b.String()
}

func displayPhase(p hint.Phase) string {
	return strings.ReplaceAll(p.String(), "-", " ")
}

// lastLines keeps the final n lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// Run starts the program and blocks until the student leaves.
func Run(ctx context.Context, engine Engine, phraser phrase.Phraser, opts Options) error {
	p := tea.NewProgram(New(ctx, engine, phraser, opts), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return fmt.Errorf("end session: %w", m.err)
	}
	return nil
}
