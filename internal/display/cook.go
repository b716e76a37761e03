package display

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/engine"
)

// Cook is the part of the engine the cook mode drives.
type Cook interface {
	Toggle(ctx context.Context, sessionID string, step int) (*engine.Transition, error)
	Board(ctx context.Context, sessionID string) (*engine.Board, error)
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Next   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Next, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Next},
		{k.Toggle, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "enter", "x"),
		key.WithHelp("space", "done/undo"),
	),
	Next: key.NewBinding(
		key.WithKeys("n", "tab"),
		key.WithHelp("n", "next ready"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ModelOption configures a cook Model.
type ModelOption func(*Model)

// WithNotifier announces steps that a toggle makes ready. The notifier
// runs outside the Bubble Tea loop and must not write to stdout.
func WithNotifier(n domain.Notifier) ModelOption {
	return func(m *Model) {
		m.notifier = n
	}
}

// Model is the Bubble Tea cook mode: a checklist of the session's steps.
type Model struct {
	ctx       context.Context
	cook      Cook
	notifier  domain.Notifier
	sessionID string

	board   *engine.Board
	cursor  int
	keys    keyMap
	help    help.Model
	width   int
	message string
	urgent  bool
}

// boardMsg carries a fresh board, and the transition that produced it.
type boardMsg struct {
	board *engine.Board
	tr    *engine.Transition
	err   error
}

// noticeMsg is a message raised outside the update loop, such as a
// reminder.
type noticeMsg struct {
	text   string
	urgent bool
}

// ProgramNotifier shows notices on the status line of a running program
// and passes them on to next, which may be nil.
type ProgramNotifier struct {
	send func(tea.Msg)
	next domain.Notifier
}

var _ domain.Notifier = (*ProgramNotifier)(nil)

// NewProgramNotifier creates a notifier for p.
func NewProgramNotifier(p *tea.Program, next domain.Notifier) *ProgramNotifier {
	return &ProgramNotifier{send: p.Send, next: next}
}

// Notify implements domain.Notifier.
func (n *ProgramNotifier) Notify(ctx context.Context, message string) error {
	n.send(noticeMsg{text: message})
	if n.next != nil {
		return n.next.Notify(ctx, message)
	}
	return nil
}

// NotifyUrgent implements domain.Notifier.
func (n *ProgramNotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.send(noticeMsg{text: message, urgent: true})
	if n.next != nil {
		return n.next.NotifyUrgent(ctx, message)
	}
	return nil
}

// NewModel creates a cook model for one session.
func NewModel(ctx context.Context, cook Cook, sessionID string, opts ...ModelOption) Model {
	m := Model{
		ctx:       ctx,
		cook:      cook,
		sessionID: sessionID,
		keys:      keys,
		help:      help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Board returns the last board the model received.
func (m Model) Board() *engine.Board { return m.board }

func (m Model) Init() tea.Cmd {
	return m.loadBoard()
}

func (m Model) loadBoard() tea.Cmd {
	return func() tea.Msg {
		b, err := m.cook.Board(m.ctx, m.sessionID)
		return boardMsg{board: b, err: err}
	}
}

func (m Model) toggle(step int) tea.Cmd {
	return func() tea.Msg {
		tr, err := m.cook.Toggle(m.ctx, m.sessionID, step)
		if err != nil {
			return boardMsg{err: err}
		}
		b, err := m.cook.Board(m.ctx, m.sessionID)
		if err != nil {
			return boardMsg{err: err}
		}
		if m.notifier != nil && (len(tr.Unblocked) > 0 || tr.SessionDone) {
			_ = m.notifier.Notify(m.ctx, DescribeTransition(b, tr))
		}
		return boardMsg{board: b, tr: tr}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case boardMsg:
		if msg.err != nil {
			m.message = msg.err.Error()
			m.urgent = true
			return m, nil
		}
		m.board = msg.board
		m.urgent = false
		m.message = ""
		if msg.tr != nil {
			m.message = DescribeTransition(m.board, msg.tr)
		}
		if m.cursor >= len(m.board.Steps) {
			m.cursor = 0
		}
		return m, nil

	case noticeMsg:
		m.message = msg.text
		m.urgent = msg.urgent
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case m.board == nil:
			// Keys below need a board.
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.board.Steps)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Next):
			m.cursor = nextReady(m.board.Ready, m.cursor)
		case key.Matches(msg, m.keys.Toggle):
			return m, m.toggle(m.cursor)
		}
	}
	return m, nil
}

// nextReady returns the first ready step after cursor, wrapping around.
func nextReady(ready []int, cursor int) int {
	if len(ready) == 0 {
		return cursor
	}
	for _, r := range ready {
		if r > cursor {
			return r
		}
	}
	return ready[0]
}

func (m Model) View() string {
	if m.board == nil {
		if m.message != "" {
			return urgentStyle.Render(m.message) + "\n"
		}
		return secondaryStyle.Render("loading...") + "\n"
	}

	var b strings.Builder
	b.WriteString(renderTitle(m.board))
	b.WriteString("\n\n")
	for i, v := range m.board.Steps {
		b.WriteString(renderStep(v, m.width, i == m.cursor))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if m.message != "" {
		if m.urgent {
			b.WriteString(urgentStyle.Render(m.message))
		} else {
			b.WriteString(readyStyle.Render(m.message))
		}
		b.WriteByte('\n')
	}
	b.WriteString(RenderProgress(m.board, m.width))
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// DescribeTransition says what a toggle did in one line.
func DescribeTransition(b *engine.Board, tr *engine.Transition) string {
	step := tr.Step + 1
	if tr.SessionDone {
		return fmt.Sprintf("Step %d done. All steps complete!", step)
	}
	if tr.Step < len(b.Steps) && !b.Steps[tr.Step].Completed {
		msg := fmt.Sprintf("Step %d reopened.", step)
		if len(tr.Blocked) > 0 {
			msg += " Waiting again: " + StepList(tr.Blocked) + "."
		}
		return msg
	}
	msg := fmt.Sprintf("Step %d done.", step)
	if len(tr.Unblocked) > 0 {
		names := make([]string, len(tr.Unblocked))
		for i, s := range tr.Unblocked {
			names[i] = fmt.Sprintf("%d (%s)", s+1, b.Steps[s].Label)
		}
		msg += " Ready now: " + strings.Join(names, ", ") + "."
	}
	return msg
}
