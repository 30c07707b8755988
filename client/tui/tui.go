// Package tui is the terminal front end of a chat session. It only draws
// screens the session publishes and turns keys into session actions; all
// chat state stays with the session.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adwski/chatroom/client/conn"
	"github.com/adwski/chatroom/client/session"
	"github.com/adwski/chatroom/client/view"
)

const (
	// header, footer and input lines around the viewport
	chromeHeight = 3

	notConnected = "not connected, message was not sent"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

// Actions is what the terminal can ask of a session.
type Actions interface {
	Submit(ctx context.Context, text string) error
	Keystroke(ctx context.Context) error
	ScrollBy(ctx context.Context, n int) error
}

// ScreenMsg carries a freshly rendered screen into the program.
type ScreenMsg struct {
	Screen view.Screen
}

type actionErrMsg struct {
	err error
}

type Model struct {
	ctx     context.Context
	actions Actions
	vp      *view.TermViewport
	input   textinput.Model

	screen view.Screen
	status string
}

func New(ctx context.Context, actions Actions, vp *view.TermViewport) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 1000
	input.Width = 50
	input.Focus()

	return Model{
		ctx:     ctx,
		actions: actions,
		vp:      vp,
		input:   input,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.status = ""
			return m, m.do(func(ctx context.Context) error {
				return m.actions.Submit(ctx, text)
			})
		case tea.KeyPgUp:
			return m, m.scroll(-1)
		case tea.KeyPgDown:
			return m, m.scroll(1)
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() == before {
			return m, cmd
		}
		return m, tea.Batch(cmd, m.do(m.actions.Keystroke))

	case tea.WindowSizeMsg:
		m.input.Width = max(msg.Width-4, 1)
		m.vp.Resize(msg.Width, max(msg.Height-chromeHeight, 1))
		return m, nil

	case ScreenMsg:
		m.screen = msg.Screen
		return m, nil

	case actionErrMsg:
		switch {
		case errors.Is(msg.err, session.ErrStopped):
			return m, tea.Quit
		case errors.Is(msg.err, conn.ErrNotConnected):
			m.status = notConnected
		default:
			m.status = msg.err.Error()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	header := titleStyle.Render("chatroom") + " " + mutedStyle.Render(m.screen.Phase.String())

	footer := mutedStyle.Render(m.screen.Typing)
	if m.status != "" {
		footer = errorStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.vp.View(),
		footer,
		m.input.View(),
	)
}

// scroll pages the viewport by half its height in direction dir.
func (m Model) scroll(dir int) tea.Cmd {
	_, _, height := m.vp.Metrics()
	n := dir * max(height/2, 1)
	return m.do(func(ctx context.Context) error {
		return m.actions.ScrollBy(ctx, n)
	})
}

// do runs a session action off the program loop; the session may be busy
// publishing a screen to this very program.
func (m Model) do(action func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := action(ctx); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}
