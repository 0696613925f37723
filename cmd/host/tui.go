package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/peerhelp/peerhelp/pkg/capture"
	"github.com/peerhelp/peerhelp/pkg/host"
)

type controller interface {
	GetStatus() host.Status
	SwitchCaptureMode(ctx context.Context, mode capture.Mode) error
	StopSession() error
	Notifications() <-chan host.Note
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	codeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("13")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("12")).
			Padding(0, 2)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	viewerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))
)

type (
	tickMsg       time.Time
	noteMsg       host.Note
	modeSwitchMsg struct{ err error }
)

type model struct {
	ctrl      controller
	input     string
	status    host.Status
	last      string
	err       string
	switching bool
	stopped   bool
}

func newModel(ctrl controller, input string) model {
	return model{ctrl: ctrl, input: input, status: ctrl.GetStatus()}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitNote(ch <-chan host.Note) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noteMsg(n)
	}
}

func (m model) Init() tea.Cmd { return tea.Batch(tick(), waitNote(m.ctrl.Notifications())) }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			_ = m.ctrl.StopSession()
			return m, tea.Quit
		case "s":
			_ = m.ctrl.StopSession()
			m.status = m.ctrl.GetStatus()
		case "m":
			if !m.status.IsActive || m.switching {
				return m, nil
			}
			m.switching = true
			next := capture.Window
			if m.status.Mode == capture.Window {
				next = capture.Screen
			}
			ctrl := m.ctrl
			return m, func() tea.Msg {
				return modeSwitchMsg{err: ctrl.SwitchCaptureMode(context.Background(), next)}
			}
		}
	case modeSwitchMsg:
		m.switching = false
		m.err = ""
		if msg.err != nil {
			m.err = msg.err.Error()
		}
		m.status = m.ctrl.GetStatus()
	case noteMsg:
		m.last = describe(host.Note(msg))
		if msg.Kind == host.SessionStopped {
			m.stopped = true
		}
		m.status = m.ctrl.GetStatus()
		return m, waitNote(m.ctrl.Notifications())
	case tickMsg:
		m.status = m.ctrl.GetStatus()
		return m, tick()
	}
	return m, nil
}

func describe(n host.Note) string {
	switch n.Kind {
	case host.SessionCreated:
		return "Session " + n.Code + " created"
	case host.ViewerJoined:
		return n.Viewer.Name + " has joined"
	case host.ViewerLeft:
		return n.Viewer.Name + " has left"
	case host.ModeChanged:
		return "Sharing " + modeName(n.Mode)
	case host.SessionStopped:
		return "Session stopped: " + n.Reason
	}
	return n.Kind.String()
}

func modeName(mode capture.Mode) string {
	if mode == capture.Window {
		return "the app window only"
	}
	return "the entire screen"
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("peerhelp") + dimStyle.Render(" remote screen help") + "\n\n")

	st := m.status
	if !st.IsActive {
		if m.stopped {
			b.WriteString(dimStyle.Render("The session has ended.") + "\n")
		} else {
			b.WriteString(dimStyle.Render("No active session.") + "\n")
		}
	} else {
		b.WriteString("Tell the session code to your helper:\n")
		b.WriteString(codeStyle.Render(st.SessionCode) + "\n")
		if left := time.Until(st.ExpiresAt).Truncate(time.Second); left > 0 {
			b.WriteString(dimStyle.Render("expires in "+left.String()) + "\n")
		}
		b.WriteString("\n" + statusStyle.Render("Sharing "+modeName(st.Mode)) + "\n")
		if m.input != "" {
			b.WriteString(dimStyle.Render("remote control: "+m.input) + "\n")
		}
		b.WriteString(fmt.Sprintf("\nViewers (%d):\n", st.ViewerCount))
		for _, v := range st.Viewers {
			b.WriteString(viewerStyle.Render("  "+v.Name) + dimStyle.Render(" since "+v.JoinedAt.Format("15:04:05")) + "\n")
		}
	}
	if m.last != "" {
		b.WriteString("\n" + dimStyle.Render(m.last) + "\n")
	}
	if m.err != "" {
		b.WriteString(errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + help(st.IsActive) + "\n")
	return b.String()
}

func help(active bool) string {
	keys := [][2]string{{"q", "quit"}}
	if active {
		keys = [][2]string{{"m", "switch mode"}, {"s", "stop"}, {"q", "quit"}}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, keyStyle.Render(k[0])+dimStyle.Render(" "+k[1]))
	}
	return strings.Join(parts, dimStyle.Render(" • "))
}
