package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peerhelp/peerhelp/pkg/capture"
	"github.com/peerhelp/peerhelp/pkg/host"
)

type fakeController struct {
	status   host.Status
	notes    chan host.Note
	switched []capture.Mode
	stops    int
	err      error
}

func (f *fakeController) GetStatus() host.Status          { return f.status }
func (f *fakeController) Notifications() <-chan host.Note { return f.notes }
func (f *fakeController) StopSession() error {
	f.stops++
	f.status = host.Status{Viewers: []host.ViewerInfo{}}
	return nil
}

func (f *fakeController) SwitchCaptureMode(_ context.Context, mode capture.Mode) error {
	f.switched = append(f.switched, mode)
	if f.err != nil {
		return f.err
	}
	f.status.Mode = mode
	return nil
}

func active() *fakeController {
	return &fakeController{
		notes: make(chan host.Note, 1),
		status: host.Status{
			IsActive:    true,
			SessionCode: "K7PX2M9Q",
			Mode:        capture.Screen,
			ExpiresAt:   time.Now().Add(time.Hour),
			ViewerCount: 1,
			Viewers:     []host.ViewerInfo{{Id: "v1", Name: "Bob", JoinedAt: time.Now()}},
		},
	}
}

func key(r rune) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

func TestView(t *testing.T) {
	m := newModel(active(), "xdotool")
	view := m.View()
	for _, want := range []string{"K7PX2M9Q", "Bob", "entire screen", "xdotool", "switch mode"} {
		if !strings.Contains(view, want) {
			t.Errorf("no %q in the view:\n%v", want, view)
		}
	}
}

func TestSwitchMode(t *testing.T) {
	ctrl := active()
	var tm tea.Model = newModel(ctrl, "")

	tm, cmd := tm.Update(key('m'))
	if cmd == nil {
		t.Fatalf("no switch command")
	}
	tm, _ = tm.Update(cmd())
	if len(ctrl.switched) != 1 || ctrl.switched[0] != capture.Window {
		t.Errorf("wrong switch %v", ctrl.switched)
	}
	if !strings.Contains(tm.View(), "window only") {
		t.Errorf("wrong view:\n%v", tm.View())
	}

	ctrl.err = errors.New("no window")
	tm, cmd = tm.Update(key('m'))
	tm, _ = tm.Update(cmd())
	if ctrl.switched[1] != capture.Screen || !strings.Contains(tm.View(), "no window") {
		t.Errorf("no error shown:\n%v", tm.View())
	}
}

func TestStopAndQuit(t *testing.T) {
	ctrl := active()
	var tm tea.Model = newModel(ctrl, "")

	tm, _ = tm.Update(key('s'))
	if ctrl.stops != 1 || !strings.Contains(tm.View(), "No active session") {
		t.Errorf("not stopped:\n%v", tm.View())
	}
	if _, cmd := tm.Update(key('m')); cmd != nil {
		t.Errorf("mode switch without a session")
	}

	tm, _ = tm.Update(noteMsg(host.Note{Kind: host.SessionStopped, Reason: "stopped by the host"}))
	if !strings.Contains(tm.View(), "has ended") {
		t.Errorf("wrong view:\n%v", tm.View())
	}

	_, cmd := tm.Update(key('q'))
	if cmd == nil {
		t.Fatalf("no quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("not a quit command")
	}
}
