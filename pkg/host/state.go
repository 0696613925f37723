package host

import (
	"time"

	"github.com/peerhelp/peerhelp/pkg/capture"
)

type State int

const (
	Idle State = iota
	Requesting
	Negotiating
	Active
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Negotiating:
		return "negotiating"
	case Active:
		return "active"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

type ViewerInfo struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Status struct {
	IsActive    bool         `json:"isActive"`
	SessionCode string       `json:"sessionCode,omitempty"`
	ViewerCount int          `json:"viewerCount"`
	Viewers     []ViewerInfo `json:"viewers"`
	Mode        capture.Mode `json:"mode,omitempty"`
	State       State        `json:"-"`
	ExpiresAt   time.Time    `json:"expiresAt,omitempty"`
}

type NoteKind int

const (
	SessionCreated NoteKind = iota
	ViewerJoined
	ViewerLeft
	ModeChanged
	SessionStopped
)

func (k NoteKind) String() string {
	switch k {
	case SessionCreated:
		return "session-created"
	case ViewerJoined:
		return "viewer-joined"
	case ViewerLeft:
		return "viewer-left"
	case ModeChanged:
		return "mode-changed"
	case SessionStopped:
		return "session-stopped"
	}
	return "unknown"
}

// Note is a session event for the UI.
type Note struct {
	Kind      NoteKind
	Code      string
	ExpiresIn time.Duration
	Viewer    ViewerInfo
	Mode      capture.Mode
	// Reason tells why the session has stopped.
	Reason string
}
