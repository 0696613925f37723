package relay

import (
	"sync"
	"time"

	"github.com/peerhelp/peerhelp/pkg/api"
)

type Status int

const (
	Waiting Status = iota
	Active
	Expired
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Active:
		return "active"
	case Expired:
		return "expired"
	}
	return "unknown"
}

// Conn is a connected party as seen by sessions.
type Conn interface {
	Id() string
	Send(t api.PT, payload any) error
}

type Viewer struct {
	Conn
	Name     string
	JoinedAt time.Time
}

// Session is a screen sharing room with one sender and many viewers.
// All the changes and deliveries of a session go under its lock,
// so every member sees the events of the session in the same order.
type Session struct {
	Code      string
	CreatedAt time.Time

	mu      sync.Mutex
	status  Status
	sender  Conn
	viewers []*Viewer
	timer   *time.Timer
}

type SessionInfo struct {
	Code        string
	Status      Status
	CreatedAt   time.Time
	ViewerCount int
	SenderId    string
}

func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := SessionInfo{Code: s.Code, Status: s.status, CreatedAt: s.CreatedAt, ViewerCount: len(s.viewers)}
	if s.sender != nil {
		info.SenderId = s.sender.Id()
	}
	return info
}

// findLocked returns a member of the session by the id.
func (s *Session) findLocked(id string) Conn {
	if s.sender != nil && s.sender.Id() == id {
		return s.sender
	}
	for _, v := range s.viewers {
		if v.Id() == id {
			return v
		}
	}
	return nil
}

func (s *Session) viewerLocked(id string) (int, *Viewer) {
	for i, v := range s.viewers {
		if v.Id() == id {
			return i, v
		}
	}
	return -1, nil
}

func (s *Session) broadcastLocked(t api.PT, payload any, except string) {
	for _, v := range s.viewers {
		if v.Id() != except {
			_ = v.Send(t, payload)
		}
	}
}

// closeLocked marks the session as expired and drops all the members.
func (s *Session) closeLocked() {
	s.status = Expired
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.sender = nil
	s.viewers = nil
}

// Has tells whether the connection is a member of the live session.
func (s *Session) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status != Expired && s.findLocked(id) != nil
}
