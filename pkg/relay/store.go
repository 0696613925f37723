package relay

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/api"
	"github.com/peerhelp/peerhelp/pkg/com"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

// Store keeps all the sessions of the relay.
// There is no lock spanning many sessions, each session is locked separately.
type Store struct {
	sessions *com.Map[string, *Session]
	ttl      time.Duration
	attempts int
	newCode  func() (string, error)
	now      func() time.Time
	log      *logger.Logger
}

type StoreOption func(*Store)

func WithCodeGenerator(fn func() (string, error)) StoreOption {
	return func(s *Store) { s.newCode = fn }
}

func WithClock(fn func() time.Time) StoreOption { return func(s *Store) { s.now = fn } }

func NewStore(ttl time.Duration, attempts int, log *logger.Logger, opts ...StoreOption) *Store {
	if attempts < 1 {
		attempts = 1
	}
	s := &Store{
		sessions: com.NewMap[string, *Session](),
		ttl:      ttl,
		attempts: attempts,
		newCode:  NewCode,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Ttl() time.Duration { return s.ttl }

// Len returns the number of live sessions.
func (s *Store) Len() int { return s.sessions.Len() }

// Create makes a new session with a unique code.
// Colliding codes are regenerated a limited number of times.
func (s *Store) Create() (*Session, error) {
	for i := 0; i < s.attempts; i++ {
		code, err := s.newCode()
		if err != nil {
			return nil, err
		}
		session := &Session{Code: code, CreatedAt: s.now(), status: Waiting}
		// locked until the timer is armed
		session.mu.Lock()
		if !s.sessions.PutIfAbsent(code, session) {
			session.mu.Unlock()
			s.log.Warn().Str(logger.SessionField, code).Msg("Session code collision")
			continue
		}
		session.timer = time.AfterFunc(s.ttl, func() { s.expire(code, session) })
		session.mu.Unlock()
		sessionsActive.Inc()
		sessionsCreated.Inc()
		s.log.Info().Str(logger.SessionField, code).Msgf("Session created, expires in %v", s.ttl)
		return session, nil
	}
	return nil, ErrCodeSpace
}

// Get returns a live session by its code.
func (s *Store) Get(code string) (*Session, error) {
	session, err := s.sessions.Find(code)
	if err != nil {
		return nil, ErrNotFound
	}
	return session, nil
}

// withSession calls fn with the locked live session.
func (s *Store) withSession(code string, fn func(*Session) error) error {
	session, err := s.Get(code)
	if err != nil {
		return err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.status == Expired {
		return ErrNotFound
	}
	return fn(session)
}

// JoinAsSender registers the sharing side of a session.
func (s *Store) JoinAsSender(code string, conn Conn) error {
	return s.withSession(code, func(session *Session) error {
		if session.sender != nil {
			if session.sender.Id() == conn.Id() {
				return ErrAlreadyJoined
			}
			return ErrConflict
		}
		if _, v := session.viewerLocked(conn.Id()); v != nil {
			return ErrAlreadyJoined
		}
		session.sender = conn
		session.status = Active
		s.log.Info().Str(logger.SessionField, code).Str("id", conn.Id()).Msg("Sender has joined")
		return nil
	})
}

// JoinAsViewer adds a viewer to the session and lets the sender know.
func (s *Store) JoinAsViewer(code string, conn Conn, name string) (*Viewer, error) {
	var viewer *Viewer
	err := s.withSession(code, func(session *Session) error {
		if session.sender == nil {
			return ErrSenderNotReady
		}
		if session.findLocked(conn.Id()) != nil {
			return ErrAlreadyJoined
		}
		viewer = &Viewer{Conn: conn, Name: name, JoinedAt: s.now()}
		session.viewers = append(session.viewers, viewer)
		_ = session.sender.Send(api.ViewerJoined, api.ViewerJoinedResponse{
			ViewerId:   conn.Id(),
			ViewerName: name,
			Timestamp:  viewer.JoinedAt.UnixMilli(),
		})
		s.log.Info().Str(logger.SessionField, code).Str("id", conn.Id()).Msgf("Viewer [%v] has joined", name)
		return nil
	})
	return viewer, err
}

// Relay forwards a negotiation packet between the session members.
// With no target, the sender's packets go to every viewer and
// the viewers' packets go to the sender.
func (s *Store) Relay(code string, from Conn, t api.PT, payload json.RawMessage, target string) error {
	return s.withSession(code, func(session *Session) error {
		if session.findLocked(from.Id()) == nil {
			return ErrNotMember
		}
		stamped, err := api.StampFrom(payload, from.Id())
		if err != nil {
			return err
		}
		relayed.WithLabelValues(string(t)).Inc()

		if target != "" {
			to := session.findLocked(target)
			if to == nil || target == from.Id() {
				return ErrNoTarget
			}
			return to.Send(t, stamped)
		}
		if session.sender != nil && session.sender.Id() == from.Id() {
			session.broadcastLocked(t, stamped, from.Id())
			return nil
		}
		if session.sender == nil {
			return ErrSenderNotReady
		}
		return session.sender.Send(t, stamped)
	})
}

// Leave removes a disconnected party from the session.
// The sender leaving ends the whole session.
// It is safe to call many times for the same connection.
func (s *Store) Leave(code string, conn Conn) {
	destroy := false
	_ = s.withSession(code, func(session *Session) error {
		if session.sender != nil && session.sender.Id() == conn.Id() {
			session.broadcastLocked(api.SenderDisconnected, api.SessionRequest{SessionId: code}, "")
			session.closeLocked()
			destroy = true
			s.log.Info().Str(logger.SessionField, code).Msg("Sender has left, session closed")
			return nil
		}
		i, v := session.viewerLocked(conn.Id())
		if v == nil {
			return nil
		}
		session.viewers = append(session.viewers[:i], session.viewers[i+1:]...)
		if session.sender != nil {
			_ = session.sender.Send(api.ViewerLeft, api.ViewerLeftResponse{ViewerId: v.Id(), ViewerName: v.Name})
		}
		s.log.Info().Str(logger.SessionField, code).Str("id", v.Id()).Msgf("Viewer [%v] has left", v.Name)
		return nil
	})
	if destroy {
		s.remove(code)
	}
}

// Delete removes the session on the request of its creator.
// The viewers are told that the sender is gone.
func (s *Store) Delete(code string) error {
	err := s.withSession(code, func(session *Session) error {
		session.broadcastLocked(api.SenderDisconnected, api.SessionRequest{SessionId: code}, "")
		session.closeLocked()
		return nil
	})
	if err != nil {
		return err
	}
	s.remove(code)
	s.log.Info().Str(logger.SessionField, code).Msg("Session deleted")
	return nil
}

// Expire ends the session because of its age,
// all the members get the session-expired message.
func (s *Store) Expire(code string) { s.expire(code, nil) }

// expire ends the session with the code,
// when owner is set only if it is still that session.
func (s *Store) expire(code string, owner *Session) {
	err := s.withSession(code, func(session *Session) error {
		if owner != nil && session != owner {
			return ErrNotFound
		}
		msg := api.SessionRequest{SessionId: code}
		if session.sender != nil {
			_ = session.sender.Send(api.SessionExpired, msg)
		}
		session.broadcastLocked(api.SessionExpired, msg, "")
		session.closeLocked()
		return nil
	})
	if err != nil {
		return
	}
	s.remove(code)
	sessionsExpired.Inc()
	s.log.Info().Str(logger.SessionField, code).Msg("Session expired")
}

// Sweep expires all the sessions older than the TTL.
// It's a backstop for the session timers.
func (s *Store) Sweep() int {
	now := s.now()
	var old []string
	for _, session := range s.sessions.Values() {
		if !now.Before(session.CreatedAt.Add(s.ttl)) {
			old = append(old, session.Code)
		}
	}
	for _, code := range old {
		s.Expire(code)
	}
	return len(old)
}

// Close drops all the sessions without notifications.
func (s *Store) Close() {
	for _, session := range s.sessions.Values() {
		session.mu.Lock()
		session.closeLocked()
		session.mu.Unlock()
		s.remove(session.Code)
	}
}

func (s *Store) remove(code string) {
	if _, ok := s.sessions.Pop(code); ok {
		sessionsActive.Dec()
	}
}

func (s *Store) String() string { return fmt.Sprintf("sessions(%v)", s.Len()) }
