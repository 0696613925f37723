// Package host runs the screen sharing sessions of the host machine.
package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/api"
	"github.com/peerhelp/peerhelp/pkg/capture"
	"github.com/peerhelp/peerhelp/pkg/com"
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
	pionRTC "github.com/pion/webrtc/v3"
)

const notesQueue = 64

// Manager owns the session lifecycle of the host: the relay channel,
// the capture stream and the peer connections to the viewers.
// Only one session at a time.
type Manager struct {
	conf      config.Host
	selector  *capture.Selector
	peers     PeerFactory
	sink      InputSink
	connector *com.Connector
	notes     chan Note
	log       *logger.Logger

	// switching serializes the capture mode changes
	switching sync.Mutex

	mu      sync.Mutex
	state   State
	session *session
	cancel  context.CancelFunc
}

type session struct {
	code      string
	expiresAt time.Time
	relay     *RelayClient
	ch        *com.Client
	stream    capture.Stream
	mode      capture.Mode
	viewers   map[string]*viewer
	log       *logger.Logger
}

type viewer struct {
	ViewerInfo
	peer Peer

	// candidates found before the offer has been sent
	mu      sync.Mutex
	offered bool
	pending []*pionRTC.ICECandidateInit
}

func NewManager(conf config.Host, capturer capture.Capturer, peers PeerFactory, sink InputSink, log *logger.Logger) *Manager {
	bounds := capture.Bounds{
		MaxWidth:  conf.Capture.MaxWidth,
		MaxHeight: conf.Capture.MaxHeight,
		FrameRate: conf.Capture.FrameRate,
	}
	window := conf.Capture.Window.Id
	if window == "" {
		window = conf.Capture.Window.Name
	}
	return &Manager{
		conf:      conf,
		selector:  capture.NewSelector(capturer, bounds, window, log),
		peers:     peers,
		sink:      sink,
		connector: com.NewConnector(),
		notes:     make(chan Note, notesQueue),
		log:       log,
	}
}

// Notifications returns session events for the UI.
// The events are dropped when nobody reads them.
func (m *Manager) Notifications() <-chan Note { return m.notes }

func (m *Manager) notify(n Note) {
	select {
	case m.notes <- n:
	default:
		m.log.Warn().Msgf("Dropped [%v] notification", n.Kind)
	}
}

// StartSession creates a new relay session, registers the host as its sender
// and starts the capture. Returns the session code.
// Any failure after the session has been created deletes it from the relay.
func (m *Manager) StartSession(ctx context.Context, endpoint string) (string, error) {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return "", ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.state, m.cancel = Requesting, cancel
	m.mu.Unlock()

	s, err := m.start(ctx, endpoint)

	m.mu.Lock()
	m.cancel = nil
	if err == nil && ctx.Err() != nil {
		err = ErrCancelled
		m.mu.Unlock()
		m.abort(s)
		m.mu.Lock()
	}
	if err != nil {
		m.state = Idle
		m.mu.Unlock()
		m.log.Error().Err(err).Msg("Session start has failed")
		return "", err
	}
	m.state = Active
	for _, v := range s.viewers {
		m.connect(s, v)
	}
	m.mu.Unlock()

	s.log.Info().Msgf("Session is active, capture: %v", s.mode)
	m.notify(Note{Kind: SessionCreated, Code: s.code, ExpiresIn: time.Until(s.expiresAt), Mode: s.mode})
	return s.code, nil
}

func (m *Manager) start(ctx context.Context, endpoint string) (*session, error) {
	rc, err := NewRelayClient(endpoint, m.conf.Relay.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	created, err := rc.CreateSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	s := &session{
		code:      created.SessionId,
		expiresAt: time.Now().Add(time.Duration(created.ExpiresIn) * time.Second),
		relay:     rc,
		viewers:   make(map[string]*viewer),
		log:       m.log.Extend(m.log.With().Str(logger.SessionField, created.SessionId)),
	}
	s.log.Info().Msg("Session has been created")

	m.mu.Lock()
	m.session, m.state = s, Negotiating
	m.mu.Unlock()

	if err = m.join(ctx, s); err != nil {
		m.abort(s)
		return nil, err
	}

	stream, mode, err := m.selector.Acquire(ctx, capture.ParseMode(m.conf.Capture.Mode))
	if err != nil {
		m.abort(s)
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	m.mu.Lock()
	s.stream, s.mode = stream, mode
	m.mu.Unlock()
	return s, nil
}

// join opens the relay channel and registers the host as the sender.
func (m *Manager) join(ctx context.Context, s *session) error {
	timeout := m.conf.Relay.ConnectTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch, err := m.connector.NewClient(ctx, s.relay.WsAddress(), s.log)
	if err != nil {
		return channelError(ctx, err)
	}
	m.mu.Lock()
	s.ch = ch
	m.mu.Unlock()
	ch.OnPacket(func(p api.In) { m.handle(s, p) })
	done := ch.Listen()
	go func() {
		<-done
		m.stopSession(s, "relay connection lost")
	}()

	reply, err := ch.Call(ctx, api.JoinAsSender, api.SessionRequest{SessionId: s.code})
	if err != nil {
		return channelError(ctx, err)
	}
	if reply.T == api.Error {
		e := api.Unwrap[api.ErrorResponse](reply.Payload)
		if e == nil {
			return fmt.Errorf("%w: %w", ErrConnectFailed, api.ErrMalformed)
		}
		return fmt.Errorf("%w: %v", ErrConnectFailed, e.Message)
	}
	s.log.Info().Msg("Joined as the sender")
	return nil
}

func channelError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, com.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrConnectTimeout
	case errors.Is(ctx.Err(), context.Canceled):
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrConnectFailed, err)
}

// abort rolls back a session that hasn't started.
func (m *Manager) abort(s *session) {
	m.mu.Lock()
	if m.session == s {
		m.session = nil
	}
	ch, stream := s.ch, s.stream
	for _, v := range s.viewers {
		if v.peer != nil {
			v.peer.Disconnect()
		}
	}
	m.mu.Unlock()

	if stream != nil {
		stream.Stop()
	}
	if ch != nil {
		ch.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.conf.Relay.RequestTimeout)
	defer cancel()
	if err := s.relay.DeleteSession(ctx, s.code); err != nil {
		s.log.Warn().Err(err).Msg("couldn't delete the session")
		return
	}
	s.log.Info().Msg("Session has been deleted")
}

// handle processes relay packets on the channel reader goroutine.
func (m *Manager) handle(s *session, p api.In) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Msgf("Recovered from a packet [%v] handler: %v", p.T, r)
		}
	}()

	switch p.T {
	case api.ViewerJoined:
		rq := api.Unwrap[api.ViewerJoinedResponse](p.Payload)
		if rq == nil || rq.ViewerId == "" {
			s.log.Warn().Msg("malformed viewer-joined")
			return
		}
		m.onViewerJoined(s, rq)
	case api.ViewerLeft:
		if rq := api.Unwrap[api.ViewerLeftResponse](p.Payload); rq != nil {
			m.onViewerLeft(s, rq.ViewerId)
		}
	case api.Answer:
		rq := api.Unwrap[api.AnswerRequest](p.Payload)
		if rq == nil {
			return
		}
		var answer pionRTC.SessionDescription
		if err := json.Unmarshal(rq.Answer, &answer); err != nil {
			s.log.Warn().Err(err).Msg("malformed answer")
			return
		}
		if peer := m.peerOf(s, rq.From); peer != nil {
			if err := peer.SetAnswer(answer); err != nil {
				s.log.Error().Err(err).Str("viewer", rq.From).Msg("couldn't set the answer")
			}
		}
	case api.IceCandidate:
		rq := api.Unwrap[api.IceCandidateRequest](p.Payload)
		if rq == nil {
			return
		}
		var candidate pionRTC.ICECandidateInit
		if err := json.Unmarshal(rq.Candidate, &candidate); err != nil {
			s.log.Warn().Err(err).Msg("malformed candidate")
			return
		}
		if peer := m.peerOf(s, rq.From); peer != nil {
			if err := peer.AddCandidate(candidate); err != nil {
				s.log.Warn().Err(err).Str("viewer", rq.From).Msg("couldn't add the candidate")
			}
		}
	case api.ControlEvent:
		if rq := api.Unwrap[api.ControlEventRequest](p.Payload); rq != nil && len(rq.Event) > 0 {
			m.HandleControlEvent(rq.Event)
		}
	case api.SwitchCaptureMode:
		if !m.conf.AllowRemoteModeSwitch {
			s.log.Warn().Msg("Remote capture mode switching is disabled")
			return
		}
		rq := api.Unwrap[api.CaptureModeRequest](p.Payload)
		if rq == nil || !capture.Mode(rq.Mode).IsValid() {
			s.log.Warn().Msg("malformed capture mode")
			return
		}
		go func() {
			if err := m.SwitchCaptureMode(context.Background(), capture.Mode(rq.Mode)); err != nil {
				s.log.Error().Err(err).Msg("couldn't switch the capture mode")
			}
		}()
	case api.SessionExpired:
		go m.stopSession(s, "session expired")
	case api.SenderDisconnected:
		go m.stopSession(s, "disconnected by the relay")
	case api.Error:
		if e := api.Unwrap[api.ErrorResponse](p.Payload); e != nil {
			s.log.Warn().Str("code", string(e.Code)).Msg(e.Message)
		}
	default:
		s.log.Debug().Msgf("Skipped [%v]", p.T)
	}
}

func (m *Manager) onViewerJoined(s *session, rq *api.ViewerJoinedResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != s {
		return
	}
	if old, ok := s.viewers[rq.ViewerId]; ok && old.peer != nil {
		old.peer.Disconnect()
	}
	joined := time.Now()
	if rq.Timestamp > 0 {
		joined = time.UnixMilli(rq.Timestamp)
	}
	v := &viewer{ViewerInfo: ViewerInfo{Id: rq.ViewerId, Name: rq.ViewerName, JoinedAt: joined}}
	s.viewers[v.Id] = v
	s.log.Info().Str("viewer", v.Id).Msgf("Viewer [%v] has joined", v.Name)
	// the viewers joined before the capture has started are connected on activation
	if m.state == Active {
		m.connect(s, v)
	}
	m.notify(Note{Kind: ViewerJoined, Code: s.code, Viewer: v.ViewerInfo})
}

// connect makes a new peer connection for the viewer and sends the offer.
// Should be called under the lock.
func (m *Manager) connect(s *session, v *viewer) {
	if v.peer != nil || s.stream == nil {
		return
	}
	id := v.Id
	var peer Peer
	peer = m.peers(id, PeerHandlers{
		OnMessage:    m.HandleControlEvent,
		OnDisconnect: func() { m.onPeerClosed(s, id, peer) },
	})
	offer, err := peer.Offer(s.stream.Track(), func(candidate *pionRTC.ICECandidateInit) {
		v.mu.Lock()
		if !v.offered {
			v.pending = append(v.pending, candidate)
			v.mu.Unlock()
			return
		}
		v.mu.Unlock()
		m.sendCandidate(s, id, candidate)
	})
	if err != nil {
		s.log.Error().Err(err).Str("viewer", id).Msg("couldn't make an offer")
		peer.Disconnect()
		return
	}
	data, err := json.Marshal(offer)
	if err != nil {
		peer.Disconnect()
		return
	}
	v.peer = peer
	err = s.ch.Send(api.Offer, api.OfferRequest{
		Routed: api.Routed{SessionId: s.code, Target: id},
		Offer:  data,
	})
	if err != nil {
		s.log.Error().Err(err).Str("viewer", id).Msg("couldn't send the offer")
		v.peer = nil
		peer.Disconnect()
		v.mu.Lock()
		v.pending = nil
		v.mu.Unlock()
		return
	}
	v.mu.Lock()
	v.offered = true
	pending := v.pending
	v.pending = nil
	v.mu.Unlock()
	for _, c := range pending {
		m.sendCandidate(s, id, c)
	}
}

func (m *Manager) sendCandidate(s *session, viewerId string, candidate *pionRTC.ICECandidateInit) {
	data, err := json.Marshal(candidate)
	if err != nil {
		return
	}
	err = s.ch.Send(api.IceCandidate, api.IceCandidateRequest{
		Routed:    api.Routed{SessionId: s.code, Target: viewerId},
		Candidate: data,
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("couldn't send the candidate")
	}
}

func (m *Manager) peerOf(s *session, viewerId string) Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != s {
		return nil
	}
	if v, ok := s.viewers[viewerId]; ok {
		return v.peer
	}
	s.log.Warn().Str("viewer", viewerId).Msg("Unknown viewer")
	return nil
}

func (m *Manager) onViewerLeft(s *session, viewerId string) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	v, ok := s.viewers[viewerId]
	delete(s.viewers, viewerId)
	m.mu.Unlock()
	if !ok {
		return
	}
	if v.peer != nil {
		v.peer.Disconnect()
	}
	s.log.Info().Str("viewer", v.Id).Msgf("Viewer [%v] has left", v.Name)
	m.notify(Note{Kind: ViewerLeft, Code: s.code, Viewer: v.ViewerInfo})
}

// onPeerClosed forgets a failed peer, the viewer stays until the relay says it has left.
func (m *Manager) onPeerClosed(s *session, viewerId string, peer Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != s {
		return
	}
	if v, ok := s.viewers[viewerId]; ok && v.peer == peer {
		v.peer = nil
		s.log.Warn().Str("viewer", viewerId).Msg("Peer connection has been closed")
	}
}

// SwitchCaptureMode changes the captured source for all the viewers
// by swapping the video tracks of their connections.
// When the new source can't be captured, the session stays in the previous mode.
func (m *Manager) SwitchCaptureMode(ctx context.Context, mode capture.Mode) error {
	if !mode.IsValid() {
		return fmt.Errorf("unknown capture mode %q", mode)
	}
	m.switching.Lock()
	defer m.switching.Unlock()

	m.mu.Lock()
	s := m.session
	if s == nil || m.state != Active {
		m.mu.Unlock()
		return ErrNotActive
	}
	if s.mode == mode {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	stream, got, err := m.selector.Acquire(ctx, mode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}

	m.mu.Lock()
	if m.session != s || m.state != Active {
		m.mu.Unlock()
		stream.Stop()
		return ErrNotActive
	}
	if got == s.mode {
		m.mu.Unlock()
		stream.Stop()
		s.log.Warn().Msgf("Capture mode stays %v", got)
		return nil
	}
	old := s.stream
	var replaced []Peer
	for _, v := range s.viewers {
		if v.peer == nil {
			continue
		}
		if err = v.peer.ReplaceTrack(stream.Track()); err != nil {
			break
		}
		replaced = append(replaced, v.peer)
	}
	if err != nil {
		for _, p := range replaced {
			_ = p.ReplaceTrack(old.Track())
		}
		m.mu.Unlock()
		stream.Stop()
		return fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	s.stream, s.mode = stream, got
	m.mu.Unlock()

	old.Stop()
	err = s.ch.Send(api.CaptureModeChanged, api.CaptureModeRequest{
		Routed: api.Routed{SessionId: s.code},
		Mode:   string(got),
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("couldn't announce the capture mode")
	}
	s.log.Info().Msgf("Capture mode: %v", got)
	m.notify(Note{Kind: ModeChanged, Code: s.code, Mode: got})
	return nil
}

// HandleControlEvent passes a viewer input event as is to the injector.
func (m *Manager) HandleControlEvent(event []byte) {
	if m.sink == nil {
		return
	}
	if !m.sink.Push(event) {
		m.log.Debug().Msg("Control event dropped")
	}
}

// StopSession ends the current session, or cancels the one being started.
// It is safe to call many times.
func (m *Manager) StopSession() error {
	m.stopSession(nil, "stopped by the host")
	return nil
}

// stopSession tears down the session s, any session when s is nil.
func (m *Manager) stopSession(s *session, reason string) {
	m.mu.Lock()
	if m.state != Active {
		if m.cancel != nil && (s == nil || m.session == s) {
			m.cancel()
		}
		m.mu.Unlock()
		return
	}
	cur := m.session
	if cur == nil || (s != nil && s != cur) {
		m.mu.Unlock()
		return
	}
	m.session, m.state = nil, Stopped
	peers := make([]Peer, 0, len(cur.viewers))
	for _, v := range cur.viewers {
		if v.peer != nil {
			peers = append(peers, v.peer)
		}
	}
	m.mu.Unlock()

	cur.stream.Stop()
	for _, p := range peers {
		p.Disconnect()
	}
	cur.ch.Close()

	m.mu.Lock()
	if m.state == Stopped {
		m.state = Idle
	}
	m.mu.Unlock()
	cur.log.Info().Msgf("Session has been stopped: %v", reason)
	m.notify(Note{Kind: SessionStopped, Code: cur.code, Reason: reason})
}

func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Status{State: m.state, Viewers: []ViewerInfo{}}
	s := m.session
	if s == nil || m.state != Active {
		return st
	}
	st.IsActive = true
	st.SessionCode = s.code
	st.Mode = s.mode
	st.ExpiresAt = s.expiresAt
	for _, v := range s.viewers {
		st.Viewers = append(st.Viewers, v.ViewerInfo)
	}
	slices.SortFunc(st.Viewers, func(a, b ViewerInfo) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		if a.Id < b.Id {
			return -1
		}
		return 1
	})
	st.ViewerCount = len(st.Viewers)
	return st
}

// Close stops everything.
func (m *Manager) Close() { _ = m.StopSession() }
