package host

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/api"
	"github.com/peerhelp/peerhelp/pkg/capture"
	"github.com/peerhelp/peerhelp/pkg/com"
	"github.com/peerhelp/peerhelp/pkg/config"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/peerhelp/peerhelp/pkg/relay"
	pionRTC "github.com/pion/webrtc/v3"
)

const waitFor = 3 * time.Second

type fakeStream struct {
	src     capture.Source
	track   pionRTC.TrackLocal
	stopped atomic.Bool
}

func (s *fakeStream) Source() capture.Source    { return s.src }
func (s *fakeStream) Track() pionRTC.TrackLocal { return s.track }
func (s *fakeStream) Stop()                     { s.stopped.Store(true) }

type fakeCapturer struct {
	mu       sync.Mutex
	broken   map[capture.Mode]bool
	noWindow bool
	streams  []*fakeStream
}

func (f *fakeCapturer) Sources(context.Context) ([]capture.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sources := []capture.Source{{Id: ":0.0", Name: "Entire screen", Type: capture.Screen}}
	if !f.noWindow {
		sources = append(sources, capture.Source{Id: "0x3a00007", Name: "peerhelp", Type: capture.Window})
	}
	return sources, nil
}

func (f *fakeCapturer) Capture(_ context.Context, src capture.Source, _ capture.Bounds) (capture.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[src.Type] {
		return nil, errors.New("no permission")
	}
	track, err := pionRTC.NewTrackLocalStaticSample(
		pionRTC.RTPCodecCapability{MimeType: pionRTC.MimeTypeVP8}, "video", string(src.Type))
	if err != nil {
		return nil, err
	}
	s := &fakeStream{src: src, track: track}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeCapturer) breakMode(mode capture.Mode) {
	f.mu.Lock()
	if f.broken == nil {
		f.broken = map[capture.Mode]bool{}
	}
	f.broken[mode] = true
	f.mu.Unlock()
}

func (f *fakeCapturer) all() []*fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeStream(nil), f.streams...)
}

type fakePeer struct {
	h PeerHandlers

	mu           sync.Mutex
	track        pionRTC.TrackLocal
	offers       int
	replaced     int
	answer       *pionRTC.SessionDescription
	candidates   []pionRTC.ICECandidateInit
	disconnected bool
}

func (p *fakePeer) Offer(track pionRTC.TrackLocal, onICE func(*pionRTC.ICECandidateInit)) (*pionRTC.SessionDescription, error) {
	p.mu.Lock()
	p.track = track
	p.offers++
	p.mu.Unlock()
	// a candidate found before the offer is sent
	onICE(&pionRTC.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 127.0.0.1 5000 typ host"})
	return &pionRTC.SessionDescription{Type: pionRTC.SDPTypeOffer, SDP: "v=0\r\n"}, nil
}

func (p *fakePeer) SetAnswer(answer pionRTC.SessionDescription) error {
	p.mu.Lock()
	p.answer = &answer
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) AddCandidate(candidate pionRTC.ICECandidateInit) error {
	p.mu.Lock()
	p.candidates = append(p.candidates, candidate)
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) ReplaceTrack(track pionRTC.TrackLocal) error {
	p.mu.Lock()
	p.track = track
	p.replaced++
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) Disconnect() {
	p.mu.Lock()
	p.disconnected = true
	p.mu.Unlock()
}

func (p *fakePeer) read(fn func(p *fakePeer) bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p)
}

type fakePeers struct {
	mu    sync.Mutex
	peers map[string]*fakePeer
}

func (f *fakePeers) factory(viewerId string, h PeerHandlers) Peer {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &fakePeer{h: h}
	f.peers[viewerId] = p
	return p
}

func (f *fakePeers) get(t *testing.T, viewerId string) *fakePeer {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.peers[viewerId]
	if !ok {
		t.Fatalf("no peer for %v", viewerId)
	}
	return p
}

type fakeSink struct {
	mu     sync.Mutex
	events []string
}

func (s *fakeSink) Push(event []byte) bool {
	s.mu.Lock()
	s.events = append(s.events, string(event))
	s.mu.Unlock()
	return true
}

func (s *fakeSink) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

type testEnv struct {
	m     *Manager
	url   string
	cap   *fakeCapturer
	peers *fakePeers
	sink  *fakeSink
}

func testHostConfig() config.Host {
	var conf config.Host
	conf.Relay.RequestTimeout = 2 * time.Second
	conf.Relay.ConnectTimeout = 2 * time.Second
	conf.Capture.Mode = string(capture.Screen)
	conf.AllowRemoteModeSwitch = true
	return conf
}

func newTestRelay(t *testing.T, ttl time.Duration) string {
	t.Helper()
	var conf config.RelayConfig
	conf.Relay.Origins = []string{"*"}
	conf.Relay.Session.Ttl = ttl
	conf.Relay.Session.CodeAttempts = 10
	r := relay.New(conf, "", logger.Nop())
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = r.Shutdown(context.Background())
	})
	return srv.URL
}

func newTestEnv(t *testing.T, ttl time.Duration, opts ...func(*config.Host)) *testEnv {
	t.Helper()
	conf := testHostConfig()
	for _, opt := range opts {
		opt(&conf)
	}
	e := &testEnv{
		url:   newTestRelay(t, ttl),
		cap:   &fakeCapturer{},
		peers: &fakePeers{peers: map[string]*fakePeer{}},
		sink:  &fakeSink{},
	}
	e.m = NewManager(conf, e.cap, e.peers.factory, e.sink, logger.Nop())
	t.Cleanup(e.m.Close)
	return e
}

func (e *testEnv) start(t *testing.T) string {
	t.Helper()
	code, err := e.m.StartSession(context.Background(), e.url)
	if err != nil {
		t.Fatalf("couldn't start: %v", err)
	}
	return code
}

type testViewer struct {
	*com.Client
	packets chan api.In
}

func joinViewer(t *testing.T, address string, code string, name string) *testViewer {
	t.Helper()
	u, err := url.Parse(strings.Replace(address, "http", "ws", 1) + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	c, err := com.NewConnector().NewClient(context.Background(), *u, logger.Nop())
	if err != nil {
		t.Fatalf("couldn't connect: %v", err)
	}
	v := &testViewer{Client: c, packets: make(chan api.In, 100)}
	c.OnPacket(func(p api.In) { v.packets <- p })
	c.Listen()
	t.Cleanup(c.Close)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	reply, err := c.Call(ctx, api.JoinAsViewer, api.JoinAsViewerRequest{SessionId: code, ViewerName: name})
	if err != nil || reply.T != api.JoinedAsViewer {
		t.Fatalf("couldn't join: %v %v %s", err, reply.T, reply.Payload)
	}
	return v
}

// expect returns the next packet of the type skipping the others.
func (v *testViewer) expect(t *testing.T, pt api.PT) api.In {
	t.Helper()
	timeout := time.After(waitFor)
	for {
		select {
		case p := <-v.packets:
			if p.T == pt {
				return p
			}
		case <-timeout:
			t.Fatalf("no [%v]", pt)
		}
	}
}

func (v *testViewer) none(t *testing.T, pt api.PT, d time.Duration) {
	t.Helper()
	timeout := time.After(d)
	for {
		select {
		case p := <-v.packets:
			if p.T == pt {
				t.Fatalf("unexpected [%v] %s", pt, p.Payload)
			}
		case <-timeout:
			return
		}
	}
}

// offer waits for the offer and returns the id of the viewer.
func (v *testViewer) offer(t *testing.T) string {
	t.Helper()
	p := v.expect(t, api.Offer)
	rq := api.Unwrap[api.OfferRequest](p.Payload)
	if rq == nil || rq.Target == "" {
		t.Fatalf("bad offer %s", p.Payload)
	}
	var sdp pionRTC.SessionDescription
	if err := json.Unmarshal(rq.Offer, &sdp); err != nil || sdp.Type != pionRTC.SDPTypeOffer {
		t.Fatalf("bad offer sdp %s: %v", rq.Offer, err)
	}
	return rq.Target
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout: %v", what)
}

func notes(m *Manager, d time.Duration) []Note {
	var out []Note
	timeout := time.After(d)
	for {
		select {
		case n := <-m.Notifications():
			out = append(out, n)
		case <-timeout:
			return out
		}
	}
}

func countNotes(list []Note, kind NoteKind) (n int) {
	for _, note := range list {
		if note.Kind == kind {
			n++
		}
	}
	return
}

func TestStartSession(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	code := e.start(t)

	if !relay.IsValidCode(code) {
		t.Errorf("bad code %v", code)
	}
	st := e.m.GetStatus()
	if !st.IsActive || st.SessionCode != code || st.Mode != capture.Screen || st.State != Active || st.ViewerCount != 0 {
		t.Errorf("wrong status %+v", st)
	}
	if time.Until(st.ExpiresAt) < 59*time.Minute {
		t.Errorf("wrong expiry %v", st.ExpiresAt)
	}
	list := notes(e.m, 50*time.Millisecond)
	if len(list) != 1 || list[0].Kind != SessionCreated || list[0].Code != code {
		t.Errorf("wrong notifications %+v", list)
	}

	if _, err := e.m.StartSession(context.Background(), e.url); !errors.Is(err, ErrBusy) {
		t.Errorf("second start: %v", err)
	}

	resp, err := http.Get(e.url + "/api/session/" + code)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("relay session: %v", resp.Status)
	}
}

func TestStartSessionCreateFailed(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	tests := []struct {
		name     string
		endpoint string
	}{
		{name: "unavailable", endpoint: broken.URL},
		{name: "bad address", endpoint: "ftp://localhost"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := NewManager(testHostConfig(), &fakeCapturer{}, (&fakePeers{}).factory, nil, logger.Nop())
			_, err := m.StartSession(context.Background(), test.endpoint)
			if !errors.Is(err, ErrCreateFailed) {
				t.Errorf("want ErrCreateFailed, got %v", err)
			}
			if st := m.GetStatus(); st.IsActive || st.State != Idle {
				t.Errorf("wrong status %+v", st)
			}
		})
	}
}

func TestStartSessionConnectTimeout(t *testing.T) {
	var deleted atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session/create", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"sessionId":"K7PX2M9Q","expiresIn":60}`))
	})
	mux.HandleFunc("DELETE /api/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	// a relay that never answers
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		c, err := com.NewConnector().NewServer(w, r, logger.Nop())
		if err != nil {
			return
		}
		<-c.Listen()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conf := testHostConfig()
	conf.Relay.ConnectTimeout = 200 * time.Millisecond
	c := &fakeCapturer{}
	m := NewManager(conf, c, (&fakePeers{}).factory, nil, logger.Nop())

	_, err := m.StartSession(context.Background(), srv.URL)
	if !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("want ErrConnectTimeout, got %v", err)
	}
	if id, _ := deleted.Load().(string); id != "K7PX2M9Q" {
		t.Errorf("no compensating delete, %q", id)
	}
	if len(c.all()) != 0 {
		t.Errorf("capture has started")
	}
	if st := m.GetStatus(); st.State != Idle {
		t.Errorf("wrong state %v", st.State)
	}
}

func TestStartSessionCaptureFailed(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	e.cap.breakMode(capture.Screen)

	_, err := e.m.StartSession(context.Background(), e.url)
	if !errors.Is(err, ErrCaptureFailed) {
		t.Fatalf("want ErrCaptureFailed, got %v", err)
	}
	if st := e.m.GetStatus(); st.IsActive || st.State != Idle {
		t.Errorf("wrong status %+v", st)
	}

	resp, err := http.Get(e.url + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var h api.HealthResponse
	if err = json.NewDecoder(resp.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if h.ActiveSessions != 0 {
		t.Errorf("the session is left on the relay: %+v", h)
	}
	if n := countNotes(notes(e.m, 50*time.Millisecond), SessionCreated); n != 0 {
		t.Errorf("got %v created notifications", n)
	}
}

func TestNegotiation(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	code := e.start(t)

	v := joinViewer(t, e.url, code, "Bob")
	id := v.offer(t)
	ice := v.expect(t, api.IceCandidate)
	if rq := api.Unwrap[api.IceCandidateRequest](ice.Payload); rq == nil || rq.Target != id || len(rq.Candidate) == 0 {
		t.Errorf("bad candidate %s", ice.Payload)
	}

	peer := e.peers.get(t, id)
	if !peer.read(func(p *fakePeer) bool { return p.offers == 1 && p.track == e.cap.all()[0].Track() }) {
		t.Errorf("the peer has no capture track")
	}

	answer, _ := json.Marshal(pionRTC.SessionDescription{Type: pionRTC.SDPTypeAnswer, SDP: "v=0\r\n"})
	candidate, _ := json.Marshal(pionRTC.ICECandidateInit{Candidate: "candidate:2 1 udp 1 10.0.0.2 6000 typ host"})
	_ = v.Send(api.Answer, api.AnswerRequest{Routed: api.Routed{SessionId: code}, Answer: answer})
	_ = v.Send(api.IceCandidate, api.IceCandidateRequest{Routed: api.Routed{SessionId: code}, Candidate: candidate})

	eventually(t, "answer and candidate", func() bool {
		return peer.read(func(p *fakePeer) bool {
			return p.answer != nil && p.answer.Type == pionRTC.SDPTypeAnswer && len(p.candidates) == 1
		})
	})

	st := e.m.GetStatus()
	if st.ViewerCount != 1 || st.Viewers[0].Id != id || st.Viewers[0].Name != "Bob" {
		t.Errorf("wrong viewers %+v", st.Viewers)
	}
	if n := countNotes(notes(e.m, 50*time.Millisecond), ViewerJoined); n != 1 {
		t.Errorf("got %v joined notifications", n)
	}
}

func TestOfferNotSent(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	u, err := url.Parse(strings.Replace(e.url, "http", "ws", 1) + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	ch, err := com.NewConnector().NewClient(context.Background(), *u, logger.Nop())
	if err != nil {
		t.Fatalf("couldn't connect: %v", err)
	}
	ch.Close()

	stream, err := e.cap.Capture(context.Background(), capture.Source{Id: ":0.0", Type: capture.Screen}, capture.Bounds{})
	if err != nil {
		t.Fatal(err)
	}
	s := &session{code: "K7PX2M9Q", ch: ch, stream: stream, viewers: map[string]*viewer{}, log: logger.Nop()}
	v := &viewer{ViewerInfo: ViewerInfo{Id: "bob", Name: "Bob", JoinedAt: time.Now()}}
	s.viewers[v.Id] = v

	e.m.mu.Lock()
	e.m.connect(s, v)
	e.m.mu.Unlock()

	if v.peer != nil {
		t.Errorf("the viewer kept the peer")
	}
	if !e.peers.get(t, "bob").read(func(p *fakePeer) bool { return p.disconnected }) {
		t.Errorf("the peer is still connected")
	}
	v.mu.Lock()
	pending := len(v.pending)
	v.mu.Unlock()
	if pending != 0 {
		t.Errorf("%v candidates are left pending", pending)
	}
}

func TestSwitchCaptureMode(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	code := e.start(t)
	v := joinViewer(t, e.url, code, "Bob")
	peer := e.peers.get(t, v.offer(t))
	ctx := context.Background()

	if err := e.m.SwitchCaptureMode(ctx, capture.Window); err != nil {
		t.Fatalf("switch to window: %v", err)
	}
	p := v.expect(t, api.CaptureModeChanged)
	if rq := api.Unwrap[api.CaptureModeRequest](p.Payload); rq == nil || rq.Mode != "window" || rq.SessionId != code {
		t.Errorf("bad mode change %s", p.Payload)
	}
	if st := e.m.GetStatus(); st.Mode != capture.Window {
		t.Errorf("wrong mode %v", st.Mode)
	}
	if err := e.m.SwitchCaptureMode(ctx, capture.Window); err != nil {
		t.Errorf("same mode: %v", err)
	}
	if err := e.m.SwitchCaptureMode(ctx, capture.Screen); err != nil {
		t.Fatalf("switch to screen: %v", err)
	}
	v.expect(t, api.CaptureModeChanged)
	v.none(t, api.Offer, 200*time.Millisecond)

	streams := e.cap.all()
	if len(streams) != 3 {
		t.Fatalf("got %v captures", len(streams))
	}
	if !streams[0].stopped.Load() || !streams[1].stopped.Load() || streams[2].stopped.Load() {
		t.Errorf("wrong streams stopped")
	}
	if !peer.read(func(p *fakePeer) bool { return p.offers == 1 && p.replaced == 2 && p.track == streams[2].Track() }) {
		t.Errorf("tracks were not replaced")
	}

	if err := e.m.SwitchCaptureMode(ctx, "fullscreen"); err == nil {
		t.Errorf("unknown mode is accepted")
	}
}

func TestSwitchCaptureModeFails(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	code := e.start(t)
	v := joinViewer(t, e.url, code, "Bob")
	peer := e.peers.get(t, v.offer(t))

	e.cap.breakMode(capture.Window)
	e.cap.breakMode(capture.Screen)
	if err := e.m.SwitchCaptureMode(context.Background(), capture.Window); !errors.Is(err, ErrCaptureFailed) {
		t.Errorf("want ErrCaptureFailed, got %v", err)
	}
	if st := e.m.GetStatus(); st.Mode != capture.Screen || !st.IsActive {
		t.Errorf("wrong status %+v", st)
	}
	if peer.read(func(p *fakePeer) bool { return p.replaced != 0 }) {
		t.Errorf("track was replaced")
	}
	if e.cap.all()[0].stopped.Load() {
		t.Errorf("current stream was stopped")
	}
}

func TestSwitchCaptureModeNoWindow(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	e.cap.noWindow = true
	e.start(t)

	if err := e.m.SwitchCaptureMode(context.Background(), capture.Window); err != nil {
		t.Errorf("switch: %v", err)
	}
	if st := e.m.GetStatus(); st.Mode != capture.Screen {
		t.Errorf("wrong mode %v", st.Mode)
	}
}

func TestRemoteModeSwitch(t *testing.T) {
	tests := []struct {
		name    string
		allowed bool
		want    capture.Mode
	}{
		{name: "allowed", allowed: true, want: capture.Window},
		{name: "disabled", allowed: false, want: capture.Screen},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newTestEnv(t, time.Hour, func(h *config.Host) { h.AllowRemoteModeSwitch = test.allowed })
			code := e.start(t)
			v := joinViewer(t, e.url, code, "Bob")
			v.offer(t)

			_ = v.Send(api.SwitchCaptureMode, api.CaptureModeRequest{Routed: api.Routed{SessionId: code}, Mode: "window"})
			if test.allowed {
				v.expect(t, api.CaptureModeChanged)
			} else {
				v.none(t, api.CaptureModeChanged, 200*time.Millisecond)
			}
			if st := e.m.GetStatus(); st.Mode != test.want {
				t.Errorf("wrong mode %v", st.Mode)
			}
		})
	}
}

func TestViewerLeft(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	code := e.start(t)
	v := joinViewer(t, e.url, code, "Bob")
	peer := e.peers.get(t, v.offer(t))
	w := joinViewer(t, e.url, code, "Alice")
	w.offer(t)

	v.Close()
	eventually(t, "viewer gone", func() bool {
		st := e.m.GetStatus()
		return st.ViewerCount == 1 && st.Viewers[0].Name == "Alice"
	})
	if !peer.read(func(p *fakePeer) bool { return p.disconnected }) {
		t.Errorf("peer is still connected")
	}
	list := notes(e.m, 50*time.Millisecond)
	if countNotes(list, ViewerLeft) != 1 {
		t.Errorf("wrong notifications %+v", list)
	}
}

func TestStopSession(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	code := e.start(t)
	v := joinViewer(t, e.url, code, "Bob")
	peer := e.peers.get(t, v.offer(t))

	if err := e.m.StopSession(); err != nil {
		t.Errorf("stop: %v", err)
	}
	if err := e.m.StopSession(); err != nil {
		t.Errorf("second stop: %v", err)
	}
	v.expect(t, api.SenderDisconnected)

	if n := countNotes(notes(e.m, 100*time.Millisecond), SessionStopped); n != 1 {
		t.Errorf("got %v stop notifications", n)
	}
	if st := e.m.GetStatus(); st.IsActive || st.State != Idle || st.SessionCode != "" {
		t.Errorf("wrong status %+v", st)
	}
	if !e.cap.all()[0].stopped.Load() {
		t.Errorf("capture is running")
	}
	if !peer.read(func(p *fakePeer) bool { return p.disconnected }) {
		t.Errorf("peer is still connected")
	}

	eventually(t, "relay session gone", func() bool {
		resp, err := http.Get(e.url + "/api/session/" + code)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	})

	if next := e.start(t); next == code {
		t.Errorf("same code after restart")
	}
}

func TestSessionExpiry(t *testing.T) {
	e := newTestEnv(t, 300*time.Millisecond)
	e.start(t)

	eventually(t, "session expired", func() bool { return !e.m.GetStatus().IsActive })
	eventually(t, "stop notification", func() bool {
		return countNotes(notes(e.m, 10*time.Millisecond), SessionStopped) == 1
	})
}

func TestControlEvents(t *testing.T) {
	e := newTestEnv(t, time.Hour)
	code := e.start(t)
	v := joinViewer(t, e.url, code, "Bob")
	peer := e.peers.get(t, v.offer(t))

	event := `{"type":"click","x":0.5,"y":0.5,"button":"left"}`
	_ = v.Send(api.ControlEvent, api.ControlEventRequest{Routed: api.Routed{SessionId: code}, Event: json.RawMessage(event)})
	eventually(t, "relayed event", func() bool { return len(e.sink.all()) == 1 })

	// the data channel path
	peer.h.OnMessage([]byte(`{"type":"keydown","key":"Enter"}`))

	got := e.sink.all()
	if len(got) != 2 || got[0] != event || got[1] != `{"type":"keydown","key":"Enter"}` {
		t.Errorf("wrong events %v", got)
	}
}

func TestStatusIdle(t *testing.T) {
	m := NewManager(testHostConfig(), &fakeCapturer{}, (&fakePeers{}).factory, nil, logger.Nop())
	st := m.GetStatus()
	if st.IsActive || st.State != Idle || st.ViewerCount != 0 || st.Viewers == nil {
		t.Errorf("wrong status %+v", st)
	}
	if err := m.SwitchCaptureMode(context.Background(), capture.Window); !errors.Is(err, ErrNotActive) {
		t.Errorf("want ErrNotActive, got %v", err)
	}
	m.HandleControlEvent([]byte(`{}`))
}
