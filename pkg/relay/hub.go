package relay

import (
	"net/http"
	"strings"
	"sync"

	"github.com/peerhelp/peerhelp/pkg/api"
	"github.com/peerhelp/peerhelp/pkg/com"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

type role int

const (
	none role = iota
	sender
	viewer
)

const defaultViewerName = "Viewer"

// member is a connected party of the relay.
type member struct {
	c *com.Client

	mu   sync.Mutex
	code string
	role role
}

func (m *member) Id() string                             { return m.c.Id().String() }
func (m *member) Send(t api.PT, payload any) error       { return m.c.Send(t, payload) }
func (m *member) reply(p api.In, t api.PT, pl any) error { return m.c.Route(p, t, pl) }
func (m *member) session() (string, role)                { m.mu.Lock(); defer m.mu.Unlock(); return m.code, m.role }
func (m *member) bind(code string, r role)               { m.mu.Lock(); m.code, m.role = code, r; m.mu.Unlock() }

// Hub handles the messaging channels of all the connected parties.
type Hub struct {
	store     *Store
	conns     *com.Map[string, *member]
	connector *com.Connector
	log       *logger.Logger
}

func NewHub(store *Store, origins *OriginPolicy, log *logger.Logger) *Hub {
	return &Hub{
		store:     store,
		conns:     com.NewMap[string, *member](),
		connector: com.NewConnector(com.WithOrigin(origins.Allowed)),
		log:       log,
	}
}

// Connections returns the number of open channels.
func (h *Hub) Connections() int { return h.conns.Len() }

// handleWebsocket handles all the channel connections from hosts and viewers.
func (h *Hub) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connector.NewServer(w, r, h.log)
	if err != nil {
		h.log.Warn().Err(err).Msg("couldn't upgrade the connection")
		return
	}
	m := &member{c: conn}
	h.conns.Put(m.Id(), m)
	connectionsActive.Inc()
	conn.Log().Info().Str("addr", conn.RemoteAddr()).Msg("Connected")

	conn.OnPacket(func(p api.In) { h.handle(m, p) })
	<-conn.Listen()
	h.disconnect(m)
}

// handle processes packets of a connection one by one.
func (h *Hub) handle(m *member, p api.In) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Msgf("Recovered from a packet [%v] handler: %v", p.T, r)
		}
	}()

	var err error
	switch p.T {
	case api.JoinAsSender:
		var rq *api.SessionRequest
		if rq, err = api.UnwrapChecked[api.SessionRequest](p.Payload); err != nil {
			break
		}
		code := normalizeCode(rq.SessionId)
		if err = h.joinAsSender(m, code); err != nil {
			break
		}
		_ = m.reply(p, api.JoinedAsSender, api.SessionRequest{SessionId: code})
	case api.JoinAsViewer:
		var rq *api.JoinAsViewerRequest
		if rq, err = api.UnwrapChecked[api.JoinAsViewerRequest](p.Payload); err != nil {
			break
		}
		code := normalizeCode(rq.SessionId)
		if err = h.joinAsViewer(m, code, rq.ViewerName); err != nil {
			break
		}
		_ = m.reply(p, api.JoinedAsViewer, api.SessionRequest{SessionId: code})
	default:
		if !p.T.IsRelayed() {
			m.c.Log().Warn().Msgf("Unknown packet [%v]", p.T)
			err = api.ErrMalformed
			break
		}
		err = h.relay(m, p)
	}
	if err != nil {
		m.c.Log().Warn().Err(err).Str(logger.MethodField, string(p.T)).Send()
		_ = m.reply(p, api.Error, errorResponse(err))
	}
}

func (h *Hub) joinAsSender(m *member, code string) error {
	if err := h.checkFree(m); err != nil {
		return err
	}
	if err := h.store.JoinAsSender(code, m); err != nil {
		return err
	}
	m.bind(code, sender)
	return nil
}

func (h *Hub) joinAsViewer(m *member, code string, name string) error {
	if err := h.checkFree(m); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultViewerName
	}
	if _, err := h.store.JoinAsViewer(code, m, name); err != nil {
		return err
	}
	m.bind(code, viewer)
	return nil
}

// checkFree allows only one live session per connection.
func (h *Hub) checkFree(m *member) error {
	code, _ := m.session()
	if code == "" {
		return nil
	}
	session, err := h.store.Get(code)
	if err != nil {
		return nil
	}
	if session.Has(m.Id()) {
		return ErrAlreadyJoined
	}
	return nil
}

func (h *Hub) relay(m *member, p api.In) error {
	rq, err := api.UnwrapChecked[api.Routed](p.Payload)
	if err != nil {
		return err
	}
	code, _ := m.session()
	if code == "" {
		return ErrNotMember
	}
	if rq.SessionId != "" && normalizeCode(rq.SessionId) != code {
		return ErrNotMember
	}
	return h.store.Relay(code, m, p.T, p.Payload, rq.Target)
}

// disconnect cleans up after a closed channel, safe to call many times.
func (h *Hub) disconnect(m *member) {
	if _, ok := h.conns.Pop(m.Id()); !ok {
		return
	}
	connectionsActive.Dec()
	if code, r := m.session(); code != "" && r != none {
		h.store.Leave(code, m)
	}
	m.c.Log().Info().Msg("Disconnected")
}

// Close drops all the connections.
func (h *Hub) Close() {
	for _, m := range h.conns.Values() {
		m.c.Close()
	}
}

func normalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }
