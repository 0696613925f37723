package com

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/goccy/go-json"
	"github.com/peerhelp/peerhelp/pkg/api"
	"github.com/peerhelp/peerhelp/pkg/logger"
	"github.com/peerhelp/peerhelp/pkg/network/websocket"
)

type (
	Connector struct {
		wu *websocket.Upgrader
	}
	// Client is a packet-oriented wrapper over a websocket connection.
	// Each packet with an id can be waited for its reply with the Call function.
	Client struct {
		id       Uid
		conn     *websocket.WS
		queue    map[string]*call
		onPacket func(packet api.In)
		mu       sync.Mutex
		log      *logger.Logger
	}
	call struct {
		done     chan struct{}
		err      error
		Response api.In
	}
	Option = func(c *Connector)
)

var (
	ErrConnClosed = errors.New("connection closed")
	ErrTimeout    = errors.New("timeout")
)

var outPool = sync.Pool{New: func() any { o := api.Out{}; return &o }}

// WithOrigin sets the allowed origin check of incoming connections.
func WithOrigin(check func(origin string) bool) Option {
	return func(c *Connector) { c.wu = websocket.NewUpgrader(check) }
}

func NewConnector(opts ...Option) *Connector {
	c := &Connector{}
	for _, opt := range opts {
		opt(c)
	}
	if c.wu == nil {
		c.wu = &websocket.DefaultUpgrader
	}
	return c
}

// NewServer upgrades an HTTP request into a new client connection.
func (co *Connector) NewServer(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*Client, error) {
	id := NewUid()
	l := connLog(log, id, "←")
	ws, err := co.wu.Upgrade(w, r, l)
	if err != nil {
		return nil, err
	}
	return newClient(ws, id, l), nil
}

// NewClient connects to a server.
func (co *Connector) NewClient(ctx context.Context, address url.URL, log *logger.Logger) (*Client, error) {
	id := NewUid()
	l := connLog(log, id, "→")
	ws, err := websocket.NewClient(ctx, address, l)
	if err != nil {
		return nil, err
	}
	return newClient(ws, id, l), nil
}

func connLog(log *logger.Logger, id Uid, dir string) *logger.Logger {
	return log.Extend(log.With().Str(logger.ClientField, id.Short()).Str(logger.DirectionField, dir))
}

func newClient(conn *websocket.WS, id Uid, log *logger.Logger) *Client {
	client := &Client{id: id, conn: conn, queue: make(map[string]*call, 1), log: log}
	client.conn.OnMessage = client.handleMessage
	log.Debug().Msg("Connect")
	return client
}

func (c *Client) Id() Uid               { return c.id }
func (c *Client) String() string        { return c.id.String() }
func (c *Client) Log() *logger.Logger   { return c.log }
func (c *Client) IsServer() bool        { return c.conn.IsServer() }
func (c *Client) RemoteAddr() string    { return c.conn.RemoteAddr() }
func (c *Client) Done() <-chan struct{} { return c.conn.Done }

func (c *Client) OnPacket(fn func(api.In)) {
	c.mu.Lock()
	c.onPacket = fn
	c.mu.Unlock()
}

// Listen starts the message processing, the returned channel is closed
// on disconnect.
func (c *Client) Listen() <-chan struct{} {
	done := c.conn.Listen()
	go func() {
		<-done
		c.drain(ErrConnClosed)
	}()
	return done
}

// Close closes the connection and cancels all pending calls.
func (c *Client) Close() {
	c.conn.Close()
	c.drain(ErrConnClosed)
	c.log.Debug().Str(logger.DirectionField, "x").Msg("Close")
}

// Call sends a packet and waits for the reply with the same id.
func (c *Client) Call(ctx context.Context, t api.PT, payload any) (api.In, error) {
	id := NewUid().String()
	task := &call{done: make(chan struct{})}
	c.mu.Lock()
	c.queue[id] = task
	c.mu.Unlock()

	if err := c.send(id, t, payload); err != nil {
		c.pop(id)
		return api.In{}, err
	}
	select {
	case <-task.done:
		return task.Response, task.err
	case <-ctx.Done():
		c.pop(id)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return api.In{}, ErrTimeout
		}
		return api.In{}, ctx.Err()
	}
}

// Send just sends a packet and goes further.
func (c *Client) Send(t api.PT, payload any) error { return c.send("", t, payload) }

// Route sends a reply to the packet p.
func (c *Client) Route(p api.In, t api.PT, payload any) error { return c.send(p.Id, t, payload) }

func (c *Client) send(id string, t api.PT, payload any) error {
	rq := outPool.Get().(*api.Out)
	rq.Id, rq.T, rq.Payload = id, t, payload
	r, err := json.Marshal(rq)
	rq.Payload = nil
	outPool.Put(rq)
	if err != nil {
		return err
	}
	c.log.Debug().Str(logger.DirectionField, "→").Str(logger.MethodField, string(t)).Send()
	if err = c.conn.Write(r); err != nil {
		return ErrConnClosed
	}
	return nil
}

func (c *Client) handleMessage(message []byte, err error) {
	if err != nil {
		c.log.Error().Err(err).Send()
		return
	}
	var res api.In
	if err = json.Unmarshal(message, &res); err != nil {
		c.log.Warn().Err(err).Msg("malformed packet")
		return
	}
	c.log.Debug().Str(logger.DirectionField, "←").Str(logger.MethodField, string(res.T)).Send()

	// empty id implies that we won't track (wait) the response
	if res.Id != "" {
		if task := c.pop(res.Id); task != nil {
			task.Response = res
			close(task.done)
			return
		}
	}
	c.mu.Lock()
	fn := c.onPacket
	c.mu.Unlock()
	if fn != nil {
		fn(res)
	}
}

// pop extracts and removes a task from the queue by its id.
func (c *Client) pop(id string) *call {
	c.mu.Lock()
	task := c.queue[id]
	delete(c.queue, id)
	c.mu.Unlock()
	return task
}

// drain cancels all what's left in the task queue.
func (c *Client) drain(err error) {
	c.mu.Lock()
	for id, task := range c.queue {
		task.err = err
		close(task.done)
		delete(c.queue, id)
	}
	c.mu.Unlock()
}
