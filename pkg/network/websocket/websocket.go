package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/peerhelp/peerhelp/pkg/logger"
)

const (
	maxMessageSize = 64 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
	closeWait      = 1 * time.Second
	sendQueue      = 256
)

var ErrClosed = errors.New("websocket closed")

type Upgrader struct {
	websocket.Upgrader
}

// NewUpgrader makes an upgrader that accepts only the requests
// whose Origin header passes the check function.
// Requests without the Origin header (non-browser clients) are accepted.
func NewUpgrader(check func(origin string) bool) *Upgrader {
	u := DefaultUpgrader
	u.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || check == nil {
			return true
		}
		return check(origin)
	}
	return &u
}

var DefaultUpgrader = Upgrader{
	Upgrader: websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		WriteBufferPool: &sync.Pool{},
	},
}

type WSMessageHandler func(message []byte, err error)

// WS is a websocket connection with serialized reads and writes.
type WS struct {
	conn deadlinedConn
	send chan []byte

	OnMessage WSMessageHandler

	pingPong bool
	server   bool

	closeOnce sync.Once
	closed    chan struct{}
	Done      chan struct{}
	log       *logger.Logger
}

type deadlinedConn struct {
	sock *websocket.Conn
	wt   time.Duration
}

func (conn *deadlinedConn) read() (message []byte, err error) {
	_, message, err = conn.sock.ReadMessage()
	return
}

func (conn *deadlinedConn) write(t int, mess []byte) error {
	if err := conn.sock.SetWriteDeadline(time.Now().Add(conn.wt)); err != nil {
		return err
	}
	return conn.sock.WriteMessage(t, mess)
}

// NewServerWithConn wraps an upgraded server connection.
func NewServerWithConn(conn *websocket.Conn, log *logger.Logger) (*WS, error) {
	if conn == nil {
		return nil, errors.New("null connection")
	}
	return newSocket(conn, true, true, log), nil
}

func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*WS, error) {
	conn, err := u.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewServerWithConn(conn, log)
}

// NewClient connects to a websocket server.
func NewClient(ctx context.Context, address url.URL, log *logger.Logger) (*WS, error) {
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, address.String(), nil)
	if err != nil {
		return nil, err
	}
	return newSocket(conn, false, true, log), nil
}

func newSocket(conn *websocket.Conn, server bool, pingPong bool, log *logger.Logger) *WS {
	if log == nil {
		log = logger.Default()
	}
	return &WS{
		conn:     deadlinedConn{sock: conn, wt: writeWait},
		send:     make(chan []byte, sendQueue),
		pingPong: pingPong,
		server:   server,
		closed:   make(chan struct{}),
		Done:     make(chan struct{}),
		log:      log,
	}
}

// Listen starts the read and write pumps.
// The returned channel is closed when both are finished.
func (ws *WS) Listen() chan struct{} {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); ws.reader() }()
	go func() { defer wg.Done(); ws.writer() }()
	go func() {
		wg.Wait()
		_ = ws.conn.sock.Close()
		close(ws.Done)
	}()
	return ws.Done
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Blocking, must be called as goroutine. Serializes all websocket reads.
func (ws *WS) reader() {
	defer ws.Close()
	ws.conn.sock.SetReadLimit(maxMessageSize)
	if ws.pingPong {
		sock := ws.conn.sock
		_ = sock.SetReadDeadline(time.Now().Add(pongTime))
		sock.SetPongHandler(func(string) error { return sock.SetReadDeadline(time.Now().Add(pongTime)) })
	}
	for {
		message, err := ws.conn.read()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.log.Warn().Err(err).Msg("WebSocket read fail")
			}
			return
		}
		if ws.OnMessage != nil {
			ws.OnMessage(message, nil)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Blocking, must be called as goroutine. Serializes all websocket writes.
func (ws *WS) writer() {
	var ping <-chan time.Time
	if ws.pingPong {
		ticker := time.NewTicker(pingTime)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer func() {
		ws.Close()
		// unblocks the reader
		_ = ws.conn.sock.SetReadDeadline(time.Now().Add(closeWait))
	}()
	for {
		select {
		case message := <-ws.send:
			if err := ws.conn.write(websocket.TextMessage, message); err != nil {
				ws.log.Warn().Err(err).Msg("WebSocket write fail")
				return
			}
		case <-ping:
			if err := ws.conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ws.closed:
			// flush what's left
			for {
				select {
				case message := <-ws.send:
					if err := ws.conn.write(websocket.TextMessage, message); err != nil {
						return
					}
				default:
					_ = ws.conn.write(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// Write queues a message for sending.
// A connection which can't keep up with its queue is closed.
func (ws *WS) Write(data []byte) error {
	select {
	case <-ws.closed:
		return ErrClosed
	default:
	}
	select {
	case ws.send <- data:
		return nil
	case <-ws.closed:
		return ErrClosed
	default:
		ws.log.Warn().Msg("WebSocket send queue is full, closing")
		ws.Close()
		return ErrClosed
	}
}

// Close initiates a graceful close, safe to call many times.
func (ws *WS) Close() { ws.closeOnce.Do(func() { close(ws.closed) }) }

func (ws *WS) IsServer() bool { return ws.server }

// RemoteAddr returns the address of the other side.
func (ws *WS) RemoteAddr() string { return ws.conn.sock.RemoteAddr().String() }
