// Package transport carries the five client->server RPCs and four
// server->client calls over a WebSocket connection, framed as small JSON
// envelopes. The connection-management core (Client/Manager, ping/pong,
// serialized writes) is the teacher's websocket package generalized from
// a single-purpose game socket into a reusable duplex byte pipe.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultSetupConn configures read limits and pong handling on a freshly
// upgraded connection.
func DefaultSetupConn(c *websocket.Conn) {
	pw := 60 * time.Second
	c.SetReadLimit(4096)
	_ = c.SetReadDeadline(time.Now().Add(pw))
	c.SetPongHandler(func(string) error {
		_ = c.SetReadDeadline(time.Now().Add(pw))
		return nil
	})
}

// DefaultUpgrader builds an Upgrader with 4 KiB buffers and CheckOrigin
// left nil, so gorilla's default same-origin check applies.
func DefaultUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}

// Conn is a duplex byte pipe over one WebSocket connection: writes are
// serialized through an egress channel so only one goroutine ever calls
// conn.WriteMessage, and reads are delivered to a handler one at a time.
type Conn interface {
	io.Writer
	io.Closer

	WriteForever(context.Context, func(Conn), time.Duration)
	ReadForever(context.Context, func(Conn), ...MessageHandler)

	RawConn() *websocket.Conn
	Wait()
}

// MessageHandler processes one inbound message.
type MessageHandler func(Conn, []byte)

type wsConn struct {
	wg     sync.WaitGroup
	conn   *websocket.Conn
	egress chan []byte
	log    *slog.Logger
}

// NewConn wraps c, ready to be passed to ServeWS's connFactory argument.
func NewConn(c *websocket.Conn, log *slog.Logger) Conn {
	wc := &wsConn{conn: c, egress: make(chan []byte, 32), log: log}
	wc.wg.Add(2)
	return wc
}

func (c *wsConn) RawConn() *websocket.Conn { return c.conn }

func (c *wsConn) Write(p []byte) (int, error) {
	c.egress <- p
	return len(p), nil
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Time{})
	return c.conn.Close()
}

// WriteForever serializes writes to the connection: queued messages and
// periodic pings. Returns once ctx is cancelled or a write fails.
func (c *wsConn) WriteForever(ctx context.Context, onDestroy func(Conn), ping time.Duration) {
	ticker := time.NewTicker(ping)
	defer func() {
		c.wg.Done()
		ticker.Stop()
		onDestroy(c)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case msg, ok := <-c.egress:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logf(slog.LevelError, "write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				c.logf(slog.LevelError, "ping failed", "error", err)
				return
			}
		}
	}
}

// ReadForever reads frames serially and dispatches each to every handler
// concurrently, waiting for all handlers before reading the next frame.
func (c *wsConn) ReadForever(ctx context.Context, onDestroy func(Conn), handlers ...MessageHandler) {
	defer func() {
		c.wg.Done()
		onDestroy(c)
	}()

	ingress := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		for {
			_, payload, err := c.conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			ingress <- payload
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logf(slog.LevelInfo, "connection closed unexpectedly", "error", err)
			}
			return
		case payload := <-ingress:
			var wg sync.WaitGroup
			wg.Add(len(handlers))
			for _, h := range handlers {
				go func(h MessageHandler) {
					defer wg.Done()
					h(c, payload)
				}(h)
			}
			wg.Wait()
		}
	}
}

func (c *wsConn) logf(level slog.Level, msg string, args ...any) {
	if c.log == nil {
		return
	}
	_, file, line, ok := runtime.Caller(2)
	if ok {
		args = append(args, "caller", fmt.Sprintf("%s:%d", file, line))
	}
	c.log.Log(context.Background(), level, msg, args...)
}

// Wait blocks until both the read and write loops have exited.
func (c *wsConn) Wait() { c.wg.Wait() }

// ServeWS upgrades the request, wraps the connection, and starts its
// read/write loops. onCreate/onDestroy let the caller register the
// connection with outer bookkeeping (here, attaching/detaching a
// model.Client).
func ServeWS(
	upgrader websocket.Upgrader,
	connSetup func(*websocket.Conn),
	connFactory func(*websocket.Conn) Conn,
	onCreate func(context.Context, context.CancelFunc, Conn),
	onDestroy func(Conn),
	ping time.Duration,
	handlers []MessageHandler,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connSetup(raw)
		conn := connFactory(raw)

		ctx, cancel := context.WithCancel(context.Background())
		onCreate(ctx, cancel, conn)

		go conn.WriteForever(ctx, onDestroy, ping)
		go conn.ReadForever(ctx, onDestroy, handlers...)
	}
}
