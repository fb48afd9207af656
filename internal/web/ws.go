// ABOUTME: WebSocket push of editor panels.
// ABOUTME: Every session event re-renders the out-of-band fragments and sends them to each connected browser.

package web

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/2389/dic/internal/render"
	"github.com/2389/dic/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts same-origin requests and pages served from a loopback
// host. Hostnames are compared exactly.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	switch strings.ToLower(u.Hostname()) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// wsClient is one connected browser tab.
type wsClient struct {
	conn      *websocket.Conn
	session   *session.Session
	mode      render.Mode
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeConn sync.Once
}

func (h *Handlers) liveUpdates(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &wsClient{
		conn:    conn,
		session: s,
		mode:    modeOf(r),
		logger:  h.logger.With(zap.String("session", s.ID)),
		ctx:     ctx,
		cancel:  cancel,
	}
	updates, unsubscribe := s.Subscribe()

	go client.writePump(updates, unsubscribe)
	go client.readPump()
}

func (c *wsClient) close() {
	c.closeConn.Do(func() {
		c.conn.Close()
	})
}

// readPump only watches for the connection closing; the browser never sends
// commands over the socket.
func (c *wsClient) readPump() {
	defer func() {
		c.cancel()
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends the panels once on connect and again after every session
// event. Signals coalesce, so a slow browser only ever sees the latest state.
func (c *wsClient) writePump(updates <-chan struct{}, unsubscribe func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		c.close()
	}()

	if !c.push() {
		return
	}
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.push() {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *wsClient) push() bool {
	var buf bytes.Buffer
	if err := renderFragments(&buf, snapshot(c.session, c.mode, true)); err != nil {
		c.logger.Error("render fragments", zap.Error(err))
		return false
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		c.logger.Debug("websocket write failed", zap.Error(err))
		return false
	}
	return true
}
