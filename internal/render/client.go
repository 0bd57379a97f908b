package render

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 54 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	readLimit     = 512
)

type message struct {
	kind int
	data []byte
}

// client is one connected browser.
type client struct {
	id     string
	conn   *websocket.Conn
	viewer *Viewer
	send   chan message

	once sync.Once
	done chan struct{}
}

func newClient(id string, conn *websocket.Conn, v *Viewer) *client {
	return &client{
		id:     id,
		conn:   conn,
		viewer: v,
		send:   make(chan message, clientBuffer),
		done:   make(chan struct{}),
	}
}

// queue drops the message when the client is behind.
func (c *client) queue(m message) {
	select {
	case <-c.done:
	case c.send <- m:
	default:
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump turns text messages into key presses.
func (c *client) readPump() {
	defer func() {
		c.viewer.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.viewer.logger.Debug("WebSocket read error", "client", c.id, "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		key, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			c.viewer.logger.Debug("Ignoring non-numeric key", "client", c.id, "data", string(data))
			continue
		}
		c.viewer.pushKey(key)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return

		case m := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(m.kind, m.data); err != nil {
				c.viewer.logger.Debug("WebSocket write error", "client", c.id, "error", err)
				c.viewer.removeClient(c)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.viewer.removeClient(c)
				return
			}
		}
	}
}
