package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"conversation-service/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// wsChannel serializes writes to one websocket connection.
type wsChannel struct {
	conn      *websocket.Conn
	info      ConnInfo
	mu        sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newWSChannel(conn *websocket.Conn, info ConnInfo) *wsChannel {
	return &wsChannel{conn: conn, info: info, closed: make(chan struct{})}
}

func (c *wsChannel) Send(event models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(event)
}

func (c *wsChannel) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.conn.Close()
	})
	return err
}

func (c *wsChannel) Info() ConnInfo {
	return c.info
}
