package ws

import (
	"sync"
	"time"

	"DeskLink/pkg/util"
	"DeskLink/pkg/zlog"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
)

// Identity 连接的认证身份，认证前为零值
type Identity struct {
	TenantID string
	UserID   string
	Role     string
}

// Client 一条 websocket 连接。身份可在连接建立后再补认证，
// 重复认证会覆盖旧身份（支持 token 刷新）。
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time

	mu            sync.RWMutex
	authenticated bool
	identity      Identity
	lastActive    time.Time

	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn) *Client {
	now := time.Now()
	return &Client{
		id:          util.GenerateUUID(),
		conn:        conn,
		send:        make(chan []byte, 64),
		connectedAt: now,
		lastActive:  now,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// SetIdentity 认证成功后写入身份
func (c *Client) SetIdentity(id Identity) {
	c.mu.Lock()
	c.authenticated = true
	c.identity = id
	c.mu.Unlock()
}

// Identity 返回 (身份, 是否已认证)
func (c *Client) Identity() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity, c.authenticated
}

func (c *Client) Touch() {
	c.mu.Lock()
	c.lastActive = time.Now()
	c.mu.Unlock()
}

func (c *Client) LastActive() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastActive
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// WritePump 串行写出 send 通道里的帧，并按间隔发 ping。
// 对端需以 pong 刷新网关侧的读超时，超时即视为掉线。
func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				zlog.Error(err.Error())
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
