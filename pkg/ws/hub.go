package ws

import (
	"encoding/json"
	"sync"
)

// Envelope 网关上下行事件的统一格式
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// Hub 按 Scope 维护在线连接集合，所有操作并发安全。
// 发布不做重试排队：不在场的连接收不到，重新加入后走全量刷新。
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	rooms    map[Scope]map[*Client]struct{}
	memberOf map[*Client]map[Scope]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		rooms:    make(map[Scope]map[*Client]struct{}),
		memberOf: make(map[*Client]map[Scope]struct{}),
	}
}

func (h *Hub) Add(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

// Remove 将连接移出所有 Scope 并关闭
func (h *Hub) Remove(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	delete(h.clients, c.id)
	for scope := range h.memberOf[c] {
		set := h.rooms[scope]
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, scope)
		}
	}
	delete(h.memberOf, c)
	h.mu.Unlock()
	c.Close()
}

func (h *Hub) Join(c *Client, scope Scope) {
	if c == nil || scope == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	set := h.rooms[scope]
	if set == nil {
		set = make(map[*Client]struct{})
		h.rooms[scope] = set
	}
	set[c] = struct{}{}
	member := h.memberOf[c]
	if member == nil {
		member = make(map[Scope]struct{})
		h.memberOf[c] = member
	}
	member[scope] = struct{}{}
}

func (h *Hub) Leave(c *Client, scope Scope) {
	if c == nil || scope == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.rooms[scope]
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, scope)
	}
	delete(h.memberOf[c], scope)
}

// Scopes 返回连接当前所在的全部 Scope
func (h *Hub) Scopes(c *Client) []Scope {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Scope, 0, len(h.memberOf[c]))
	for scope := range h.memberOf[c] {
		out = append(out, scope)
	}
	return out
}

// InScope 返回 Scope 内的连接快照
func (h *Hub) InScope(scope Scope) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.rooms[scope]))
	for c := range h.rooms[scope] {
		out = append(out, c)
	}
	return out
}

func (h *Hub) CountInScope(scope Scope) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[scope])
}

// Publish 向 Scope 内所有连接投递同一事件。
// 写缓冲已满的慢连接直接移除（背压处理与断线等价）。
func (h *Hub) Publish(scope Scope, event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	h.deliver(scope, payload)
}

// PublishMulti 将同一事件原样投递到多个 Scope，负载不做逐 Scope 改写
func (h *Hub) PublishMulti(scopes []Scope, event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	for _, scope := range scopes {
		h.deliver(scope, payload)
	}
}

func (h *Hub) deliver(scope Scope, payload []byte) {
	for _, c := range h.InScope(scope) {
		select {
		case c.send <- payload:
		default:
			h.Remove(c)
		}
	}
}

// Send 直接向单条连接投递事件（认证回执、错误推送）
func (h *Hub) Send(c *Client, event string, data interface{}) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.Remove(c)
	}
}
