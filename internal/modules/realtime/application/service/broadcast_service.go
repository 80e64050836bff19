package service

import (
	"DeskLink/pkg/ws"
)

// Broadcaster 事件扇出服务。显式构造、按引用注入，
// 任何组件不允许绕过它直接操作 Hub 发消息。
type Broadcaster interface {
	// Publish 向单个 Scope 投递事件
	Publish(scope ws.Scope, event string, data interface{})
	// PublishMulti 向多个 Scope 投递同一事件，负载不做逐 Scope 改写
	PublishMulti(scopes []ws.Scope, event string, data interface{})
	// Send 定向投递给一条连接（认证回执、错误推送）
	Send(c *ws.Client, event string, data interface{})
}

type hubBroadcaster struct {
	hub *ws.Hub
}

func NewBroadcaster(hub *ws.Hub) Broadcaster {
	return &hubBroadcaster{hub: hub}
}

func (b *hubBroadcaster) Publish(scope ws.Scope, event string, data interface{}) {
	b.hub.Publish(scope, event, data)
}

func (b *hubBroadcaster) PublishMulti(scopes []ws.Scope, event string, data interface{}) {
	b.hub.PublishMulti(scopes, event, data)
}

func (b *hubBroadcaster) Send(c *ws.Client, event string, data interface{}) {
	b.hub.Send(c, event, data)
}
