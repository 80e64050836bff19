package presence

import (
	"context"
)

// 客服在线状态
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusAway    = "away"
	StatusBusy    = "busy"
)

// Store 共享的在线状态存储。写入是尽力而为：存储故障不能
// 阻塞消息投递，读取失败按 offline 处理。
type Store interface {
	SetStatus(ctx context.Context, tenantID string, agentID string, status string) error
	GetStatus(ctx context.Context, agentID string) (string, error)
	OnlineAgents(ctx context.Context, tenantID string) ([]string, error)
}
