package presence

import (
	"context"
	"time"

	domainPresence "DeskLink/internal/modules/realtime/domain/presence"
	"DeskLink/pkg/redis"
)

const statusTTL = 24 * time.Hour

// redisStore 把在线状态镜像到 redis，供同一套 presence 存储的
// 多个网关进程共享
type redisStore struct{}

func NewRedisStore() domainPresence.Store {
	return &redisStore{}
}

func statusKey(agentID string) string {
	return "presence:agent:" + agentID
}

func onlineSetKey(tenantID string) string {
	return "presence:tenant:" + tenantID + ":online"
}

func (s *redisStore) SetStatus(ctx context.Context, tenantID string, agentID string, status string) error {
	if err := redis.Set(ctx, statusKey(agentID), status, statusTTL); err != nil {
		return err
	}
	if status == domainPresence.StatusOffline {
		_, err := redis.SRem(ctx, onlineSetKey(tenantID), agentID)
		return err
	}
	_, err := redis.SAdd(ctx, onlineSetKey(tenantID), agentID)
	return err
}

func (s *redisStore) GetStatus(ctx context.Context, agentID string) (string, error) {
	return redis.Get(ctx, statusKey(agentID))
}

func (s *redisStore) OnlineAgents(ctx context.Context, tenantID string) ([]string, error) {
	return redis.SMembers(ctx, onlineSetKey(tenantID))
}
