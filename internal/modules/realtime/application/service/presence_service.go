package service

import (
	"context"
	"sync"
	"time"

	"DeskLink/internal/modules/realtime/application/dto/respond"
	domainPresence "DeskLink/internal/modules/realtime/domain/presence"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/zlog"

	"go.uber.org/zap"
)

// ConnectionCounter 按 Scope 统计在线连接数，由 Hub 提供。
// 在线判定不信任单次断线事件，而是从连接集合重算。
type ConnectionCounter interface {
	CountInScope(scope ws.Scope) int
}

// PresenceService 客服在线与输入状态。本地状态为权威，
// redis 镜像尽力而为写入；镜像读取失败一律按 offline 处理。
type PresenceService interface {
	HandleAgentConnected(tenantID string, agentID string)
	HandleAgentDisconnected(tenantID string, agentID string)
	SetStatus(tenantID string, agentID string, status string)
	StartTyping(tenantID string, agentID string, conversationID string)
	StopTyping(tenantID string, agentID string, conversationID string)
	IsOnline(agentID string) bool
	OnlineAgents(tenantID string) []string
	// Shutdown 取消所有输入超时定时器
	Shutdown()
}

type typingKey struct {
	agentID        string
	conversationID string
}

type presenceServiceImpl struct {
	counter     ConnectionCounter
	store       domainPresence.Store
	broadcaster Broadcaster
	typingTTL   time.Duration

	mu     sync.Mutex
	status map[string]agentState // agentID -> 本进程观测到的权威状态
	typing map[typingKey]*time.Timer
}

type agentState struct {
	tenantID string
	status   string
}

func NewPresenceService(counter ConnectionCounter, store domainPresence.Store, broadcaster Broadcaster, typingTTL time.Duration) PresenceService {
	if typingTTL <= 0 {
		typingTTL = 5 * time.Second
	}
	return &presenceServiceImpl{
		counter:     counter,
		store:       store,
		broadcaster: broadcaster,
		typingTTL:   typingTTL,
		status:      make(map[string]agentState),
		typing:      make(map[typingKey]*time.Timer),
	}
}

// HandleAgentConnected 客服认证上线，首条连接触发 online 广播
func (s *presenceServiceImpl) HandleAgentConnected(tenantID string, agentID string) {
	s.mu.Lock()
	prev := s.status[agentID].status
	s.status[agentID] = agentState{tenantID: tenantID, status: domainPresence.StatusOnline}
	s.mu.Unlock()

	s.mirror(tenantID, agentID, domainPresence.StatusOnline)
	if prev != domainPresence.StatusOnline {
		s.broadcaster.Publish(ws.TenantScope(tenantID), respond.EventAgentOnline, respond.PresenceData{
			TenantId: tenantID,
			AgentId:  agentID,
			Status:   domainPresence.StatusOnline,
		})
	}
}

// HandleAgentDisconnected 连接断开后从注册表重算在线状态，
// 仍有其余连接时保持 online（last-connection-wins）
func (s *presenceServiceImpl) HandleAgentDisconnected(tenantID string, agentID string) {
	if s.counter.CountInScope(ws.AgentScope(agentID)) > 0 {
		return
	}

	s.mu.Lock()
	prev := s.status[agentID].status
	s.status[agentID] = agentState{tenantID: tenantID, status: domainPresence.StatusOffline}
	for key, timer := range s.typing {
		if key.agentID == agentID {
			timer.Stop()
			delete(s.typing, key)
		}
	}
	s.mu.Unlock()

	s.mirror(tenantID, agentID, domainPresence.StatusOffline)
	if prev != domainPresence.StatusOffline {
		s.broadcaster.Publish(ws.TenantScope(tenantID), respond.EventAgentOffline, respond.PresenceData{
			TenantId: tenantID,
			AgentId:  agentID,
			Status:   domainPresence.StatusOffline,
		})
	}
}

// SetStatus 显式状态切换（away/busy/online/offline）
func (s *presenceServiceImpl) SetStatus(tenantID string, agentID string, status string) {
	switch status {
	case domainPresence.StatusOnline, domainPresence.StatusOffline,
		domainPresence.StatusAway, domainPresence.StatusBusy:
	default:
		return
	}

	s.mu.Lock()
	s.status[agentID] = agentState{tenantID: tenantID, status: status}
	s.mu.Unlock()

	s.mirror(tenantID, agentID, status)

	event := respond.EventAgentOnline
	if status == domainPresence.StatusOffline {
		event = respond.EventAgentOffline
	}
	s.broadcaster.Publish(ws.TenantScope(tenantID), event, respond.PresenceData{
		TenantId: tenantID,
		AgentId:  agentID,
		Status:   status,
	})
}

// StartTyping 刷新输入状态，TTL 内重复调用只延长过期时间。
// 过期时补发一次 typing_stop（对端丢失显式 stop 时的兜底）。
func (s *presenceServiceImpl) StartTyping(tenantID string, agentID string, conversationID string) {
	key := typingKey{agentID: agentID, conversationID: conversationID}

	s.mu.Lock()
	if timer, ok := s.typing[key]; ok {
		timer.Reset(s.typingTTL)
		s.mu.Unlock()
		return
	}
	s.typing[key] = time.AfterFunc(s.typingTTL, func() {
		s.expireTyping(key)
	})
	s.mu.Unlock()

	s.broadcaster.Publish(ws.ConversationScope(conversationID), respond.EventTypingStart, respond.TypingData{
		AgentId:        agentID,
		ConversationId: conversationID,
	})
}

// StopTyping 显式停止输入
func (s *presenceServiceImpl) StopTyping(tenantID string, agentID string, conversationID string) {
	key := typingKey{agentID: agentID, conversationID: conversationID}

	s.mu.Lock()
	timer, ok := s.typing[key]
	if ok {
		timer.Stop()
		delete(s.typing, key)
	}
	s.mu.Unlock()

	if ok {
		s.broadcaster.Publish(ws.ConversationScope(conversationID), respond.EventTypingStop, respond.TypingData{
			AgentId:        agentID,
			ConversationId: conversationID,
		})
	}
}

// expireTyping 输入超时，只在条目仍存在时补发一次 stop
func (s *presenceServiceImpl) expireTyping(key typingKey) {
	s.mu.Lock()
	_, ok := s.typing[key]
	if ok {
		delete(s.typing, key)
	}
	s.mu.Unlock()

	if ok {
		s.broadcaster.Publish(ws.ConversationScope(key.conversationID), respond.EventTypingStop, respond.TypingData{
			AgentId:        key.agentID,
			ConversationId: key.conversationID,
		})
	}
}

// IsOnline 本地优先，镜像兜底；镜像不可用按 offline 处理
func (s *presenceServiceImpl) IsOnline(agentID string) bool {
	s.mu.Lock()
	state, ok := s.status[agentID]
	s.mu.Unlock()
	if ok {
		return state.status != domainPresence.StatusOffline
	}

	if s.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	status, err := s.store.GetStatus(ctx, agentID)
	if err != nil {
		return false
	}
	return status != "" && status != domainPresence.StatusOffline
}

func (s *presenceServiceImpl) OnlineAgents(tenantID string) []string {
	if s.store == nil {
		return s.localOnline(tenantID)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	agents, err := s.store.OnlineAgents(ctx, tenantID)
	if err != nil {
		return s.localOnline(tenantID)
	}
	return agents
}

func (s *presenceServiceImpl) localOnline(tenantID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.status))
	for agentID, state := range s.status {
		if state.tenantID == tenantID && state.status != domainPresence.StatusOffline {
			out = append(out, agentID)
		}
	}
	return out
}

func (s *presenceServiceImpl) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.typing {
		timer.Stop()
		delete(s.typing, key)
	}
}

// mirror 尽力而为写镜像，失败只记日志
func (s *presenceServiceImpl) mirror(tenantID string, agentID string, status string) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.store.SetStatus(ctx, tenantID, agentID, status); err != nil {
			zlog.Warn("presence mirror write failed",
				zap.String("agent_id", agentID),
				zap.String("status", status),
				zap.Error(err))
		}
	}()
}
