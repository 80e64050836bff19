package service

import (
	"context"
	"sync"
	"testing"
	"time"

	domainPresence "DeskLink/internal/modules/realtime/domain/presence"
	"DeskLink/pkg/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[ws.Scope]int
}

func (f *fakeCounter) CountInScope(scope ws.Scope) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[scope]
}

func (f *fakeCounter) set(scope ws.Scope, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[ws.Scope]int)
	}
	f.counts[scope] = n
}

type publishedEvent struct {
	Scope ws.Scope
	Event string
	Data  interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeBroadcaster) Publish(scope ws.Scope, event string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Scope: scope, Event: event, Data: data})
}

func (f *fakeBroadcaster) PublishMulti(scopes []ws.Scope, event string, data interface{}) {
	for _, scope := range scopes {
		f.Publish(scope, event, data)
	}
}

func (f *fakeBroadcaster) Send(c *ws.Client, event string, data interface{}) {}

func (f *fakeBroadcaster) countEvent(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakePresenceStore struct {
	mu     sync.Mutex
	status map[string]string
}

func (f *fakePresenceStore) SetStatus(ctx context.Context, tenantID string, agentID string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		f.status = make(map[string]string)
	}
	f.status[agentID] = status
	return nil
}

func (f *fakePresenceStore) GetStatus(ctx context.Context, agentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[agentID], nil
}

func (f *fakePresenceStore) OnlineAgents(ctx context.Context, tenantID string) ([]string, error) {
	return nil, nil
}

func newTestPresence(ttl time.Duration) (PresenceService, *fakeCounter, *fakeBroadcaster) {
	counter := &fakeCounter{}
	bc := &fakeBroadcaster{}
	svc := NewPresenceService(counter, &fakePresenceStore{}, bc, ttl)
	return svc, counter, bc
}

func TestTypingStartIdempotent(t *testing.T) {
	svc, _, bc := newTestPresence(time.Minute)
	defer svc.Shutdown()

	svc.StartTyping("t1", "agent-1", "conv-1")
	svc.StartTyping("t1", "agent-1", "conv-1")
	svc.StartTyping("t1", "agent-1", "conv-1")

	assert.Equal(t, 1, bc.countEvent("typing_start"))
}

func TestTypingStopOnlyWhenActive(t *testing.T) {
	svc, _, bc := newTestPresence(time.Minute)
	defer svc.Shutdown()

	svc.StopTyping("t1", "agent-1", "conv-1")
	assert.Equal(t, 0, bc.countEvent("typing_stop"))

	svc.StartTyping("t1", "agent-1", "conv-1")
	svc.StopTyping("t1", "agent-1", "conv-1")
	svc.StopTyping("t1", "agent-1", "conv-1")
	assert.Equal(t, 1, bc.countEvent("typing_stop"))
}

func TestTypingExpiryEmitsSingleStop(t *testing.T) {
	svc, _, bc := newTestPresence(20 * time.Millisecond)
	defer svc.Shutdown()

	svc.StartTyping("t1", "agent-1", "conv-1")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, bc.countEvent("typing_stop"))

	// 过期后显式 stop 不再补发
	svc.StopTyping("t1", "agent-1", "conv-1")
	assert.Equal(t, 1, bc.countEvent("typing_stop"))
}

func TestExplicitStopCancelsExpiry(t *testing.T) {
	svc, _, bc := newTestPresence(20 * time.Millisecond)
	defer svc.Shutdown()

	svc.StartTyping("t1", "agent-1", "conv-1")
	svc.StopTyping("t1", "agent-1", "conv-1")
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, bc.countEvent("typing_stop"))
}

func TestDisconnectKeepsOnlineWhileConnectionsRemain(t *testing.T) {
	svc, counter, bc := newTestPresence(time.Minute)
	defer svc.Shutdown()

	svc.HandleAgentConnected("t1", "agent-1")
	require.Equal(t, 1, bc.countEvent("agent_online"))

	// 还有一条存活连接，断线不触发 offline
	counter.set(ws.AgentScope("agent-1"), 1)
	svc.HandleAgentDisconnected("t1", "agent-1")
	assert.Equal(t, 0, bc.countEvent("agent_offline"))
	assert.True(t, svc.IsOnline("agent-1"))

	counter.set(ws.AgentScope("agent-1"), 0)
	svc.HandleAgentDisconnected("t1", "agent-1")
	assert.Equal(t, 1, bc.countEvent("agent_offline"))
	assert.False(t, svc.IsOnline("agent-1"))
}

func TestReconnectAfterOfflineBroadcastsOnlineAgain(t *testing.T) {
	svc, counter, bc := newTestPresence(time.Minute)
	defer svc.Shutdown()

	svc.HandleAgentConnected("t1", "agent-1")
	counter.set(ws.AgentScope("agent-1"), 0)
	svc.HandleAgentDisconnected("t1", "agent-1")
	svc.HandleAgentConnected("t1", "agent-1")

	assert.Equal(t, 2, bc.countEvent("agent_online"))
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	svc, _, bc := newTestPresence(time.Minute)
	defer svc.Shutdown()

	svc.SetStatus("t1", "agent-1", "sleeping")
	assert.Empty(t, bc.countEvent("agent_online"))
	assert.Empty(t, bc.countEvent("agent_offline"))

	svc.SetStatus("t1", "agent-1", domainPresence.StatusAway)
	assert.Equal(t, 1, bc.countEvent("agent_online"))
	assert.True(t, svc.IsOnline("agent-1"))
}

func TestDisconnectStopsTyping(t *testing.T) {
	svc, counter, bc := newTestPresence(time.Minute)
	defer svc.Shutdown()

	svc.HandleAgentConnected("t1", "agent-1")
	svc.StartTyping("t1", "agent-1", "conv-1")
	counter.set(ws.AgentScope("agent-1"), 0)
	svc.HandleAgentDisconnected("t1", "agent-1")

	// 断线清掉输入条目，之后的显式 stop 不再发事件
	svc.StopTyping("t1", "agent-1", "conv-1")
	assert.Equal(t, 0, bc.countEvent("typing_stop"))
}
