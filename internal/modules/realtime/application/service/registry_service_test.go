package service

import (
	"context"
	"testing"
	"time"

	"DeskLink/internal/config"
	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	"DeskLink/pkg/util/myjwt"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConvRepo struct {
	conv *deskEntity.Conversation
	err  error
}

func (f *fakeConvRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Conversation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.conv, nil
}

func (f *fakeConvRepo) Create(ctx context.Context, conv *deskEntity.Conversation) error { return nil }

func (f *fakeConvRepo) Update(ctx context.Context, uuid string, patch deskEntity.ConversationPatch) error {
	return nil
}

type fakeTeamRepo struct {
	team *deskEntity.Team
	err  error
}

func (f *fakeTeamRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.team, nil
}

func (f *fakeTeamRepo) ListByTenant(ctx context.Context, tenantID string) ([]deskEntity.Team, error) {
	return nil, nil
}

func (f *fakeTeamRepo) ListMembers(ctx context.Context, teamUuid string) ([]deskEntity.TeamMember, error) {
	return nil, nil
}

func newTestRegistry(t *testing.T, convRepo *fakeConvRepo, teamRepo *fakeTeamRepo) (RegistryService, *ws.Hub, PresenceService) {
	t.Helper()
	config.GetConfig().JwtConfig.Key = "registry-test-secret"
	hub := ws.NewHub()
	presence := NewPresenceService(hub, nil, &fakeBroadcaster{}, time.Minute)
	t.Cleanup(presence.Shutdown)
	return NewRegistryService(hub, presence, convRepo, teamRepo), hub, presence
}

func agentToken(t *testing.T, agentID string, tenantID string) string {
	t.Helper()
	token, err := myjwt.GenerateToken(agentID, tenantID, myjwt.RoleAgent)
	require.NoError(t, err)
	return token
}

func TestAuthenticateBindsIdentityAndScopes(t *testing.T) {
	reg, hub, presence := newTestRegistry(t, &fakeConvRepo{}, &fakeTeamRepo{})
	c := ws.NewClient(nil)
	hub.Add(c)

	ident, err := reg.Authenticate(c, agentToken(t, "agent-1", "t1"))
	require.NoError(t, err)
	assert.Equal(t, "t1", ident.TenantID)
	assert.Equal(t, "agent-1", ident.UserID)
	assert.Equal(t, myjwt.RoleAgent, ident.Role)

	assert.Equal(t, 1, hub.CountInScope(ws.TenantScope("t1")))
	assert.Equal(t, 1, hub.CountInScope(ws.AgentScope("agent-1")))
	assert.Equal(t, 1, reg.AgentConnectionCount("agent-1"))
	assert.True(t, presence.IsOnline("agent-1"))
}

func TestAuthenticateRejectsInvalidToken(t *testing.T) {
	reg, hub, _ := newTestRegistry(t, &fakeConvRepo{}, &fakeTeamRepo{})
	c := ws.NewClient(nil)
	hub.Add(c)

	_, err := reg.Authenticate(c, "not-a-token")
	assert.Equal(t, xerr.ErrUnauthorized, err)
	_, authed := c.Identity()
	assert.False(t, authed)
}

func TestReauthenticateSwitchesIdentity(t *testing.T) {
	reg, hub, _ := newTestRegistry(t, &fakeConvRepo{}, &fakeTeamRepo{})
	c := ws.NewClient(nil)
	hub.Add(c)

	_, err := reg.Authenticate(c, agentToken(t, "agent-1", "t1"))
	require.NoError(t, err)
	_, err = reg.Authenticate(c, agentToken(t, "agent-2", "t1"))
	require.NoError(t, err)

	// 旧身份的自动加入 Scope 已退出
	assert.Equal(t, 0, hub.CountInScope(ws.AgentScope("agent-1")))
	assert.Equal(t, 1, hub.CountInScope(ws.AgentScope("agent-2")))
	assert.Equal(t, 1, hub.CountInScope(ws.TenantScope("t1")))

	ident, authed := c.Identity()
	require.True(t, authed)
	assert.Equal(t, "agent-2", ident.UserID)
}

func TestJoinConversationEnforcesTenant(t *testing.T) {
	convRepo := &fakeConvRepo{conv: &deskEntity.Conversation{Uuid: "conv-1", TenantId: "t2"}}
	reg, hub, _ := newTestRegistry(t, convRepo, &fakeTeamRepo{})
	c := ws.NewClient(nil)
	hub.Add(c)

	_, err := reg.Authenticate(c, agentToken(t, "agent-1", "t1"))
	require.NoError(t, err)

	err = reg.JoinConversation(context.Background(), c, "conv-1")
	assert.Equal(t, xerr.ErrForbidden, err)
	assert.Equal(t, 0, hub.CountInScope(ws.ConversationScope("conv-1")))

	convRepo.conv.TenantId = "t1"
	require.NoError(t, reg.JoinConversation(context.Background(), c, "conv-1"))
	assert.Equal(t, 1, hub.CountInScope(ws.ConversationScope("conv-1")))
}

func TestJoinRequiresAuthentication(t *testing.T) {
	reg, hub, _ := newTestRegistry(t, &fakeConvRepo{}, &fakeTeamRepo{})
	c := ws.NewClient(nil)
	hub.Add(c)

	err := reg.JoinConversation(context.Background(), c, "conv-1")
	assert.Equal(t, xerr.ErrUnauthorized, err)
	err = reg.JoinTeam(context.Background(), c, "team-1")
	assert.Equal(t, xerr.ErrUnauthorized, err)
}

func TestOnDisconnectCleansUp(t *testing.T) {
	reg, hub, presence := newTestRegistry(t, &fakeConvRepo{}, &fakeTeamRepo{})
	c := ws.NewClient(nil)
	hub.Add(c)

	_, err := reg.Authenticate(c, agentToken(t, "agent-1", "t1"))
	require.NoError(t, err)
	require.True(t, presence.IsOnline("agent-1"))

	reg.OnDisconnect(c)

	assert.Equal(t, 0, hub.CountInScope(ws.TenantScope("t1")))
	assert.Equal(t, 0, reg.AgentConnectionCount("agent-1"))
	assert.False(t, presence.IsOnline("agent-1"))
}
