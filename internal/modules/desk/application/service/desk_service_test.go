package service

import (
	"context"
	"fmt"
	"testing"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	"DeskLink/internal/modules/realtime/application/dto/respond"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDraftRepo struct {
	drafts map[string]*deskEntity.Draft
}

func (r *stubDraftRepo) Save(ctx context.Context, d *deskEntity.Draft) error {
	r.drafts[d.Uuid] = d
	return nil
}

func (r *stubDraftRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Draft, error) {
	d, ok := r.drafts[uuid]
	if !ok {
		return nil, xerr.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubDraftRepo) UpdateStatus(ctx context.Context, uuid string, status string) error {
	d, ok := r.drafts[uuid]
	if !ok {
		return xerr.ErrNotFound
	}
	if deskEntity.IsTerminalDraftStatus(d.Status) {
		return fmt.Errorf("draft %s is already %s", uuid, d.Status)
	}
	d.Status = status
	return nil
}

type stubConvRepo struct {
	convs   map[string]*deskEntity.Conversation
	patches []deskEntity.ConversationPatch
}

func (r *stubConvRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Conversation, error) {
	conv, ok := r.convs[uuid]
	if !ok {
		return nil, xerr.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *stubConvRepo) Create(ctx context.Context, conv *deskEntity.Conversation) error {
	r.convs[conv.Uuid] = conv
	return nil
}

func (r *stubConvRepo) Update(ctx context.Context, uuid string, patch deskEntity.ConversationPatch) error {
	conv, ok := r.convs[uuid]
	if !ok {
		return xerr.ErrNotFound
	}
	if patch.Status != nil {
		conv.Status = *patch.Status
	}
	if patch.AssignedAgentId != nil {
		conv.AssignedAgentId = *patch.AssignedAgentId
	}
	if patch.AssignedTeamId != nil {
		conv.AssignedTeamId = *patch.AssignedTeamId
	}
	r.patches = append(r.patches, patch)
	return nil
}

type stubTeamRepo struct {
	teams   []deskEntity.Team
	members map[string][]deskEntity.TeamMember
}

func (r *stubTeamRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Team, error) {
	return nil, xerr.ErrNotFound
}

func (r *stubTeamRepo) ListByTenant(ctx context.Context, tenantID string) ([]deskEntity.Team, error) {
	return r.teams, nil
}

func (r *stubTeamRepo) ListMembers(ctx context.Context, teamUuid string) ([]deskEntity.TeamMember, error) {
	return r.members[teamUuid], nil
}

type stubOnline struct {
	online map[string]bool
}

func (s *stubOnline) IsOnline(agentID string) bool { return s.online[agentID] }

type capturedEvent struct {
	Scopes []ws.Scope
	Event  string
}

type captureBroadcaster struct {
	events []capturedEvent
}

func (b *captureBroadcaster) Publish(scope ws.Scope, event string, data interface{}) {
	b.events = append(b.events, capturedEvent{Scopes: []ws.Scope{scope}, Event: event})
}

func (b *captureBroadcaster) PublishMulti(scopes []ws.Scope, event string, data interface{}) {
	b.events = append(b.events, capturedEvent{Scopes: scopes, Event: event})
}

func (b *captureBroadcaster) Send(c *ws.Client, event string, data interface{}) {}

// ---- 草稿状态流转 ----

func newDraftFixture() (*stubDraftRepo, DraftService) {
	repo := &stubDraftRepo{drafts: map[string]*deskEntity.Draft{
		"drf-1": {Uuid: "drf-1", TenantId: "t1", Status: deskEntity.DraftStatusPending},
	}}
	return repo, NewDraftService(repo)
}

func TestUpdateDraftStatus(t *testing.T) {
	_, svc := newDraftFixture()

	d, err := svc.UpdateStatus(context.Background(), "t1", "drf-1", deskEntity.DraftStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, deskEntity.DraftStatusAccepted, d.Status)
}

func TestUpdateDraftStatusRejectsUnknownStatus(t *testing.T) {
	_, svc := newDraftFixture()

	_, err := svc.UpdateStatus(context.Background(), "t1", "drf-1", "approved")
	assert.Equal(t, xerr.ErrParam, err)
}

func TestUpdateDraftStatusCrossTenant(t *testing.T) {
	_, svc := newDraftFixture()

	_, err := svc.UpdateStatus(context.Background(), "t2", "drf-1", deskEntity.DraftStatusAccepted)
	assert.Equal(t, xerr.ErrForbidden, err)
}

func TestUpdateDraftStatusTerminalIsFinal(t *testing.T) {
	repo, svc := newDraftFixture()
	repo.drafts["drf-1"].Status = deskEntity.DraftStatusRejected

	_, err := svc.UpdateStatus(context.Background(), "t1", "drf-1", deskEntity.DraftStatusAccepted)
	require.Error(t, err)
	assert.Equal(t, deskEntity.DraftStatusRejected, repo.drafts["drf-1"].Status)
}

// ---- 团队可用性 ----

func TestGetTeamsAvailability(t *testing.T) {
	teamRepo := &stubTeamRepo{
		teams: []deskEntity.Team{{Uuid: "team-1", TenantId: "t1", Name: "Billing"}},
		members: map[string][]deskEntity.TeamMember{
			"team-1": {
				{AgentId: "agent-1", CurrentLoad: 3, MaxCapacity: 5},
				{AgentId: "agent-2", CurrentLoad: 1, MaxCapacity: 5},
			},
		},
	}
	svc := NewAvailabilityService(teamRepo, &stubOnline{online: map[string]bool{"agent-1": true}})

	out, err := svc.GetTeamsAvailability(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "team-1", out[0].TeamId)
	assert.Equal(t, 1, out[0].OnlineAgents)
	assert.Equal(t, 40, out[0].UtilizationPct)
}

func TestGetTeamsAvailabilityZeroCapacity(t *testing.T) {
	teamRepo := &stubTeamRepo{
		teams:   []deskEntity.Team{{Uuid: "team-1", TenantId: "t1", Name: "Empty"}},
		members: map[string][]deskEntity.TeamMember{},
	}
	svc := NewAvailabilityService(teamRepo, &stubOnline{})

	out, err := svc.GetTeamsAvailability(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].UtilizationPct)
	assert.Equal(t, 0, out[0].OnlineAgents)
}

// ---- 会话操作 ----

func newConvFixture() (*stubConvRepo, *captureBroadcaster, ConversationService) {
	repo := &stubConvRepo{convs: map[string]*deskEntity.Conversation{
		"conv-1": {Uuid: "conv-1", TenantId: "t1", Status: deskEntity.ConversationStatusOpen},
	}}
	bc := &captureBroadcaster{}
	return repo, bc, NewConversationService(repo, bc)
}

func agentIdent() ws.Identity {
	return ws.Identity{TenantID: "t1", UserID: "agent-1", Role: "agent"}
}

func TestConversationUpdateStatus(t *testing.T) {
	repo, bc, svc := newConvFixture()

	err := svc.UpdateStatus(context.Background(), agentIdent(), "conv-1", deskEntity.ConversationStatusResolved)
	require.NoError(t, err)
	assert.Equal(t, deskEntity.ConversationStatusResolved, repo.convs["conv-1"].Status)
	require.Len(t, bc.events, 1)
	assert.Equal(t, respond.EventConversationStatus, bc.events[0].Event)
}

func TestConversationUpdateStatusRejectsUnknown(t *testing.T) {
	_, bc, svc := newConvFixture()

	err := svc.UpdateStatus(context.Background(), agentIdent(), "conv-1", "archived")
	assert.Equal(t, xerr.ErrParam, err)
	assert.Empty(t, bc.events)
}

func TestConversationCrossTenantForbidden(t *testing.T) {
	_, _, svc := newConvFixture()
	ident := ws.Identity{TenantID: "t2", UserID: "agent-9", Role: "agent"}

	err := svc.UpdateStatus(context.Background(), ident, "conv-1", deskEntity.ConversationStatusClosed)
	assert.Equal(t, xerr.ErrForbidden, err)
	err = svc.Assign(context.Background(), ident, "conv-1", "agent-9", "")
	assert.Equal(t, xerr.ErrForbidden, err)
}

func TestConversationAssignNotifiesAgent(t *testing.T) {
	repo, bc, svc := newConvFixture()

	err := svc.Assign(context.Background(), agentIdent(), "conv-1", "agent-2", "team-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-2", repo.convs["conv-1"].AssignedAgentId)
	require.Len(t, bc.events, 1)
	assert.Equal(t, respond.EventConversationAssigned, bc.events[0].Event)
	assert.Contains(t, bc.events[0].Scopes, ws.AgentScope("agent-2"))
}

func TestConversationAssignRequiresTarget(t *testing.T) {
	_, _, svc := newConvFixture()
	err := svc.Assign(context.Background(), agentIdent(), "conv-1", "", "")
	assert.Equal(t, xerr.ErrParam, err)
}

func TestConversationUnassignNotifiesPreviousAgent(t *testing.T) {
	repo, bc, svc := newConvFixture()
	repo.convs["conv-1"].AssignedAgentId = "agent-2"

	err := svc.Unassign(context.Background(), agentIdent(), "conv-1")
	require.NoError(t, err)
	assert.Empty(t, repo.convs["conv-1"].AssignedAgentId)
	require.Len(t, bc.events, 1)
	assert.Equal(t, respond.EventConversationUnassigned, bc.events[0].Event)
	assert.Contains(t, bc.events[0].Scopes, ws.AgentScope("agent-2"))
}
