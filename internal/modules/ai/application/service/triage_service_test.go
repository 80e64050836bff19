package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"DeskLink/internal/modules/ai/infrastructure/pipeline"
	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/internal/modules/realtime/application/dto/respond"
	"DeskLink/pkg/util/myjwt"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedCompleter struct {
	resps []*schema.Message
	err   error
	calls int
}

func (c *scriptedCompleter) Complete(ctx context.Context, msgs []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.resps) == 0 {
		return nil, fmt.Errorf("no scripted response")
	}
	resp := c.resps[0]
	if len(c.resps) > 1 {
		c.resps = c.resps[1:]
	}
	return resp, nil
}

type triageConvRepo struct {
	convs map[string]*deskEntity.Conversation
}

func (r *triageConvRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Conversation, error) {
	conv, ok := r.convs[uuid]
	if !ok {
		return nil, xerr.ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (r *triageConvRepo) Create(ctx context.Context, conv *deskEntity.Conversation) error {
	r.convs[conv.Uuid] = conv
	return nil
}

func (r *triageConvRepo) Update(ctx context.Context, uuid string, patch deskEntity.ConversationPatch) error {
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
	return nil
}

type triageMsgRepo struct {
	msgs []*deskEntity.Message
}

func (r *triageMsgRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Message, error) {
	for _, m := range r.msgs {
		if m.Uuid == uuid {
			return m, nil
		}
	}
	return nil, xerr.ErrNotFound
}

func (r *triageMsgRepo) Create(ctx context.Context, msg *deskEntity.Message) error {
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *triageMsgRepo) ListRecent(ctx context.Context, conversationUuid string, limit int) ([]deskEntity.Message, error) {
	out := make([]deskEntity.Message, 0, limit)
	for _, m := range r.msgs {
		if m.ConversationUuid == conversationUuid {
			out = append(out, *m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type triageContactRepo struct {
	contact *deskEntity.Contact
}

func (r *triageContactRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Contact, error) {
	if r.contact == nil || r.contact.Uuid != uuid {
		return nil, xerr.ErrNotFound
	}
	return r.contact, nil
}

type triageTeamRepo struct{}

func (r *triageTeamRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Team, error) {
	return nil, xerr.ErrNotFound
}

func (r *triageTeamRepo) ListByTenant(ctx context.Context, tenantID string) ([]deskEntity.Team, error) {
	return nil, nil
}

func (r *triageTeamRepo) ListMembers(ctx context.Context, teamUuid string) ([]deskEntity.TeamMember, error) {
	return nil, nil
}

type triageClsRepo struct {
	saved []*deskEntity.Classification
}

func (r *triageClsRepo) Save(ctx context.Context, cl *deskEntity.Classification) error {
	r.saved = append(r.saved, cl)
	return nil
}

func (r *triageClsRepo) GetLatestByConversation(ctx context.Context, conversationUuid string) (*deskEntity.Classification, error) {
	for i := len(r.saved) - 1; i >= 0; i-- {
		if r.saved[i].ConversationUuid == conversationUuid {
			return r.saved[i], nil
		}
	}
	return nil, xerr.ErrMissingClassification
}

type triageDraftRepo struct {
	saved []*deskEntity.Draft
}

func (r *triageDraftRepo) Save(ctx context.Context, d *deskEntity.Draft) error {
	r.saved = append(r.saved, d)
	return nil
}

func (r *triageDraftRepo) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Draft, error) {
	return nil, xerr.ErrNotFound
}

func (r *triageDraftRepo) UpdateStatus(ctx context.Context, uuid string, status string) error {
	return nil
}

type triageEvent struct {
	Scopes []ws.Scope
	Event  string
}

type triageBroadcaster struct {
	events []triageEvent
}

func (b *triageBroadcaster) Publish(scope ws.Scope, event string, data interface{}) {
	b.events = append(b.events, triageEvent{Scopes: []ws.Scope{scope}, Event: event})
}

func (b *triageBroadcaster) PublishMulti(scopes []ws.Scope, event string, data interface{}) {
	b.events = append(b.events, triageEvent{Scopes: scopes, Event: event})
}

func (b *triageBroadcaster) Send(c *ws.Client, event string, data interface{}) {}

func (b *triageBroadcaster) names() []string {
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Event)
	}
	return out
}

type triageFixture struct {
	store     *deskRepository.Store
	clsRepo   *triageClsRepo
	draftRepo *triageDraftRepo
	bc        *triageBroadcaster
	completer *scriptedCompleter
	svc       TriageService
}

func newTriageFixture(t *testing.T, resps ...*schema.Message) *triageFixture {
	t.Helper()
	clsRepo := &triageClsRepo{}
	draftRepo := &triageDraftRepo{}
	store := &deskRepository.Store{
		Conversations: &triageConvRepo{convs: map[string]*deskEntity.Conversation{
			"conv-1": {Uuid: "conv-1", TenantId: "t1", ContactId: "ct-1", Channel: "web", Status: deskEntity.ConversationStatusOpen},
		}},
		Messages:        &triageMsgRepo{},
		Contacts:        &triageContactRepo{contact: &deskEntity.Contact{Uuid: "ct-1", TenantId: "t1", Tier: "pro", CreatedAt: time.Now().AddDate(0, -6, 0)}},
		Teams:           &triageTeamRepo{},
		Classifications: clsRepo,
		Drafts:          draftRepo,
	}
	bc := &triageBroadcaster{}
	completer := &scriptedCompleter{resps: resps}

	classify, err := pipeline.NewClassifyPipeline(store, completer, nil, bc, nil, 0.85)
	require.NoError(t, err)
	draft, err := pipeline.NewDraftPipeline(store, completer, nil, bc, 5, 0.95, 0.2)
	require.NoError(t, err)

	return &triageFixture{
		store:     store,
		clsRepo:   clsRepo,
		draftRepo: draftRepo,
		bc:        bc,
		completer: completer,
		svc:       NewTriageService(store, classify, draft, bc),
	}
}

func contactIdent() ws.Identity {
	return ws.Identity{TenantID: "t1", UserID: "ct-1", Role: "contact"}
}

const billingClassification = `{"category":"billing","priority":"high","sentiment":"negative","language":"en",` +
	`"confidence":0.92,"reasoning":"duplicate charge complaint","suggested_team_id":"team-billing","suggested_agent_id":"agent-2"}`

const draftAnswer = "Hi there, thanks for flagging the duplicate charge. The second entry is a temporary hold that clears within five business days."

func TestHandleMessageRunsFullChain(t *testing.T) {
	f := newTriageFixture(t,
		schema.AssistantMessage(billingClassification, nil),
		schema.AssistantMessage(draftAnswer, nil),
	)

	msg, err := f.svc.HandleMessage(context.Background(), contactIdent(), "conv-1", "I was charged twice")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, deskEntity.SenderKindContact, msg.SenderKind)

	require.Len(t, f.clsRepo.saved, 1)
	assert.Equal(t, deskEntity.CategoryBilling, f.clsRepo.saved[0].Category)
	require.Len(t, f.draftRepo.saved, 1)
	assert.Equal(t, 2, f.completer.calls)

	// 置信度过阈值且建议齐全，自动指派给模型建议的团队/客服
	conv, err := f.store.Conversations.GetByUuid(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-2", conv.AssignedAgentId)
	assert.Equal(t, "team-billing", conv.AssignedTeamId)

	names := f.bc.names()
	assert.Equal(t, []string{
		respond.EventNewMessage,
		respond.EventConversationAssigned,
		respond.EventAIClassification,
		respond.EventAIDraft,
	}, names)
}

func TestHandleMessageAgentSkipsAIChain(t *testing.T) {
	f := newTriageFixture(t)
	ident := ws.Identity{TenantID: "t1", UserID: "agent-1", Role: myjwt.RoleAgent}

	msg, err := f.svc.HandleMessage(context.Background(), ident, "conv-1", "let me check that for you")
	require.NoError(t, err)
	assert.Equal(t, deskEntity.SenderKindAgent, msg.SenderKind)
	assert.Equal(t, 0, f.completer.calls)
	assert.Equal(t, []string{respond.EventNewMessage}, f.bc.names())
}

func TestHandleMessageLowConfidenceUnassignedSkipsDraft(t *testing.T) {
	lowConfidence := `{"category":"general","priority":"normal","sentiment":"neutral","language":"en","confidence":0.4}`
	f := newTriageFixture(t, schema.AssistantMessage(lowConfidence, nil))

	_, err := f.svc.HandleMessage(context.Background(), contactIdent(), "conv-1", "hello?")
	require.NoError(t, err)

	assert.Equal(t, 1, f.completer.calls)
	require.Len(t, f.clsRepo.saved, 1)
	assert.Empty(t, f.draftRepo.saved)
	assert.NotContains(t, f.bc.names(), respond.EventAIDraft)
}

func TestHandleMessageValidation(t *testing.T) {
	f := newTriageFixture(t)

	_, err := f.svc.HandleMessage(context.Background(), contactIdent(), "conv-1", "")
	assert.Equal(t, xerr.ErrParam, err)

	ident := ws.Identity{TenantID: "t2", UserID: "ct-9", Role: "contact"}
	_, err = f.svc.HandleMessage(context.Background(), ident, "conv-1", "hi")
	assert.Equal(t, xerr.ErrForbidden, err)

	_, err = f.svc.HandleMessage(context.Background(), contactIdent(), "conv-404", "hi")
	assert.Equal(t, xerr.ErrNotFound, err)
}

func TestHandleMessageClassifyFailureStillDeliversMessage(t *testing.T) {
	f := newTriageFixture(t)
	f.completer.err = fmt.Errorf("model unavailable")

	msg, err := f.svc.HandleMessage(context.Background(), contactIdent(), "conv-1", "why is my invoice wrong?")
	require.Error(t, err)
	require.NotNil(t, msg)

	// 消息先落库先广播，分类失败不回收已送达的消息
	assert.Equal(t, []string{respond.EventNewMessage}, f.bc.names())
	assert.Empty(t, f.clsRepo.saved)
}
