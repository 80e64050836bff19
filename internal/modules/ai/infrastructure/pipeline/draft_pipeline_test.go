package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"DeskLink/internal/modules/ai/infrastructure/llm"
	"DeskLink/internal/modules/ai/infrastructure/skills"
	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	"DeskLink/internal/modules/realtime/application/dto/respond"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKnowledge struct {
	articles []deskEntity.KnowledgeArticle
	err      error
}

func (f *fakeKnowledge) Search(ctx context.Context, tenantID string, query string, topK int) ([]deskEntity.KnowledgeArticle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.articles, nil
}

func (f *classifyFixture) draftPipeline(t *testing.T, completer llm.Completer, knowledge *fakeKnowledge) *DraftPipeline {
	t.Helper()
	var searcher skills.KnowledgeSearcher
	if knowledge != nil {
		searcher = knowledge
	}
	p, err := NewDraftPipeline(f.store, completer, searcher, f.bc, 5, 0.95, 0.2)
	require.NoError(t, err)
	return p
}

func (f *classifyFixture) seedClassification(conversationUuid string) {
	_ = f.clsRepo.Save(context.Background(), &deskEntity.Classification{
		Uuid:             "cls-1",
		TenantId:         "t1",
		ConversationUuid: conversationUuid,
		MessageUuid:      "msg-1",
		Category:         deskEntity.CategoryBilling,
		Priority:         deskEntity.PriorityHigh,
		Sentiment:        deskEntity.SentimentNegative,
		Language:         "en",
		Confidence:       0.9,
		CreatedAt:        time.Now(),
	})
}

const draftReply = `Hi there, thanks for reaching out about the duplicate charge.
I checked the invoice and the second entry is a pre-authorization hold that your
bank releases automatically within three to five business days, so no money has
actually left your account twice. If the hold is still visible after five days,
reply here and we will open a dispute with the payment provider on your behalf.
You can also download the corrected invoice from the billing portal at any time.`

func TestGenerateDraftPersistsAndDelivers(t *testing.T) {
	f := newClassifyFixture()
	f.seedClassification("conv-1")
	p := f.draftPipeline(t, &fakeCompleter{resps: []*schema.Message{
		schema.AssistantMessage(draftReply, nil),
	}}, nil)

	res, err := p.GenerateDraft(context.Background(), &DraftRequest{
		TenantID: "t1", ConversationUuid: "conv-1", MessageUuid: "msg-1", Content: "I was double charged",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Draft)
	assert.Equal(t, deskEntity.DraftStatusPending, res.Draft.Status)
	assert.Equal(t, 0, res.KBGrounded)

	// 词数在区间 + 句末标点 + 问候语，三项加成后被 cap 截断
	assert.Equal(t, 0.95, res.Draft.Confidence)

	drafts := f.bc.byEvent(respond.EventAIDraft)
	require.Len(t, drafts, 1)
	// 会话未指派，只发会话房间，不发租户
	assert.Equal(t, []ws.Scope{ws.ConversationScope("conv-1")}, drafts[0].Scopes)
}

func TestGenerateDraftTargetsAssignedAgent(t *testing.T) {
	f := newClassifyFixture()
	f.convRepo.convs["conv-1"].AssignedAgentId = "agent-7"
	f.seedClassification("conv-1")
	p := f.draftPipeline(t, &fakeCompleter{resps: []*schema.Message{
		schema.AssistantMessage(draftReply, nil),
	}}, nil)

	_, err := p.GenerateDraft(context.Background(), &DraftRequest{
		TenantID: "t1", ConversationUuid: "conv-1", MessageUuid: "msg-1", Content: "I was double charged",
	})
	require.NoError(t, err)

	drafts := f.bc.byEvent(respond.EventAIDraft)
	require.Len(t, drafts, 1)
	assert.Contains(t, drafts[0].Scopes, ws.AgentScope("agent-7"))
}

func TestGenerateDraftRequiresClassification(t *testing.T) {
	f := newClassifyFixture()
	p := f.draftPipeline(t, &fakeCompleter{resps: []*schema.Message{
		schema.AssistantMessage(draftReply, nil),
	}}, nil)

	_, err := p.GenerateDraft(context.Background(), &DraftRequest{
		TenantID: "t1", ConversationUuid: "conv-1", MessageUuid: "msg-1", Content: "help",
	})
	require.Error(t, err)
	assert.Equal(t, xerr.ErrMissingClassification, err)
	assert.Empty(t, f.store.Drafts.(*memDraftRepo).saved)
}

func TestGenerateDraftKBFailureDegrades(t *testing.T) {
	f := newClassifyFixture()
	f.seedClassification("conv-1")
	p := f.draftPipeline(t, &fakeCompleter{resps: []*schema.Message{
		schema.AssistantMessage(draftReply, nil),
	}}, &fakeKnowledge{err: xerr.ErrServiceUnavailable})

	res, err := p.GenerateDraft(context.Background(), &DraftRequest{
		TenantID: "t1", ConversationUuid: "conv-1", MessageUuid: "msg-1", Content: "help",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.KBGrounded)
}

func TestGenerateDraftEmptyModelOutputIsParseError(t *testing.T) {
	f := newClassifyFixture()
	f.seedClassification("conv-1")
	p := f.draftPipeline(t, &fakeCompleter{resps: []*schema.Message{
		schema.AssistantMessage("   ", nil),
	}}, nil)

	_, err := p.GenerateDraft(context.Background(), &DraftRequest{
		TenantID: "t1", ConversationUuid: "conv-1", MessageUuid: "msg-1", Content: "help",
	})
	require.Error(t, err)
	assert.True(t, xerr.Is(err, xerr.ParseError))
}

// ---- 置信度启发式 ----

func TestScoreDraftHeuristics(t *testing.T) {
	f := newClassifyFixture()
	p := f.draftPipeline(t, &fakeCompleter{resps: []*schema.Message{
		schema.AssistantMessage("x", nil),
	}}, nil)

	short := "ok"
	_, reasons := p.scoreDraft(short, 0)
	assert.Empty(t, reasons)
	conf, _ := p.scoreDraft(short, 0)
	assert.InDelta(t, 0.7, conf, 1e-9)

	inRange := strings.Repeat("word ", 60)
	conf, _ = p.scoreDraft(inRange, 0)
	assert.InDelta(t, 0.8, conf, 1e-9)

	conf, _ = p.scoreDraft(strings.TrimSpace(inRange)+".", 0)
	assert.InDelta(t, 0.9, conf, 1e-9)

	conf, _ = p.scoreDraft("Hello, "+strings.TrimSpace(inRange)+".", 0)
	assert.InDelta(t, 0.95, conf, 1e-9, "基线+三项加成超过 cap 后截断")

	// KB 加成每篇 0.1，封顶 kbBoostMax
	conf, _ = p.scoreDraft(short, 1)
	assert.InDelta(t, 0.8, conf, 1e-9)
	conf, _ = p.scoreDraft(short, 2)
	assert.InDelta(t, 0.9, conf, 1e-9)
	conf, _ = p.scoreDraft(short, 5)
	assert.InDelta(t, 0.9, conf, 1e-9)
}

func TestHasTerminalPunctuation(t *testing.T) {
	assert.True(t, hasTerminalPunctuation("Done."))
	assert.True(t, hasTerminalPunctuation("好的。"))
	assert.True(t, hasTerminalPunctuation("Really?"))
	assert.False(t, hasTerminalPunctuation("trailing comma,"))
	assert.False(t, hasTerminalPunctuation(""))
}

func TestHasGreeting(t *testing.T) {
	assert.True(t, hasGreeting("Hello Maria,"))
	assert.True(t, hasGreeting("您好，关于您的订单"))
	assert.True(t, hasGreeting("Thanks for reaching out!"))
	assert.False(t, hasGreeting("The invoice is attached."))
}
