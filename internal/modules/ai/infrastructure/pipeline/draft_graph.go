package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	"DeskLink/internal/modules/realtime/application/dto/respond"
	"DeskLink/pkg/util"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// draftState 草稿 Pipeline 的中间状态（在节点间传递）
type draftState struct {
	Req            *DraftRequest
	Conversation   *deskEntity.Conversation
	Classification *deskEntity.Classification
	History        []deskEntity.Message
	Articles       []deskEntity.KnowledgeArticle
	Prompt         []*schema.Message
	Raw            *schema.Message
	Entity         *deskEntity.Draft
	Start          time.Time
	Err            error
}

// buildGraph 构建草稿 Pipeline 的 Eino Graph
//
// 节点顺序：LoadContext → RetrieveKB → BuildPrompt → ChatModel → Persist → Deliver
func (p *DraftPipeline) buildGraph(ctx context.Context) (compose.Runnable[*DraftRequest, *DraftResult], error) {
	const (
		LoadContext = "LoadContext"
		RetrieveKB  = "RetrieveKB"
		BuildPrompt = "BuildPrompt"
		ChatModel   = "ChatModel"
		Persist     = "Persist"
		Deliver     = "Deliver"
	)
	g := compose.NewGraph[*DraftRequest, *DraftResult]()
	_ = g.AddLambdaNode(LoadContext, compose.InvokableLambdaWithOption(p.loadContextNode), compose.WithNodeName(LoadContext))
	_ = g.AddLambdaNode(RetrieveKB, compose.InvokableLambdaWithOption(p.retrieveKBNode), compose.WithNodeName(RetrieveKB))
	_ = g.AddLambdaNode(BuildPrompt, compose.InvokableLambdaWithOption(p.buildPromptNode), compose.WithNodeName(BuildPrompt))
	_ = g.AddLambdaNode(ChatModel, compose.InvokableLambdaWithOption(p.chatModelNode), compose.WithNodeName(ChatModel))
	_ = g.AddLambdaNode(Persist, compose.InvokableLambdaWithOption(p.persistNode), compose.WithNodeName(Persist))
	_ = g.AddLambdaNode(Deliver, compose.InvokableLambdaWithOption(p.deliverNode), compose.WithNodeName(Deliver))
	_ = g.AddEdge(compose.START, LoadContext)
	_ = g.AddEdge(LoadContext, RetrieveKB)
	_ = g.AddEdge(RetrieveKB, BuildPrompt)
	_ = g.AddEdge(BuildPrompt, ChatModel)
	_ = g.AddEdge(ChatModel, Persist)
	_ = g.AddEdge(Persist, Deliver)
	_ = g.AddEdge(Deliver, compose.END)
	return g.Compile(ctx, compose.WithGraphName("DraftPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

// loadContextNode 节点 1：加载会话、最新分类、最近历史。
// 分类缺失是本次调用的致命错误。
func (p *DraftPipeline) loadContextNode(ctx context.Context, req *DraftRequest, _ ...any) (*draftState, error) {
	st := &draftState{Req: req, Start: time.Now()}
	if req == nil {
		st.Err = fmt.Errorf("draft request is nil")
		return st, nil
	}

	if strings.TrimSpace(req.Content) == "" {
		msg, err := p.store.Messages.GetByUuid(ctx, req.MessageUuid)
		if err != nil {
			st.Err = err
			return st, nil
		}
		req.Content = msg.Content
		req.ConversationUuid = msg.ConversationUuid
		req.TenantID = msg.TenantId
	}

	conv, err := p.store.Conversations.GetByUuid(ctx, req.ConversationUuid)
	if err != nil {
		st.Err = err
		return st, nil
	}
	if conv.TenantId != req.TenantID {
		st.Err = xerr.ErrForbidden
		return st, nil
	}
	st.Conversation = conv

	cl, err := p.store.Classifications.GetLatestByConversation(ctx, req.ConversationUuid)
	if err != nil {
		if xerr.Is(err, xerr.NotFound) {
			st.Err = xerr.ErrMissingClassification
		} else {
			st.Err = err
		}
		return st, nil
	}
	st.Classification = cl

	history, err := p.store.Messages.ListRecent(ctx, req.ConversationUuid, p.historyLimit)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.History = history
	return st, nil
}

// retrieveKBNode 节点 2：知识库检索。检索失败降级为无引用，
// 只影响置信加成，不阻断草稿。
func (p *DraftPipeline) retrieveKBNode(ctx context.Context, st *draftState, _ ...any) (*draftState, error) {
	if st == nil {
		return &draftState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}
	if p.knowledge == nil {
		return st, nil
	}

	articles, err := p.knowledge.Search(ctx, st.Req.TenantID, st.Req.Content, 2)
	if err != nil {
		zlog.Warn("draft kb retrieval failed",
			zap.String("conversation_id", st.Req.ConversationUuid), zap.Error(err))
		return st, nil
	}
	st.Articles = articles
	return st, nil
}

// buildPromptNode 节点 3：触发消息 + 分类 + 分类策略文案 +
// 最近历史（旧的在前）+ 知识库引用
func (p *DraftPipeline) buildPromptNode(ctx context.Context, st *draftState, _ ...any) (*draftState, error) {
	_ = ctx
	if st == nil {
		return &draftState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	var sb strings.Builder
	cl := st.Classification
	sb.WriteString(fmt.Sprintf("Classification: category=%s priority=%s sentiment=%s language=%s\n",
		cl.Category, cl.Priority, cl.Sentiment, cl.Language))
	sb.WriteString("Policy: ")
	sb.WriteString(categoryPolicy(cl.Category))
	sb.WriteString("\n")

	if len(st.History) > 0 {
		sb.WriteString("\nConversation history (oldest first):\n")
		for _, m := range st.History {
			sb.WriteString(fmt.Sprintf("[%s] %s\n", m.SenderKind, m.Content))
		}
	}

	if len(st.Articles) > 0 {
		sb.WriteString("\nKnowledge base references:\n")
		for _, a := range st.Articles {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", a.Title, snippetText(a.Content, 400)))
		}
	}

	sb.WriteString("\nCustomer message to answer:\n")
	sb.WriteString(st.Req.Content)

	st.Prompt = []*schema.Message{
		schema.SystemMessage(draftSystemPrompt),
		schema.UserMessage(sb.String()),
	}
	return st, nil
}

// chatModelNode 节点 4：调用 Completer
func (p *DraftPipeline) chatModelNode(ctx context.Context, st *draftState, _ ...any) (*draftState, error) {
	if st == nil {
		return &draftState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	resp, err := p.completer.Complete(ctx, st.Prompt, nil)
	if err != nil {
		st.Err = err
		return st, nil
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		st.Err = xerr.ErrParseError
		return st, nil
	}
	st.Raw = resp
	return st, nil
}

// persistNode 节点 5：按输出形态算置信度并落库
func (p *DraftPipeline) persistNode(ctx context.Context, st *draftState, _ ...any) (*draftState, error) {
	if st == nil {
		return &draftState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	content := strings.TrimSpace(st.Raw.Content)
	confidence, reasons := p.scoreDraft(content, len(st.Articles))

	now := time.Now()
	st.Entity = &deskEntity.Draft{
		Uuid:             util.GenerateID("DRF"),
		TenantId:         st.Req.TenantID,
		ConversationUuid: st.Req.ConversationUuid,
		MessageUuid:      st.Req.MessageUuid,
		Content:          content,
		Confidence:       confidence,
		Reasoning:        strings.Join(reasons, "; "),
		Status:           deskEntity.DraftStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := p.store.Drafts.Save(ctx, st.Entity); err != nil {
		st.Err = err
		return st, nil
	}
	return st, nil
}

// deliverNode 节点 6：草稿只发给被指派客服和会话房间，
// 不做租户级广播（草稿是给单个客服的建议，不是通知）。
func (p *DraftPipeline) deliverNode(ctx context.Context, st *draftState, _ ...any) (*DraftResult, error) {
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}
	if st.Err != nil {
		return &DraftResult{}, st.Err
	}

	d := st.Entity
	scopes := []ws.Scope{ws.ConversationScope(d.ConversationUuid)}
	if st.Conversation.AssignedAgentId != "" {
		scopes = append(scopes, ws.AgentScope(st.Conversation.AssignedAgentId))
	}
	p.broadcaster.PublishMulti(scopes, respond.EventAIDraft, respond.DraftData{
		Uuid:           d.Uuid,
		ConversationId: d.ConversationUuid,
		MessageId:      d.MessageUuid,
		Content:        d.Content,
		Confidence:     d.Confidence,
		Reasoning:      d.Reasoning,
		Status:         d.Status,
	})

	res := &DraftResult{
		Draft:      d,
		KBGrounded: len(st.Articles),
		DurationMs: time.Since(st.Start).Milliseconds(),
	}
	zlog.Info("draft generated",
		zap.String("conversation_id", d.ConversationUuid),
		zap.String("draft_id", d.Uuid),
		zap.Float64("confidence", d.Confidence),
		zap.Int("kb_grounded", res.KBGrounded),
		zap.Int64("duration_ms", res.DurationMs))
	return res, nil
}

// scoreDraft 草稿置信度：基线 0.7，词数落在 [50,250]、句末标点、
// 问候语各 +0.1，知识库引用每篇 +0.1（封顶 kbBoostMax），
// 最终截断到 confidenceCap。
func (p *DraftPipeline) scoreDraft(content string, kbArticles int) (float64, []string) {
	confidence := 0.7
	var reasons []string

	words := len(strings.Fields(content))
	if words >= 50 && words <= 250 {
		confidence += 0.1
		reasons = append(reasons, fmt.Sprintf("word count %d in range", words))
	}
	if hasTerminalPunctuation(content) {
		confidence += 0.1
		reasons = append(reasons, "ends with terminal punctuation")
	}
	if hasGreeting(content) {
		confidence += 0.1
		reasons = append(reasons, "contains greeting")
	}
	if kbArticles > 0 {
		boost := 0.1 * float64(kbArticles)
		if boost > p.kbBoostMax {
			boost = p.kbBoostMax
		}
		confidence += boost
		reasons = append(reasons, fmt.Sprintf("grounded on %d kb articles", kbArticles))
	}

	if confidence > p.confidenceCap {
		confidence = p.confidenceCap
	}
	return confidence, reasons
}

func hasTerminalPunctuation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	runes := []rune(s)
	switch runes[len(runes)-1] {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

var greetingTokens = []string{
	"hi ", "hi,", "hello", "hey ", "dear ", "good morning", "good afternoon",
	"good evening", "thanks for reaching out", "thank you for reaching out",
	"你好", "您好",
}

func hasGreeting(s string) bool {
	lower := strings.ToLower(s)
	for _, token := range greetingTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

func categoryPolicy(category string) string {
	switch category {
	case deskEntity.CategoryBilling:
		return "Do not promise refunds or credits. Point to the billing portal for invoice copies and confirm the billing cycle before discussing charges."
	case deskEntity.CategoryTechnical:
		return "Ask for reproduction steps if missing. Link the relevant troubleshooting article and offer escalation to engineering for confirmed bugs."
	case deskEntity.CategoryAccount:
		return "Never change account data in chat. Verify identity first and direct the customer to the self-service account page for changes."
	case deskEntity.CategoryComplaint:
		return "Acknowledge the frustration first, apologize once, avoid assigning blame, and offer a concrete next step with a time commitment."
	}
	return "Be concise, friendly and concrete. Answer only what was asked and offer one follow-up action."
}

const draftSystemPrompt = `You are drafting a reply that a human support agent
will review before sending. Write the reply text only, no preamble, no JSON.
Match the customer's language. Follow the policy line given in the context.`

func snippetText(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
