package pipeline

import (
	"context"
	"encoding/json"
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

// classifyState 分类 Pipeline 的中间状态（在节点间传递）
type classifyState struct {
	Req          *ClassifyRequest
	Conversation *deskEntity.Conversation
	Contact      *deskEntity.Contact
	Teams        []deskEntity.TeamAvailability
	Members      map[string][]deskEntity.TeamMember
	Prompt       []*schema.Message
	Raw          *schema.Message
	Entity       *deskEntity.Classification
	AutoAssigned bool
	Start        time.Time
	Err          error
}

// buildGraph 构建分类 Pipeline 的 Eino Graph
//
// 节点顺序：LoadContext → BuildPrompt → ChatModel → ParseResult → Persist → Dispatch
func (p *ClassifyPipeline) buildGraph(ctx context.Context) (compose.Runnable[*ClassifyRequest, *ClassifyResult], error) {
	const (
		LoadContext = "LoadContext"
		BuildPrompt = "BuildPrompt"
		ChatModel   = "ChatModel"
		ParseResult = "ParseResult"
		Persist     = "Persist"
		Dispatch    = "Dispatch"
	)
	g := compose.NewGraph[*ClassifyRequest, *ClassifyResult]()
	_ = g.AddLambdaNode(LoadContext, compose.InvokableLambdaWithOption(p.loadContextNode), compose.WithNodeName(LoadContext))
	_ = g.AddLambdaNode(BuildPrompt, compose.InvokableLambdaWithOption(p.buildPromptNode), compose.WithNodeName(BuildPrompt))
	_ = g.AddLambdaNode(ChatModel, compose.InvokableLambdaWithOption(p.chatModelNode), compose.WithNodeName(ChatModel))
	_ = g.AddLambdaNode(ParseResult, compose.InvokableLambdaWithOption(p.parseResultNode), compose.WithNodeName(ParseResult))
	_ = g.AddLambdaNode(Persist, compose.InvokableLambdaWithOption(p.persistNode), compose.WithNodeName(Persist))
	_ = g.AddLambdaNode(Dispatch, compose.InvokableLambdaWithOption(p.dispatchNode), compose.WithNodeName(Dispatch))
	_ = g.AddEdge(compose.START, LoadContext)
	_ = g.AddEdge(LoadContext, BuildPrompt)
	_ = g.AddEdge(BuildPrompt, ChatModel)
	_ = g.AddEdge(ChatModel, ParseResult)
	_ = g.AddEdge(ParseResult, Persist)
	_ = g.AddEdge(Persist, Dispatch)
	_ = g.AddEdge(Dispatch, compose.END)
	return g.Compile(ctx, compose.WithGraphName("ClassifyPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

// loadContextNode 节点 1：加载消息上下文。会话必须存在且属于请求
// 租户；客户画像与团队快照加载失败降级为空，不阻断分类。
func (p *ClassifyPipeline) loadContextNode(ctx context.Context, req *ClassifyRequest, _ ...any) (*classifyState, error) {
	st := &classifyState{Req: req, Start: time.Now()}
	if req == nil {
		st.Err = fmt.Errorf("classify request is nil")
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

	if contact, err := p.store.Contacts.GetByUuid(ctx, conv.ContactId); err == nil {
		st.Contact = contact
	} else {
		zlog.Warn("classify load contact failed",
			zap.String("contact_id", conv.ContactId), zap.Error(err))
	}

	if p.availability != nil {
		if teams, err := p.availability.GetTeamsAvailability(ctx, req.TenantID); err == nil {
			st.Teams = teams
		} else {
			zlog.Warn("classify load team availability failed",
				zap.String("tenant_id", req.TenantID), zap.Error(err))
		}
	}

	st.Members = make(map[string][]deskEntity.TeamMember, len(st.Teams))
	for _, team := range st.Teams {
		members, err := p.store.Teams.ListMembers(ctx, team.TeamId)
		if err != nil {
			continue
		}
		st.Members[team.TeamId] = members
	}
	return st, nil
}

// buildPromptNode 节点 2：组装分类 Prompt
func (p *ClassifyPipeline) buildPromptNode(ctx context.Context, st *classifyState, _ ...any) (*classifyState, error) {
	_ = ctx
	if st == nil {
		return &classifyState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	var sb strings.Builder
	sb.WriteString("Customer message:\n")
	sb.WriteString(st.Req.Content)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(fmt.Sprintf("- time bucket: %s\n", businessHoursBucket(time.Now())))
	if st.Contact != nil {
		ageDays := int(time.Since(st.Contact.CreatedAt).Hours() / 24)
		sb.WriteString(fmt.Sprintf("- customer tier: %s, account age: %d days\n", st.Contact.Tier, ageDays))
	}
	if st.Conversation != nil {
		sb.WriteString(fmt.Sprintf("- conversation channel: %s, status: %s\n", st.Conversation.Channel, st.Conversation.Status))
	}
	if len(st.Teams) > 0 {
		sb.WriteString("- teams:\n")
		for _, team := range st.Teams {
			sb.WriteString(fmt.Sprintf("  - id=%s name=%q online_agents=%d utilization=%d%%\n",
				team.TeamId, team.Name, team.OnlineAgents, team.UtilizationPct))
			for _, m := range st.Members[team.TeamId] {
				sb.WriteString(fmt.Sprintf("    - agent id=%s load=%d/%d\n", m.AgentId, m.CurrentLoad, m.MaxCapacity))
			}
		}
	}

	st.Prompt = []*schema.Message{
		schema.SystemMessage(classifySystemPrompt),
		schema.UserMessage(sb.String()),
	}
	return st, nil
}

// chatModelNode 节点 3：调用 Completer，超时/不可用为本次分类的致命错误
func (p *ClassifyPipeline) chatModelNode(ctx context.Context, st *classifyState, _ ...any) (*classifyState, error) {
	if st == nil {
		return &classifyState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	resp, err := p.completer.Complete(ctx, st.Prompt, nil)
	if err != nil {
		st.Err = err
		return st, nil
	}
	st.Raw = resp
	return st, nil
}

// parseResultNode 节点 4：解析模型输出。缺必填字段按 PARSE_ERROR
// 整次失败，枚举值不认识则归并到缺省值。
func (p *ClassifyPipeline) parseResultNode(ctx context.Context, st *classifyState, _ ...any) (*classifyState, error) {
	_ = ctx
	if st == nil {
		return &classifyState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}
	if st.Raw == nil {
		st.Err = xerr.ErrParseError
		return st, nil
	}

	parsed, err := parseClassification(st.Raw.Content)
	if err != nil {
		zlog.Warn("classification parse failed",
			zap.String("conversation_id", st.Req.ConversationUuid),
			zap.Error(err))
		st.Err = xerr.ErrParseError
		return st, nil
	}

	now := time.Now()
	st.Entity = &deskEntity.Classification{
		Uuid:             util.GenerateID("CLS"),
		TenantId:         st.Req.TenantID,
		ConversationUuid: st.Req.ConversationUuid,
		MessageUuid:      st.Req.MessageUuid,
		Category:         parsed.Category,
		Priority:         parsed.Priority,
		Sentiment:        parsed.Sentiment,
		Language:         parsed.Language,
		Confidence:       parsed.Confidence,
		Reasoning:        parsed.Reasoning,
		SuggestedTeamId:  parsed.SuggestedTeamId,
		SuggestedAgentId: parsed.SuggestedAgentId,
		CreatedAt:        now,
	}
	return st, nil
}

// persistNode 节点 5：落库，分类记录只增不改
func (p *ClassifyPipeline) persistNode(ctx context.Context, st *classifyState, _ ...any) (*classifyState, error) {
	if st == nil {
		return &classifyState{Err: fmt.Errorf("nil state"), Start: time.Now()}, nil
	}
	if st.Err != nil {
		return st, nil
	}

	if err := p.store.Classifications.Save(ctx, st.Entity); err != nil {
		st.Err = err
		return st, nil
	}
	return st, nil
}

// dispatchNode 节点 6：置信门控自动指派 + 扇出。指派失败只记日志，
// 分类事件无论是否指派都会广播。
func (p *ClassifyPipeline) dispatchNode(ctx context.Context, st *classifyState, _ ...any) (*ClassifyResult, error) {
	if st == nil {
		return nil, fmt.Errorf("nil state")
	}
	if st.Err != nil {
		return &ClassifyResult{}, st.Err
	}

	c := st.Entity

	// 严格大于阈值且团队/客服建议都在场才触发自动指派
	if c.Confidence > p.autoAssignThreshold && c.SuggestedTeamId != "" && c.SuggestedAgentId != "" {
		patch := deskEntity.ConversationPatch{
			AssignedAgentId: &c.SuggestedAgentId,
			AssignedTeamId:  &c.SuggestedTeamId,
		}
		if err := p.store.Conversations.Update(ctx, c.ConversationUuid, patch); err != nil {
			zlog.Warn("auto assignment failed",
				zap.String("conversation_id", c.ConversationUuid),
				zap.String("agent_id", c.SuggestedAgentId),
				zap.Error(err))
		} else {
			st.AutoAssigned = true
			p.broadcaster.PublishMulti(
				[]ws.Scope{
					ws.ConversationScope(c.ConversationUuid),
					ws.TenantScope(c.TenantId),
					ws.AgentScope(c.SuggestedAgentId),
				},
				respond.EventConversationAssigned,
				respond.AssignmentData{
					ConversationId: c.ConversationUuid,
					AgentId:        c.SuggestedAgentId,
					TeamId:         c.SuggestedTeamId,
				},
			)
			if p.audit != nil {
				p.audit.ConversationAssigned(c.TenantId, c.ConversationUuid, c.SuggestedAgentId, c.SuggestedTeamId, "auto")
			}
		}
	}

	scopes := []ws.Scope{
		ws.ConversationScope(c.ConversationUuid),
		ws.TenantScope(c.TenantId),
	}
	if c.SuggestedAgentId != "" {
		scopes = append(scopes, ws.AgentScope(c.SuggestedAgentId))
	}
	p.broadcaster.PublishMulti(scopes, respond.EventAIClassification, respond.ClassificationData{
		Uuid:             c.Uuid,
		ConversationId:   c.ConversationUuid,
		MessageId:        c.MessageUuid,
		Category:         c.Category,
		Priority:         c.Priority,
		Sentiment:        c.Sentiment,
		Language:         c.Language,
		Confidence:       c.Confidence,
		Reasoning:        c.Reasoning,
		SuggestedTeamId:  c.SuggestedTeamId,
		SuggestedAgentId: c.SuggestedAgentId,
	})
	if p.audit != nil {
		p.audit.ClassificationCreated(c)
	}

	res := &ClassifyResult{
		Classification: c,
		AutoAssigned:   st.AutoAssigned,
		DurationMs:     time.Since(st.Start).Milliseconds(),
	}
	zlog.Info("classification done",
		zap.String("conversation_id", c.ConversationUuid),
		zap.String("category", c.Category),
		zap.String("priority", c.Priority),
		zap.Float64("confidence", c.Confidence),
		zap.Bool("auto_assigned", st.AutoAssigned),
		zap.Int64("duration_ms", res.DurationMs))
	return res, nil
}

const classifySystemPrompt = `You are a customer support triage assistant.
Classify the customer message and suggest routing. Respond with a single JSON
object and nothing else, with fields:
  category: one of general, billing, technical, account, complaint
  priority: one of low, normal, high, urgent
  sentiment: one of positive, neutral, negative
  language: ISO language code of the message, e.g. "en", "zh"
  confidence: number between 0 and 1
  reasoning: short explanation
  suggested_team_id: id of the best team from the context, or "" if unsure
  suggested_agent_id: id of the best agent from the context, or "" if unsure
Prefer teams with more online agents and lower utilization.`

// parsedClassification 模型输出的原始结构，指针字段用于区分缺失
type parsedClassification struct {
	Category         *string  `json:"category"`
	Priority         *string  `json:"priority"`
	Sentiment        *string  `json:"sentiment"`
	Language         *string  `json:"language"`
	Confidence       *float64 `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	SuggestedTeamId  string   `json:"suggested_team_id"`
	SuggestedAgentId string   `json:"suggested_agent_id"`
}

type classificationFields struct {
	Category         string
	Priority         string
	Sentiment        string
	Language         string
	Confidence       float64
	Reasoning        string
	SuggestedTeamId  string
	SuggestedAgentId string
}

// parseClassification 必填字段缺失按解析失败处理，
// 枚举值不认识归并到缺省，置信度截断到 [0,1]。
func parseClassification(raw string) (*classificationFields, error) {
	var parsed parsedClassification
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &parsed); err != nil {
		return nil, err
	}
	if parsed.Category == nil || parsed.Priority == nil || parsed.Sentiment == nil || parsed.Language == nil {
		return nil, fmt.Errorf("missing required classification fields")
	}

	confidence := 0.0
	if parsed.Confidence != nil {
		confidence = *parsed.Confidence
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &classificationFields{
		Category:         coerceCategory(*parsed.Category),
		Priority:         coercePriority(*parsed.Priority),
		Sentiment:        coerceSentiment(*parsed.Sentiment),
		Language:         coerceLanguage(*parsed.Language),
		Confidence:       confidence,
		Reasoning:        strings.TrimSpace(parsed.Reasoning),
		SuggestedTeamId:  strings.TrimSpace(parsed.SuggestedTeamId),
		SuggestedAgentId: strings.TrimSpace(parsed.SuggestedAgentId),
	}, nil
}

// stripJSONFences 去掉模型偶尔包的 markdown 代码块
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func coerceCategory(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case deskEntity.CategoryGeneral:
		return deskEntity.CategoryGeneral
	case deskEntity.CategoryBilling:
		return deskEntity.CategoryBilling
	case deskEntity.CategoryTechnical:
		return deskEntity.CategoryTechnical
	case deskEntity.CategoryAccount:
		return deskEntity.CategoryAccount
	case deskEntity.CategoryComplaint:
		return deskEntity.CategoryComplaint
	}
	return deskEntity.CategoryGeneral
}

func coercePriority(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case deskEntity.PriorityLow:
		return deskEntity.PriorityLow
	case deskEntity.PriorityNormal:
		return deskEntity.PriorityNormal
	case deskEntity.PriorityHigh:
		return deskEntity.PriorityHigh
	case deskEntity.PriorityUrgent:
		return deskEntity.PriorityUrgent
	}
	return deskEntity.PriorityNormal
}

func coerceSentiment(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case deskEntity.SentimentPositive:
		return deskEntity.SentimentPositive
	case deskEntity.SentimentNeutral:
		return deskEntity.SentimentNeutral
	case deskEntity.SentimentNegative:
		return deskEntity.SentimentNegative
	}
	return deskEntity.SentimentNeutral
}

func coerceLanguage(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || len(v) > 16 {
		return deskEntity.LanguageUnknown
	}
	return v
}
