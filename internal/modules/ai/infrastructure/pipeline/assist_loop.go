package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"DeskLink/internal/modules/ai/infrastructure/llm"
	"DeskLink/internal/modules/ai/infrastructure/skills"
	"DeskLink/pkg/zlog"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// 助手回合的终止状态
const (
	AssistStateAnswered  = "answered"
	AssistStateEscalated = "escalated"
	AssistStateExhausted = "exhausted"
)

const (
	invocationStatusCompleted = "completed"
	invocationStatusFailed    = "failed"
)

// fallbackAnswer 迭代耗尽或 Completer 故障时的固定兜底回答，
// 终端用户永远拿到一个回答而不是错误。
const fallbackAnswer = "I wasn't able to resolve this on my own. I'm handing your request over to a human agent who will follow up shortly."

// AssistTurn 带角色标注的历史回合
type AssistTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistRequest 一次助手回合的输入
type AssistRequest struct {
	TenantID string
	Message  string
	History  []AssistTurn
	Context  map[string]string
}

// ToolInvocation 单次技能调用记录，完成后不再变更，
// 按调用顺序保留用于可解释性
type ToolInvocation struct {
	Tool       string `json:"tool"`
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
}

// AssistResult 一次助手回合的输出
type AssistResult struct {
	Answer          string           `json:"answer"`
	ToolInvocations []ToolInvocation `json:"tool_invocations"`
	NeedsEscalation bool             `json:"needs_escalation"`
	Confidence      float64          `json:"confidence"`
	State           string           `json:"state"`
}

// AssistLoop 有界的工具调用循环。
//
// 状态机：Deciding → {ExecutingTools → Deciding}* → Answered | Escalated | Exhausted。
// 每个 Deciding 步骤把完整 transcript 加全量技能目录交给 Completer；
// 一批工具调用并发执行，单个工具失败作为错误负载回给模型，
// 不会中断同批其他工具。迭代上限防模型永不收敛。
type AssistLoop struct {
	completer     llm.Completer
	executor      skills.ToolExecutor
	maxIterations int
}

func NewAssistLoop(completer llm.Completer, executor skills.ToolExecutor, maxIterations int) (*AssistLoop, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("tool executor is nil")
	}
	if maxIterations <= 0 {
		maxIterations = 5
	}
	return &AssistLoop{
		completer:     completer,
		executor:      executor,
		maxIterations: maxIterations,
	}, nil
}

// Run 执行一个助手回合。任何故障都折叠成兜底回答，
// 调用方永远拿到非 nil 的 AssistResult。
func (l *AssistLoop) Run(ctx context.Context, req *AssistRequest) *AssistResult {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return &AssistResult{
			Answer:          fallbackAnswer,
			ToolInvocations: []ToolInvocation{},
			NeedsEscalation: true,
			State:           AssistStateExhausted,
		}
	}

	transcript := l.buildTranscript(req)
	catalog := skills.Catalog()
	invocations := make([]ToolInvocation, 0, 4)
	escalated := false
	start := time.Now()

	for step := 1; step <= l.maxIterations; step++ {
		resp, err := l.completer.Complete(ctx, transcript, catalog)
		if err != nil {
			zlog.Warn("assist completer failed, falling back",
				zap.Int("step", step), zap.Error(err))
			return l.fallback(invocations)
		}

		if len(resp.ToolCalls) == 0 {
			state := AssistStateAnswered
			if escalated {
				state = AssistStateEscalated
			}
			res := &AssistResult{
				Answer:          strings.TrimSpace(resp.Content),
				ToolInvocations: invocations,
				NeedsEscalation: escalated,
				Confidence:      answerConfidence(len(invocations)),
				State:           state,
			}
			zlog.Info("assist turn done",
				zap.String("state", res.State),
				zap.Int("steps", step),
				zap.Int("tools_used", len(invocations)),
				zap.Float64("confidence", res.Confidence),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()))
			return res
		}

		transcript = append(transcript, resp)
		batch := l.executeBatch(ctx, req.TenantID, resp.ToolCalls)
		for i, inv := range batch {
			invocations = append(invocations, inv)
			if inv.Tool == string(skills.SkillEscalate) && inv.Status == invocationStatusCompleted {
				escalated = true
			}
			content := inv.Output
			if inv.Status == invocationStatusFailed {
				payload, _ := json.Marshal(map[string]string{"error": inv.Error})
				content = string(payload)
			}
			transcript = append(transcript, schema.ToolMessage(content, resp.ToolCalls[i].ID))
		}
	}

	zlog.Warn("assist iteration cap reached",
		zap.Int("max_iterations", l.maxIterations),
		zap.Int("tools_used", len(invocations)))
	return l.fallback(invocations)
}

func (l *AssistLoop) buildTranscript(req *AssistRequest) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(req.History)+2)
	msgs = append(msgs, schema.SystemMessage(assistSystemPrompt))

	if len(req.Context) > 0 {
		ctxJSON, _ := json.Marshal(req.Context)
		msgs = append(msgs, schema.SystemMessage("Context: "+string(ctxJSON)))
	}
	for _, turn := range req.History {
		switch strings.ToLower(turn.Role) {
		case "assistant":
			msgs = append(msgs, schema.AssistantMessage(turn.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(turn.Content))
		}
	}
	msgs = append(msgs, schema.UserMessage(req.Message))
	return msgs
}

// executeBatch 同批工具并发执行，fan-out/fan-in，
// 全部完成后按请求顺序返回
func (l *AssistLoop) executeBatch(ctx context.Context, tenantID string, calls []schema.ToolCall) []ToolInvocation {
	results := make([]ToolInvocation, len(calls))
	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(idx int, call schema.ToolCall) {
			defer wg.Done()
			toolStart := time.Now()
			inv := ToolInvocation{
				Tool:  call.Function.Name,
				Input: call.Function.Arguments,
			}
			out, err := skills.Execute(ctx, l.executor, tenantID, call.Function.Name, call.Function.Arguments)
			inv.DurationMs = time.Since(toolStart).Milliseconds()
			if err != nil {
				inv.Status = invocationStatusFailed
				inv.Error = err.Error()
				zlog.Warn("assist tool failed",
					zap.String("tool", call.Function.Name), zap.Error(err))
			} else {
				inv.Status = invocationStatusCompleted
				inv.Output = out
			}
			results[idx] = inv
		}(i, tc)
	}
	wg.Wait()
	return results
}

func (l *AssistLoop) fallback(invocations []ToolInvocation) *AssistResult {
	return &AssistResult{
		Answer:          fallbackAnswer,
		ToolInvocations: invocations,
		NeedsEscalation: true,
		Confidence:      0,
		State:           AssistStateExhausted,
	}
}

// answerConfidence 基线 0.7，用过工具 +0.1，超过 2 个再 +0.1，
// 超过 4 个 −0.1（工具折腾越多说明模型越吃力）
func answerConfidence(toolsUsed int) float64 {
	confidence := 0.7
	if toolsUsed >= 1 {
		confidence += 0.1
	}
	if toolsUsed > 2 {
		confidence += 0.1
	}
	if toolsUsed > 4 {
		confidence -= 0.1
	}
	return confidence
}

const assistSystemPrompt = `You are a customer support assistant for a helpdesk
platform. You can call the provided tools to look up customers and orders,
search the knowledge base, create tickets, issue refunds or escalate to a
human. Call tools when you need facts, then give one clear final answer.
If the request is outside your abilities or the customer asks for a human,
call the escalate tool.`
