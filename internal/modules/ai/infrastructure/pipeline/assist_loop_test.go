package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"DeskLink/internal/modules/ai/infrastructure/skills"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	mu       sync.Mutex
	called   []string
	orderErr error
}

var _ skills.ToolExecutor = (*fakeExecutor)(nil)

func (f *fakeExecutor) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, name)
}

func (f *fakeExecutor) LookupCustomer(ctx context.Context, tenantID string, in skills.LookupCustomerInput) (skills.CustomerProfile, error) {
	f.record("lookup_customer")
	return skills.CustomerProfile{CustomerId: in.CustomerId, Name: "Maria", Tier: "pro"}, nil
}

func (f *fakeExecutor) LookupOrder(ctx context.Context, tenantID string, in skills.LookupOrderInput) (skills.OrderInfo, error) {
	f.record("lookup_order")
	if f.orderErr != nil {
		return skills.OrderInfo{}, f.orderErr
	}
	return skills.OrderInfo{OrderId: in.OrderId, Status: "shipped", Amount: 42}, nil
}

func (f *fakeExecutor) SearchKnowledge(ctx context.Context, tenantID string, in skills.SearchKnowledgeInput) ([]skills.KnowledgeHit, error) {
	f.record("search_knowledge")
	return []skills.KnowledgeHit{{ArticleId: "kb-1", Title: "Refund policy"}}, nil
}

func (f *fakeExecutor) CreateTicket(ctx context.Context, tenantID string, in skills.CreateTicketInput) (skills.TicketRef, error) {
	f.record("create_ticket")
	return skills.TicketRef{TicketId: "TIC_1", Status: "open"}, nil
}

func (f *fakeExecutor) IssueRefund(ctx context.Context, tenantID string, in skills.IssueRefundInput) (skills.RefundResult, error) {
	f.record("issue_refund")
	return skills.RefundResult{RefundId: "REF_1", OrderId: in.OrderId, Amount: in.Amount, Status: "processed"}, nil
}

func (f *fakeExecutor) Escalate(ctx context.Context, tenantID string, in skills.EscalateInput) (skills.EscalateAck, error) {
	f.record("escalate")
	return skills.EscalateAck{Acknowledged: true, Reason: in.Reason}, nil
}

func toolCallMsg(calls ...schema.ToolCall) *schema.Message {
	return schema.AssistantMessage("", calls)
}

func toolCall(id string, name string, args string) schema.ToolCall {
	return schema.ToolCall{
		ID: id,
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: args,
		},
	}
}

func newLoop(t *testing.T, completer *fakeCompleter, exec skills.ToolExecutor, maxIterations int) *AssistLoop {
	t.Helper()
	loop, err := NewAssistLoop(completer, exec, maxIterations)
	require.NoError(t, err)
	return loop
}

func TestAssistAnswersWithoutTools(t *testing.T) {
	completer := &fakeCompleter{resps: []*schema.Message{
		schema.AssistantMessage("  Your invoice is available in the billing portal. ", nil),
	}}
	loop := newLoop(t, completer, &fakeExecutor{}, 5)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "where is my invoice?"})

	assert.Equal(t, AssistStateAnswered, res.State)
	assert.Equal(t, "Your invoice is available in the billing portal.", res.Answer)
	assert.False(t, res.NeedsEscalation)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
	assert.Empty(t, res.ToolInvocations)
}

func TestAssistToolRoundTrip(t *testing.T) {
	completer := &fakeCompleter{resps: []*schema.Message{
		toolCallMsg(
			toolCall("c1", "lookup_customer", `{"customer_id":"ct-1"}`),
			toolCall("c2", "search_knowledge", `{"query":"refund policy"}`),
		),
		schema.AssistantMessage("Maria, per our refund policy the amount is returned in 5 days.", nil),
	}}
	exec := &fakeExecutor{}
	loop := newLoop(t, completer, exec, 5)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "can I get a refund?"})

	assert.Equal(t, AssistStateAnswered, res.State)
	require.Len(t, res.ToolInvocations, 2)
	// 同批并发执行，结果按请求顺序返回
	assert.Equal(t, "lookup_customer", res.ToolInvocations[0].Tool)
	assert.Equal(t, "search_knowledge", res.ToolInvocations[1].Tool)
	for _, inv := range res.ToolInvocations {
		assert.Equal(t, "completed", inv.Status)
		assert.NotEmpty(t, inv.Output)
	}
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)
	assert.Equal(t, 2, completer.calls)
}

func TestAssistEscalation(t *testing.T) {
	completer := &fakeCompleter{resps: []*schema.Message{
		toolCallMsg(toolCall("c1", "escalate", `{"reason":"customer requested a human"}`)),
		schema.AssistantMessage("I've escalated this to a human agent who will follow up.", nil),
	}}
	loop := newLoop(t, completer, &fakeExecutor{}, 5)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "let me talk to a person"})

	assert.Equal(t, AssistStateEscalated, res.State)
	assert.True(t, res.NeedsEscalation)
	assert.NotEqual(t, fallbackAnswer, res.Answer)
}

func TestAssistIterationCap(t *testing.T) {
	// 模型永远要求调工具，循环必须在上限处收手
	completer := &fakeCompleter{resps: []*schema.Message{
		toolCallMsg(toolCall("c1", "lookup_order", `{"order_id":"ord-1"}`)),
	}}
	exec := &fakeExecutor{}
	loop := newLoop(t, completer, exec, 3)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "check my order"})

	assert.Equal(t, AssistStateExhausted, res.State)
	assert.Equal(t, fallbackAnswer, res.Answer)
	assert.True(t, res.NeedsEscalation)
	assert.Equal(t, 0.0, res.Confidence)
	assert.Equal(t, 3, completer.calls)
	assert.Len(t, res.ToolInvocations, 3)
}

func TestAssistCompleterFailureFallsBack(t *testing.T) {
	completer := &fakeCompleter{err: fmt.Errorf("upstream timeout")}
	loop := newLoop(t, completer, &fakeExecutor{}, 5)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "hello"})

	require.NotNil(t, res)
	assert.Equal(t, AssistStateExhausted, res.State)
	assert.Equal(t, fallbackAnswer, res.Answer)
	assert.True(t, res.NeedsEscalation)
}

func TestAssistToolFailureDoesNotAbortBatch(t *testing.T) {
	completer := &fakeCompleter{resps: []*schema.Message{
		toolCallMsg(
			toolCall("c1", "lookup_order", `{"order_id":"missing"}`),
			toolCall("c2", "lookup_customer", `{"customer_id":"ct-1"}`),
		),
		schema.AssistantMessage("I couldn't find that order, but I can see your account.", nil),
	}}
	exec := &fakeExecutor{orderErr: fmt.Errorf("order not found")}
	loop := newLoop(t, completer, exec, 5)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "where is order missing?"})

	assert.Equal(t, AssistStateAnswered, res.State)
	require.Len(t, res.ToolInvocations, 2)
	assert.Equal(t, "failed", res.ToolInvocations[0].Status)
	assert.Equal(t, "order not found", res.ToolInvocations[0].Error)
	assert.Equal(t, "completed", res.ToolInvocations[1].Status)
}

func TestAssistUnknownToolReportedAsFailure(t *testing.T) {
	completer := &fakeCompleter{resps: []*schema.Message{
		toolCallMsg(toolCall("c1", "delete_database", `{}`)),
		schema.AssistantMessage("Sorry, I can't do that.", nil),
	}}
	loop := newLoop(t, completer, &fakeExecutor{}, 5)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "drop everything"})

	require.Len(t, res.ToolInvocations, 1)
	assert.Equal(t, "failed", res.ToolInvocations[0].Status)
	assert.Contains(t, res.ToolInvocations[0].Error, "unknown skill")
}

func TestAssistEmptyMessage(t *testing.T) {
	loop := newLoop(t, &fakeCompleter{resps: []*schema.Message{schema.AssistantMessage("x", nil)}}, &fakeExecutor{}, 5)

	res := loop.Run(context.Background(), &AssistRequest{TenantID: "t1", Message: "   "})
	assert.Equal(t, AssistStateExhausted, res.State)
	assert.Equal(t, fallbackAnswer, res.Answer)

	res = loop.Run(context.Background(), nil)
	assert.Equal(t, AssistStateExhausted, res.State)
}

func TestAnswerConfidence(t *testing.T) {
	cases := map[int]float64{
		0: 0.7,
		1: 0.8,
		2: 0.8,
		3: 0.9,
		4: 0.9,
		5: 0.8,
	}
	for toolsUsed, want := range cases {
		assert.InDelta(t, want, answerConfidence(toolsUsed), 1e-9, "tools used: %d", toolsUsed)
	}
}
