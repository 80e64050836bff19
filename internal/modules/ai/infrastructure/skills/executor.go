package skills

import (
	"context"
	"encoding/json"
	"fmt"
)

// 各技能的类型化入参
type LookupCustomerInput struct {
	CustomerId string `json:"customer_id"`
}

type LookupOrderInput struct {
	OrderId string `json:"order_id"`
}

type SearchKnowledgeInput struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type CreateTicketInput struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type IssueRefundInput struct {
	OrderId string  `json:"order_id"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason"`
}

type EscalateInput struct {
	Reason string `json:"reason"`
}

// 各技能的类型化出参，序列化后作为 tool 消息回给模型
type CustomerProfile struct {
	CustomerId string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Tier       string `json:"tier"`
}

type OrderInfo struct {
	OrderId string  `json:"order_id"`
	Status  string  `json:"status"`
	Amount  float64 `json:"amount"`
	Items   []string `json:"items"`
}

type KnowledgeHit struct {
	ArticleId string `json:"article_id"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet"`
}

type TicketRef struct {
	TicketId string `json:"ticket_id"`
	Status   string `json:"status"`
}

type RefundResult struct {
	RefundId string  `json:"refund_id"`
	OrderId  string  `json:"order_id"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

type EscalateAck struct {
	Acknowledged bool   `json:"acknowledged"`
	Reason       string `json:"reason"`
}

// ToolExecutor 每个技能一个方法，实参已解析为类型化结构
type ToolExecutor interface {
	LookupCustomer(ctx context.Context, tenantID string, in LookupCustomerInput) (CustomerProfile, error)
	LookupOrder(ctx context.Context, tenantID string, in LookupOrderInput) (OrderInfo, error)
	SearchKnowledge(ctx context.Context, tenantID string, in SearchKnowledgeInput) ([]KnowledgeHit, error)
	CreateTicket(ctx context.Context, tenantID string, in CreateTicketInput) (TicketRef, error)
	IssueRefund(ctx context.Context, tenantID string, in IssueRefundInput) (RefundResult, error)
	Escalate(ctx context.Context, tenantID string, in EscalateInput) (EscalateAck, error)
}

// Execute 按技能名分发一次调用。实参/结果都是 JSON 字符串，
// 未知技能和非法实参作为错误返回，由调用方决定如何回给模型。
func Execute(ctx context.Context, exec ToolExecutor, tenantID string, name string, argsJSON string) (string, error) {
	skill, ok := ParseSkill(name)
	if !ok {
		return "", fmt.Errorf("unknown skill: %s", name)
	}

	switch skill {
	case SkillLookupCustomer:
		var in LookupCustomerInput
		if err := json.Unmarshal([]byte(argsJSON), &in); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		out, err := exec.LookupCustomer(ctx, tenantID, in)
		if err != nil {
			return "", err
		}
		return marshalResult(out)

	case SkillLookupOrder:
		var in LookupOrderInput
		if err := json.Unmarshal([]byte(argsJSON), &in); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		out, err := exec.LookupOrder(ctx, tenantID, in)
		if err != nil {
			return "", err
		}
		return marshalResult(out)

	case SkillSearchKnowledge:
		var in SearchKnowledgeInput
		if err := json.Unmarshal([]byte(argsJSON), &in); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		out, err := exec.SearchKnowledge(ctx, tenantID, in)
		if err != nil {
			return "", err
		}
		return marshalResult(out)

	case SkillCreateTicket:
		var in CreateTicketInput
		if err := json.Unmarshal([]byte(argsJSON), &in); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		out, err := exec.CreateTicket(ctx, tenantID, in)
		if err != nil {
			return "", err
		}
		return marshalResult(out)

	case SkillIssueRefund:
		var in IssueRefundInput
		if err := json.Unmarshal([]byte(argsJSON), &in); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		out, err := exec.IssueRefund(ctx, tenantID, in)
		if err != nil {
			return "", err
		}
		return marshalResult(out)

	case SkillEscalate:
		var in EscalateInput
		if err := json.Unmarshal([]byte(argsJSON), &in); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
		out, err := exec.Escalate(ctx, tenantID, in)
		if err != nil {
			return "", err
		}
		return marshalResult(out)
	}

	return "", fmt.Errorf("unknown skill: %s", name)
}

func marshalResult(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
