package skills

import (
	"context"
	"fmt"
	"strings"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
)

const defaultKnowledgeTopK = 3

// KnowledgeSearcher 知识库检索，由 ai 模块的知识服务提供
type KnowledgeSearcher interface {
	Search(ctx context.Context, tenantID string, query string, topK int) ([]deskEntity.KnowledgeArticle, error)
}

type deskExecutor struct {
	contacts  deskRepository.ContactRepository
	knowledge KnowledgeSearcher
	crm       CRMClient
}

// NewDeskExecutor 本域数据走仓储，订单类操作透传 CRM
func NewDeskExecutor(contacts deskRepository.ContactRepository, knowledge KnowledgeSearcher, crm CRMClient) ToolExecutor {
	return &deskExecutor{contacts: contacts, knowledge: knowledge, crm: crm}
}

func (e *deskExecutor) LookupCustomer(ctx context.Context, tenantID string, in LookupCustomerInput) (CustomerProfile, error) {
	if strings.TrimSpace(in.CustomerId) == "" {
		return CustomerProfile{}, fmt.Errorf("customer_id is required")
	}

	contact, err := e.contacts.GetByUuid(ctx, in.CustomerId)
	if err != nil {
		return CustomerProfile{}, err
	}
	if contact.TenantId != tenantID {
		return CustomerProfile{}, fmt.Errorf("customer not found: %s", in.CustomerId)
	}

	return CustomerProfile{
		CustomerId: contact.Uuid,
		Name:       contact.Name,
		Email:      contact.Email,
		Tier:       contact.Tier,
	}, nil
}

func (e *deskExecutor) LookupOrder(ctx context.Context, tenantID string, in LookupOrderInput) (OrderInfo, error) {
	if strings.TrimSpace(in.OrderId) == "" {
		return OrderInfo{}, fmt.Errorf("order_id is required")
	}
	return e.crm.GetOrder(ctx, tenantID, in.OrderId)
}

func (e *deskExecutor) SearchKnowledge(ctx context.Context, tenantID string, in SearchKnowledgeInput) ([]KnowledgeHit, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("query is required")
	}
	topK := in.TopK
	if topK <= 0 {
		topK = defaultKnowledgeTopK
	}

	// 向量库未配置时返回空集，不算失败
	if e.knowledge == nil {
		return []KnowledgeHit{}, nil
	}

	articles, err := e.knowledge.Search(ctx, tenantID, in.Query, topK)
	if err != nil {
		return nil, err
	}

	hits := make([]KnowledgeHit, 0, len(articles))
	for _, a := range articles {
		hits = append(hits, KnowledgeHit{
			ArticleId: a.Uuid,
			Title:     a.Title,
			Snippet:   snippet(a.Content, 280),
		})
	}
	return hits, nil
}

func (e *deskExecutor) CreateTicket(ctx context.Context, tenantID string, in CreateTicketInput) (TicketRef, error) {
	priority := in.Priority
	switch priority {
	case deskEntity.PriorityLow, deskEntity.PriorityNormal, deskEntity.PriorityHigh, deskEntity.PriorityUrgent:
	default:
		priority = deskEntity.PriorityNormal
	}
	return e.crm.CreateTicket(ctx, tenantID, in.Subject, in.Description, priority)
}

func (e *deskExecutor) IssueRefund(ctx context.Context, tenantID string, in IssueRefundInput) (RefundResult, error) {
	if strings.TrimSpace(in.OrderId) == "" {
		return RefundResult{}, fmt.Errorf("order_id is required")
	}
	return e.crm.CreateRefund(ctx, tenantID, in.OrderId, in.Amount, in.Reason)
}

// Escalate 只确认转人工意图，真正的转接由上层根据返回的
// 调用记录处理，技能本身不产生副作用。
func (e *deskExecutor) Escalate(ctx context.Context, tenantID string, in EscalateInput) (EscalateAck, error) {
	return EscalateAck{Acknowledged: true, Reason: in.Reason}, nil
}

func snippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
