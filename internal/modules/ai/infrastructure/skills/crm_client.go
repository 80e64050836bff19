package skills

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"DeskLink/pkg/util"
)

// CRMClient 订单/退款/工单走外部 CRM，这里只做透传
type CRMClient interface {
	GetOrder(ctx context.Context, tenantID string, orderID string) (OrderInfo, error)
	CreateRefund(ctx context.Context, tenantID string, orderID string, amount float64, reason string) (RefundResult, error)
	CreateTicket(ctx context.Context, tenantID string, subject string, description string, priority string) (TicketRef, error)
}

// memoryCRMClient 进程内 CRM 模拟，联调与测试用。
// 订单不存在时按 CRM 的语义返回 not found 错误而不是空结果。
type memoryCRMClient struct {
	mu      sync.RWMutex
	orders  map[string]OrderInfo
	refunds map[string]float64
}

func NewMemoryCRMClient() CRMClient {
	return &memoryCRMClient{
		orders:  make(map[string]OrderInfo),
		refunds: make(map[string]float64),
	}
}

// SeedOrder 预置订单数据
func (c *memoryCRMClient) SeedOrder(order OrderInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[order.OrderId] = order
}

func (c *memoryCRMClient) GetOrder(ctx context.Context, tenantID string, orderID string) (OrderInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	order, ok := c.orders[strings.TrimSpace(orderID)]
	if !ok {
		return OrderInfo{}, fmt.Errorf("order not found: %s", orderID)
	}
	return order, nil
}

func (c *memoryCRMClient) CreateRefund(ctx context.Context, tenantID string, orderID string, amount float64, reason string) (RefundResult, error) {
	if amount <= 0 {
		return RefundResult{}, fmt.Errorf("refund amount must be positive")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[strings.TrimSpace(orderID)]
	if !ok {
		return RefundResult{}, fmt.Errorf("order not found: %s", orderID)
	}
	refunded := c.refunds[order.OrderId]
	if refunded+amount > order.Amount {
		return RefundResult{}, fmt.Errorf("refund exceeds order amount: %.2f > %.2f", refunded+amount, order.Amount)
	}
	c.refunds[order.OrderId] = refunded + amount

	return RefundResult{
		RefundId: util.GenerateID("REF"),
		OrderId:  order.OrderId,
		Amount:   amount,
		Status:   "processed",
	}, nil
}

func (c *memoryCRMClient) CreateTicket(ctx context.Context, tenantID string, subject string, description string, priority string) (TicketRef, error) {
	if strings.TrimSpace(subject) == "" {
		return TicketRef{}, fmt.Errorf("ticket subject is required")
	}
	return TicketRef{
		TicketId: util.GenerateID("TIC"),
		Status:   "open",
	}, nil
}
