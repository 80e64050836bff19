package pipeline

import (
	"context"
	"fmt"
	"time"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/internal/modules/ai/infrastructure/llm"
	realtimeService "DeskLink/internal/modules/realtime/application/service"

	"github.com/cloudwego/eino/compose"
)

// ClassifyRequest 分类 Pipeline 的输入
type ClassifyRequest struct {
	TenantID         string
	ConversationUuid string
	MessageUuid      string
	Content          string
}

// ClassifyResult 分类 Pipeline 的输出
type ClassifyResult struct {
	Classification *deskEntity.Classification
	AutoAssigned   bool
	DurationMs     int64
}

// TeamAvailabilityProvider 团队可用性快照，由 desk 模块提供
type TeamAvailabilityProvider interface {
	GetTeamsAvailability(ctx context.Context, tenantID string) ([]deskEntity.TeamAvailability, error)
}

// AuditSink 分类与指派的审计出口，nil 表示不接审计
type AuditSink interface {
	ClassificationCreated(c *deskEntity.Classification)
	ConversationAssigned(tenantID, conversationUuid, agentID, teamID, source string)
}

// ClassifyPipeline 消息分类 Pipeline（基于 Eino compose.Graph）
//
// 节点顺序：LoadContext → BuildPrompt → ChatModel → ParseResult → Persist → Dispatch
// 置信门控与扇出是 Pipeline 语义的一部分：指派失败只记日志，
// 分类本身照常返回并广播。
type ClassifyPipeline struct {
	store        *deskRepository.Store
	completer    llm.Completer
	availability TeamAvailabilityProvider
	broadcaster  realtimeService.Broadcaster
	audit        AuditSink

	autoAssignThreshold float64

	r compose.Runnable[*ClassifyRequest, *ClassifyResult]
}

func NewClassifyPipeline(
	store *deskRepository.Store,
	completer llm.Completer,
	availability TeamAvailabilityProvider,
	broadcaster realtimeService.Broadcaster,
	audit AuditSink,
	autoAssignThreshold float64,
) (*ClassifyPipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster is nil")
	}
	if autoAssignThreshold <= 0 || autoAssignThreshold >= 1 {
		return nil, fmt.Errorf("auto assign threshold out of range: %f", autoAssignThreshold)
	}
	p := &ClassifyPipeline{
		store:               store,
		completer:           completer,
		availability:        availability,
		broadcaster:         broadcaster,
		audit:               audit,
		autoAssignThreshold: autoAssignThreshold,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// Classify 执行一次消息分类（封装 Eino Runnable.Invoke）
func (p *ClassifyPipeline) Classify(ctx context.Context, req *ClassifyRequest) (*ClassifyResult, error) {
	if req == nil {
		return nil, fmt.Errorf("classify request is nil")
	}
	return p.r.Invoke(ctx, req)
}

// businessHoursBucket 工作时段粗分桶，9-18 点工作日算 business_hours
func businessHoursBucket(t time.Time) string {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "after_hours"
	}
	if t.Hour() >= 9 && t.Hour() < 18 {
		return "business_hours"
	}
	return "after_hours"
}
