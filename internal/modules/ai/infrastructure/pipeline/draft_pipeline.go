package pipeline

import (
	"context"
	"fmt"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/internal/modules/ai/infrastructure/llm"
	"DeskLink/internal/modules/ai/infrastructure/skills"
	realtimeService "DeskLink/internal/modules/realtime/application/service"

	"github.com/cloudwego/eino/compose"
)

// DraftRequest 草稿 Pipeline 的输入
type DraftRequest struct {
	TenantID         string
	ConversationUuid string
	MessageUuid      string
	Content          string
}

// DraftResult 草稿 Pipeline 的输出
type DraftResult struct {
	Draft      *deskEntity.Draft
	KBGrounded int
	DurationMs int64
}

// DraftPipeline 回复草稿 Pipeline（基于 Eino compose.Graph）
//
// 前置条件：会话必须已有分类结果，没有按 MISSING_CLASSIFICATION
// 失败，Pipeline 不会替调用方补跑分类。
// 置信度不取模型自报，按输出形态启发式计算。
type DraftPipeline struct {
	store     *deskRepository.Store
	completer llm.Completer
	knowledge skills.KnowledgeSearcher

	historyLimit  int
	confidenceCap float64
	kbBoostMax    float64

	broadcaster realtimeService.Broadcaster

	r compose.Runnable[*DraftRequest, *DraftResult]
}

func NewDraftPipeline(
	store *deskRepository.Store,
	completer llm.Completer,
	knowledge skills.KnowledgeSearcher,
	broadcaster realtimeService.Broadcaster,
	historyLimit int,
	confidenceCap float64,
	kbBoostMax float64,
) (*DraftPipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if completer == nil {
		return nil, fmt.Errorf("completer is nil")
	}
	if broadcaster == nil {
		return nil, fmt.Errorf("broadcaster is nil")
	}
	if historyLimit <= 0 {
		historyLimit = 5
	}
	if confidenceCap <= 0 || confidenceCap > 1 {
		return nil, fmt.Errorf("draft confidence cap out of range: %f", confidenceCap)
	}
	if kbBoostMax < 0 {
		return nil, fmt.Errorf("kb boost max is negative: %f", kbBoostMax)
	}
	p := &DraftPipeline{
		store:         store,
		completer:     completer,
		knowledge:     knowledge,
		broadcaster:   broadcaster,
		historyLimit:  historyLimit,
		confidenceCap: confidenceCap,
		kbBoostMax:    kbBoostMax,
	}
	r, err := p.buildGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.r = r
	return p, nil
}

// GenerateDraft 生成一条回复草稿（封装 Eino Runnable.Invoke）
func (p *DraftPipeline) GenerateDraft(ctx context.Context, req *DraftRequest) (*DraftResult, error) {
	if req == nil {
		return nil, fmt.Errorf("draft request is nil")
	}
	return p.r.Invoke(ctx, req)
}
