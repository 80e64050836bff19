package service

import (
	"context"
	"time"

	"DeskLink/internal/modules/ai/infrastructure/pipeline"
	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/internal/modules/realtime/application/dto/respond"
	realtimeService "DeskLink/internal/modules/realtime/application/service"
	"DeskLink/pkg/util"
	"DeskLink/pkg/util/myjwt"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"go.uber.org/zap"
)

// TriageService send_message 的完整处理链：落库 → 广播 →
// 分类 → 草稿。同一会话内各阶段的广播都在其持久化之后，
// 消息/分类/草稿的因果顺序对订阅方可见。
type TriageService interface {
	HandleMessage(ctx context.Context, ident ws.Identity, conversationID string, content string) (*deskEntity.Message, error)
}

type triageServiceImpl struct {
	store       *deskRepository.Store
	classify    *pipeline.ClassifyPipeline
	draft       *pipeline.DraftPipeline
	broadcaster realtimeService.Broadcaster
}

func NewTriageService(
	store *deskRepository.Store,
	classify *pipeline.ClassifyPipeline,
	draft *pipeline.DraftPipeline,
	broadcaster realtimeService.Broadcaster,
) TriageService {
	return &triageServiceImpl{
		store:       store,
		classify:    classify,
		draft:       draft,
		broadcaster: broadcaster,
	}
}

func (s *triageServiceImpl) HandleMessage(ctx context.Context, ident ws.Identity, conversationID string, content string) (*deskEntity.Message, error) {
	if conversationID == "" || content == "" {
		return nil, xerr.ErrParam
	}

	conv, err := s.store.Conversations.GetByUuid(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.TenantId != ident.TenantID {
		return nil, xerr.ErrForbidden
	}

	senderKind := deskEntity.SenderKindContact
	if ident.Role == myjwt.RoleAgent || ident.Role == myjwt.RoleAdmin {
		senderKind = deskEntity.SenderKindAgent
	}

	msg := &deskEntity.Message{
		Uuid:             util.GenerateMessageID(),
		TenantId:         ident.TenantID,
		ConversationUuid: conversationID,
		SenderKind:       senderKind,
		SenderId:         ident.UserID,
		Content:          content,
		CreatedAt:        time.Now(),
	}
	if err := s.store.Messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.broadcaster.PublishMulti(
		[]ws.Scope{ws.ConversationScope(conversationID), ws.TenantScope(ident.TenantID)},
		respond.EventNewMessage,
		respond.MessageData{
			Uuid:           msg.Uuid,
			ConversationId: msg.ConversationUuid,
			SenderKind:     msg.SenderKind,
			SenderId:       msg.SenderId,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt.Format(time.RFC3339),
		},
	)

	// 客服侧发言不触发 AI 链路
	if senderKind != deskEntity.SenderKindContact {
		return msg, nil
	}

	clRes, err := s.classify.Classify(ctx, &pipeline.ClassifyRequest{
		TenantID:         ident.TenantID,
		ConversationUuid: conversationID,
		MessageUuid:      msg.Uuid,
		Content:          content,
	})
	if err != nil {
		// 消息本身已送达，分类失败作为本次请求的错误上抛
		return msg, err
	}

	assignee := conv.AssignedAgentId
	if clRes.AutoAssigned {
		assignee = clRes.Classification.SuggestedAgentId
	}
	if assignee == "" {
		zlog.Info("draft skipped, conversation unassigned",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.Uuid))
		return msg, nil
	}

	if _, err := s.draft.GenerateDraft(ctx, &pipeline.DraftRequest{
		TenantID:         ident.TenantID,
		ConversationUuid: conversationID,
		MessageUuid:      msg.Uuid,
		Content:          content,
	}); err != nil {
		return msg, err
	}
	return msg, nil
}
