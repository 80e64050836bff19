package repository

import (
	"context"

	"DeskLink/internal/modules/desk/domain/entity"
)

type ConversationRepository interface {
	GetByUuid(ctx context.Context, uuid string) (*entity.Conversation, error)
	Create(ctx context.Context, conv *entity.Conversation) error
	// Update 部分更新，patch 里的 nil 字段保持不变
	Update(ctx context.Context, uuid string, patch entity.ConversationPatch) error
}
