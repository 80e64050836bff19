package repository

import (
	"context"

	"DeskLink/internal/modules/desk/domain/entity"
)

type ClassificationRepository interface {
	Save(ctx context.Context, cl *entity.Classification) error
	// GetLatestByConversation 最新分类按 created_at 取最近一条，
	// 旧记录不会被修改（分类只增不改）
	GetLatestByConversation(ctx context.Context, conversationUuid string) (*entity.Classification, error)
}
