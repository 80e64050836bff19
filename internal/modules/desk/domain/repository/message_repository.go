package repository

import (
	"context"

	"DeskLink/internal/modules/desk/domain/entity"
)

type MessageRepository interface {
	GetByUuid(ctx context.Context, uuid string) (*entity.Message, error)
	Create(ctx context.Context, msg *entity.Message) error
	// ListRecent 返回会话最近 limit 条消息，时间升序（旧的在前）
	ListRecent(ctx context.Context, conversationUuid string, limit int) ([]entity.Message, error)
}
