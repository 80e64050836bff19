package persistence

import (
	"context"
	"errors"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/pkg/xerr"

	"gorm.io/gorm"
)

type messageRepositoryImpl struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) deskRepository.MessageRepository {
	return &messageRepositoryImpl{db: db}
}

func (r *messageRepositoryImpl) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Message, error) {
	var msg deskEntity.Message
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepositoryImpl) Create(ctx context.Context, msg *deskEntity.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepositoryImpl) ListRecent(ctx context.Context, conversationUuid string, limit int) ([]deskEntity.Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []deskEntity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_uuid = ?", conversationUuid).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// 倒序查出最近 N 条后翻转为时间升序
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
