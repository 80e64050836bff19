package persistence

import (
	"context"
	"errors"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/pkg/xerr"

	"gorm.io/gorm"
)

type classificationRepositoryImpl struct {
	db *gorm.DB
}

func NewClassificationRepository(db *gorm.DB) deskRepository.ClassificationRepository {
	return &classificationRepositoryImpl{db: db}
}

func (r *classificationRepositoryImpl) Save(ctx context.Context, cl *deskEntity.Classification) error {
	return r.db.WithContext(ctx).Create(cl).Error
}

func (r *classificationRepositoryImpl) GetLatestByConversation(ctx context.Context, conversationUuid string) (*deskEntity.Classification, error) {
	var cl deskEntity.Classification
	err := r.db.WithContext(ctx).
		Where("conversation_uuid = ?", conversationUuid).
		Order("created_at DESC").
		First(&cl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrNotFound
		}
		return nil, err
	}
	return &cl, nil
}
