package persistence

import (
	"context"
	"errors"
	"time"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/pkg/xerr"

	"gorm.io/gorm"
)

type conversationRepositoryImpl struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) deskRepository.ConversationRepository {
	return &conversationRepositoryImpl{db: db}
}

func (r *conversationRepositoryImpl) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Conversation, error) {
	var conv deskEntity.Conversation
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (r *conversationRepositoryImpl) Create(ctx context.Context, conv *deskEntity.Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

func (r *conversationRepositoryImpl) Update(ctx context.Context, uuid string, patch deskEntity.ConversationPatch) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.AssignedAgentId != nil {
		updates["assigned_agent_id"] = *patch.AssignedAgentId
	}
	if patch.AssignedTeamId != nil {
		updates["assigned_team_id"] = *patch.AssignedTeamId
	}

	res := r.db.WithContext(ctx).Model(&deskEntity.Conversation{}).Where("uuid = ?", uuid).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return xerr.ErrNotFound
	}
	return nil
}
