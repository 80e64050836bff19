package persistence

import (
	"context"
	"errors"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/pkg/xerr"

	"gorm.io/gorm"
)

type teamRepositoryImpl struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) deskRepository.TeamRepository {
	return &teamRepositoryImpl{db: db}
}

func (r *teamRepositoryImpl) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Team, error) {
	var team deskEntity.Team
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *teamRepositoryImpl) ListByTenant(ctx context.Context, tenantID string) ([]deskEntity.Team, error) {
	var teams []deskEntity.Team
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepositoryImpl) ListMembers(ctx context.Context, teamUuid string) ([]deskEntity.TeamMember, error) {
	var members []deskEntity.TeamMember
	err := r.db.WithContext(ctx).Where("team_uuid = ?", teamUuid).Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
