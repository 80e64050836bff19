package repository

import (
	"context"

	"DeskLink/internal/modules/desk/domain/entity"
)

type TeamRepository interface {
	GetByUuid(ctx context.Context, uuid string) (*entity.Team, error)
	ListByTenant(ctx context.Context, tenantID string) ([]entity.Team, error)
	ListMembers(ctx context.Context, teamUuid string) ([]entity.TeamMember, error)
}
