package repository

import (
	"context"

	"DeskLink/internal/modules/desk/domain/entity"
)

type DraftRepository interface {
	Save(ctx context.Context, d *entity.Draft) error
	GetByUuid(ctx context.Context, uuid string) (*entity.Draft, error)
	// UpdateStatus 终态（accepted/rejected/expired）之后拒绝再次变更
	UpdateStatus(ctx context.Context, uuid string, status string) error
}
