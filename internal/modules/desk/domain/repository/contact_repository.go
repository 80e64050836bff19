package repository

import (
	"context"

	"DeskLink/internal/modules/desk/domain/entity"
)

type ContactRepository interface {
	GetByUuid(ctx context.Context, uuid string) (*entity.Contact, error)
}
