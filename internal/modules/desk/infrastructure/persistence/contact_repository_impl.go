package persistence

import (
	"context"
	"errors"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/pkg/xerr"

	"gorm.io/gorm"
)

type contactRepositoryImpl struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) deskRepository.ContactRepository {
	return &contactRepositoryImpl{db: db}
}

func (r *contactRepositoryImpl) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Contact, error) {
	var contact deskEntity.Contact
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrNotFound
		}
		return nil, err
	}
	return &contact, nil
}
