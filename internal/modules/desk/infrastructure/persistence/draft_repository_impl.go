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

type draftRepositoryImpl struct {
	db *gorm.DB
}

func NewDraftRepository(db *gorm.DB) deskRepository.DraftRepository {
	return &draftRepositoryImpl{db: db}
}

func (r *draftRepositoryImpl) Save(ctx context.Context, d *deskEntity.Draft) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *draftRepositoryImpl) GetByUuid(ctx context.Context, uuid string) (*deskEntity.Draft, error) {
	var d deskEntity.Draft
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *draftRepositoryImpl) UpdateStatus(ctx context.Context, uuid string, status string) error {
	d, err := r.GetByUuid(ctx, uuid)
	if err != nil {
		return err
	}
	if deskEntity.IsTerminalDraftStatus(d.Status) {
		return xerr.New(xerr.BadRequest, "draft status is terminal")
	}
	return r.db.WithContext(ctx).Model(&deskEntity.Draft{}).
		Where("uuid = ?", uuid).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}
