package service

import (
	"context"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/pkg/xerr"
)

// DraftService 草稿状态流转。创建后客服只能改 status，
// 终态由仓储层拒绝二次变更。
type DraftService interface {
	UpdateStatus(ctx context.Context, tenantID string, draftUuid string, status string) (*deskEntity.Draft, error)
}

type draftServiceImpl struct {
	draftRepo deskRepository.DraftRepository
}

func NewDraftService(draftRepo deskRepository.DraftRepository) DraftService {
	return &draftServiceImpl{draftRepo: draftRepo}
}

func (s *draftServiceImpl) UpdateStatus(ctx context.Context, tenantID string, draftUuid string, status string) (*deskEntity.Draft, error) {
	switch status {
	case deskEntity.DraftStatusAccepted, deskEntity.DraftStatusRejected,
		deskEntity.DraftStatusEdited, deskEntity.DraftStatusExpired:
	default:
		return nil, xerr.ErrParam
	}

	d, err := s.draftRepo.GetByUuid(ctx, draftUuid)
	if err != nil {
		return nil, err
	}
	if d.TenantId != tenantID {
		return nil, xerr.ErrForbidden
	}

	if err := s.draftRepo.UpdateStatus(ctx, draftUuid, status); err != nil {
		return nil, err
	}
	d.Status = status
	return d, nil
}
