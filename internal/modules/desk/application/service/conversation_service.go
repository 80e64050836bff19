package service

import (
	"context"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/internal/modules/realtime/application/dto/respond"
	realtimeService "DeskLink/internal/modules/realtime/application/service"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"
)

// ConversationService 会话状态与指派操作，变更后扇出通知
type ConversationService interface {
	UpdateStatus(ctx context.Context, ident ws.Identity, conversationID string, status string) error
	Assign(ctx context.Context, ident ws.Identity, conversationID string, agentID string, teamID string) error
	Unassign(ctx context.Context, ident ws.Identity, conversationID string) error
}

type conversationServiceImpl struct {
	convRepo    deskRepository.ConversationRepository
	broadcaster realtimeService.Broadcaster
}

func NewConversationService(convRepo deskRepository.ConversationRepository, broadcaster realtimeService.Broadcaster) ConversationService {
	return &conversationServiceImpl{convRepo: convRepo, broadcaster: broadcaster}
}

// loadOwned 按租户校验归属，跨租户访问一律 Forbidden
func (s *conversationServiceImpl) loadOwned(ctx context.Context, ident ws.Identity, conversationID string) (*deskEntity.Conversation, error) {
	conv, err := s.convRepo.GetByUuid(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.TenantId != ident.TenantID {
		return nil, xerr.ErrForbidden
	}
	return conv, nil
}

func (s *conversationServiceImpl) UpdateStatus(ctx context.Context, ident ws.Identity, conversationID string, status string) error {
	switch status {
	case deskEntity.ConversationStatusOpen, deskEntity.ConversationStatusPending,
		deskEntity.ConversationStatusResolved, deskEntity.ConversationStatusClosed:
	default:
		return xerr.ErrParam
	}

	if _, err := s.loadOwned(ctx, ident, conversationID); err != nil {
		return err
	}
	if err := s.convRepo.Update(ctx, conversationID, deskEntity.ConversationPatch{Status: &status}); err != nil {
		return err
	}

	s.broadcaster.PublishMulti(
		[]ws.Scope{ws.ConversationScope(conversationID), ws.TenantScope(ident.TenantID)},
		respond.EventConversationStatus,
		respond.StatusData{ConversationId: conversationID, Status: status},
	)
	return nil
}

func (s *conversationServiceImpl) Assign(ctx context.Context, ident ws.Identity, conversationID string, agentID string, teamID string) error {
	if agentID == "" && teamID == "" {
		return xerr.ErrParam
	}
	if _, err := s.loadOwned(ctx, ident, conversationID); err != nil {
		return err
	}

	patch := deskEntity.ConversationPatch{}
	if agentID != "" {
		patch.AssignedAgentId = &agentID
	}
	if teamID != "" {
		patch.AssignedTeamId = &teamID
	}
	if err := s.convRepo.Update(ctx, conversationID, patch); err != nil {
		return err
	}

	scopes := []ws.Scope{ws.ConversationScope(conversationID), ws.TenantScope(ident.TenantID)}
	if agentID != "" {
		scopes = append(scopes, ws.AgentScope(agentID))
	}
	s.broadcaster.PublishMulti(scopes, respond.EventConversationAssigned, respond.AssignmentData{
		ConversationId: conversationID,
		AgentId:        agentID,
		TeamId:         teamID,
	})
	return nil
}

func (s *conversationServiceImpl) Unassign(ctx context.Context, ident ws.Identity, conversationID string) error {
	conv, err := s.loadOwned(ctx, ident, conversationID)
	if err != nil {
		return err
	}

	empty := ""
	if err := s.convRepo.Update(ctx, conversationID, deskEntity.ConversationPatch{
		AssignedAgentId: &empty,
		AssignedTeamId:  &empty,
	}); err != nil {
		return err
	}

	scopes := []ws.Scope{ws.ConversationScope(conversationID), ws.TenantScope(ident.TenantID)}
	if conv.AssignedAgentId != "" {
		scopes = append(scopes, ws.AgentScope(conv.AssignedAgentId))
	}
	s.broadcaster.PublishMulti(scopes, respond.EventConversationUnassigned, respond.AssignmentData{
		ConversationId: conversationID,
	})
	return nil
}
