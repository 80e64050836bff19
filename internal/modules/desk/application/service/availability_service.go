package service

import (
	"context"
	"math"

	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
)

// OnlineChecker 在线判定，由 presence 服务提供
type OnlineChecker interface {
	IsOnline(agentID string) bool
}

// AvailabilityService 团队可用性快照：在线人数 + 利用率（0-100）
type AvailabilityService interface {
	GetTeamsAvailability(ctx context.Context, tenantID string) ([]deskEntity.TeamAvailability, error)
}

type availabilityServiceImpl struct {
	teamRepo deskRepository.TeamRepository
	online   OnlineChecker
}

func NewAvailabilityService(teamRepo deskRepository.TeamRepository, online OnlineChecker) AvailabilityService {
	return &availabilityServiceImpl{teamRepo: teamRepo, online: online}
}

func (s *availabilityServiceImpl) GetTeamsAvailability(ctx context.Context, tenantID string) ([]deskEntity.TeamAvailability, error) {
	teams, err := s.teamRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]deskEntity.TeamAvailability, 0, len(teams))
	for _, team := range teams {
		members, err := s.teamRepo.ListMembers(ctx, team.Uuid)
		if err != nil {
			return nil, err
		}

		onlineCount := 0
		totalLoad := 0
		totalCapacity := 0
		for _, m := range members {
			if s.online != nil && s.online.IsOnline(m.AgentId) {
				onlineCount++
			}
			totalLoad += m.CurrentLoad
			totalCapacity += m.MaxCapacity
		}

		utilization := 0
		if totalCapacity > 0 {
			utilization = int(math.Round(float64(totalLoad) / float64(totalCapacity) * 100))
		}

		out = append(out, deskEntity.TeamAvailability{
			TeamId:         team.Uuid,
			Name:           team.Name,
			OnlineAgents:   onlineCount,
			UtilizationPct: utilization,
		})
	}
	return out, nil
}
