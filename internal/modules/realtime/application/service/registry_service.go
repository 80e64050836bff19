package service

import (
	"context"

	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	"DeskLink/pkg/util/myjwt"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"go.uber.org/zap"
)

// RegistryService 连接注册表：认证、Scope 加退、断线清理。
// 未认证连接保留（允许补认证），但拒绝一切需要权限的操作。
type RegistryService interface {
	// Authenticate 校验 token 并绑定身份。已认证连接重复认证会
	// 覆盖身份并重跑自动加入（支持 token 刷新，无需重连）。
	Authenticate(c *ws.Client, token string) (ws.Identity, error)
	JoinConversation(ctx context.Context, c *ws.Client, conversationID string) error
	LeaveConversation(c *ws.Client, conversationID string) error
	JoinTeam(ctx context.Context, c *ws.Client, teamID string) error
	LeaveTeam(c *ws.Client, teamID string) error
	OnDisconnect(c *ws.Client)
	// AgentConnectionCount 客服当前的认证连接数，在线判定的依据
	AgentConnectionCount(agentID string) int
}

type registryServiceImpl struct {
	hub      *ws.Hub
	presence PresenceService
	convRepo deskRepository.ConversationRepository
	teamRepo deskRepository.TeamRepository
}

func NewRegistryService(hub *ws.Hub, presence PresenceService, convRepo deskRepository.ConversationRepository, teamRepo deskRepository.TeamRepository) RegistryService {
	return &registryServiceImpl{
		hub:      hub,
		presence: presence,
		convRepo: convRepo,
		teamRepo: teamRepo,
	}
}

func (s *registryServiceImpl) Authenticate(c *ws.Client, token string) (ws.Identity, error) {
	claims, err := myjwt.ParseToken(token)
	if err != nil {
		return ws.Identity{}, xerr.ErrUnauthorized
	}

	// 重复认证：先退出旧身份的自动加入 Scope
	if old, ok := c.Identity(); ok {
		s.hub.Leave(c, ws.TenantScope(old.TenantID))
		if old.Role == myjwt.RoleAgent {
			s.hub.Leave(c, ws.AgentScope(old.UserID))
			s.presence.HandleAgentDisconnected(old.TenantID, old.UserID)
		}
	}

	ident := ws.Identity{
		TenantID: claims.TenantId,
		UserID:   claims.Uuid,
		Role:     claims.Role,
	}
	c.SetIdentity(ident)

	s.hub.Join(c, ws.TenantScope(ident.TenantID))
	if ident.Role == myjwt.RoleAgent {
		s.hub.Join(c, ws.AgentScope(ident.UserID))
		s.presence.HandleAgentConnected(ident.TenantID, ident.UserID)
	}

	zlog.Info("connection authenticated",
		zap.String("connection_id", c.ID()),
		zap.String("tenant_id", ident.TenantID),
		zap.String("user_id", ident.UserID),
		zap.String("role", ident.Role))
	return ident, nil
}

func (s *registryServiceImpl) JoinConversation(ctx context.Context, c *ws.Client, conversationID string) error {
	ident, ok := c.Identity()
	if !ok {
		return xerr.ErrUnauthorized
	}

	conv, err := s.convRepo.GetByUuid(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.TenantId != ident.TenantID {
		zlog.Warn("cross tenant conversation join rejected",
			zap.String("tenant_id", ident.TenantID),
			zap.String("conversation_id", conversationID))
		return xerr.ErrForbidden
	}

	s.hub.Join(c, ws.ConversationScope(conversationID))
	return nil
}

func (s *registryServiceImpl) LeaveConversation(c *ws.Client, conversationID string) error {
	if _, ok := c.Identity(); !ok {
		return xerr.ErrUnauthorized
	}
	s.hub.Leave(c, ws.ConversationScope(conversationID))
	return nil
}

func (s *registryServiceImpl) JoinTeam(ctx context.Context, c *ws.Client, teamID string) error {
	ident, ok := c.Identity()
	if !ok {
		return xerr.ErrUnauthorized
	}

	team, err := s.teamRepo.GetByUuid(ctx, teamID)
	if err != nil {
		return err
	}
	if team.TenantId != ident.TenantID {
		zlog.Warn("cross tenant team join rejected",
			zap.String("tenant_id", ident.TenantID),
			zap.String("team_id", teamID))
		return xerr.ErrForbidden
	}

	s.hub.Join(c, ws.TeamScope(teamID))
	return nil
}

func (s *registryServiceImpl) LeaveTeam(c *ws.Client, teamID string) error {
	if _, ok := c.Identity(); !ok {
		return xerr.ErrUnauthorized
	}
	s.hub.Leave(c, ws.TeamScope(teamID))
	return nil
}

func (s *registryServiceImpl) AgentConnectionCount(agentID string) int {
	return s.hub.CountInScope(ws.AgentScope(agentID))
}

// OnDisconnect 连接关闭（包括心跳超时的脏断线）统一走这里
func (s *registryServiceImpl) OnDisconnect(c *ws.Client) {
	ident, authed := c.Identity()
	s.hub.Remove(c)
	if authed && ident.Role == myjwt.RoleAgent {
		s.presence.HandleAgentDisconnected(ident.TenantID, ident.UserID)
	}
}
