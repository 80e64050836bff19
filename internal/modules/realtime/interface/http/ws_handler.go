package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	aiService "DeskLink/internal/modules/ai/application/service"
	deskService "DeskLink/internal/modules/desk/application/service"
	"DeskLink/internal/modules/realtime/application/dto/request"
	"DeskLink/internal/modules/realtime/application/dto/respond"
	realtimeService "DeskLink/internal/modules/realtime/application/service"
	"DeskLink/pkg/util/myjwt"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const readDeadline = 60 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WsHandler 实时网关。握手可带 token 也可连上后补 authenticate，
// 未认证连接保留但拒绝一切需要权限的事件。
type WsHandler struct {
	hub           *ws.Hub
	registry      realtimeService.RegistryService
	presence      realtimeService.PresenceService
	conversations deskService.ConversationService
	triage        aiService.TriageService
}

func NewWsHandler(
	hub *ws.Hub,
	registry realtimeService.RegistryService,
	presence realtimeService.PresenceService,
	conversations deskService.ConversationService,
	triage aiService.TriageService,
) *WsHandler {
	return &WsHandler{
		hub:           hub,
		registry:      registry,
		presence:      presence,
		conversations: conversations,
		triage:        triage,
	}
}

// Connect 处理 GET /wss?token= 升级。
// websocket 握手放不进 Authorization 头，token 走 URL 参数，
// 这条路由不挂 JWT 中间件，认证在这里处理。
func (h *WsHandler) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(conn)
	h.hub.Add(client)
	go client.WritePump()

	defer h.registry.OnDisconnect(client)

	// 握手带了 token 就地认证，失败不断开（允许补认证）
	if token := c.Query("token"); token != "" {
		h.authenticate(client, token)
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		client.Touch()
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		var env request.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		client.Touch()
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		h.dispatch(c.Request.Context(), client, env)
	}
}

func (h *WsHandler) dispatch(ctx context.Context, client *ws.Client, env request.Envelope) {
	if env.Event == request.EventAuthenticate {
		var data request.AuthenticateData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		h.authenticate(client, data.Token)
		return
	}

	ident, ok := client.Identity()
	if !ok {
		h.sendError(client, xerr.ErrUnauthorized)
		return
	}

	switch env.Event {
	case request.EventJoinConversation:
		var data request.ConversationData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if err := h.registry.JoinConversation(ctx, client, data.ConversationId); err != nil {
			h.sendError(client, err)
		}

	case request.EventLeaveConversation:
		var data request.ConversationData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if err := h.registry.LeaveConversation(client, data.ConversationId); err != nil {
			h.sendError(client, err)
		}

	case request.EventJoinTeam:
		var data request.TeamData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if err := h.registry.JoinTeam(ctx, client, data.TeamId); err != nil {
			h.sendError(client, err)
		}

	case request.EventLeaveTeam:
		var data request.TeamData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if err := h.registry.LeaveTeam(client, data.TeamId); err != nil {
			h.sendError(client, err)
		}

	case request.EventSendMessage:
		var data request.SendMessageData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if _, err := h.triage.HandleMessage(ctx, ident, data.ConversationId, data.Content); err != nil {
			h.sendError(client, err)
		}

	case request.EventTypingStart:
		var data request.TypingData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		h.presence.StartTyping(ident.TenantID, ident.UserID, data.ConversationId)

	case request.EventTypingStop:
		var data request.TypingData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		h.presence.StopTyping(ident.TenantID, ident.UserID, data.ConversationId)

	case request.EventAgentStatus:
		if ident.Role != myjwt.RoleAgent {
			h.sendError(client, xerr.ErrForbidden)
			return
		}
		var data request.AgentStatusData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		h.presence.SetStatus(ident.TenantID, ident.UserID, data.Status)

	case request.EventUpdateStatus:
		var data request.UpdateStatusData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if err := h.conversations.UpdateStatus(ctx, ident, data.ConversationId, data.Status); err != nil {
			h.sendError(client, err)
		}

	case request.EventAssign:
		var data request.AssignData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if err := h.conversations.Assign(ctx, ident, data.ConversationId, data.AgentId, data.TeamId); err != nil {
			h.sendError(client, err)
		}

	case request.EventUnassign:
		var data request.ConversationData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			h.sendError(client, xerr.ErrParam)
			return
		}
		if err := h.conversations.Unassign(ctx, ident, data.ConversationId); err != nil {
			h.sendError(client, err)
		}

	default:
		h.sendError(client, xerr.New(xerr.BadRequest, "unknown event: "+env.Event))
	}
}

func (h *WsHandler) authenticate(client *ws.Client, token string) {
	ident, err := h.registry.Authenticate(client, token)
	if err != nil {
		h.hub.Send(client, respond.EventAuthenticationError, respond.ErrorData{
			Code:    xerr.CodeOf(err),
			Message: "invalid token",
		})
		return
	}
	h.hub.Send(client, respond.EventAuthenticated, respond.AuthenticatedData{
		TenantId: ident.TenantID,
		UserId:   ident.UserID,
		Role:     ident.Role,
	})
}

func (h *WsHandler) sendError(client *ws.Client, err error) {
	code := xerr.CodeOf(err)
	message := "internal server error"
	if ce, ok := err.(*xerr.CodeError); ok {
		message = ce.Message
	}
	h.hub.Send(client, respond.EventError, respond.ErrorData{Code: code, Message: message})
}
