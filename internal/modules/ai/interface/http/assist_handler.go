package http

import (
	"strings"

	aiRequest "DeskLink/internal/modules/ai/application/dto/request"
	"DeskLink/internal/modules/ai/application/service"
	"DeskLink/pkg/back"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AssistHandler 助手聊天 HTTP Handler
type AssistHandler struct {
	svc service.AssistService
}

func NewAssistHandler(svc service.AssistService) *AssistHandler {
	return &AssistHandler{svc: svc}
}

// Chat 处理一次助手聊天回合
//
// 路由: POST /assist/chat
// 鉴权: 需要JWT（从authed分组继承）
func (h *AssistHandler) Chat(c *gin.Context) {
	var req aiRequest.AssistChatRequest
	if err := c.BindJSON(&req); err != nil {
		zlog.Error("assist chat bind error", zap.Error(err))
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	if tenantID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}

	data, err := h.svc.Chat(c.Request.Context(), tenantID, req)
	if err != nil {
		zlog.Error("assist chat failed", zap.Error(err), zap.String("tenant_id", tenantID))
	}
	back.Result(c, data, err)
}
