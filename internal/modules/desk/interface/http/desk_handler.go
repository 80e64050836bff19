package http

import (
	"strings"

	"DeskLink/internal/modules/desk/application/service"
	"DeskLink/pkg/back"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DeskHandler 草稿与团队可用性 HTTP Handler
type DeskHandler struct {
	drafts       service.DraftService
	availability service.AvailabilityService
}

func NewDeskHandler(drafts service.DraftService, availability service.AvailabilityService) *DeskHandler {
	return &DeskHandler{drafts: drafts, availability: availability}
}

type updateDraftStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateDraftStatus 客服处理 AI 草稿（采纳/拒绝/编辑后采纳）
//
// 路由: PATCH /desk/drafts/:uuid/status
// 鉴权: 需要JWT
func (h *DeskHandler) UpdateDraftStatus(c *gin.Context) {
	var req updateDraftStatusRequest
	if err := c.BindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	if tenantID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}

	data, err := h.drafts.UpdateStatus(c.Request.Context(), tenantID, c.Param("uuid"), req.Status)
	if err != nil {
		zlog.Warn("update draft status failed",
			zap.String("draft_uuid", c.Param("uuid")), zap.Error(err))
	}
	back.Result(c, data, err)
}

// TeamsAvailability 团队可用性快照（在线人数 + 利用率）
//
// 路由: GET /desk/teams/availability
// 鉴权: 需要JWT
func (h *DeskHandler) TeamsAvailability(c *gin.Context) {
	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	if tenantID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}

	data, err := h.availability.GetTeamsAvailability(c.Request.Context(), tenantID)
	back.Result(c, data, err)
}
