package http

import (
	"strings"
	"time"

	"DeskLink/internal/modules/ai/application/service"
	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	"DeskLink/pkg/back"
	"DeskLink/pkg/util"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// KnowledgeHandler 知识库文章接入。向量层未配置时返回 503。
type KnowledgeHandler struct {
	knowledge service.KnowledgeService
}

func NewKnowledgeHandler(knowledge service.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge}
}

type ingestArticleRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category"`
}

// IngestArticle 文章切块、向量化并写入向量库
//
// 路由: POST /kb/articles
// 鉴权: 需要JWT
func (h *KnowledgeHandler) IngestArticle(c *gin.Context) {
	var req ingestArticleRequest
	if err := c.BindJSON(&req); err != nil {
		back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
		return
	}

	tenantID := strings.TrimSpace(c.GetString("tenant_id"))
	if tenantID == "" {
		back.Error(c, xerr.Unauthorized, "未登录")
		return
	}

	if h.knowledge == nil {
		back.Error(c, xerr.ServiceUnavailable, "knowledge base is not configured")
		return
	}

	article := &deskEntity.KnowledgeArticle{
		Uuid:      util.GenerateID("KBA"),
		TenantId:  tenantID,
		Title:     req.Title,
		Content:   req.Content,
		Category:  req.Category,
		CreatedAt: time.Now(),
	}
	if err := h.knowledge.IngestArticle(c.Request.Context(), article); err != nil {
		zlog.Error("article ingest failed",
			zap.String("article_uuid", article.Uuid), zap.Error(err))
		back.Result(c, nil, err)
		return
	}
	back.Result(c, article, nil)
}
