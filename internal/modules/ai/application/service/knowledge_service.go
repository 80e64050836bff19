package service

import (
	"context"
	"fmt"
	"strings"

	"DeskLink/internal/modules/ai/infrastructure/vectordb"
	deskEntity "DeskLink/internal/modules/desk/domain/entity"
	"DeskLink/pkg/xerr"
	"DeskLink/pkg/zlog"

	"github.com/cloudwego/eino-ext/components/document/transformer/splitter/recursive"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

const (
	chunkSize    = 800
	chunkOverlap = 100
)

// KnowledgeService 知识库检索与写入。文章切块后向量化进 milvus，
// 检索按租户过滤。也作为 assist 技能和草稿加成的检索入口。
type KnowledgeService interface {
	IngestArticle(ctx context.Context, article *deskEntity.KnowledgeArticle) error
	Search(ctx context.Context, tenantID string, query string, topK int) ([]deskEntity.KnowledgeArticle, error)
}

type knowledgeServiceImpl struct {
	embedder  embedding.Embedder
	vs        *vectordb.MilvusStore
	splitter  document.Transformer
	vectorDim int
}

func NewKnowledgeService(ctx context.Context, embedder embedding.Embedder, vs *vectordb.MilvusStore, vectorDim int) (KnowledgeService, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if vs == nil {
		return nil, fmt.Errorf("vector store is nil")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vector dim: %d", vectorDim)
	}

	sp, err := recursive.NewSplitter(ctx, &recursive.Config{
		ChunkSize:   chunkSize,
		OverlapSize: chunkOverlap,
	})
	if err != nil {
		return nil, err
	}
	return &knowledgeServiceImpl{
		embedder:  embedder,
		vs:        vs,
		splitter:  sp,
		vectorDim: vectorDim,
	}, nil
}

func (s *knowledgeServiceImpl) IngestArticle(ctx context.Context, article *deskEntity.KnowledgeArticle) error {
	if article == nil || strings.TrimSpace(article.Content) == "" {
		return xerr.ErrParam
	}

	docs, err := s.splitter.Transform(ctx, []*schema.Document{{
		ID:      article.Uuid,
		Content: article.Content,
	}})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Content)
	}
	vecs, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		zlog.Error("knowledge embed failed",
			zap.String("article_uuid", article.Uuid), zap.Error(err))
		return xerr.ErrServiceUnavailable
	}
	if len(vecs) != len(docs) {
		return fmt.Errorf("embedding count mismatch: got=%d want=%d", len(vecs), len(docs))
	}

	items := make([]vectordb.ChunkItem, 0, len(docs))
	for i, d := range docs {
		vec, err := s.toFloat32(vecs[i])
		if err != nil {
			return err
		}
		items = append(items, vectordb.ChunkItem{
			ID:          fmt.Sprintf("%s#%d", article.Uuid, i),
			Vector:      vec,
			TenantID:    article.TenantId,
			ArticleUuid: article.Uuid,
			Title:       article.Title,
			Category:    article.Category,
			ChunkIndex:  int64(i),
			Content:     d.Content,
		})
	}

	// 覆盖写：先清旧切块再插新的，文章重建索引幂等
	if err := s.vs.DeleteByArticle(ctx, article.TenantId, article.Uuid); err != nil {
		zlog.Warn("knowledge delete old chunks failed",
			zap.String("article_uuid", article.Uuid), zap.Error(err))
	}
	if _, err := s.vs.Upsert(ctx, items); err != nil {
		return err
	}

	zlog.Info("knowledge article ingested",
		zap.String("article_uuid", article.Uuid),
		zap.String("tenant_id", article.TenantId),
		zap.Int("chunks", len(items)))
	return nil
}

func (s *knowledgeServiceImpl) Search(ctx context.Context, tenantID string, query string, topK int) ([]deskEntity.KnowledgeArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, xerr.ErrParam
	}

	vecs, err := s.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		zlog.Error("knowledge query embed failed", zap.Error(err))
		return nil, xerr.ErrServiceUnavailable
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedding result is empty")
	}
	vec, err := s.toFloat32(vecs[0])
	if err != nil {
		return nil, err
	}

	expr := fmt.Sprintf(`tenant_id == "%s"`, tenantID)
	hits, err := s.vs.Search(ctx, vec, topK, expr)
	if err != nil {
		return nil, err
	}

	// 同一篇文章命中多个切块只保留得分最高的那块
	best := make(map[string]vectordb.ChunkHit, len(hits))
	order := make([]string, 0, len(hits))
	for _, h := range hits {
		existing, ok := best[h.ArticleUuid]
		if !ok {
			best[h.ArticleUuid] = h
			order = append(order, h.ArticleUuid)
			continue
		}
		if h.Score > existing.Score {
			best[h.ArticleUuid] = h
		}
	}

	out := make([]deskEntity.KnowledgeArticle, 0, len(order))
	for _, uuid := range order {
		h := best[uuid]
		out = append(out, deskEntity.KnowledgeArticle{
			Uuid:     h.ArticleUuid,
			TenantId: h.TenantID,
			Title:    h.Title,
			Content:  h.Content,
			Category: h.Category,
		})
	}
	return out, nil
}

func (s *knowledgeServiceImpl) toFloat32(vec []float64) ([]float32, error) {
	if len(vec) != s.vectorDim {
		return nil, fmt.Errorf("embedding dim mismatch: got=%d want=%d", len(vec), s.vectorDim)
	}
	out := make([]float32, len(vec))
	for i := range vec {
		out[i] = float32(vec[i])
	}
	return out, nil
}
