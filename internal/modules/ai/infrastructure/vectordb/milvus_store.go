package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// ChunkItem 知识库文章切块，正文和元信息随向量一起落 milvus
type ChunkItem struct {
	ID          string
	Vector      []float32
	TenantID    string
	ArticleUuid string
	Title       string
	Category    string
	ChunkIndex  int64
	Content     string
}

type ChunkHit struct {
	ID          string
	Score       float32
	TenantID    string
	ArticleUuid string
	Title       string
	Category    string
	ChunkIndex  int64
	Content     string
}

type MilvusStore struct {
	cli         mclient.Client
	collection  string
	vectorField string
	metricType  entity.MetricType
	vectorDim   int
	searchParam entity.SearchParam
}

func NewMilvusStore(cli mclient.Client, collection string, vectorField string, vectorDim int, metricType entity.MetricType) (*MilvusStore, error) {
	if cli == nil {
		return nil, errors.New("milvus client is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection is empty")
	}
	if strings.TrimSpace(vectorField) == "" {
		return nil, errors.New("vectorField is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, err
	}
	return &MilvusStore{cli: cli, collection: collection, vectorField: vectorField, metricType: metricType, vectorDim: vectorDim, searchParam: sp}, nil
}

func (s *MilvusStore) Upsert(ctx context.Context, items []ChunkItem) ([]string, error) {
	if len(items) == 0 {
		return []string{}, nil
	}
	ids := make([]string, 0, len(items))
	vectors := make([][]float32, 0, len(items))
	tenantIDs := make([]string, 0, len(items))
	articleUuids := make([]string, 0, len(items))
	titles := make([]string, 0, len(items))
	categories := make([]string, 0, len(items))
	chunkIndexes := make([]int64, 0, len(items))
	contents := make([]string, 0, len(items))

	for _, it := range items {
		if it.ID == "" {
			return nil, errors.New("upsert item missing ID")
		}
		if len(it.Vector) != s.vectorDim {
			return nil, fmt.Errorf("vector dim mismatch for id=%s, got=%d want=%d", it.ID, len(it.Vector), s.vectorDim)
		}
		ids = append(ids, it.ID)
		vectors = append(vectors, it.Vector)
		tenantIDs = append(tenantIDs, it.TenantID)
		articleUuids = append(articleUuids, it.ArticleUuid)
		titles = append(titles, it.Title)
		categories = append(categories, it.Category)
		chunkIndexes = append(chunkIndexes, it.ChunkIndex)
		contents = append(contents, it.Content)
	}

	_, err := s.cli.Upsert(
		ctx,
		s.collection,
		"",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnFloatVector(s.vectorField, s.vectorDim, vectors),
		entity.NewColumnVarChar("tenant_id", tenantIDs),
		entity.NewColumnVarChar("article_uuid", articleUuids),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("category", categories),
		entity.NewColumnInt64("chunk_index", chunkIndexes),
		entity.NewColumnVarChar("content", contents),
	)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByArticle 重建索引前清掉文章的旧切块
func (s *MilvusStore) DeleteByArticle(ctx context.Context, tenantID string, articleUuid string) error {
	expr := fmt.Sprintf(`tenant_id == "%s" && article_uuid == "%s"`, tenantID, articleUuid)
	return s.cli.Delete(ctx, s.collection, "", expr)
}

// Search 过滤表达式由调用方构造，必须带 tenant_id 防止越权
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, expr string) ([]ChunkHit, error) {
	if len(vector) != s.vectorDim {
		return nil, fmt.Errorf("vector dim mismatch, got=%d want=%d", len(vector), s.vectorDim)
	}
	if topK <= 0 {
		topK = 3
	}
	res, err := s.cli.Search(
		ctx,
		s.collection,
		[]string{},
		expr,
		[]string{"tenant_id", "article_uuid", "title", "category", "chunk_index", "content"},
		[]entity.Vector{entity.FloatVector(vector)},
		s.vectorField,
		s.metricType,
		topK,
		s.searchParam,
	)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return []ChunkHit{}, nil
	}
	return parseSearchResult(res[0])
}

func parseSearchResult(sr mclient.SearchResult) ([]ChunkHit, error) {
	if sr.Err != nil {
		return nil, sr.Err
	}
	hits := make([]ChunkHit, 0, sr.ResultCount)

	idCol := sr.IDs
	tenantCol := columnByName(sr.Fields, "tenant_id")
	articleCol := columnByName(sr.Fields, "article_uuid")
	titleCol := columnByName(sr.Fields, "title")
	categoryCol := columnByName(sr.Fields, "category")
	chunkIndexCol := columnByName(sr.Fields, "chunk_index")
	contentCol := columnByName(sr.Fields, "content")

	for i := 0; i < sr.ResultCount; i++ {
		id, _ := idCol.GetAsString(i)
		score := float32(0)
		if i < len(sr.Scores) {
			score = sr.Scores[i]
		}

		h := ChunkHit{ID: id, Score: score}
		if tenantCol != nil {
			v, _ := tenantCol.GetAsString(i)
			h.TenantID = v
		}
		if articleCol != nil {
			v, _ := articleCol.GetAsString(i)
			h.ArticleUuid = v
		}
		if titleCol != nil {
			v, _ := titleCol.GetAsString(i)
			h.Title = v
		}
		if categoryCol != nil {
			v, _ := categoryCol.GetAsString(i)
			h.Category = v
		}
		if chunkIndexCol != nil {
			v, _ := chunkIndexCol.GetAsInt64(i)
			h.ChunkIndex = v
		}
		if contentCol != nil {
			v, _ := contentCol.GetAsString(i)
			h.Content = v
		}
		hits = append(hits, h)
	}

	return hits, nil
}

func columnByName(cols mclient.ResultSet, name string) entity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}
