package entity

import (
	"time"
)

// KnowledgeArticle 知识库文章表，向量内容存 milvus，这里存原文与元信息
type KnowledgeArticle struct {
	Id        int64     `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid      string    `gorm:"column:uuid;uniqueIndex;type:char(40);not null;comment:文章uuid"`
	TenantId  string    `gorm:"column:tenant_id;index;type:char(36);not null;comment:租户id"`
	Title     string    `gorm:"column:title;type:varchar(255);not null;comment:标题"`
	Content   string    `gorm:"column:content;type:text;not null;comment:正文"`
	Category  string    `gorm:"column:category;type:varchar(32);comment:所属分类"`
	CreatedAt time.Time `gorm:"column:created_at;not null;comment:创建时间"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;comment:更新时间"`
}

func (KnowledgeArticle) TableName() string {
	return "knowledge_article"
}
