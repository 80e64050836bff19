package entity

import (
	"time"
)

// 草稿状态，accepted/rejected/expired 为终态
const (
	DraftStatusPending  = "pending"
	DraftStatusAccepted = "accepted"
	DraftStatusRejected = "rejected"
	DraftStatusEdited   = "edited"
	DraftStatusExpired  = "expired"
)

// Draft AI 回复草稿表。创建后客服只会改 status 字段。
type Draft struct {
	Id               int64     `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid             string    `gorm:"column:uuid;uniqueIndex;type:char(40);not null;comment:草稿uuid"`
	TenantId         string    `gorm:"column:tenant_id;index;type:char(36);not null;comment:租户id"`
	ConversationUuid string    `gorm:"column:conversation_uuid;index;type:char(36);not null;comment:会话uuid"`
	MessageUuid      string    `gorm:"column:message_uuid;type:char(40);not null;comment:触发消息uuid"`
	Content          string    `gorm:"column:content;type:text;not null;comment:草稿内容"`
	Confidence       float64   `gorm:"column:confidence;not null;comment:置信度 0-1"`
	Reasoning        string    `gorm:"column:reasoning;type:text;comment:生成依据"`
	Status           string    `gorm:"column:status;type:varchar(16);not null;default:'pending';comment:草稿状态"`
	CreatedAt        time.Time `gorm:"column:created_at;not null;comment:创建时间"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null;comment:更新时间"`
}

func (Draft) TableName() string {
	return "draft"
}

// IsTerminalDraftStatus 终态后不允许再变更
func IsTerminalDraftStatus(status string) bool {
	return status == DraftStatusAccepted || status == DraftStatusRejected || status == DraftStatusExpired
}
