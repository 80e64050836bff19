package entity

import (
	"time"
)

// 会话状态
const (
	ConversationStatusOpen     = "open"
	ConversationStatusPending  = "pending"
	ConversationStatusResolved = "resolved"
	ConversationStatusClosed   = "closed"
)

// Conversation 客服会话表
type Conversation struct {
	Id              int64     `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid            string    `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:会话uuid"`
	TenantId        string    `gorm:"column:tenant_id;index;type:char(36);not null;comment:租户id"`
	ContactId       string    `gorm:"column:contact_id;index;type:char(36);not null;comment:客户id"`
	Channel         string    `gorm:"column:channel;type:varchar(32);not null;default:'web';comment:来源渠道"`
	Subject         string    `gorm:"column:subject;type:varchar(255);comment:会话主题"`
	Status          string    `gorm:"column:status;type:varchar(16);not null;default:'open';comment:会话状态"`
	AssignedAgentId string    `gorm:"column:assigned_agent_id;index;type:char(36);comment:指派客服id"`
	AssignedTeamId  string    `gorm:"column:assigned_team_id;index;type:char(36);comment:指派团队id"`
	CreatedAt       time.Time `gorm:"column:created_at;not null;comment:创建时间"`
	UpdatedAt       time.Time `gorm:"column:updated_at;not null;comment:更新时间"`
}

func (Conversation) TableName() string {
	return "conversation"
}

// ConversationPatch 会话的部分更新，nil 字段不变
type ConversationPatch struct {
	Status          *string
	AssignedAgentId *string
	AssignedTeamId  *string
}
