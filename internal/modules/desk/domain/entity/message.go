package entity

import (
	"time"
)

// 消息发送方类型
const (
	SenderKindContact = "contact"
	SenderKindAgent   = "agent"
	SenderKindSystem  = "system"
)

// Message 会话消息表
type Message struct {
	Id               int64     `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid             string    `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:消息uuid"`
	TenantId         string    `gorm:"column:tenant_id;index;type:char(36);not null;comment:租户id"`
	ConversationUuid string    `gorm:"column:conversation_uuid;index;type:char(36);not null;comment:会话uuid"`
	SenderKind       string    `gorm:"column:sender_kind;type:varchar(16);not null;comment:发送方：contact/agent/system"`
	SenderId         string    `gorm:"column:sender_id;type:char(36);comment:发送者id"`
	Content          string    `gorm:"column:content;type:text;not null;comment:消息内容"`
	CreatedAt        time.Time `gorm:"column:created_at;index;not null;comment:创建时间"`
}

func (Message) TableName() string {
	return "message"
}
