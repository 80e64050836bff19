package entity

import (
	"time"
)

// 分类枚举。模型输出的未知取值会被归并到这里的缺省值，
// 缺失必填字段则整次调用判定为解析失败。
const (
	CategoryGeneral   = "general"
	CategoryBilling   = "billing"
	CategoryTechnical = "technical"
	CategoryAccount   = "account"
	CategoryComplaint = "complaint"

	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"

	LanguageUnknown = "unknown"
)

// Classification 消息分类结果表。只增不改，同一会话的最新分类
// 以 created_at 取最近一条。
type Classification struct {
	Id               int64     `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid             string    `gorm:"column:uuid;uniqueIndex;type:char(40);not null;comment:分类uuid"`
	TenantId         string    `gorm:"column:tenant_id;index;type:char(36);not null;comment:租户id"`
	ConversationUuid string    `gorm:"column:conversation_uuid;index;type:char(36);not null;comment:会话uuid"`
	MessageUuid      string    `gorm:"column:message_uuid;index;type:char(40);not null;comment:触发消息uuid"`
	Category         string    `gorm:"column:category;type:varchar(32);not null;comment:分类"`
	Priority         string    `gorm:"column:priority;type:varchar(16);not null;comment:优先级"`
	Sentiment        string    `gorm:"column:sentiment;type:varchar(16);not null;comment:情绪"`
	Language         string    `gorm:"column:language;type:varchar(16);not null;comment:语言"`
	Confidence       float64   `gorm:"column:confidence;not null;comment:置信度 0-1"`
	Reasoning        string    `gorm:"column:reasoning;type:text;comment:模型理由"`
	SuggestedTeamId  string    `gorm:"column:suggested_team_id;type:char(36);comment:建议团队id"`
	SuggestedAgentId string    `gorm:"column:suggested_agent_id;type:char(36);comment:建议客服id"`
	CreatedAt        time.Time `gorm:"column:created_at;index;not null;comment:创建时间"`
}

func (Classification) TableName() string {
	return "classification"
}
