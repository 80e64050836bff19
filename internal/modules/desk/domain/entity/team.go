package entity

import (
	"time"
)

// Team 客服团队表
type Team struct {
	Id        int64     `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid      string    `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:团队uuid"`
	TenantId  string    `gorm:"column:tenant_id;index;type:char(36);not null;comment:租户id"`
	Name      string    `gorm:"column:name;type:varchar(64);not null;comment:团队名称"`
	CreatedAt time.Time `gorm:"column:created_at;not null;comment:创建时间"`
}

func (Team) TableName() string {
	return "team"
}

// TeamMember 团队成员表，负载与容量用于利用率快照
type TeamMember struct {
	Id          int64  `gorm:"column:id;primaryKey;comment:自增id"`
	TeamUuid    string `gorm:"column:team_uuid;index;type:char(36);not null;comment:团队uuid"`
	AgentId     string `gorm:"column:agent_id;index;type:char(36);not null;comment:客服id"`
	CurrentLoad int    `gorm:"column:current_load;not null;default:0;comment:当前接待会话数"`
	MaxCapacity int    `gorm:"column:max_capacity;not null;default:5;comment:最大接待容量"`
}

func (TeamMember) TableName() string {
	return "team_member"
}

// TeamAvailability 按团队聚合的在线人数与利用率快照（0-100）
type TeamAvailability struct {
	TeamId         string `json:"team_id"`
	Name           string `json:"name"`
	OnlineAgents   int    `json:"online_agents"`
	UtilizationPct int    `json:"utilization_pct"`
}
