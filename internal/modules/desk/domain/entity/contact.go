package entity

import (
	"time"
)

// 客户等级
const (
	ContactTierStandard = "standard"
	ContactTierPremium  = "premium"
	ContactTierVip      = "vip"
)

// Contact 客户表
type Contact struct {
	Id        int64     `gorm:"column:id;primaryKey;comment:自增id"`
	Uuid      string    `gorm:"column:uuid;uniqueIndex;type:char(36);not null;comment:客户uuid"`
	TenantId  string    `gorm:"column:tenant_id;index;type:char(36);not null;comment:租户id"`
	Name      string    `gorm:"column:name;type:varchar(64);comment:客户名称"`
	Email     string    `gorm:"column:email;type:varchar(128);comment:邮箱"`
	Tier      string    `gorm:"column:tier;type:varchar(16);not null;default:'standard';comment:客户等级"`
	CreatedAt time.Time `gorm:"column:created_at;not null;comment:创建时间"`
}

func (Contact) TableName() string {
	return "contact"
}
