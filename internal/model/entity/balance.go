package entity

import (
	"coinpilot/utils"
	"gorm.io/datatypes"
)

// BalanceSnapshot 每日资产快照，(user_id, date)唯一，重复快照覆盖当日行
type BalanceSnapshot struct {
	Id             int64          `gorm:"column:id;primary_key;AUTO_INCREMENT" json:"id"`
	UserId         int64          `gorm:"column:user_id;uniqueIndex:uk_snap_user_date;not null" json:"user_id"`
	Date           string         `gorm:"column:date;uniqueIndex:uk_snap_user_date;not null" json:"date"` // UTC日期 2006-01-02
	TotalUsd       float64        `gorm:"column:total_usd" json:"total_usd"`
	TotalConverted float64        `gorm:"column:total_converted" json:"total_converted"`
	Currency       string         `gorm:"column:currency" json:"currency"`
	Details        datatypes.JSON `gorm:"column:details" json:"details"` // []model.SnapshotDetail
	CreatedAt      utils.JsonTime `gorm:"column:created_at" json:"created_at"`
}

func (BalanceSnapshot) TableName() string {
	return "balance_snapshot"
}
