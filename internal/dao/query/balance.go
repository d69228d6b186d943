package query

import (
	"context"

	"coinpilot/internal/dao"
	"coinpilot/internal/model/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ dao.BalanceDao = (*balanceDao)(nil)

type balanceDao struct {
	ds *gorm.DB
}

func NewBalanceDao(ds *gorm.DB) *balanceDao {
	return &balanceDao{
		ds: ds,
	}
}

func (d *balanceDao) SnapshotUpsert(ctx context.Context, snap *entity.BalanceSnapshot) error {
	return d.ds.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_usd", "total_converted", "currency", "details", "created_at"}),
	}).Create(snap).Error
}

func (d *balanceDao) SnapshotExists(ctx context.Context, userId int64, date string) (bool, error) {
	var count int64
	err := d.ds.WithContext(ctx).Model(&entity.BalanceSnapshot{}).
		Where("user_id = ? AND date = ?", userId, date).
		Count(&count).Error
	return count > 0, err
}

func (d *balanceDao) SnapshotList(ctx context.Context, userId int64, limit int) ([]entity.BalanceSnapshot, error) {
	if limit <= 0 || limit > 365 {
		limit = 90
	}
	var list []entity.BalanceSnapshot
	err := d.ds.WithContext(ctx).Where("user_id = ?", userId).
		Order("date DESC").Limit(limit).Find(&list).Error
	return list, err
}
