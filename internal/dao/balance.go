package dao

import (
	"context"

	"coinpilot/internal/model/entity"
)

type BalanceDao interface {
	// 保存快照，同一(user_id, date)覆盖写
	SnapshotUpsert(ctx context.Context, snap *entity.BalanceSnapshot) error
	// 当日是否已有快照，调度器用来跳过已处理用户
	SnapshotExists(ctx context.Context, userId int64, date string) (bool, error)
	// 用户快照列表，时间倒序
	SnapshotList(ctx context.Context, userId int64, limit int) ([]entity.BalanceSnapshot, error)
}
