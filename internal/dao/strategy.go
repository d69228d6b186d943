package dao

import (
	"context"

	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
)

type StrategyDao interface {
	// 创建策略
	StrategyCreate(ctx context.Context, s *entity.Strategy) error
	// 按 (user_id, id) 获取
	StrategyGet(ctx context.Context, userId, id int64) (entity.Strategy, error)
	// 用户策略列表
	StrategyList(ctx context.Context, userId int64, req *model.StrategyListReq) ([]entity.Strategy, int64, error)
	// 配置更新，列级Updates
	StrategyUpdate(ctx context.Context, userId, id int64, columns map[string]interface{}) error
	// 删除策略及其信号、执行记录
	StrategyDelete(ctx context.Context, userId, id int64) error

	// 扫描器取所有可处理的活跃策略
	StrategyListRunnable(ctx context.Context) ([]entity.Strategy, error)

	// 应用一次tick产生的补丁：只更新变化的列，按 (user_id, id) 限定范围，
	// 统计列用表达式自增，追加执行与信号记录并裁剪信号到上限
	ApplyTickPatch(ctx context.Context, patch *model.StrategyPatch) error

	// 执行记录，按时间倒序分页
	ExecutionList(ctx context.Context, userId, strategyId int64, page, pageSize int) ([]entity.StrategyExecution, int64, error)
	// 信号记录，按时间倒序分页
	SignalList(ctx context.Context, userId, strategyId int64, page, pageSize int) ([]entity.StrategySignal, int64, error)
	// 执行统计聚合
	ExecutionStats(ctx context.Context, userId, strategyId int64) (model.StrategyStatsRes, error)
}
