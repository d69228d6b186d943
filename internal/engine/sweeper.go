package engine

import (
	"context"
	"time"

	"coinpilot/internal/model"
	"coinpilot/pkg/logger"
)

// 后台扫描器：按固定周期枚举所有用户的活跃策略逐个tick。
// 真正的限频是每个策略自己的防抖间隔，扫描周期快慢不改变单策略调用频率。

// Start 启动后台循环，ctx取消后退出。
// 启动后先等一个预热窗口再立即跑第一轮。
func (e *Engine) Start(ctx context.Context) {
	go func() {
		if e.cfg.WarmupDelay > 0 {
			select {
			case <-time.After(e.cfg.WarmupDelay):
			case <-ctx.Done():
				return
			}
		}
		logger.Infof("strategy sweeper started, interval=%s", e.cfg.SweepInterval)
		e.RunOnce(ctx)

		ticker := time.NewTicker(e.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Infof("strategy sweeper stopped")
				return
			case <-ticker.C:
				e.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce 跑一轮完整扫描，手动触发和测试也走这里
func (e *Engine) RunOnce(ctx context.Context) model.SweepStatsRes {
	var stats model.SweepStatsRes
	now := time.Now()

	rows, err := e.dao.StrategyListRunnable(ctx)
	if err != nil {
		logger.Errorf("扫描策略列表失败: %v", err)
		stats.Errors++
		return stats
	}
	stats.Total = len(rows)

	for i := range rows {
		if ctx.Err() != nil {
			break
		}
		s, err := model.StateFromEntity(&rows[i])
		if err != nil {
			logger.Errorf("策略 %d 解析失败: %v", rows[i].Id, err)
			stats.Errors++
			continue
		}

		// 防抖：检查得太近的跳过
		if s.LastCheckedAt != nil && now.Sub(*s.LastCheckedAt) < e.debounceFor(s) {
			continue
		}

		e.sweepOne(ctx, s, &stats)

		// 策略之间留间隔，避免打爆交易所限频
		if i < len(rows)-1 {
			select {
			case <-time.After(e.cfg.StrategyDelay):
			case <-ctx.Done():
			}
		}
	}

	logger.Info("sweep pass done",
		logger.Pair("total", stats.Total),
		logger.Pair("processed", stats.Processed),
		logger.Pair("errors", stats.Errors),
		logger.Pair("signals", stats.SignalsGenerated),
		logger.Pair("orders", stats.OrdersExecuted))
	return stats
}

// sweepOne 单策略处理，panic只影响自己这一条
func (e *Engine) sweepOne(ctx context.Context, s *model.StrategyState, stats *model.SweepStatsRes) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("策略 %d tick panic: %v", s.Id, r)
			stats.Errors++
		}
	}()

	res, err := e.TickAndPersist(ctx, s)
	if err == ErrTickInProgress {
		return
	}
	stats.Processed++
	if err != nil || (res != nil && res.Err != nil) {
		stats.Errors++
	}
	if res != nil {
		stats.SignalsGenerated += len(res.Signals)
		for i := range res.Executions {
			switch res.Executions[i].Action {
			case model.ActionBuy, model.ActionSell:
				stats.OrdersExecuted++
			}
		}
	}
}

// TickAndPersist 带互斥的完整单策略处理，手动tick共用
func (e *Engine) TickAndPersist(ctx context.Context, s *model.StrategyState) (*model.TickResult, error) {
	if !e.tryLock(s.Id) {
		return nil, ErrTickInProgress
	}
	defer e.unlock(s.Id)

	now := time.Now()
	res := e.Tick(ctx, s, now)
	if res.Err == ErrNotRunnable {
		return res, ErrNotRunnable
	}
	if err := e.ReduceAndPersist(ctx, s, res, now); err != nil {
		// 落库失败本轮结果作废，last_checked_at没推进，下一轮自然重试
		logger.Errorf("策略 %d 落库失败: %v", s.Id, err)
		return res, err
	}
	return res, nil
}

// debounceFor 策略自己的检查间隔优先，否则用扫描周期
func (e *Engine) debounceFor(s *model.StrategyState) time.Duration {
	if s.CheckIntervalSec > 0 {
		return time.Duration(s.CheckIntervalSec) * time.Second
	}
	if e.cfg.DefaultIntervalSec > 0 {
		return time.Duration(e.cfg.DefaultIntervalSec) * time.Second
	}
	return e.cfg.SweepInterval
}
