package engine

import (
	"context"
	"time"

	"coinpilot/internal/consts"
	"coinpilot/internal/model"
	"coinpilot/pkg/logger"
	"gorm.io/datatypes"
)

// 状态归并器：把TickResult折叠成只包含变化列的补丁。
// 补丁按 (user_id, id) 落库，永远不整行覆盖，用户并发改配置不会被冲掉。

// Reduce 纯折叠，不访问数据库
func Reduce(s *model.StrategyState, res *model.TickResult, now time.Time) *model.StrategyPatch {
	patch := &model.StrategyPatch{
		StrategyId: s.Id,
		UserId:     s.UserId,
		Columns:    make(map[string]interface{}),
	}

	// 无论成败都推进检查时间，失败的策略靠防抖退避而不是被连续重试
	patch.Columns["last_checked_at"] = now
	if res.Price > 0 {
		patch.Columns["last_price"] = res.Price
	}

	// 凭证/配置级错误：终态，停用
	if res.NewStatus == model.StatusError {
		patch.Columns["status"] = string(model.StatusError)
		patch.Columns["is_active"] = false
		patch.Columns["error_message"] = res.ErrMessage
		patch.Signals = res.Signals
		return patch
	}
	// 瞬时错误（取价失败等）：状态不动，只记录检查时间
	if res.Err != nil {
		return patch
	}

	pos := s.Position
	hadPosition := pos.Exists()
	lots := append([]model.Lot(nil), s.Lots...)

	var (
		positionChanged bool
		lotsChanged     bool
		sellHappened    bool
		stopLossHit     bool
		gradualAnchor   bool
		execCount       int
	)

	// 行情水位
	if hadPosition && res.Price > 0 {
		pos.CurrentPrice = res.Price
		if res.Price > pos.HighestPrice {
			pos.HighestPrice = res.Price
		}
		if pos.LowestPrice == 0 || res.Price < pos.LowestPrice {
			pos.LowestPrice = res.Price
		}
		positionChanged = true
	}

	for i := range res.Executions {
		exec := &res.Executions[i]
		switch exec.Action {
		case model.ActionBuy:
			// 加权均价折叠：entry*(qty) 始终等于累计成本
			newQty := pos.Quantity + exec.Amount
			if newQty > 0 {
				pos.EntryPrice = (pos.TotalCost + exec.Price*exec.Amount) / newQty
			}
			pos.TotalCost += exec.Price * exec.Amount
			pos.Quantity = newQty
			pos.CurrentPrice = exec.Price
			if pos.OpenedAt == nil {
				t := now
				pos.OpenedAt = &t
			}
			if exec.Price > pos.HighestPrice {
				pos.HighestPrice = exec.Price
			}
			if pos.LowestPrice == 0 || exec.Price < pos.LowestPrice {
				pos.LowestPrice = exec.Price
			}
			positionChanged = true
			execCount++

		case model.ActionSell:
			pos.Quantity -= exec.Amount
			if pos.Quantity < 0 {
				pos.Quantity = 0
			}
			patch.PnlUsdDelta += exec.PnlUsd
			positionChanged = true
			sellHappened = true
			execCount++
			switch exec.Reason {
			case string(model.SignalStopLoss):
				stopLossHit = true
			case string(model.SignalGradualSell), string(model.SignalTakeProfit):
				gradualAnchor = true
			}
			// 本次消费的档位标记为已执行，每档只标一次
			if exec.LotNo > 0 {
				for j := range lots {
					if lots[j].LotNo == exec.LotNo && !lots[j].Executed {
						t := now
						lots[j].Executed = true
						lots[j].ExecutedAt = &t
						lots[j].ExecutedPrice = exec.Price
						lotsChanged = true
						break
					}
				}
			}

		case model.ActionBuyFailed, model.ActionSellFailed:
			// 失败只进审计日志，不碰仓位
		}
	}

	positionCleared := false
	if hadPosition && sellHappened && pos.Quantity <= consts.QuantityEpsilon {
		positionCleared = true
		pos = model.Position{}
		positionChanged = true
	}

	unexecutedRemain := false
	for i := range lots {
		if !lots[i].Executed {
			unexecutedRemain = true
			break
		}
	}

	// 状态迁移，折叠完成后统一判定
	newStatus := s.Status
	switch {
	case hasSignal(res.Signals, model.SignalExpired):
		newStatus = model.StatusExpired
	case stopLossHit && positionCleared:
		newStatus = model.StatusStoppedOut
	// 分批策略还有未执行档位时即使仓位清零也不算完成
	case positionCleared && (!s.GradualSell || !unexecutedRemain):
		newStatus = model.StatusCompleted
	case sellHappened && s.GradualSell && unexecutedRemain:
		newStatus = model.StatusGradualSelling
	case pos.Exists():
		newStatus = model.StatusInPosition
	case s.Status == model.StatusIdle:
		newStatus = model.StatusMonitoring
	}
	if newStatus != s.Status {
		patch.Columns["status"] = string(newStatus)
		if newStatus.IsTerminal() {
			patch.Columns["is_active"] = false
		}
	}

	if sellHappened && gradualAnchor {
		patch.Columns["last_gradual_sell_at"] = now
	}
	if lotsChanged {
		if b, err := model.MarshalLots(lots); err == nil {
			patch.Columns["lots"] = datatypes.JSON(b)
		} else {
			logger.Errorf("策略 %d 序列化lots失败: %v", s.Id, err)
		}
	}
	if positionChanged {
		patch.Columns["position_entry_price"] = pos.EntryPrice
		patch.Columns["position_quantity"] = pos.Quantity
		patch.Columns["position_total_cost"] = pos.TotalCost
		patch.Columns["position_current_price"] = pos.CurrentPrice
		patch.Columns["position_highest_price"] = pos.HighestPrice
		patch.Columns["position_lowest_price"] = pos.LowestPrice
		patch.Columns["position_opened_at"] = pos.OpenedAt
	}
	if s.ErrorMessage != "" {
		patch.Columns["error_message"] = ""
	}

	patch.ExecutionsDelta = execCount
	patch.Executions = res.Executions
	patch.Signals = res.Signals
	return patch
}

func hasSignal(signals []model.Signal, t model.SignalType) bool {
	for i := range signals {
		if signals[i].Type == t {
			return true
		}
	}
	return false
}

// ReduceAndPersist 折叠并在一个事务里落库
func (e *Engine) ReduceAndPersist(ctx context.Context, s *model.StrategyState, res *model.TickResult, now time.Time) error {
	patch := Reduce(s, res, now)
	return e.dao.ApplyTickPatch(ctx, patch)
}
