package engine

import (
	"fmt"
	"time"

	"coinpilot/internal/model"
)

// 信号评估器：纯函数，不做任何I/O，同样的输入永远给出同样的信号

const defaultLotStep = 0.5

// lotTriggerPercent 第idx档（0起）的触发涨幅，档位越靠后触发价越高
func lotTriggerPercent(s *model.StrategyState, idx int) float64 {
	step := s.LotStepPercent
	if step <= 0 {
		step = defaultLotStep
	}
	return s.TriggerPercent * (1 + float64(idx)*step)
}

// lotTriggerPrice 第idx档对应的触发价，只用于信号文案
func lotTriggerPrice(s *model.StrategyState, entry float64, idx int) float64 {
	return entry * (1 + lotTriggerPercent(s, idx)/100)
}

// Evaluate 根据当前价格产出信号。
// 无持仓时参考价为base_price，有持仓时为加权均价entry_price。
// 优先级：过期 > 止损 > 止盈/分批 > Info。
func Evaluate(s *model.StrategyState, price float64, now time.Time) []model.Signal {
	// 过期判定压过一切，有无持仓都适用
	if s.MaxRuntimeMin > 0 {
		anchor := s.CreatedAt
		if s.Position.Exists() && s.Position.OpenedAt != nil {
			anchor = *s.Position.OpenedAt
		}
		if now.Sub(anchor) > time.Duration(s.MaxRuntimeMin)*time.Minute {
			return []model.Signal{{
				Type:    model.SignalExpired,
				Price:   price,
				Message: fmt.Sprintf("max runtime %d min exceeded", s.MaxRuntimeMin),
			}}
		}
	}

	// 阈值比较一律放在涨跌幅上而不是换算后的价格上：
	// base=100、trigger=10% 时 100*1.1 的浮点结果略大于110，价格比较会漏掉正好110的tick
	if !s.Position.Exists() {
		ref := s.BasePrice
		trigger := ref * (1 + s.TriggerPercent/100)
		stop := ref * (1 - s.StopLossPercent/100)
		change := percentChange(ref, price)
		if change >= s.TriggerPercent {
			return []model.Signal{{
				Type:               model.SignalTakeProfit,
				Price:              price,
				Message:            fmt.Sprintf("price %.4f reached trigger %.4f", price, trigger),
				PriceChangePercent: change,
			}}
		}
		return []model.Signal{{
			Type:  model.SignalInfo,
			Price: price,
			Message: fmt.Sprintf("monitoring: price %.4f, trigger %.4f (%+.2f%% away), stop %.4f",
				price, trigger, percentChange(price, trigger), stop),
			PriceChangePercent: change,
		}}
	}

	entry := s.Position.EntryPrice
	change := percentChange(entry, price)

	// 止损永远优先，整仓离场
	if s.StopLossPercent > 0 {
		stop := entry * (1 - s.StopLossPercent/100)
		if change <= -s.StopLossPercent {
			return []model.Signal{{
				Type:               model.SignalStopLoss,
				Price:              price,
				Message:            fmt.Sprintf("price %.4f hit stop %.4f", price, stop),
				PriceChangePercent: change,
			}}
		}
	}

	if s.GradualSell {
		// 冷却窗口内只观察不动手
		if s.LastGradualSellAt != nil && s.GradualCooldownMin > 0 {
			cooldown := time.Duration(s.GradualCooldownMin) * time.Minute
			if elapsed := now.Sub(*s.LastGradualSellAt); elapsed < cooldown {
				return []model.Signal{{
					Type:  model.SignalInfo,
					Price: price,
					Message: fmt.Sprintf("cooldown: %.0fs left before next lot",
						(cooldown - elapsed).Seconds()),
					PriceChangePercent: change,
				}}
			}
		}

		lot := s.NextLot()
		if lot == nil {
			// 所有档位卖完，剩余仓位整体止盈
			return []model.Signal{{
				Type:               model.SignalTakeProfit,
				Price:              price,
				Message:            "all lots executed, closing remainder",
				PriceChangePercent: change,
			}}
		}
		idx := s.LotIndex(lot.LotNo)
		trigger := lotTriggerPrice(s, entry, idx)
		if change >= lotTriggerPercent(s, idx) {
			return []model.Signal{{
				Type:               model.SignalGradualSell,
				Price:              price,
				Message:            fmt.Sprintf("lot %d trigger %.4f reached", lot.LotNo, trigger),
				LotNo:              lot.LotNo,
				SellPercent:        lot.SellPercent,
				PriceChangePercent: change,
			}}
		}
		return []model.Signal{{
			Type:  model.SignalInfo,
			Price: price,
			Message: fmt.Sprintf("holding: price %.4f, lot %d trigger %.4f",
				price, lot.LotNo, trigger),
			PriceChangePercent: change,
		}}
	}

	trigger := entry * (1 + s.TriggerPercent/100)
	if change >= s.TriggerPercent {
		return []model.Signal{{
			Type:               model.SignalTakeProfit,
			Price:              price,
			Message:            fmt.Sprintf("price %.4f reached trigger %.4f", price, trigger),
			PriceChangePercent: change,
		}}
	}
	return []model.Signal{{
		Type:               model.SignalInfo,
		Price:              price,
		Message:            fmt.Sprintf("holding: price %.4f, trigger %.4f, entry %.4f", price, trigger, entry),
		PriceChangePercent: change,
	}}
}

func percentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
