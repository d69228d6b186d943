package engine

import (
	"context"
	"time"

	"coinpilot/internal/model"
	"coinpilot/pkg/logger"
)

// Tick 处理一个策略的一次完整评估：
// 取价 -> 评估 -> 执行可执行信号，结果交给reducer落库。
// 阻塞的交易所调用全部派发到引擎自己的有界协程池，带独立超时。
func (e *Engine) Tick(ctx context.Context, s *model.StrategyState, now time.Time) *model.TickResult {
	res := &model.TickResult{
		StrategyID: s.Id,
		Symbol:     s.Symbol,
	}

	if !s.IsActive || !s.Status.Processable() {
		res.Err = ErrNotRunnable
		res.ErrMessage = ErrNotRunnable.Error()
		return res
	}

	// 凭证解析失败不是瞬时错误，策略进入error态并停用
	conn, err := e.resolver.Resolve(ctx, s.UserId, s.ExchangeId)
	if err != nil {
		res.Err = err
		res.ErrMessage = "exchange credentials unavailable: " + err.Error()
		res.NewStatus = model.StatusError
		return res
	}

	var price float64
	err = e.pool.Run(ctx, func() error {
		cctx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
		defer cancel()
		var perr error
		price, perr = conn.GetLastPrice(cctx, s.Symbol)
		return perr
	})
	if err != nil {
		// 取价失败是瞬时的：状态不变，last_checked_at照常推进形成退避
		res.Err = err
		res.ErrMessage = "price fetch failed: " + err.Error()
		return res
	}
	res.Price = price

	res.Signals = Evaluate(s, price, now)

	// 无持仓且配置了建仓金额：执行入场买入。
	// 过期信号压过一切，本轮已判过期就不能再开新仓
	if !s.Position.Exists() && s.MinInvestment > 0 &&
		!hasSignal(res.Signals, model.SignalExpired) &&
		(s.Status == model.StatusIdle || s.Status == model.StatusMonitoring) {
		var exec *model.Execution
		_ = e.pool.Run(ctx, func() error {
			cctx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
			defer cancel()
			exec = ExecuteEntryBuy(cctx, conn, s, price, now)
			return nil
		})
		if exec != nil {
			res.Executions = append(res.Executions, *exec)
		}
		return res
	}

	if !s.Position.Exists() {
		return res
	}

	for i := range res.Signals {
		sig := &res.Signals[i]
		if !sig.Type.Actionable() {
			continue
		}
		var exec *model.Execution
		err = e.pool.Run(ctx, func() error {
			cctx, cancel := context.WithTimeout(ctx, e.cfg.OrderTimeout)
			defer cancel()
			exec = ExecuteSignal(cctx, conn, s, sig, now)
			return nil
		})
		if err != nil {
			logger.Errorf("策略 %d 执行信号失败: %v", s.Id, err)
			continue
		}
		if exec != nil {
			res.Executions = append(res.Executions, *exec)
		}
	}
	return res
}
