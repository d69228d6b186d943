package engine

import (
	"context"
	"time"

	"coinpilot/internal/consts"
	"coinpilot/internal/exchange"
	"coinpilot/internal/model"
	"coinpilot/pkg/logger"
	"github.com/google/uuid"
)

// 订单执行器：把可执行信号变成市价单，并把交易所回报归一化成执行记录

// sellQuantity 本次应卖出的数量。
// 止损和非分批止盈整仓卖出；分批按原始成交数量的百分比，
// 用原始数量而不是会缩水的当前数量，保证各档累计不超过100%。
func sellQuantity(s *model.StrategyState, sig *model.Signal) float64 {
	pos := &s.Position
	if sig.Type == model.SignalStopLoss || sig.SellPercent <= 0 {
		return pos.Quantity
	}
	want := pos.OriginalQuantity() * sig.SellPercent / 100
	if want > pos.Quantity {
		want = pos.Quantity
	}
	return want
}

// ExecuteSignal 对一个可执行信号下市价卖单。
// 成功时置 sig.Acted=true 并计算已实现盈亏；失败只留审计记录，信号保持未执行，
// 下一轮扫描会重新触发同样的信号形成自然重试。
func ExecuteSignal(ctx context.Context, conn exchange.Connector, s *model.StrategyState, sig *model.Signal, now time.Time) *model.Execution {
	qty := sellQuantity(s, sig)
	if qty <= consts.QuantityEpsilon {
		return nil
	}

	order, err := conn.PlaceMarketOrder(ctx, s.Symbol, exchange.SideSell, qty)
	if err != nil {
		logger.Errorf("策略 %d 卖出失败 symbol=%s qty=%f: %v", s.Id, s.Symbol, qty, err)
		return &model.Execution{
			Id:           uuid.NewString(),
			Action:       model.ActionSellFailed,
			Reason:       string(sig.Type),
			Price:        sig.Price,
			Amount:       qty,
			ErrorMessage: err.Error(),
			LotNo:        sig.LotNo,
			ExecutedAt:   now,
		}
	}

	sig.Acted = true
	fill := order.Filled
	if fill <= 0 {
		fill = qty
	}
	avg := order.AvgPrice
	if avg <= 0 {
		avg = sig.Price
	}
	pnl := (avg-s.Position.EntryPrice)*fill - order.Fee

	return &model.Execution{
		Id:              uuid.NewString(),
		Action:          model.ActionSell,
		Reason:          string(sig.Type),
		Price:           avg,
		Amount:          fill,
		Total:           order.Cost,
		Fee:             order.Fee,
		PnlUsd:          pnl,
		ExchangeOrderId: order.OrderID,
		LotNo:           sig.LotNo,
		ExecutedAt:      now,
	}
}

// ExecuteEntryBuy 为配置了建仓金额且尚无持仓的策略买入。
// 金额单位为计价币，折算成币数量下市价单。
func ExecuteEntryBuy(ctx context.Context, conn exchange.Connector, s *model.StrategyState, price float64, now time.Time) *model.Execution {
	if price <= 0 || s.MinInvestment <= 0 {
		return nil
	}
	qty := s.MinInvestment / price

	order, err := conn.PlaceMarketOrder(ctx, s.Symbol, exchange.SideBuy, qty)
	if err != nil {
		logger.Errorf("策略 %d 建仓失败 symbol=%s qty=%f: %v", s.Id, s.Symbol, qty, err)
		return &model.Execution{
			Id:           uuid.NewString(),
			Action:       model.ActionBuyFailed,
			Reason:       "entry",
			Price:        price,
			Amount:       qty,
			ErrorMessage: err.Error(),
			ExecutedAt:   now,
		}
	}

	fill := order.Filled
	if fill <= 0 {
		fill = qty
	}
	avg := order.AvgPrice
	if avg <= 0 {
		avg = price
	}
	total := order.Cost
	if total <= 0 {
		total = avg * fill
	}

	return &model.Execution{
		Id:              uuid.NewString(),
		Action:          model.ActionBuy,
		Reason:          "entry",
		Price:           avg,
		Amount:          fill,
		Total:           total,
		Fee:             order.Fee,
		ExchangeOrderId: order.OrderID,
		ExecutedAt:      now,
	}
}
