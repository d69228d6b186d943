package engine

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"coinpilot/internal/exchange"
	"coinpilot/internal/model"
)

// 固定价格和手续费的桩连接器，便于断言精确数值
type orderConnector struct {
	price      float64
	fee        float64
	priceErr   error
	orderErr   error
	priceCalls int32
	orderCalls int32
}

func (c *orderConnector) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	atomic.AddInt32(&c.priceCalls, 1)
	if c.priceErr != nil {
		return 0, c.priceErr
	}
	return c.price, nil
}

func (c *orderConnector) PlaceMarketOrder(ctx context.Context, symbol string, side exchange.Side, quantity float64) (*model.OrderResult, error) {
	atomic.AddInt32(&c.orderCalls, 1)
	if c.orderErr != nil {
		return nil, c.orderErr
	}
	return &model.OrderResult{
		OrderID:  "stub-order",
		Status:   "filled",
		Filled:   quantity,
		AvgPrice: c.price,
		Cost:     c.price * quantity,
		Fee:      c.fee,
	}, nil
}

func (c *orderConnector) GetBalances(ctx context.Context) (map[string]model.AssetBalance, error) {
	return map[string]model.AssetBalance{}, nil
}

func TestExecuteSignalRealizedPnl(t *testing.T) {
	// entry=100 qty=10 成交价110 手续费1 => pnl = (110-100)*10 - 1 = 99
	conn := &orderConnector{price: 110, fee: 1}
	s := positionStrategy()
	sig := &model.Signal{Type: model.SignalTakeProfit, Price: 110}

	exec := ExecuteSignal(context.Background(), conn, s, sig, time.Now())
	if exec == nil {
		t.Fatal("应产生执行记录")
	}
	if exec.Action != model.ActionSell {
		t.Fatalf("got %s, want sell", exec.Action)
	}
	if math.Abs(exec.PnlUsd-99) > 1e-9 {
		t.Errorf("pnl got %f, want 99", exec.PnlUsd)
	}
	if !sig.Acted {
		t.Error("成功执行后信号必须标记acted")
	}
	if exec.Amount != 10 {
		t.Errorf("整仓止盈应卖出全部10, got %f", exec.Amount)
	}
}

func TestExecuteSignalFailureLeavesSignalUnacted(t *testing.T) {
	conn := &orderConnector{price: 110, fee: 1, orderErr: errors.New("exchange down")}
	s := positionStrategy()
	sig := &model.Signal{Type: model.SignalTakeProfit, Price: 110}

	exec := ExecuteSignal(context.Background(), conn, s, sig, time.Now())
	if exec == nil {
		t.Fatal("失败也要有审计记录")
	}
	if exec.Action != model.ActionSellFailed {
		t.Errorf("got %s, want sell_failed", exec.Action)
	}
	if sig.Acted {
		t.Error("失败时信号不能标记acted")
	}
	if exec.ErrorMessage == "" {
		t.Error("失败记录应携带错误信息")
	}
}

func TestExecuteSignalLotQuantityUsesOriginalBasis(t *testing.T) {
	// 2档各50%，原始数量10。第一档卖5，剩5；第二档目标还是 10*50%=5，正好清仓
	s := positionStrategy()
	s.GradualSell = true

	sig := &model.Signal{Type: model.SignalGradualSell, LotNo: 1, SellPercent: 50, Price: 110}
	if got := sellQuantity(s, sig); got != 5 {
		t.Fatalf("第一档应卖5, got %f", got)
	}

	s.Position.Quantity = 5 // 第一档成交后
	sig2 := &model.Signal{Type: model.SignalGradualSell, LotNo: 2, SellPercent: 50, Price: 115}
	if got := sellQuantity(s, sig2); got != 5 {
		t.Errorf("第二档按原始数量算仍是5而不是2.5, got %f", got)
	}
}

func TestExecuteSignalStopLossSellsEverything(t *testing.T) {
	s := positionStrategy()
	s.GradualSell = true
	s.Position.Quantity = 7 // 部分档位已卖
	sig := &model.Signal{Type: model.SignalStopLoss, Price: 95, SellPercent: 50}
	if got := sellQuantity(s, sig); got != 7 {
		t.Errorf("止损必须清掉当前全部持仓, got %f", got)
	}
}

func TestExecuteEntryBuy(t *testing.T) {
	conn := &orderConnector{price: 100, fee: 0.5}
	s := monitoringStrategy()
	s.MinInvestment = 1000

	exec := ExecuteEntryBuy(context.Background(), conn, s, 100, time.Now())
	if exec == nil || exec.Action != model.ActionBuy {
		t.Fatalf("应产生买入记录: %+v", exec)
	}
	if math.Abs(exec.Amount-10) > 1e-9 {
		t.Errorf("1000/100应买10, got %f", exec.Amount)
	}
}
