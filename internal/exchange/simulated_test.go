package exchange

import (
	"context"
	"errors"
	"testing"
)

func TestSimulatedConnectorMarketOrder(t *testing.T) {
	conn := NewSimulatedConnector()
	conn.SetPrice("BTC/USDT", 50000)

	ctx := context.Background()
	price, err := conn.GetLastPrice(ctx, "BTC/USDT")
	if err != nil {
		t.Fatalf("获取价格失败: %v", err)
	}
	if price != 50000 {
		t.Errorf("got %f, want 50000", price)
	}

	order, err := conn.PlaceMarketOrder(ctx, "BTC/USDT", SideBuy, 0.1)
	if err != nil {
		t.Fatalf("下单失败: %v", err)
	}
	if order.Status != "filled" {
		t.Errorf("模拟单应立即成交, got %s", order.Status)
	}
	if order.Filled != 0.1 || order.AvgPrice != 50000 {
		t.Errorf("成交信息错误: filled=%f avg=%f", order.Filled, order.AvgPrice)
	}
	if order.Fee != order.Cost*0.001 {
		t.Errorf("手续费应为千分之一: fee=%f cost=%f", order.Fee, order.Cost)
	}

	got, err := conn.GetOrder(order.OrderID)
	if err != nil {
		t.Fatalf("查询订单失败: %v", err)
	}
	if got.OrderID != order.OrderID {
		t.Errorf("订单不一致")
	}
	t.Logf("✅ 模拟成交: %+v", order)
}

func TestSimulatedConnectorInvalidQuantity(t *testing.T) {
	conn := NewSimulatedConnector()
	conn.SetPrice("ETH/USDT", 3000)
	if _, err := conn.PlaceMarketOrder(context.Background(), "ETH/USDT", SideSell, 0); err == nil {
		t.Error("数量为0应当报错")
	}
}

func TestSimulatedConnectorInjectedFailure(t *testing.T) {
	conn := NewSimulatedConnector()
	conn.SetPrice("BTC/USDT", 50000)

	want := errors.New("exchange unavailable")
	conn.FailNextWith(want)
	if _, err := conn.GetLastPrice(context.Background(), "BTC/USDT"); !errors.Is(err, want) {
		t.Errorf("got %v, want injected error", err)
	}
	// 注入只生效一次
	if _, err := conn.GetLastPrice(context.Background(), "BTC/USDT"); err != nil {
		t.Errorf("第二次调用不应失败: %v", err)
	}
}
