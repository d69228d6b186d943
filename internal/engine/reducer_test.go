package engine

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"coinpilot/internal/model"
)

func TestReduceWeightedAverageInvariant(t *testing.T) {
	// 任意一串买入折叠后 entry*qty ≈ 各笔 price*qty 之和
	s := monitoringStrategy()
	s.Position = model.Position{}
	rnd := rand.New(rand.NewSource(42))

	var wantCost float64
	now := time.Now()
	for i := 0; i < 20; i++ {
		price := 80 + rnd.Float64()*40
		qty := 0.1 + rnd.Float64()*5
		wantCost += price * qty

		res := &model.TickResult{
			StrategyID: s.Id, Symbol: s.Symbol, Price: price,
			Executions: []model.Execution{{
				Action: model.ActionBuy, Price: price, Amount: qty, Total: price * qty,
			}},
		}
		patch := Reduce(s, res, now)
		// 把补丁应用回内存态继续下一轮
		s.Position.EntryPrice = patch.Columns["position_entry_price"].(float64)
		s.Position.Quantity = patch.Columns["position_quantity"].(float64)
		s.Position.TotalCost = patch.Columns["position_total_cost"].(float64)
	}

	got := s.Position.EntryPrice * s.Position.Quantity
	if math.Abs(got-wantCost) > 1e-6 {
		t.Errorf("加权均价不变量被破坏: entry*qty=%f, sum(price*qty)=%f", got, wantCost)
	}
	t.Logf("✅ 20笔买入折叠后 entry=%f qty=%f", s.Position.EntryPrice, s.Position.Quantity)
}

func TestReduceErrorTickStillAdvancesLastChecked(t *testing.T) {
	s := positionStrategy()
	now := time.Now()
	res := &model.TickResult{
		StrategyID: s.Id, Symbol: s.Symbol,
		Err:        errors.New("price fetch failed"),
		ErrMessage: "price fetch failed",
	}
	patch := Reduce(s, res, now)
	if _, ok := patch.Columns["last_checked_at"]; !ok {
		t.Error("取价失败也要推进last_checked_at作为退避")
	}
	if _, ok := patch.Columns["status"]; ok {
		t.Error("瞬时错误不应改状态")
	}
	if patch.ExecutionsDelta != 0 {
		t.Error("瞬时错误不应有执行计数")
	}
}

func TestReduceCredentialErrorIsTerminal(t *testing.T) {
	s := positionStrategy()
	res := &model.TickResult{
		StrategyID: s.Id,
		Err:        errors.New("not found"),
		ErrMessage: "exchange credentials unavailable",
		NewStatus:  model.StatusError,
	}
	patch := Reduce(s, res, time.Now())
	if patch.Columns["status"] != string(model.StatusError) {
		t.Error("凭证缺失应进入error态")
	}
	if patch.Columns["is_active"] != false {
		t.Error("error是终态, is_active必须清掉")
	}
	if patch.Columns["error_message"] == "" {
		t.Error("应记录错误信息")
	}
}

func TestReduceSellClearsPositionAndCompletes(t *testing.T) {
	s := positionStrategy()
	now := time.Now()
	res := &model.TickResult{
		StrategyID: s.Id, Price: 110,
		Signals: []model.Signal{{Type: model.SignalTakeProfit, Price: 110, Acted: true}},
		Executions: []model.Execution{{
			Action: model.ActionSell, Reason: string(model.SignalTakeProfit),
			Price: 110, Amount: 10, Fee: 1, PnlUsd: 99,
		}},
	}
	patch := Reduce(s, res, now)

	if patch.Columns["position_quantity"].(float64) != 0 {
		t.Error("整仓卖出后数量应为0")
	}
	if patch.Columns["position_opened_at"] != (*time.Time)(nil) {
		t.Error("清仓后opened_at应为空")
	}
	if patch.Columns["status"] != string(model.StatusCompleted) {
		t.Errorf("整仓止盈应进入completed, got %v", patch.Columns["status"])
	}
	if patch.Columns["is_active"] != false {
		t.Error("completed是终态")
	}
	if patch.PnlUsdDelta != 99 {
		t.Errorf("pnl增量 got %f, want 99", patch.PnlUsdDelta)
	}
	if patch.ExecutionsDelta != 1 {
		t.Errorf("执行计数 got %d, want 1", patch.ExecutionsDelta)
	}
}

func TestReduceStopLossBecomesStoppedOut(t *testing.T) {
	s := positionStrategy()
	res := &model.TickResult{
		StrategyID: s.Id, Price: 94,
		Executions: []model.Execution{{
			Action: model.ActionSell, Reason: string(model.SignalStopLoss),
			Price: 94, Amount: 10, PnlUsd: -60,
		}},
	}
	patch := Reduce(s, res, time.Now())
	if patch.Columns["status"] != string(model.StatusStoppedOut) {
		t.Errorf("止损成功应stopped_out, got %v", patch.Columns["status"])
	}
}

func TestReduceGradualLotScenario(t *testing.T) {
	// 2档各50%，原始10@100。第一档卖5后还剩一档 => gradual_selling；
	// 第二档卖5清仓且档位全部执行 => completed
	s := positionStrategy()
	s.GradualSell = true
	s.Status = model.StatusInPosition
	s.Lots = []model.Lot{{LotNo: 1, SellPercent: 50}, {LotNo: 2, SellPercent: 50}}
	now := time.Now()

	res := &model.TickResult{
		StrategyID: s.Id, Price: 110,
		Executions: []model.Execution{{
			Action: model.ActionSell, Reason: string(model.SignalGradualSell),
			Price: 110, Amount: 5, PnlUsd: 49.45, LotNo: 1,
		}},
	}
	patch := Reduce(s, res, now)
	if patch.Columns["status"] != string(model.StatusGradualSelling) {
		t.Fatalf("还有未执行档位应gradual_selling, got %v", patch.Columns["status"])
	}
	if _, ok := patch.Columns["last_gradual_sell_at"]; !ok {
		t.Error("分批成交应记录冷却锚点")
	}
	if _, ok := patch.Columns["lots"]; !ok {
		t.Fatal("档位标记应写回lots列")
	}

	// 应用补丁继续第二档
	s.Status = model.StatusGradualSelling
	s.Position.Quantity = patch.Columns["position_quantity"].(float64)
	s.Lots[0].Executed = true
	anchor := now
	s.LastGradualSellAt = &anchor

	res2 := &model.TickResult{
		StrategyID: s.Id, Price: 115,
		Executions: []model.Execution{{
			Action: model.ActionSell, Reason: string(model.SignalGradualSell),
			Price: 115, Amount: 5, PnlUsd: 74.42, LotNo: 2,
		}},
	}
	patch2 := Reduce(s, res2, now.Add(time.Hour))
	if patch2.Columns["status"] != string(model.StatusCompleted) {
		t.Errorf("档位卖完且清仓应completed, got %v", patch2.Columns["status"])
	}
}

func TestReduceEarlyClearedPositionStaysGradual(t *testing.T) {
	// 第一档成交就把仓位卖光，但第二档还没执行 => 不算completed
	s := positionStrategy()
	s.GradualSell = true
	s.Status = model.StatusGradualSelling
	s.Lots = []model.Lot{{LotNo: 1, SellPercent: 60}, {LotNo: 2, SellPercent: 40}}

	res := &model.TickResult{
		StrategyID: s.Id, Price: 112,
		Executions: []model.Execution{{
			Action: model.ActionSell, Reason: string(model.SignalGradualSell),
			Price: 112, Amount: 10, LotNo: 1,
		}},
	}
	patch := Reduce(s, res, time.Now())
	if patch.Columns["status"] == string(model.StatusCompleted) {
		t.Fatal("还有未执行档位时清仓不应completed")
	}
	if patch.Columns["status"] != string(model.StatusGradualSelling) {
		t.Errorf("应保持gradual_selling, got %v", patch.Columns["status"])
	}
}

func TestReduceLotMarkedExactlyOnce(t *testing.T) {
	s := positionStrategy()
	s.GradualSell = true
	s.Lots = []model.Lot{
		{LotNo: 1, SellPercent: 50, Executed: true, ExecutedPrice: 108},
		{LotNo: 2, SellPercent: 50},
	}
	res := &model.TickResult{
		StrategyID: s.Id, Price: 115,
		Executions: []model.Execution{{
			Action: model.ActionSell, Reason: string(model.SignalGradualSell),
			Price: 115, Amount: 5, LotNo: 1, // 异常情况：重复指向已执行档位
		}},
	}
	patch := Reduce(s, res, time.Now())
	if _, ok := patch.Columns["lots"]; ok {
		t.Error("已执行的档位不允许被重新标记")
	}
}

func TestReduceFirstTickIdleToMonitoring(t *testing.T) {
	s := monitoringStrategy()
	s.Status = model.StatusIdle
	res := &model.TickResult{StrategyID: s.Id, Price: 100,
		Signals: []model.Signal{{Type: model.SignalInfo, Price: 100}}}
	patch := Reduce(s, res, time.Now())
	if patch.Columns["status"] != string(model.StatusMonitoring) {
		t.Errorf("首次tick应idle->monitoring, got %v", patch.Columns["status"])
	}
	if _, ok := patch.Columns["is_active"]; ok {
		t.Error("monitoring不是终态, 不应动is_active")
	}
}

func TestReduceExpiredSignalTerminates(t *testing.T) {
	s := positionStrategy()
	res := &model.TickResult{
		StrategyID: s.Id, Price: 120,
		Signals: []model.Signal{{Type: model.SignalExpired, Price: 120}},
	}
	patch := Reduce(s, res, time.Now())
	if patch.Columns["status"] != string(model.StatusExpired) {
		t.Errorf("expired信号应进入expired态, got %v", patch.Columns["status"])
	}
	if patch.Columns["is_active"] != false {
		t.Error("expired是终态")
	}
}

func TestReduceFailedExecutionDoesNotTouchPosition(t *testing.T) {
	s := positionStrategy()
	res := &model.TickResult{
		StrategyID: s.Id, Price: 120,
		Executions: []model.Execution{{
			Action: model.ActionSellFailed, Reason: string(model.SignalTakeProfit),
			Price: 120, Amount: 10, ErrorMessage: "exchange down",
		}},
	}
	patch := Reduce(s, res, time.Now())
	if qty, ok := patch.Columns["position_quantity"]; ok && qty.(float64) != s.Position.Quantity {
		t.Error("失败的执行不能改变持仓数量")
	}
	if patch.ExecutionsDelta != 0 {
		t.Error("失败不计入成功执行数")
	}
	if _, ok := patch.Columns["status"]; ok {
		t.Error("失败不应改状态, 下一轮重试")
	}
}
