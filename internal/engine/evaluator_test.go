package engine

import (
	"testing"
	"time"

	"coinpilot/internal/model"
)

func monitoringStrategy() *model.StrategyState {
	return &model.StrategyState{
		Id:              1,
		UserId:          10,
		Symbol:          "BTC/USDT",
		IsActive:        true,
		Status:          model.StatusMonitoring,
		BasePrice:       100,
		TriggerPercent:  10,
		StopLossPercent: 5,
		CreatedAt:       time.Now().Add(-time.Hour),
	}
}

func positionStrategy() *model.StrategyState {
	s := monitoringStrategy()
	s.Status = model.StatusInPosition
	opened := time.Now().Add(-30 * time.Minute)
	s.Position = model.Position{
		EntryPrice: 100,
		Quantity:   10,
		TotalCost:  1000,
		OpenedAt:   &opened,
	}
	return s
}

func TestEvaluateBelowTriggerEmitsInfo(t *testing.T) {
	s := monitoringStrategy()
	sigs := Evaluate(s, 109, time.Now())
	if len(sigs) != 1 {
		t.Fatalf("期望1个信号, got %d", len(sigs))
	}
	if sigs[0].Type != model.SignalInfo {
		t.Errorf("109未到110触发价, 应为info, got %s", sigs[0].Type)
	}
}

func TestEvaluateAtTriggerEmitsTakeProfit(t *testing.T) {
	s := monitoringStrategy()
	sigs := Evaluate(s, 110, time.Now())
	if sigs[0].Type != model.SignalTakeProfit {
		t.Errorf("110达到触发价, 应为take_profit, got %s", sigs[0].Type)
	}
	if sigs[0].Acted {
		t.Error("信号初始acted必须为false")
	}
}

func TestEvaluateExactTriggerBoundaries(t *testing.T) {
	// 100*1.1 的浮点结果略大于110，正好110的tick也必须触发止盈
	s := positionStrategy()
	sigs := Evaluate(s, 110, time.Now())
	if sigs[0].Type != model.SignalTakeProfit {
		t.Errorf("持仓110应止盈, got %s", sigs[0].Type)
	}

	// 止损边界同理，正好95必须触发
	s = positionStrategy()
	sigs = Evaluate(s, 95, time.Now())
	if sigs[0].Type != model.SignalStopLoss {
		t.Errorf("95应止损, got %s", sigs[0].Type)
	}
}

func TestEvaluateStopLossPreemptsTakeProfit(t *testing.T) {
	// 构造同时满足止损和止盈的病态配置：触发价低于止损价
	s := positionStrategy()
	s.TriggerPercent = -10 // 触发价90
	s.StopLossPercent = 5  // 止损价95
	sigs := Evaluate(s, 93, time.Now())
	if sigs[0].Type != model.SignalStopLoss {
		t.Errorf("止损必须优先, got %s", sigs[0].Type)
	}
}

func TestEvaluateStopLossPreemptsGradual(t *testing.T) {
	s := positionStrategy()
	s.Status = model.StatusGradualSelling
	s.GradualSell = true
	s.Lots = []model.Lot{{LotNo: 1, SellPercent: 50}, {LotNo: 2, SellPercent: 50}}
	sigs := Evaluate(s, 94, time.Now()) // 止损价95
	if sigs[0].Type != model.SignalStopLoss {
		t.Errorf("分批进行中止损仍然优先, got %s", sigs[0].Type)
	}
}

func TestEvaluateExpiryPreemptsAll(t *testing.T) {
	s := positionStrategy()
	s.MaxRuntimeMin = 10
	opened := time.Now().Add(-20 * time.Minute)
	s.Position.OpenedAt = &opened
	// 价格同时满足止盈，过期仍然压过
	sigs := Evaluate(s, 120, time.Now())
	if len(sigs) != 1 || sigs[0].Type != model.SignalExpired {
		t.Fatalf("超时必须只发expired, got %+v", sigs)
	}
}

func TestEvaluateExpiryWithoutPositionUsesCreatedAt(t *testing.T) {
	s := monitoringStrategy()
	s.MaxRuntimeMin = 30
	s.CreatedAt = time.Now().Add(-time.Hour)
	sigs := Evaluate(s, 100, time.Now())
	if sigs[0].Type != model.SignalExpired {
		t.Errorf("无持仓按创建时间判过期, got %s", sigs[0].Type)
	}
}

func TestEvaluateCooldownSuppressesGradualSell(t *testing.T) {
	s := positionStrategy()
	s.Status = model.StatusGradualSelling
	s.GradualSell = true
	s.GradualCooldownMin = 30
	s.Lots = []model.Lot{{LotNo: 1, SellPercent: 50}, {LotNo: 2, SellPercent: 50}}
	last := time.Now().Add(-10 * time.Minute)
	s.LastGradualSellAt = &last

	sigs := Evaluate(s, 200, time.Now()) // 价格再高也只能等
	if sigs[0].Type != model.SignalInfo {
		t.Errorf("冷却期内只能发info, got %s", sigs[0].Type)
	}

	// 冷却过了恢复正常
	expired := time.Now().Add(-31 * time.Minute)
	s.LastGradualSellAt = &expired
	sigs = Evaluate(s, 200, time.Now())
	if sigs[0].Type != model.SignalGradualSell {
		t.Errorf("冷却结束应恢复分批信号, got %s", sigs[0].Type)
	}
}

func TestEvaluateLotTriggerEscalation(t *testing.T) {
	s := positionStrategy()
	s.Status = model.StatusGradualSelling
	s.GradualSell = true
	s.LotStepPercent = 0.5
	s.Lots = []model.Lot{
		{LotNo: 1, SellPercent: 50, Executed: true},
		{LotNo: 2, SellPercent: 50},
	}

	// 第二档触发价: 100*(1+0.10*(1+1*0.5)) = 115
	sigs := Evaluate(s, 114, time.Now())
	if sigs[0].Type != model.SignalInfo {
		t.Errorf("114未到第二档触发价115, got %s", sigs[0].Type)
	}
	sigs = Evaluate(s, 115, time.Now())
	if sigs[0].Type != model.SignalGradualSell {
		t.Fatalf("115应触发第二档, got %s", sigs[0].Type)
	}
	if sigs[0].LotNo != 2 || sigs[0].SellPercent != 50 {
		t.Errorf("信号应指向第二档: %+v", sigs[0])
	}
}

func TestEvaluateAllLotsDoneClosesRemainder(t *testing.T) {
	s := positionStrategy()
	s.Status = model.StatusGradualSelling
	s.GradualSell = true
	s.Lots = []model.Lot{
		{LotNo: 1, SellPercent: 50, Executed: true},
		{LotNo: 2, SellPercent: 50, Executed: true},
	}
	s.Position.Quantity = 0.5 // 零头

	sigs := Evaluate(s, 100, time.Now())
	if sigs[0].Type != model.SignalTakeProfit {
		t.Errorf("档位全部执行后应整体止盈, got %s", sigs[0].Type)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	s := positionStrategy()
	now := time.Now()
	a := Evaluate(s, 105, now)
	b := Evaluate(s, 105, now)
	if a[0].Type != b[0].Type || a[0].Message != b[0].Message {
		t.Error("相同输入必须产出相同信号")
	}
}
