package model

import (
	"time"

	"coinpilot/internal/consts"
	"coinpilot/internal/model/entity"
	"github.com/goccy/go-json"
)

// 策略状态机
type Status string

const (
	StatusIdle           Status = "idle"            // 已创建未激活
	StatusMonitoring     Status = "monitoring"      // 无持仓，等待入场
	StatusInPosition     Status = "in_position"     // 持仓中，盯止盈止损
	StatusGradualSelling Status = "gradual_selling" // 分批卖出进行中
	StatusPaused         Status = "paused"          // 用户暂停
	StatusCompleted      Status = "completed"       // 止盈完成
	StatusStoppedOut     Status = "stopped_out"     // 止损离场
	StatusExpired        Status = "expired"         // 超过最大运行时长
	StatusError          Status = "error"           // 凭证或配置错误
)

// IsTerminal 终态不再参与扫描，且 is_active 置为 false
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusStoppedOut, StatusExpired, StatusError:
		return true
	}
	return false
}

// Processable 扫描器是否需要处理该状态
func (s Status) Processable() bool {
	switch s {
	case StatusIdle, StatusMonitoring, StatusInPosition, StatusGradualSelling:
		return true
	}
	return false
}

type SignalType string

const (
	SignalInfo        SignalType = "info"
	SignalTakeProfit  SignalType = "take_profit"
	SignalStopLoss    SignalType = "stop_loss"
	SignalGradualSell SignalType = "gradual_sell"
	SignalExpired     SignalType = "expired"
)

// Actionable 是否需要触发下单
func (t SignalType) Actionable() bool {
	switch t {
	case SignalTakeProfit, SignalStopLoss, SignalGradualSell:
		return true
	}
	return false
}

type ExecutionAction string

const (
	ActionBuy        ExecutionAction = "buy"
	ActionSell       ExecutionAction = "sell"
	ActionBuyFailed  ExecutionAction = "buy_failed"
	ActionSellFailed ExecutionAction = "sell_failed"
)

// Lot 分批卖出档位，sell_percent 相对原始成交数量，合计100
type Lot struct {
	LotNo         int        `json:"lot_no"`
	SellPercent   float64    `json:"sell_percent"`
	Executed      bool       `json:"executed"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	ExecutedPrice float64    `json:"executed_price,omitempty"`
}

// Signal 评估器产出的判定结果，纯值对象
type Signal struct {
	Type               SignalType `json:"signal_type"`
	Price              float64    `json:"price"`
	Message            string     `json:"message"`
	LotNo              int        `json:"lot_no,omitempty"`       // 对应档位，0表示整仓
	SellPercent        float64    `json:"sell_percent,omitempty"` // 应卖出的原始数量百分比，0表示全部剩余
	PriceChangePercent float64    `json:"price_change_percent"`
	Acted              bool       `json:"acted"`
}

// Execution 一次下单的结果记录
type Execution struct {
	Id              string          `json:"id"`
	Action          ExecutionAction `json:"action"`
	Reason          string          `json:"reason"`
	Price           float64         `json:"price"`
	Amount          float64         `json:"amount"`
	Total           float64         `json:"total"`
	Fee             float64         `json:"fee"`
	PnlUsd          float64         `json:"pnl_usd"`
	ExchangeOrderId string          `json:"exchange_order_id"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	LotNo           int             `json:"lot_no,omitempty"`
	ExecutedAt      time.Time       `json:"executed_at"`
}

// OrderResult 连接器归一化后的成交回报
type OrderResult struct {
	OrderID  string  `json:"order_id"`
	Status   string  `json:"status"`
	Filled   float64 `json:"filled"`
	AvgPrice float64 `json:"avg_price"`
	Cost     float64 `json:"cost"`
	Fee      float64 `json:"fee"`
}

// Position 当前持仓快照
type Position struct {
	EntryPrice   float64    `json:"entry_price"`
	Quantity     float64    `json:"quantity"`
	TotalCost    float64    `json:"total_cost"`
	CurrentPrice float64    `json:"current_price"`
	HighestPrice float64    `json:"highest_price"`
	LowestPrice  float64    `json:"lowest_price"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
}

// Exists 数量低于精度视为无持仓
func (p *Position) Exists() bool {
	return p.Quantity > consts.QuantityEpsilon
}

// OriginalQuantity 建仓时的原始成交数量，分批档位按它计算
func (p *Position) OriginalQuantity() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return p.TotalCost / p.EntryPrice
}

// StrategyState 引擎处理用的策略内存态
type StrategyState struct {
	Id           int64
	UserId       int64
	Name         string
	Symbol       string
	ExchangeId   int64
	ExchangeName string
	IsActive     bool
	Status       Status

	BasePrice          float64
	TriggerPercent     float64
	StopLossPercent    float64
	GradualSell        bool
	Lots               []Lot
	GradualCooldownMin int
	LotStepPercent     float64
	MaxRuntimeMin      int
	MinInvestment      float64
	CheckIntervalSec   int

	Position          Position
	LastCheckedAt     *time.Time
	LastPrice         float64
	LastGradualSellAt *time.Time
	ErrorMessage      string
	CreatedAt         time.Time
}

// NextLot 下一个未执行的档位，没有则返回nil
func (s *StrategyState) NextLot() *Lot {
	for i := range s.Lots {
		if !s.Lots[i].Executed {
			return &s.Lots[i]
		}
	}
	return nil
}

// LotIndex 未执行档位在序列中的下标（0起）
func (s *StrategyState) LotIndex(lotNo int) int {
	for i := range s.Lots {
		if s.Lots[i].LotNo == lotNo {
			return i
		}
	}
	return -1
}

// TickResult 一次tick的完整产出，由reducer落库
type TickResult struct {
	StrategyID int64       `json:"strategy_id"`
	Symbol     string      `json:"symbol"`
	Price      float64     `json:"price"`
	Signals    []Signal    `json:"signals"`
	Executions []Execution `json:"executions"`
	NewStatus  Status      `json:"new_status,omitempty"` // 为空表示状态不变
	Err        error       `json:"-"`
	ErrMessage string      `json:"error,omitempty"`
}

// StrategyPatch 只携带本次tick改变的列，dao按 (user_id, id) 限定范围更新
type StrategyPatch struct {
	StrategyId int64
	UserId     int64

	Columns map[string]interface{} // 列名 -> 新值

	PnlUsdDelta     float64 // total_pnl_usd 增量
	ExecutionsDelta int     // total_executions 增量

	Executions []Execution
	Signals    []Signal
}

// StateFromEntity 将数据库行展开为引擎内存态
func StateFromEntity(e *entity.Strategy) (*StrategyState, error) {
	var lots []Lot
	if len(e.Lots) > 0 {
		if err := json.Unmarshal(e.Lots, &lots); err != nil {
			return nil, err
		}
	}
	return &StrategyState{
		Id:           e.Id,
		UserId:       e.UserId,
		Name:         e.Name,
		Symbol:       e.Symbol,
		ExchangeId:   e.ExchangeId,
		ExchangeName: e.ExchangeName,
		IsActive:     e.IsActive,
		Status:       Status(e.Status),

		BasePrice:          e.BasePrice,
		TriggerPercent:     e.TriggerPercent,
		StopLossPercent:    e.StopLossPercent,
		GradualSell:        e.GradualSell,
		Lots:               lots,
		GradualCooldownMin: e.GradualCooldownMin,
		LotStepPercent:     e.LotStepPercent,
		MaxRuntimeMin:      e.MaxRuntimeMin,
		MinInvestment:      e.MinInvestment,
		CheckIntervalSec:   e.CheckIntervalSec,

		Position: Position{
			EntryPrice:   e.PositionEntryPrice,
			Quantity:     e.PositionQuantity,
			TotalCost:    e.PositionTotalCost,
			CurrentPrice: e.PositionCurrentPrice,
			HighestPrice: e.PositionHighestPrice,
			LowestPrice:  e.PositionLowestPrice,
			OpenedAt:     e.PositionOpenedAt,
		},
		LastCheckedAt:     e.LastCheckedAt,
		LastPrice:         e.LastPrice,
		LastGradualSellAt: e.LastGradualSellAt,
		ErrorMessage:      e.ErrorMessage,
		CreatedAt:         e.CreatedAt.Time(),
	}, nil
}

// MarshalLots 序列化档位列表，写回lots列
func MarshalLots(lots []Lot) ([]byte, error) {
	if lots == nil {
		lots = []Lot{}
	}
	return json.Marshal(lots)
}
