package entity

import (
	"time"

	"coinpilot/utils"
	"gorm.io/datatypes"
)

// Strategy 策略主表，一行承载配置、仓位和执行统计
// 仓位字段 quantity <= epsilon 视为无持仓
type Strategy struct {
	Id           int64  `gorm:"column:id;primary_key;" json:"id"` // snowflake
	UserId       int64  `gorm:"column:user_id;index:idx_user;not null" json:"user_id"`
	Name         string `gorm:"column:name;not null" json:"name"`
	Description  string `gorm:"column:description" json:"description"`
	Symbol       string `gorm:"column:symbol;not null" json:"symbol"` // 交易对，如 BTC/USDT
	ExchangeId   int64  `gorm:"column:exchange_id" json:"exchange_id"`
	ExchangeName string `gorm:"column:exchange_name" json:"exchange_name"`

	IsActive bool   `gorm:"column:is_active;index:idx_active" json:"is_active"`
	Status   string `gorm:"column:status;not null;default:idle" json:"status"`

	// 策略配置
	BasePrice          float64        `gorm:"column:base_price" json:"base_price"`
	TriggerPercent     float64        `gorm:"column:trigger_percent" json:"trigger_percent"`
	StopLossPercent    float64        `gorm:"column:stop_loss_percent" json:"stop_loss_percent"`
	GradualSell        bool           `gorm:"column:gradual_sell" json:"gradual_sell"`
	Lots               datatypes.JSON `gorm:"column:lots" json:"lots"` // []model.Lot
	GradualCooldownMin int            `gorm:"column:gradual_cooldown_min" json:"gradual_cooldown_min"`
	LotStepPercent     float64        `gorm:"column:lot_step_percent;default:0.5" json:"lot_step_percent"`
	MaxRuntimeMin      int            `gorm:"column:max_runtime_min" json:"max_runtime_min"`
	MinInvestment      float64        `gorm:"column:min_investment" json:"min_investment"`
	CheckIntervalSec   int            `gorm:"column:check_interval_sec" json:"check_interval_sec"`

	// 仓位
	PositionEntryPrice   float64    `gorm:"column:position_entry_price" json:"position_entry_price"`
	PositionQuantity     float64    `gorm:"column:position_quantity" json:"position_quantity"`
	PositionTotalCost    float64    `gorm:"column:position_total_cost" json:"position_total_cost"`
	PositionCurrentPrice float64    `gorm:"column:position_current_price" json:"position_current_price"`
	PositionHighestPrice float64    `gorm:"column:position_highest_price" json:"position_highest_price"`
	PositionLowestPrice  float64    `gorm:"column:position_lowest_price" json:"position_lowest_price"`
	PositionOpenedAt     *time.Time `gorm:"column:position_opened_at" json:"position_opened_at"`

	// 执行状态
	LastCheckedAt     *time.Time `gorm:"column:last_checked_at" json:"last_checked_at"`
	LastPrice         float64    `gorm:"column:last_price" json:"last_price"`
	LastGradualSellAt *time.Time `gorm:"column:last_gradual_sell_at" json:"last_gradual_sell_at"`
	ErrorMessage      string     `gorm:"column:error_message" json:"error_message"`
	TotalPnlUsd       float64    `gorm:"column:total_pnl_usd" json:"total_pnl_usd"`
	TotalExecutions   int        `gorm:"column:total_executions" json:"total_executions"`

	CreatedAt utils.JsonTime `gorm:"column:created_at" json:"created_at"`
	UpdatedAt utils.JsonTime `gorm:"column:updated_at" json:"updated_at"`
}

func (Strategy) TableName() string {
	return "strategy"
}

// StrategyExecution 交易执行记录，只追加
type StrategyExecution struct {
	Id              string         `gorm:"column:id;primary_key" json:"id"` // uuid
	StrategyId      int64          `gorm:"column:strategy_id;index:idx_strategy;not null" json:"strategy_id"`
	UserId          int64          `gorm:"column:user_id;index:idx_exec_user;not null" json:"user_id"`
	Action          string         `gorm:"column:action;not null" json:"action"` // buy/sell/buy_failed/sell_failed
	Reason          string         `gorm:"column:reason" json:"reason"`
	Price           float64        `gorm:"column:price" json:"price"`
	Amount          float64        `gorm:"column:amount" json:"amount"`
	Total           float64        `gorm:"column:total" json:"total"`
	Fee             float64        `gorm:"column:fee" json:"fee"`
	PnlUsd          float64        `gorm:"column:pnl_usd" json:"pnl_usd"`
	ExchangeOrderId string         `gorm:"column:exchange_order_id" json:"exchange_order_id"`
	ErrorMessage    string         `gorm:"column:error_message" json:"error_message"`
	ExecutedAt      utils.JsonTime `gorm:"column:executed_at" json:"executed_at"`
}

func (StrategyExecution) TableName() string {
	return "strategy_execution"
}

// StrategySignal 判定信号记录，每个策略只保留最近100条
type StrategySignal struct {
	Id                 int64          `gorm:"column:id;primary_key;AUTO_INCREMENT" json:"id"`
	StrategyId         int64          `gorm:"column:strategy_id;index:idx_sig_strategy;not null" json:"strategy_id"`
	UserId             int64          `gorm:"column:user_id;not null" json:"user_id"`
	SignalType         string         `gorm:"column:signal_type;not null" json:"signal_type"`
	Price              float64        `gorm:"column:price" json:"price"`
	Message            string         `gorm:"column:message" json:"message"`
	Acted              bool           `gorm:"column:acted" json:"acted"`
	PriceChangePercent float64        `gorm:"column:price_change_percent" json:"price_change_percent"`
	CreatedAt          utils.JsonTime `gorm:"column:created_at" json:"created_at"`
}

func (StrategySignal) TableName() string {
	return "strategy_signal"
}
