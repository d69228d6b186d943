package model

import (
	"coinpilot/utils"
)

// 创建策略的参数
type StrategyCreateReq struct {
	Name               string  `json:"name" binding:"required" label:"策略名称"`
	Description        string  `json:"description" label:"描述"`
	Symbol             string  `json:"symbol" binding:"required" label:"交易对"`
	ExchangeId         int64   `json:"exchange_id" binding:"required" label:"交易所凭证"`
	BasePrice          float64 `json:"base_price" binding:"required,gt=0" label:"基准价"`
	TriggerPercent     float64 `json:"trigger_percent" binding:"required,gt=0" label:"触发涨幅"`
	StopLossPercent    float64 `json:"stop_loss_percent" binding:"gte=0" label:"止损跌幅"`
	GradualSell        bool    `json:"gradual_sell" label:"分批卖出"`
	Lots               []Lot   `json:"lots" label:"卖出档位"`
	GradualCooldownMin int     `json:"gradual_cooldown_min" binding:"gte=0" label:"分批冷却分钟"`
	LotStepPercent     float64 `json:"lot_step_percent" binding:"gte=0" label:"档位递增系数"`
	MaxRuntimeMin      int     `json:"max_runtime_min" binding:"gte=0" label:"最长运行分钟"`
	MinInvestment      float64 `json:"min_investment" binding:"gte=0" label:"建仓金额"`
	CheckIntervalSec   int     `json:"check_interval_sec" binding:"gte=0" label:"检查间隔秒"`
}

// 更新策略配置，零值字段不修改
type StrategyUpdateReq struct {
	Name               *string  `json:"name"`
	Description        *string  `json:"description"`
	BasePrice          *float64 `json:"base_price"`
	TriggerPercent     *float64 `json:"trigger_percent"`
	StopLossPercent    *float64 `json:"stop_loss_percent"`
	GradualSell        *bool    `json:"gradual_sell"`
	Lots               []Lot    `json:"lots"`
	GradualCooldownMin *int     `json:"gradual_cooldown_min"`
	LotStepPercent     *float64 `json:"lot_step_percent"`
	MaxRuntimeMin      *int     `json:"max_runtime_min"`
	CheckIntervalSec   *int     `json:"check_interval_sec"`
}

type StrategyListReq struct {
	Status   string `form:"status"`
	IsActive *bool  `form:"is_active"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// StrategyRes 策略详情
type StrategyRes struct {
	Id                 int64           `json:"id,string"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Symbol             string          `json:"symbol"`
	ExchangeId         int64           `json:"exchange_id"`
	ExchangeName       string          `json:"exchange_name"`
	IsActive           bool            `json:"is_active"`
	Status             Status          `json:"status"`
	BasePrice          float64         `json:"base_price"`
	TriggerPercent     float64         `json:"trigger_percent"`
	StopLossPercent    float64         `json:"stop_loss_percent"`
	GradualSell        bool            `json:"gradual_sell"`
	Lots               []Lot           `json:"lots"`
	GradualCooldownMin int             `json:"gradual_cooldown_min"`
	LotStepPercent     float64         `json:"lot_step_percent"`
	MaxRuntimeMin      int             `json:"max_runtime_min"`
	MinInvestment      float64         `json:"min_investment"`
	CheckIntervalSec   int             `json:"check_interval_sec"`
	Position           *Position       `json:"position,omitempty"`
	LastCheckedAt      *utils.JsonTime `json:"last_checked_at,omitempty"`
	LastPrice          float64         `json:"last_price"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	TotalPnlUsd        float64         `json:"total_pnl_usd"`
	TotalExecutions    int             `json:"total_executions"`
	CreatedAt          utils.JsonTime  `json:"created_at"`
	UpdatedAt          utils.JsonTime  `json:"updated_at"`
}

type StrategyListRes struct {
	Total int64         `json:"total"`
	List  []StrategyRes `json:"list"`
}

// StrategyStatsRes 策略执行统计
type StrategyStatsRes struct {
	StrategyId      int64   `json:"strategy_id,string"`
	TotalExecutions int     `json:"total_executions"`
	Buys            int     `json:"buys"`
	Sells           int     `json:"sells"`
	Failed          int     `json:"failed"`
	WinRate         float64 `json:"win_rate"` // 盈利卖出占比
	TotalFees       float64 `json:"total_fees"`
	TotalPnlUsd     float64 `json:"total_pnl_usd"`
}

type ExecutionListRes struct {
	Total int64       `json:"total"`
	List  []Execution `json:"list"`
}

type SignalRecord struct {
	Id                 int64          `json:"id"`
	SignalType         SignalType     `json:"signal_type"`
	Price              float64        `json:"price"`
	Message            string         `json:"message"`
	Acted              bool           `json:"acted"`
	PriceChangePercent float64        `json:"price_change_percent"`
	CreatedAt          utils.JsonTime `json:"created_at"`
}

type SignalListRes struct {
	Total int64          `json:"total"`
	List  []SignalRecord `json:"list"`
}

// TickRes 手动tick的响应
type TickRes struct {
	StrategyId int64       `json:"strategy_id,string"`
	Symbol     string      `json:"symbol"`
	Price      float64     `json:"price"`
	Signals    []Signal    `json:"signals"`
	Executions []Execution `json:"executions"`
	NewStatus  Status      `json:"new_status,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// SweepStatsRes 一轮扫描的统计
type SweepStatsRes struct {
	Total            int `json:"total"`
	Processed        int `json:"processed"`
	Errors           int `json:"errors"`
	SignalsGenerated int `json:"signals_generated"`
	OrdersExecuted   int `json:"orders_executed"`
}
