package model

import (
	"coinpilot/utils"
)

// AssetBalance 连接器返回的单币种余额，进程内流转
type AssetBalance struct {
	Coin      string  `json:"coin"`
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
	Frozen    float64 `json:"frozen"`
}

// TokenBalanceRes 估值后的单币持仓
type TokenBalanceRes struct {
	Coin      string  `json:"coin"`
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
	Frozen    float64 `json:"frozen"`
	PriceUsd  float64 `json:"price_usd"`
	ValueUsd  float64 `json:"value_usd"`
}

// ExchangeBalanceRes 单个凭证下的账户资产，某交易所拉取失败时Error非空
type ExchangeBalanceRes struct {
	CredentialId int64             `json:"credential_id"`
	ExchangeId   int64             `json:"exchange_id"`
	ExchangeName string            `json:"exchange_name"`
	Label        string            `json:"label"`
	TotalUsd     float64           `json:"total_usd"`
	Tokens       []TokenBalanceRes `json:"tokens"`
	Error        string            `json:"error,omitempty"`
}

type BalanceListRes struct {
	TotalUsd  float64              `json:"total_usd"`
	Exchanges []ExchangeBalanceRes `json:"exchanges"`
	Timestamp int64                `json:"timestamp"` // unix秒
}

type BalanceSummaryRes struct {
	TotalUsd       float64 `json:"total_usd"`
	ExchangesCount int     `json:"exchanges_count"`
	TokensCount    int     `json:"tokens_count"`
	Timestamp      int64   `json:"timestamp"`
}

// SnapshotDetail 快照里每个交易所的占比明细，整体以JSON存进快照行
type SnapshotDetail struct {
	ExchangeId   int64   `json:"exchange_id"`
	ExchangeName string  `json:"exchange_name"`
	BalanceUsd   float64 `json:"balance_usd"`
	TokensCount  int     `json:"tokens_count"`
}

type SnapshotRes struct {
	Id             int64            `json:"id"`
	Date           string           `json:"date"` // UTC日期 2006-01-02
	TotalUsd       float64          `json:"total_usd"`
	TotalConverted float64          `json:"total_converted"`
	Currency       string           `json:"currency"`
	Details        []SnapshotDetail `json:"details"`
	CreatedAt      utils.JsonTime   `json:"created_at"`
}
