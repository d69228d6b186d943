package model

import (
	"coinpilot/utils"
)

// 绑定交易所API凭证的参数
type UserExchangeCreateReq struct {
	ExchangeId int64  `json:"exchange_id" binding:"required" label:"交易所"`
	Label      string `json:"label" label:"备注"`
	ApiKey     string `json:"api_key" binding:"required" label:"ApiKey"`
	ApiSecret  string `json:"api_secret" binding:"required" label:"ApiSecret"`
	Passphrase string `json:"passphrase" label:"Passphrase"`
}

type UserExchangeUpdateReq struct {
	Label      string `json:"label"`
	ApiKey     string `json:"api_key"`
	ApiSecret  string `json:"api_secret"`
	Passphrase string `json:"passphrase"`
	IsActive   *bool  `json:"is_active"`
}

// UserExchangeRes 凭证列表项，密钥只回显掩码
type UserExchangeRes struct {
	Id            int64          `json:"id"`
	ExchangeId    int64          `json:"exchange_id"`
	ExchangeName  string         `json:"exchange_name"`
	Label         string         `json:"label"`
	ApiKeyPreview string         `json:"api_key_preview"` // 形如 ab12****cd34
	IsActive      bool           `json:"is_active"`
	CreatedAt     utils.JsonTime `json:"created_at"`
}

// ConnectorCredentials 解密后的连接器凭证，只在进程内流转
type ConnectorCredentials struct {
	Driver     string
	ApiKey     string
	ApiSecret  string
	Passphrase string
}

type ExchangeCatalogRes struct {
	Id                 int64  `json:"id"`
	Name               string `json:"name"`
	Driver             string `json:"driver"`
	Url                string `json:"url"`
	Icon               string `json:"icon"`
	SupportsSpot       bool   `json:"supports_spot"`
	RequiresPassphrase bool   `json:"requires_passphrase"`
}

// 汇率查询响应，base -> rates
type ExchangeRateRes struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt int64              `json:"fetched_at"` // unix秒
}

type RateConvertReq struct {
	From   string  `form:"from" binding:"required" label:"源币种"`
	To     string  `form:"to" binding:"required" label:"目标币种"`
	Amount float64 `form:"amount" binding:"required,gt=0" label:"金额"`
}

type RateConvertRes struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
	Result float64 `json:"result"`
	Rate   float64 `json:"rate"`
}
