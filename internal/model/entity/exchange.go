package entity

import (
	"coinpilot/utils"
)

// UserExchange 用户的交易所API凭证，密文存储
type UserExchange struct {
	Id                  int64          `gorm:"column:id;primary_key;AUTO_INCREMENT" json:"id"`
	UserId              int64          `gorm:"column:user_id;index:idx_ue_user;not null" json:"user_id"`
	ExchangeId          int64          `gorm:"column:exchange_id;not null" json:"exchange_id"`
	Label               string         `gorm:"column:label" json:"label"`
	ApiKeyEncrypted     string         `gorm:"column:api_key_encrypted;not null" json:"-"`
	ApiSecretEncrypted  string         `gorm:"column:api_secret_encrypted;not null" json:"-"`
	PassphraseEncrypted string         `gorm:"column:passphrase_encrypted" json:"-"`
	Nonce               string         `gorm:"column:nonce;not null" json:"-"` // AEAD nonce，base64
	IsActive            bool           `gorm:"column:is_active" json:"is_active"`
	CreatedAt           utils.JsonTime `gorm:"column:created_at" json:"created_at"`
	UpdatedAt           utils.JsonTime `gorm:"column:updated_at" json:"updated_at"`
}

func (UserExchange) TableName() string {
	return "user_exchange"
}

// ExchangeCatalog 平台支持的交易所清单
type ExchangeCatalog struct {
	Id                 int64          `gorm:"column:id;primary_key;AUTO_INCREMENT" json:"id"`
	Name               string         `gorm:"column:name;not null;unique" json:"name"`
	Driver             string         `gorm:"column:driver;not null" json:"driver"` // 连接器标识，如 okx / simulated
	Url                string         `gorm:"column:url" json:"url"`
	Icon               string         `gorm:"column:icon" json:"icon"`
	SupportsSpot       bool           `gorm:"column:supports_spot" json:"supports_spot"`
	RequiresPassphrase bool           `gorm:"column:requires_passphrase" json:"requires_passphrase"`
	IsActive           bool           `gorm:"column:is_active" json:"is_active"`
	CreatedAt          utils.JsonTime `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          utils.JsonTime `gorm:"column:updated_at" json:"updated_at"`
}

func (ExchangeCatalog) TableName() string {
	return "exchanges"
}
