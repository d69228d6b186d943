package exchange

import (
	"context"

	"coinpilot/internal/model"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Connector 交易所连接器，engine只通过它访问行情和下单。
// 所有实现必须把交易所返回的松散字段归一化成 model.OrderResult。
type Connector interface {
	// 获取最新成交价
	GetLastPrice(ctx context.Context, symbol string) (float64, error)
	// 市价单，quantity单位为币本身
	PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity float64) (*model.OrderResult, error)
	// 账户内全部非零资产，key为币种
	GetBalances(ctx context.Context) (map[string]model.AssetBalance, error)
}

// Resolver 按用户凭证解析出连接器实例，service层实现
type Resolver interface {
	Resolve(ctx context.Context, userId, exchangeRef int64) (Connector, error)
}
