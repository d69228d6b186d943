package dao

import (
	"context"

	"coinpilot/internal/model/entity"
)

type ExchangeDao interface {
	// 绑定凭证
	UserExchangeCreate(ctx context.Context, ue *entity.UserExchange) error
	// 用户凭证列表
	UserExchangeList(ctx context.Context, userId int64) ([]entity.UserExchange, error)
	// 按 (user_id, id) 获取凭证
	UserExchangeGet(ctx context.Context, userId, id int64) (entity.UserExchange, error)
	// 更新凭证
	UserExchangeUpdate(ctx context.Context, userId, id int64, columns map[string]interface{}) error
	// 删除凭证
	UserExchangeDelete(ctx context.Context, userId, id int64) error
	// 持有活跃凭证的用户id去重列表，快照调度器用
	ActiveCredentialUserIds(ctx context.Context) ([]int64, error)

	// 支持的交易所清单
	CatalogList(ctx context.Context) ([]entity.ExchangeCatalog, error)
	// 按id获取交易所
	CatalogGet(ctx context.Context, id int64) (entity.ExchangeCatalog, error)
}
