package query

import (
	"context"
	"time"

	"coinpilot/internal/consts"
	"coinpilot/internal/dao"
	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
	"coinpilot/utils"
	"gorm.io/gorm"
)

var _ dao.StrategyDao = (*strategyDao)(nil)

type strategyDao struct {
	ds *gorm.DB
}

func NewStrategyDao(ds *gorm.DB) *strategyDao {
	return &strategyDao{
		ds: ds,
	}
}

func (d *strategyDao) StrategyCreate(ctx context.Context, s *entity.Strategy) error {
	return d.ds.WithContext(ctx).Create(s).Error
}

func (d *strategyDao) StrategyGet(ctx context.Context, userId, id int64) (entity.Strategy, error) {
	var s entity.Strategy
	err := d.ds.WithContext(ctx).Where("user_id = ? AND id = ?", userId, id).First(&s).Error
	return s, err
}

func (d *strategyDao) StrategyList(ctx context.Context, userId int64, req *model.StrategyListReq) ([]entity.Strategy, int64, error) {
	tx := d.ds.WithContext(ctx).Model(&entity.Strategy{}).Where("user_id = ?", userId)
	if req.Status != "" {
		tx = tx.Where("status = ?", req.Status)
	}
	if req.IsActive != nil {
		tx = tx.Where("is_active = ?", *req.IsActive)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	var list []entity.Strategy
	err := tx.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error
	return list, total, err
}

func (d *strategyDao) StrategyUpdate(ctx context.Context, userId, id int64, columns map[string]interface{}) error {
	if len(columns) == 0 {
		return nil
	}
	columns["updated_at"] = utils.JsonTime(time.Now())
	return d.ds.WithContext(ctx).Model(&entity.Strategy{}).
		Where("user_id = ? AND id = ?", userId, id).
		Updates(columns).Error
}

func (d *strategyDao) StrategyDelete(ctx context.Context, userId, id int64) error {
	return d.ds.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND id = ?", userId, id).Delete(&entity.Strategy{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("strategy_id = ?", id).Delete(&entity.StrategyExecution{}).Error; err != nil {
			return err
		}
		return tx.Where("strategy_id = ?", id).Delete(&entity.StrategySignal{}).Error
	})
}

func (d *strategyDao) StrategyListRunnable(ctx context.Context) ([]entity.Strategy, error) {
	var list []entity.Strategy
	err := d.ds.WithContext(ctx).
		Where("is_active = ?", true).
		Where("status IN ?", []string{
			string(model.StatusIdle),
			string(model.StatusMonitoring),
			string(model.StatusInPosition),
			string(model.StatusGradualSelling),
		}).
		Order("user_id, id").
		Find(&list).Error
	return list, err
}

// ApplyTickPatch 一个事务内完成本次tick的全部写入：
// 策略行只改变化的列，统计列表达式自增，避免覆盖并发修改
func (d *strategyDao) ApplyTickPatch(ctx context.Context, patch *model.StrategyPatch) error {
	now := time.Now()
	return d.ds.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := make(map[string]interface{}, len(patch.Columns)+3)
		for k, v := range patch.Columns {
			updates[k] = v
		}
		if patch.PnlUsdDelta != 0 {
			updates["total_pnl_usd"] = gorm.Expr("total_pnl_usd + ?", patch.PnlUsdDelta)
		}
		if patch.ExecutionsDelta != 0 {
			updates["total_executions"] = gorm.Expr("total_executions + ?", patch.ExecutionsDelta)
		}
		updates["updated_at"] = utils.JsonTime(now)

		res := tx.Model(&entity.Strategy{}).
			Where("user_id = ? AND id = ?", patch.UserId, patch.StrategyId).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		for i := range patch.Executions {
			e := &patch.Executions[i]
			row := entity.StrategyExecution{
				Id:              e.Id,
				StrategyId:      patch.StrategyId,
				UserId:          patch.UserId,
				Action:          string(e.Action),
				Reason:          e.Reason,
				Price:           e.Price,
				Amount:          e.Amount,
				Total:           e.Total,
				Fee:             e.Fee,
				PnlUsd:          e.PnlUsd,
				ExchangeOrderId: e.ExchangeOrderId,
				ErrorMessage:    e.ErrorMessage,
				ExecutedAt:      utils.JsonTime(e.ExecutedAt),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		for i := range patch.Signals {
			s := &patch.Signals[i]
			row := entity.StrategySignal{
				StrategyId:         patch.StrategyId,
				UserId:             patch.UserId,
				SignalType:         string(s.Type),
				Price:              s.Price,
				Message:            s.Message,
				Acted:              s.Acted,
				PriceChangePercent: s.PriceChangePercent,
				CreatedAt:          utils.JsonTime(now),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		if len(patch.Signals) > 0 {
			// 每个策略只保留最近N条信号，mysql不允许子查询直接引用被删表，套一层
			return tx.Exec(`DELETE FROM strategy_signal WHERE strategy_id = ? AND id NOT IN (
				SELECT id FROM (
					SELECT id FROM strategy_signal WHERE strategy_id = ? ORDER BY id DESC LIMIT ?
				) AS keep_rows
			)`, patch.StrategyId, patch.StrategyId, consts.SignalKeepCount).Error
		}
		return nil
	})
}

func (d *strategyDao) ExecutionList(ctx context.Context, userId, strategyId int64, page, pageSize int) ([]entity.StrategyExecution, int64, error) {
	tx := d.ds.WithContext(ctx).Model(&entity.StrategyExecution{}).
		Where("user_id = ? AND strategy_id = ?", userId, strategyId)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	var list []entity.StrategyExecution
	err := tx.Order("executed_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error
	return list, total, err
}

func (d *strategyDao) SignalList(ctx context.Context, userId, strategyId int64, page, pageSize int) ([]entity.StrategySignal, int64, error) {
	tx := d.ds.WithContext(ctx).Model(&entity.StrategySignal{}).
		Where("user_id = ? AND strategy_id = ?", userId, strategyId)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	var list []entity.StrategySignal
	err := tx.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error
	return list, total, err
}

func (d *strategyDao) ExecutionStats(ctx context.Context, userId, strategyId int64) (model.StrategyStatsRes, error) {
	var agg struct {
		Total  int
		Buys   int
		Sells  int
		Failed int
		Wins   int
		Fees   float64
		Pnl    float64
	}
	err := d.ds.WithContext(ctx).Model(&entity.StrategyExecution{}).
		Where("user_id = ? AND strategy_id = ?", userId, strategyId).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(action = 'buy'), 0) AS buys,
			COALESCE(SUM(action = 'sell'), 0) AS sells,
			COALESCE(SUM(action IN ('buy_failed', 'sell_failed')), 0) AS failed,
			COALESCE(SUM(action = 'sell' AND pnl_usd > 0), 0) AS wins,
			COALESCE(SUM(fee), 0) AS fees,
			COALESCE(SUM(pnl_usd), 0) AS pnl`).
		Scan(&agg).Error
	if err != nil {
		return model.StrategyStatsRes{}, err
	}
	stats := model.StrategyStatsRes{
		StrategyId:      strategyId,
		TotalExecutions: agg.Total,
		Buys:            agg.Buys,
		Sells:           agg.Sells,
		Failed:          agg.Failed,
		TotalFees:       agg.Fees,
		TotalPnlUsd:     agg.Pnl,
	}
	if agg.Sells > 0 {
		stats.WinRate = float64(agg.Wins) / float64(agg.Sells) * 100
	}
	return stats, nil
}
