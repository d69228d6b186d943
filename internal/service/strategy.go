package service

import (
	"coinpilot/internal/dao"
	"coinpilot/internal/engine"
	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/logger"
	"coinpilot/utils"
	"coinpilot/utils/uuid"
	"context"
	"math"

	"gorm.io/datatypes"
)

type StrategyService interface {
	StrategyCreate(ctx context.Context, userId int64, req model.StrategyCreateReq) (model.StrategyRes, error)
	StrategyGet(ctx context.Context, userId, id int64) (model.StrategyRes, error)
	StrategyList(ctx context.Context, userId int64, req model.StrategyListReq) (model.StrategyListRes, error)
	StrategyUpdate(ctx context.Context, userId, id int64, req model.StrategyUpdateReq) error
	StrategyDelete(ctx context.Context, userId, id int64) error

	StrategyActivate(ctx context.Context, userId, id int64) error
	StrategyPause(ctx context.Context, userId, id int64) error

	// 手动触发一次tick
	StrategyTick(ctx context.Context, userId, id int64) (model.TickRes, error)
	// 手动触发整轮扫描
	ProcessAll(ctx context.Context) model.SweepStatsRes

	StrategyStats(ctx context.Context, userId, id int64) (model.StrategyStatsRes, error)
	ExecutionList(ctx context.Context, userId, id int64, page, pageSize int) (model.ExecutionListRes, error)
	SignalList(ctx context.Context, userId, id int64, page, pageSize int) (model.SignalListRes, error)
}

type strategyService struct {
	sd   dao.StrategyDao
	ed   dao.ExchangeDao
	eng  *engine.Engine
	iSrv uuid.SnowNode
}

func NewStrategyService(sd dao.StrategyDao, ed dao.ExchangeDao, eng *engine.Engine) *strategyService {
	return &strategyService{
		sd:   sd,
		ed:   ed,
		eng:  eng,
		iSrv: *uuid.NewNode(5),
	}
}

var _ StrategyService = (*strategyService)(nil)

func (s *strategyService) StrategyCreate(ctx context.Context, userId int64, req model.StrategyCreateReq) (res model.StrategyRes, err error) {
	if err = validateLots(req.GradualSell, req.Lots); err != nil {
		return res, err
	}
	if req.StopLossPercent >= 100 {
		return res, errors.WithCode(ecode.ValidateErr, "止损跌幅必须小于100")
	}

	// 凭证必须属于当前用户
	ue, err := s.ed.UserExchangeGet(ctx, userId, req.ExchangeId)
	if err != nil {
		return res, errors.Wrap(err, ecode.NotFoundErr, "交易所凭证不存在")
	}
	catalog, err := s.ed.CatalogGet(ctx, ue.ExchangeId)
	if err != nil {
		return res, errors.Wrap(err, ecode.NotFoundErr, "交易所不存在")
	}

	lotsJson, err := model.MarshalLots(normalizeLots(req.Lots))
	if err != nil {
		return res, errors.Wrap(err, ecode.ValidateErr, "档位序列化失败")
	}

	st := entity.Strategy{
		Id:                 s.iSrv.GenSnowID(),
		UserId:             userId,
		Name:               req.Name,
		Description:        req.Description,
		Symbol:             req.Symbol,
		ExchangeId:         req.ExchangeId,
		ExchangeName:       catalog.Name,
		IsActive:           false,
		Status:             string(model.StatusIdle),
		BasePrice:          req.BasePrice,
		TriggerPercent:     req.TriggerPercent,
		StopLossPercent:    req.StopLossPercent,
		GradualSell:        req.GradualSell,
		Lots:               datatypes.JSON(lotsJson),
		GradualCooldownMin: req.GradualCooldownMin,
		LotStepPercent:     req.LotStepPercent,
		MaxRuntimeMin:      req.MaxRuntimeMin,
		MinInvestment:      req.MinInvestment,
		CheckIntervalSec:   req.CheckIntervalSec,
	}
	if err = s.sd.StrategyCreate(ctx, &st); err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "创建策略失败")
	}
	logger.Info("策略已创建",
		logger.Pair("strategy_id", st.Id),
		logger.Pair("user_id", userId),
		logger.Pair("symbol", st.Symbol))
	return toStrategyRes(&st)
}

func (s *strategyService) StrategyGet(ctx context.Context, userId, id int64) (model.StrategyRes, error) {
	st, err := s.sd.StrategyGet(ctx, userId, id)
	if err != nil {
		return model.StrategyRes{}, errors.Wrap(err, ecode.NotFoundErr, "策略不存在")
	}
	return toStrategyRes(&st)
}

func (s *strategyService) StrategyList(ctx context.Context, userId int64, req model.StrategyListReq) (res model.StrategyListRes, err error) {
	rows, total, err := s.sd.StrategyList(ctx, userId, &req)
	if err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "查询策略失败")
	}
	res.Total = total
	res.List = make([]model.StrategyRes, 0, len(rows))
	for i := range rows {
		one, terr := toStrategyRes(&rows[i])
		if terr != nil {
			return res, terr
		}
		res.List = append(res.List, one)
	}
	return res, nil
}

func (s *strategyService) StrategyUpdate(ctx context.Context, userId, id int64, req model.StrategyUpdateReq) error {
	st, err := s.sd.StrategyGet(ctx, userId, id)
	if err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "策略不存在")
	}

	columns := map[string]interface{}{}
	if req.Name != nil {
		columns["name"] = *req.Name
	}
	if req.Description != nil {
		columns["description"] = *req.Description
	}
	if req.BasePrice != nil {
		if *req.BasePrice <= 0 {
			return errors.WithCode(ecode.ValidateErr, "基准价必须大于0")
		}
		columns["base_price"] = *req.BasePrice
	}
	if req.TriggerPercent != nil {
		if *req.TriggerPercent <= 0 {
			return errors.WithCode(ecode.ValidateErr, "触发涨幅必须大于0")
		}
		columns["trigger_percent"] = *req.TriggerPercent
	}
	if req.StopLossPercent != nil {
		if *req.StopLossPercent < 0 || *req.StopLossPercent >= 100 {
			return errors.WithCode(ecode.ValidateErr, "止损跌幅必须在[0,100)内")
		}
		columns["stop_loss_percent"] = *req.StopLossPercent
	}
	if req.GradualSell != nil {
		columns["gradual_sell"] = *req.GradualSell
	}
	if req.Lots != nil {
		gradual := st.GradualSell
		if req.GradualSell != nil {
			gradual = *req.GradualSell
		}
		if err = validateLots(gradual, req.Lots); err != nil {
			return err
		}
		lotsJson, merr := model.MarshalLots(normalizeLots(req.Lots))
		if merr != nil {
			return errors.Wrap(merr, ecode.ValidateErr, "档位序列化失败")
		}
		columns["lots"] = datatypes.JSON(lotsJson)
	}
	if req.GradualCooldownMin != nil {
		columns["gradual_cooldown_min"] = *req.GradualCooldownMin
	}
	if req.LotStepPercent != nil {
		columns["lot_step_percent"] = *req.LotStepPercent
	}
	if req.MaxRuntimeMin != nil {
		columns["max_runtime_min"] = *req.MaxRuntimeMin
	}
	if req.CheckIntervalSec != nil {
		columns["check_interval_sec"] = *req.CheckIntervalSec
	}
	if len(columns) == 0 {
		return nil
	}
	if err = s.sd.StrategyUpdate(ctx, userId, id, columns); err != nil {
		return errors.Wrap(err, ecode.DatabaseErr, "更新策略失败")
	}
	return nil
}

func (s *strategyService) StrategyDelete(ctx context.Context, userId, id int64) error {
	if err := s.sd.StrategyDelete(ctx, userId, id); err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "策略不存在")
	}
	return nil
}

// StrategyActivate 从idle/paused或终态重新拉起策略，终态会清掉错误并回到monitoring
func (s *strategyService) StrategyActivate(ctx context.Context, userId, id int64) error {
	st, err := s.sd.StrategyGet(ctx, userId, id)
	if err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "策略不存在")
	}
	status := model.Status(st.Status)
	if status == model.StatusInPosition || status == model.StatusGradualSelling {
		// 已经在跑
		if st.IsActive {
			return nil
		}
	}
	columns := map[string]interface{}{
		"is_active":     true,
		"status":        string(model.StatusMonitoring),
		"error_message": "",
	}
	// 持仓还在的，回到对应持仓态
	if st.PositionQuantity > 0 {
		columns["status"] = string(model.StatusInPosition)
	}
	if err = s.sd.StrategyUpdate(ctx, userId, id, columns); err != nil {
		return errors.Wrap(err, ecode.DatabaseErr, "激活策略失败")
	}
	logger.Info("策略已激活", logger.Pair("strategy_id", id), logger.Pair("user_id", userId))
	return nil
}

func (s *strategyService) StrategyPause(ctx context.Context, userId, id int64) error {
	st, err := s.sd.StrategyGet(ctx, userId, id)
	if err != nil {
		return errors.Wrap(err, ecode.NotFoundErr, "策略不存在")
	}
	if model.Status(st.Status).IsTerminal() {
		return errors.WithCode(ecode.StrategyErr, "策略已结束，无法暂停")
	}
	columns := map[string]interface{}{
		"is_active": false,
		"status":    string(model.StatusPaused),
	}
	if err = s.sd.StrategyUpdate(ctx, userId, id, columns); err != nil {
		return errors.Wrap(err, ecode.DatabaseErr, "暂停策略失败")
	}
	logger.Info("策略已暂停", logger.Pair("strategy_id", id), logger.Pair("user_id", userId))
	return nil
}

func (s *strategyService) StrategyTick(ctx context.Context, userId, id int64) (res model.TickRes, err error) {
	st, err := s.sd.StrategyGet(ctx, userId, id)
	if err != nil {
		return res, errors.Wrap(err, ecode.NotFoundErr, "策略不存在")
	}
	state, err := model.StateFromEntity(&st)
	if err != nil {
		return res, errors.Wrap(err, ecode.StrategyErr, "策略数据损坏")
	}
	tick, err := s.eng.TickAndPersist(ctx, state)
	if err == engine.ErrTickInProgress {
		return res, errors.WithCode(ecode.TooManyErr, "策略正在处理中")
	}
	if err == engine.ErrNotRunnable {
		return res, errors.WithCode(ecode.StrategyErr, "策略当前不可执行")
	}
	if err != nil {
		return res, errors.Wrap(err, ecode.StrategyErr, "tick执行失败")
	}
	res.StrategyId = tick.StrategyID
	res.Symbol = tick.Symbol
	res.Price = tick.Price
	res.Signals = tick.Signals
	res.Executions = tick.Executions
	res.NewStatus = tick.NewStatus
	res.Error = tick.ErrMessage
	return res, nil
}

func (s *strategyService) ProcessAll(ctx context.Context) model.SweepStatsRes {
	return s.eng.RunOnce(ctx)
}

func (s *strategyService) StrategyStats(ctx context.Context, userId, id int64) (model.StrategyStatsRes, error) {
	if _, err := s.sd.StrategyGet(ctx, userId, id); err != nil {
		return model.StrategyStatsRes{}, errors.Wrap(err, ecode.NotFoundErr, "策略不存在")
	}
	stats, err := s.sd.ExecutionStats(ctx, userId, id)
	if err != nil {
		return model.StrategyStatsRes{}, errors.Wrap(err, ecode.DatabaseErr, "统计查询失败")
	}
	stats.StrategyId = id
	return stats, nil
}

func (s *strategyService) ExecutionList(ctx context.Context, userId, id int64, page, pageSize int) (res model.ExecutionListRes, err error) {
	rows, total, err := s.sd.ExecutionList(ctx, userId, id, page, pageSize)
	if err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "查询执行记录失败")
	}
	res.Total = total
	res.List = make([]model.Execution, 0, len(rows))
	for _, r := range rows {
		res.List = append(res.List, model.Execution{
			Id:              r.Id,
			Action:          model.ExecutionAction(r.Action),
			Reason:          r.Reason,
			Price:           r.Price,
			Amount:          r.Amount,
			Total:           r.Total,
			Fee:             r.Fee,
			PnlUsd:          r.PnlUsd,
			ExchangeOrderId: r.ExchangeOrderId,
			ErrorMessage:    r.ErrorMessage,
			ExecutedAt:      r.ExecutedAt.Time(),
		})
	}
	return res, nil
}

func (s *strategyService) SignalList(ctx context.Context, userId, id int64, page, pageSize int) (res model.SignalListRes, err error) {
	rows, total, err := s.sd.SignalList(ctx, userId, id, page, pageSize)
	if err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "查询信号记录失败")
	}
	res.Total = total
	res.List = make([]model.SignalRecord, 0, len(rows))
	for _, r := range rows {
		res.List = append(res.List, model.SignalRecord{
			Id:                 r.Id,
			SignalType:         model.SignalType(r.SignalType),
			Price:              r.Price,
			Message:            r.Message,
			Acted:              r.Acted,
			PriceChangePercent: r.PriceChangePercent,
			CreatedAt:          r.CreatedAt,
		})
	}
	return res, nil
}

// validateLots 分批卖出时档位比例合计必须为100
func validateLots(gradual bool, lots []model.Lot) error {
	if !gradual {
		return nil
	}
	if len(lots) == 0 {
		return errors.WithCode(ecode.ValidateErr, "分批卖出必须配置档位")
	}
	var sum float64
	for _, lot := range lots {
		if lot.SellPercent <= 0 {
			return errors.WithCode(ecode.ValidateErr, "档位比例必须大于0")
		}
		sum += lot.SellPercent
	}
	if math.Abs(sum-100) > 1e-6 {
		return errors.WithCode(ecode.ValidateErr, "档位比例合计必须为100，当前为%.2f", sum)
	}
	return nil
}

// normalizeLots 重排档位编号并清掉客户端传入的执行痕迹
func normalizeLots(lots []model.Lot) []model.Lot {
	out := make([]model.Lot, len(lots))
	for i, lot := range lots {
		out[i] = model.Lot{
			LotNo:       i + 1,
			SellPercent: lot.SellPercent,
		}
	}
	return out
}

func toStrategyRes(st *entity.Strategy) (res model.StrategyRes, err error) {
	state, err := model.StateFromEntity(st)
	if err != nil {
		return res, errors.Wrap(err, ecode.StrategyErr, "策略数据损坏")
	}
	res = model.StrategyRes{
		Id:                 st.Id,
		Name:               st.Name,
		Description:        st.Description,
		Symbol:             st.Symbol,
		ExchangeId:         st.ExchangeId,
		ExchangeName:       st.ExchangeName,
		IsActive:           st.IsActive,
		Status:             model.Status(st.Status),
		BasePrice:          st.BasePrice,
		TriggerPercent:     st.TriggerPercent,
		StopLossPercent:    st.StopLossPercent,
		GradualSell:        st.GradualSell,
		Lots:               state.Lots,
		GradualCooldownMin: st.GradualCooldownMin,
		LotStepPercent:     st.LotStepPercent,
		MaxRuntimeMin:      st.MaxRuntimeMin,
		MinInvestment:      st.MinInvestment,
		CheckIntervalSec:   st.CheckIntervalSec,
		LastPrice:          st.LastPrice,
		ErrorMessage:       st.ErrorMessage,
		TotalPnlUsd:        st.TotalPnlUsd,
		TotalExecutions:    st.TotalExecutions,
		CreatedAt:          st.CreatedAt,
		UpdatedAt:          st.UpdatedAt,
	}
	if state.Position.Exists() {
		p := state.Position
		res.Position = &p
	}
	if st.LastCheckedAt != nil {
		t := utils.JsonTime(*st.LastCheckedAt)
		res.LastCheckedAt = &t
	}
	return res, nil
}
