package strategy

import (
	"coinpilot/internal/consts"
	"coinpilot/internal/model"
	"coinpilot/internal/service"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/response"
	"coinpilot/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type StrategyHandler struct {
	service service.StrategyService
}

func NewStrategyHandler(service service.StrategyService) *StrategyHandler {
	return &StrategyHandler{service: service}
}

// strategyId 从路径参数解析策略id
func strategyId(ctx *gin.Context) int64 {
	return cast.ToInt64(ctx.Param("id"))
}

// @Summary		创建策略
// @Accept			json
// @Produce		json
// @Param			Authorization	header		string					true	"Bearer 用户令牌"
// @Param			object			body		model.StrategyCreateReq	true	"策略配置"
// @Success		200				{object}	response.ApiResponse{data=model.StrategyRes}
// @Router			/api/v1/strategies [post]
func (handler *StrategyHandler) StrategyCreate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.StrategyCreateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.StrategyCreate(ctx, userId, req)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		策略列表
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Param			status			query		string	false	"状态过滤"
// @Success		200				{object}	response.ApiResponse{data=model.StrategyListRes}
// @Router			/api/v1/strategies [get]
func (handler *StrategyHandler) StrategyList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.StrategyListReq
		if err := ctx.ShouldBindQuery(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.StrategyList(ctx, userId, req)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		策略详情
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.StrategyRes}
// @Router			/api/v1/strategies/{id} [get]
func (handler *StrategyHandler) StrategyGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.StrategyGet(ctx, userId, strategyId(ctx))
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		更新策略配置
// @Accept			json
// @Produce		json
// @Param			Authorization	header		string					true	"Bearer 用户令牌"
// @Param			object			body		model.StrategyUpdateReq	true	"要修改的字段"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/strategies/{id} [put]
func (handler *StrategyHandler) StrategyUpdate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.StrategyUpdateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		if err := handler.service.StrategyUpdate(ctx, userId, strategyId(ctx), req); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		删除策略
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/strategies/{id} [delete]
func (handler *StrategyHandler) StrategyDelete() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		if err := handler.service.StrategyDelete(ctx, userId, strategyId(ctx)); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		激活策略
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/strategies/{id}/activate [post]
func (handler *StrategyHandler) StrategyActivate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		if err := handler.service.StrategyActivate(ctx, userId, strategyId(ctx)); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		暂停策略
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/strategies/{id}/pause [post]
func (handler *StrategyHandler) StrategyPause() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		if err := handler.service.StrategyPause(ctx, userId, strategyId(ctx)); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		手动触发一次tick
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.TickRes}
// @Router			/api/v1/strategies/{id}/tick [post]
func (handler *StrategyHandler) StrategyTick() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.StrategyTick(ctx, userId, strategyId(ctx))
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		手动触发整轮扫描
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.SweepStatsRes}
// @Router			/api/v1/strategies/process-all [post]
func (handler *StrategyHandler) ProcessAll() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := handler.service.ProcessAll(ctx)
		response.JSON(ctx, nil, res)
	}
}

// @Summary		策略执行统计
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.StrategyStatsRes}
// @Router			/api/v1/strategies/{id}/stats [get]
func (handler *StrategyHandler) StrategyStats() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.StrategyStats(ctx, userId, strategyId(ctx))
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		执行记录
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Param			page			query		int		false	"页码"
// @Param			page_size		query		int		false	"每页条数"
// @Success		200				{object}	response.ApiResponse{data=model.ExecutionListRes}
// @Router			/api/v1/strategies/{id}/executions [get]
func (handler *StrategyHandler) ExecutionList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		page := cast.ToInt(ctx.DefaultQuery("page", "1"))
		pageSize := cast.ToInt(ctx.DefaultQuery("page_size", "20"))
		res, err := handler.service.ExecutionList(ctx, userId, strategyId(ctx), page, pageSize)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		信号记录
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Param			page			query		int		false	"页码"
// @Param			page_size		query		int		false	"每页条数"
// @Success		200				{object}	response.ApiResponse{data=model.SignalListRes}
// @Router			/api/v1/strategies/{id}/signals [get]
func (handler *StrategyHandler) SignalList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		page := cast.ToInt(ctx.DefaultQuery("page", "1"))
		pageSize := cast.ToInt(ctx.DefaultQuery("page_size", "20"))
		res, err := handler.service.SignalList(ctx, userId, strategyId(ctx), page, pageSize)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
