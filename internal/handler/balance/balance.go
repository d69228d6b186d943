package balance

import (
	"coinpilot/internal/consts"
	"coinpilot/internal/service"
	"coinpilot/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type BalanceHandler struct {
	service service.BalanceService
}

func NewBalanceHandler(service service.BalanceService) *BalanceHandler {
	return &BalanceHandler{service: service}
}

// @Summary		账户资产
// @Description	实时聚合用户全部活跃凭证下的资产，按USD估值
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.BalanceListRes}
// @Router			/api/v1/balances [get]
func (handler *BalanceHandler) BalanceList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.BalanceList(ctx, userId)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		资产汇总
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.BalanceSummaryRes}
// @Router			/api/v1/balances/summary [get]
func (handler *BalanceHandler) BalanceSummary() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.BalanceSummary(ctx, userId)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		快照列表
// @Description	历史资产快照，时间倒序
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Param			limit			query		int		false	"返回条数，默认90"
// @Success		200				{object}	response.ApiResponse{data=[]model.SnapshotRes}
// @Router			/api/v1/snapshots [get]
func (handler *BalanceHandler) SnapshotList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		limit := cast.ToInt(ctx.Query("limit"))
		res, err := handler.service.SnapshotList(ctx, userId, limit)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		手动生成快照
// @Description	立即生成一份当日快照，已有则覆盖
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.SnapshotRes}
// @Router			/api/v1/snapshots/save [post]
func (handler *BalanceHandler) SnapshotSave() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.SnapshotSave(ctx, userId)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
