package exchange

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

type ExchangeHandler struct {
	service service.ExchangeService
}

func NewExchangeHandler(service service.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{service: service}
}

// @Summary		绑定交易所API凭证
// @Accept			json
// @Produce		json
// @Param			Authorization	header		string						true	"Bearer 用户令牌"
// @Param			object			body		model.UserExchangeCreateReq	true	"凭证参数"
// @Success		200				{object}	response.ApiResponse{data=model.UserExchangeRes}
// @Router			/api/v1/exchanges/credentials [post]
func (handler *ExchangeHandler) UserExchangeCreate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.UserExchangeCreateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.UserExchangeCreate(ctx, userId, req)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		凭证列表
// @Description	密钥只回显掩码，不返回明文
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=[]model.UserExchangeRes}
// @Router			/api/v1/exchanges/credentials [get]
func (handler *ExchangeHandler) UserExchangeList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.UserExchangeList(ctx, userId)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		更新凭证
// @Accept			json
// @Produce		json
// @Param			Authorization	header		string						true	"Bearer 用户令牌"
// @Param			object			body		model.UserExchangeUpdateReq	true	"要修改的字段"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/exchanges/credentials/{id} [put]
func (handler *ExchangeHandler) UserExchangeUpdate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.UserExchangeUpdateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		id := cast.ToInt64(ctx.Param("id"))
		if err := handler.service.UserExchangeUpdate(ctx, userId, id, req); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		删除凭证
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/exchanges/credentials/{id} [delete]
func (handler *ExchangeHandler) UserExchangeDelete() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		id := cast.ToInt64(ctx.Param("id"))
		if err := handler.service.UserExchangeDelete(ctx, userId, id); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		支持的交易所清单
// @Produce		json
// @Success		200	{object}	response.ApiResponse{data=[]model.ExchangeCatalogRes}
// @Router			/api/v1/exchanges [get]
func (handler *ExchangeHandler) CatalogList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res, err := handler.service.CatalogList(ctx)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
