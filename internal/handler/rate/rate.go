package rate

import (
	"coinpilot/internal/model"
	"coinpilot/internal/service"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/response"
	"coinpilot/pkg/validator"

	"github.com/gin-gonic/gin"
)

type RateHandler struct {
	service service.RateService
}

func NewRateHandler(service service.RateService) *RateHandler {
	return &RateHandler{service: service}
}

// @Summary		汇率表
// @Description	以base计价的汇率表，缓存1小时
// @Produce		json
// @Success		200	{object}	response.ApiResponse{data=model.ExchangeRateRes}
// @Router			/api/v1/rates/{base} [get]
func (handler *RateHandler) RateGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res, err := handler.service.RateGet(ctx, ctx.Param("base"))
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		金额换算
// @Produce		json
// @Param			from	query		string	true	"源币种"
// @Param			to		query		string	true	"目标币种"
// @Param			amount	query		number	true	"金额"
// @Success		200		{object}	response.ApiResponse{data=model.RateConvertRes}
// @Router			/api/v1/rates/convert [get]
func (handler *RateHandler) RateConvert() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.RateConvertReq
		if err := ctx.ShouldBindQuery(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		res, err := handler.service.RateConvert(ctx, req)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
