package user

import (
	"coinpilot/internal/consts"
	"coinpilot/internal/model"
	"coinpilot/internal/service"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/response"
	"coinpilot/pkg/validator"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// @Summary		用户注册接口
// @Accept			json
// @Produce		json
// @Param			object	body		model.UserRegisterReq	true	"注册参数"
// @Success		200		{object}	response.ApiResponse{data=model.UserRegisterRes}
// @Router			/api/v1/auth/register [post]
func (handler *UserHandler) UserRegister() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.UserRegisterReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		res, err := handler.service.UserRegister(ctx, req)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		用户登陆
// @Description	用户密码登陆
// @Accept			json
// @Produce		json
// @Param			object	body		model.UserLoginReq	true	"登陆参数"
// @Success		200		{object}	response.ApiResponse{data=model.UserLoginRes}
// @Router			/api/v1/auth/login [post]
func (handler *UserHandler) UserLogin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.UserLoginReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}

		res, err := handler.service.UserLogin(ctx, req.Username, req.Password)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.UserLoginErr, "登陆失败：账号或密码错误"), nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		用户登出
// @Description	当前token加入黑名单
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/user/logout [post]
func (handler *UserHandler) UserLogout() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := ctx.GetString(consts.JWTTokenCtx)
		if err := handler.service.UserLogout(ctx, tokenStr); err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.Unknown, "登出失败"), nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		刷新token
// @Description	旧token作废，返回新token
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.UserLoginRes}
// @Router			/api/v1/user/refresh [post]
func (handler *UserHandler) UserRefresh() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res, err := handler.service.UserRefresh(ctx)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		注销账号
// @Description	删除当前登陆用户及其缓存
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse
// @Router			/api/v1/user [delete]
func (handler *UserHandler) UserDelete() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := handler.service.UserDelete(ctx); err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.Unknown, "注销账号失败"), nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// @Summary		获取用户详情
// @Description	用来获取当前登陆用户的详细信息
// @Produce		json
// @Param			Authorization	header		string	true	"Bearer 用户令牌"
// @Success		200				{object}	response.ApiResponse{data=model.UserGetInfoRes}
// @Router			/api/v1/user/info [get]
func (handler *UserHandler) UserGetInfo() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := handler.service.UserGetInfo(ctx, userId)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.NotFoundErr, "未找到用户信息"), nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
