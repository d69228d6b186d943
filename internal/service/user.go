package service

import (
	"coinpilot/conf"
	"coinpilot/internal/consts"
	"coinpilot/internal/dao"
	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
	"coinpilot/pkg/cache"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/jwt"
	"coinpilot/pkg/logger"
	"coinpilot/utils/security"
	"coinpilot/utils/uuid"
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

type UserService interface {
	UserRegister(ctx *gin.Context, req model.UserRegisterReq) (res model.UserRegisterRes, err error)
	UserLogin(ctx *gin.Context, username, password string) (res model.UserLoginRes, err error)
	UserLogout(ctx context.Context, tokenstr string) error
	UserRefresh(ctx *gin.Context) (res model.UserLoginRes, err error)
	UserGetInfo(ctx context.Context, userId int64) (res model.UserGetInfoRes, err error)
	UserDelete(ctx *gin.Context) error
}

// userService 实现UserService接口
type userService struct {
	ud   dao.UserDao
	iSrv uuid.SnowNode
	rc   *redis.Client
}

func NewUserService(ud dao.UserDao) *userService {
	return &userService{
		ud:   ud,
		iSrv: *uuid.NewNode(3),
		rc:   cache.GetRedisClient(),
	}
}

func (u *userService) UserRegister(ctx *gin.Context, req model.UserRegisterReq) (res model.UserRegisterRes, err error) {
	res.IsSuccess = false
	count, err := u.ud.UserVerifyUsername(ctx, req.Username)
	if err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "查询用户名失败")
	}
	if count > 0 {
		return res, errors.WithCode(ecode.UserExistErr, "用户名已被占用: %s", req.Username)
	}
	count, err = u.ud.UserVerifyEmail(ctx, req.Email)
	if err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "查询邮箱失败")
	}
	if count > 0 {
		return res, errors.WithCode(ecode.UserExistErr, "邮箱已被占用: %s", req.Email)
	}

	user := entity.User{}
	user.Id = u.iSrv.GenSnowID()
	ctx.Set(consts.UserID, user.Id)
	user.Username = req.Username
	user.Nickname = req.Nickname
	if user.Nickname == "" {
		user.Nickname = req.Username
	}
	user.Email = req.Email
	user.RegisteredIp = ctx.ClientIP()
	user.Role = consts.StandardUser
	user.IsActive = true
	user.IsAnonymous = false
	user.Password, err = security.Encrypt(req.Password)
	if err != nil {
		return res, errors.Wrap(err, ecode.Unknown, "密码加密失败")
	}

	if err = u.ud.UserCreate(ctx, &user); err != nil {
		logger.Infof("创建用户失败: %s", err)
		return res, errors.Wrap(err, ecode.DatabaseErr, "创建用户失败")
	}
	res.IsSuccess = true
	res.UserId = user.Id
	return res, nil
}

func (u *userService) UserLogin(ctx *gin.Context, username, password string) (res model.UserLoginRes, err error) {
	userInfo, err := u.ud.UserGetByName(ctx, username)
	if err != nil {
		logger.Infof("查询用户失败: %s", err)
		return res, errors.WithCode(ecode.UserLoginErr, "用户不存在: %s", username)
	}
	if userInfo.IsActive != true {
		return res, errors.WithCode(ecode.UserLoginErr, "用户未激活")
	}
	if !security.ValidatePassword(password, userInfo.Password) {
		logger.Infof("密码错误: %s", username)
		return res, errors.WithCode(ecode.PasswordErr, "密码错误")
	}

	token, settime, err := u.issueToken(userInfo.Id, userInfo.Role, userInfo.IsAnonymous)
	if err != nil {
		logger.Infof("Jwt Token 生成错误: %s", username)
		return res, err
	}
	res.Token = token
	res.Timeout = int(settime) * 1000
	res.Role = userInfo.Role
	res.UserId = userInfo.Id
	ctx.Set(consts.UserID, userInfo.Id)
	return res, nil
}

func (u *userService) UserLogout(ctx context.Context, tokenstr string) error {
	return jwt.JoinBlackList(ctx, tokenstr, conf.AppConfig.Jwt.Secret)
}

func (u *userService) UserRefresh(ctx *gin.Context) (res model.UserLoginRes, err error) {
	userId := ctx.GetInt64(consts.UserID)
	tokenStr := ctx.GetString(consts.JWTTokenCtx)
	userInfo, err := u.ud.UserGetById(ctx, userId)
	if err != nil {
		logger.Infof("查询用户失败: %s", err)
		return res, errors.WithCode(ecode.UserLoginErr, "用户不存在: %d", userId)
	}
	if userInfo.IsActive != true {
		return res, errors.WithCode(ecode.UserLoginErr, "用户未激活")
	}

	token, settime, err := u.issueToken(userInfo.Id, userInfo.Role, userInfo.IsAnonymous)
	if err != nil {
		logger.Infof("Jwt Token 生成错误: %s", userInfo.Username)
		return res, err
	}
	res.Token = token
	res.Timeout = int(settime) * 1000
	res.Role = userInfo.Role
	res.UserId = userInfo.Id
	// 旧token作废
	if err = jwt.JoinBlackList(ctx, tokenStr, conf.AppConfig.Jwt.Secret); err != nil {
		logger.Infof("加入黑名单失败: %s", userInfo.Username)
	}
	return res, nil
}

func (u *userService) UserGetInfo(ctx context.Context, userId int64) (res model.UserGetInfoRes, err error) {
	// 先查redis缓存
	rdsKey := consts.UserInfoPrefix + strconv.FormatInt(userId, 10)
	jsonBytes, err := u.rc.Get(ctx, rdsKey).Bytes()
	if err == nil {
		if err = json.Unmarshal(jsonBytes, &res); err == nil {
			res.UserId = userId
			return res, nil
		}
		logger.Errorf("UserGetInfoRes反序列化失败:%v", err.Error())
	} else if err != redis.Nil {
		logger.Errorf("Redis连接异常:%v", err.Error())
	}

	user, err := u.ud.UserGetById(ctx, userId)
	if err != nil {
		return res, errors.Wrap(err, ecode.NotFoundErr, "用户不存在")
	}
	res.UserId = user.Id
	res.Username = user.Username
	res.Nickname = user.Nickname
	res.Email = user.Email
	res.Role = user.Role

	jsonBytes, err = json.Marshal(res)
	if err != nil {
		return res, nil
	}
	// 写回缓存 10分钟过期
	if err = u.rc.Set(ctx, rdsKey, jsonBytes, time.Minute*10).Err(); err != nil {
		logger.Errorf("UserGetInfoRes存储Cache失败:%v", err.Error())
	}
	return res, nil
}

func (u *userService) UserDelete(ctx *gin.Context) error {
	userId := ctx.GetInt64(consts.UserID)
	if userId == 0 {
		return errors.WithCode(ecode.RequireAuthErr, "未登录")
	}
	_ = u.rc.Del(ctx, consts.UserInfoPrefix+strconv.FormatInt(userId, 10))
	return u.ud.UserDelete(ctx, userId)
}

// issueToken 生成jwt, ttl加入随机抖动避免同批token同时过期
func (u *userService) issueToken(userId int64, role int, isAnonymous bool) (token string, settime int64, err error) {
	r := rand.New(rand.NewSource(time.Now().Unix()))
	num := r.Intn(100)
	settime = conf.AppConfig.Jwt.JwtTtl + int64(num*9)
	timeout := time.Duration(settime) * time.Second
	expireAt := time.Now().Add(timeout)
	claims := jwt.BuildClaims(expireAt, userId, role, isAnonymous, false)
	token, err = jwt.GenToken(claims, conf.AppConfig.Jwt.Secret)
	if err != nil {
		return "", 0, errors.Wrap(err, ecode.Unknown, "生成token失败")
	}
	return token, settime, nil
}
