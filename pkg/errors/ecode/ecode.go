package ecode

// 业务错误码，0表示成功
const (
	Success = 0

	Unknown        = 10001 // 未知错误
	ValidateErr    = 10002 // 参数校验失败
	NotFoundErr    = 10003 // 资源不存在
	DatabaseErr    = 10004 // 数据库错误
	RequireAuthErr = 10005 // 鉴权失败
	TooManyErr     = 10006 // 请求过于频繁

	UserLoginErr = 20001 // 登录失败
	PasswordErr  = 20002 // 密码错误
	UserExistErr = 20003 // 用户已存在

	ExchangeErr   = 30001 // 交易所接口错误
	CredentialErr = 30002 // 交易所凭证缺失或无效
	StrategyErr   = 30003 // 策略状态不允许该操作
	RateErr       = 30004 // 汇率获取失败
	BalanceErr    = 30005 // 余额查询失败
)
