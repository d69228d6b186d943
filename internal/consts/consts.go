package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId   = "request_id"
	UserID      = "user_id"
	JWTTokenCtx = "token_ctx"

	// 请求的SecretKey
	RequestSecretKey = "9f31c6b2a84d1705ee2bbfcd6e19a4c7"

	// 默认redis过期时间
	RedisExrDefault = time.Hour * 24 * 5

	// 汇率缓存前缀
	RatePrefix = "fx:rate:"

	// 用户信息缓存前缀
	UserInfoPrefix = "user_info:"
)

const (
	LanguageId    = "T-Language-Id"
	PlatformType  = "T-Platform-Type"
	ClientId      = "T-App-Id"
	ClientVersion = "T-App-Version"
	DeviceId      = "T-D-Id"
	Timestamp     = "T-Timestamp"
	Signature     = "T-Signature"

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"
)

// 策略引擎相关
const (
	// 仓位数量小于该精度时视为已清空
	QuantityEpsilon = 1e-8
	// 策略信号环形缓冲上限，超出后裁剪最老的记录
	SignalKeepCount = 100
)

const (
	StandardUser = iota + 1
	PlusMember
)

var RoleToString = map[int]string{
	StandardUser: "Standard", // 标准用户
	PlusMember:   "Plus",     // Plus 订阅用户
}

const (
	PlatformIOS     = "iOS"
	PlatformAndroid = "android"
	PlatformWeb     = "web"
)
