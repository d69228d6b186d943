package model

// 用户登陆发起请求的参数
type UserLoginReq struct {
	Username string `json:"username" binding:"required" label:"用户名"`
	Password string `json:"password" binding:"required" label:"密码"`
}

// 用户登陆成功响应的结构体
type UserLoginRes struct {
	Token   string `json:"token"`
	Timeout int    `json:"timeout"`
	Role    int    `json:"role"`
	UserId  int64  `json:"user_id"`
}

// 用户注册的参数
type UserRegisterReq struct {
	Username string `json:"username" binding:"required,min=3,max=32" label:"用户名"`
	Password string `json:"password" binding:"required,min=6" label:"密码"`
	Email    string `json:"email" binding:"required,email" label:"邮箱地址"`
	Nickname string `json:"nickname" label:"昵称"`
}

type UserRegisterRes struct {
	IsSuccess bool  `json:"is_success"`
	UserId    int64 `json:"user_id"`
}

type UserRefreshTokenRes struct {
	Token   string `json:"token"`
	Timeout int    `json:"timeout"`
}

type UserGetInfoRes struct {
	UserId   int64  `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Role     int    `json:"role"`
}
