package middleware

import (
	"github.com/gin-gonic/gin"
)

// Middleware 全局中间件链，作为一个Router挂到gin上
type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

func (m *Middleware) Load(g *gin.Engine) {
	g.Use(gin.Recovery())
	g.Use(RequestId())
	g.Use(ApiBaseHeader())
	g.Use(Logger)
	g.Use(NoCache())
	g.Use(Options())
	g.Use(Secure())
}
