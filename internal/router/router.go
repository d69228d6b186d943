package router

import (
	"coinpilot/internal/handler/balance"
	"coinpilot/internal/handler/exchange"
	"coinpilot/internal/handler/ping"
	"coinpilot/internal/handler/rate"
	"coinpilot/internal/handler/strategy"
	"coinpilot/internal/handler/ticker"
	"coinpilot/internal/handler/user"
	"coinpilot/internal/middleware"

	"github.com/gin-gonic/gin"
)

type ApiRouter struct {
	userHandler     *user.UserHandler
	strategyHandler *strategy.StrategyHandler
	exchangeHandler *exchange.ExchangeHandler
	rateHandler     *rate.RateHandler
	balanceHandler  *balance.BalanceHandler
	tickerHandler   *ticker.Handler
}

func NewApiRouter(uh *user.UserHandler, sh *strategy.StrategyHandler, eh *exchange.ExchangeHandler, rh *rate.RateHandler, bh *balance.BalanceHandler, th *ticker.Handler) *ApiRouter {
	return &ApiRouter{
		userHandler:     uh,
		strategyHandler: sh,
		exchangeHandler: eh,
		rateHandler:     rh,
		balanceHandler:  bh,
		tickerHandler:   th,
	}
}

func (api *ApiRouter) Load(g *gin.Engine) {

	g.GET("/ping", ping.Ping())

	base := g.Group("/api/v1")

	auth := base.Group("/auth", middleware.AntiDuplicateMiddleware())
	{
		auth.POST("/login", api.userHandler.UserLogin())
		auth.POST("/register", api.userHandler.UserRegister())
	}

	u := base.Group("/user", middleware.AuthToken())
	{
		u.GET("/info", api.userHandler.UserGetInfo())
		u.POST("/logout", api.userHandler.UserLogout())
		u.POST("/refresh", api.userHandler.UserRefresh())
		u.DELETE("", api.userHandler.UserDelete())
	}

	s := base.Group("/strategies", middleware.AuthToken())
	{
		s.GET("", api.strategyHandler.StrategyList())
		s.POST("", api.strategyHandler.StrategyCreate())
		// process-all 要先于 :id 注册，避免被当成策略id
		s.POST("/process-all", api.strategyHandler.ProcessAll())
		s.GET("/:id", api.strategyHandler.StrategyGet())
		s.PUT("/:id", api.strategyHandler.StrategyUpdate())
		s.DELETE("/:id", api.strategyHandler.StrategyDelete())
		s.POST("/:id/activate", api.strategyHandler.StrategyActivate())
		s.POST("/:id/pause", api.strategyHandler.StrategyPause())
		s.POST("/:id/tick", api.strategyHandler.StrategyTick())
		s.GET("/:id/stats", api.strategyHandler.StrategyStats())
		s.GET("/:id/executions", api.strategyHandler.ExecutionList())
		s.GET("/:id/signals", api.strategyHandler.SignalList())
	}

	e := base.Group("/exchanges")
	{
		// 交易所清单公开
		e.GET("", api.exchangeHandler.CatalogList())

		c := e.Group("/credentials", middleware.AuthToken())
		{
			c.GET("", api.exchangeHandler.UserExchangeList())
			c.POST("", api.exchangeHandler.UserExchangeCreate())
			c.PUT("/:id", api.exchangeHandler.UserExchangeUpdate())
			c.DELETE("/:id", api.exchangeHandler.UserExchangeDelete())
		}
	}

	b := base.Group("/balances", middleware.AuthToken())
	{
		b.GET("", api.balanceHandler.BalanceList())
		b.GET("/summary", api.balanceHandler.BalanceSummary())
	}

	n := base.Group("/snapshots", middleware.AuthToken())
	{
		n.GET("", api.balanceHandler.SnapshotList())
		n.POST("/save", api.balanceHandler.SnapshotSave())
	}

	r := base.Group("/rates")
	{
		r.GET("/convert", api.rateHandler.RateConvert())
		r.GET("/:base", api.rateHandler.RateGet())
	}

	t := base.Group("/ticker")
	{
		// 通过websocket连接获取价格
		t.GET("/ws", api.tickerHandler.ServeWS)
		t.GET("", api.tickerHandler.TickerGet())
	}
}
