package api

import (
	"coinpilot/conf"
	"coinpilot/internal/dao/query"
	"coinpilot/internal/engine"
	exconn "coinpilot/internal/exchange"
	"coinpilot/internal/handler/balance"
	exchangeH "coinpilot/internal/handler/exchange"
	"coinpilot/internal/handler/rate"
	"coinpilot/internal/handler/strategy"
	"coinpilot/internal/handler/ticker"
	"coinpilot/internal/handler/user"
	"coinpilot/internal/router"
	"coinpilot/internal/service"
	"context"
	"time"

	"gorm.io/gorm"
)

func InitRouter(db *gorm.DB) Router {
	appCfg := conf.AppConfig

	ud := query.NewUserDao(db)
	sd := query.NewStrategyDao(db)
	ed := query.NewExchangeDao(db)
	bd := query.NewBalanceDao(db)

	es := service.NewExchangeService(ed)

	// 策略执行引擎，凭证解析走exchange service
	eng := engine.New(sd, es, appCfg.Engine)
	eng.Start(context.Background())

	us := service.NewUserService(ud)
	ss := service.NewStrategyService(sd, ed, eng)
	rs := service.NewRateService()

	// 资产快照调度随服务启动
	bs := service.NewBalanceService(bd, ed, es, rs)
	bs.StartSnapshotScheduler(appCfg.Rate.SnapshotInterval)

	// 行情源：配了okx密钥走okx，否则用本地模拟盘
	var feed exconn.Connector
	if appCfg.Okx.ApiKey != "" {
		feed = exconn.NewOkxConnector(appCfg.Okx.ApiKey, appCfg.Okx.SecretKey, appCfg.Okx.Password)
	} else {
		feed = exconn.NewSimulatedConnector()
	}
	ts := service.NewPollTicker(feed, time.Second)

	userHandler := user.NewUserHandler(us)
	strategyHandler := strategy.NewStrategyHandler(ss)
	exchangeHandler := exchangeH.NewExchangeHandler(es)
	rateHandler := rate.NewRateHandler(rs)
	balanceHandler := balance.NewBalanceHandler(bs)
	tickerHandler := ticker.NewHandler(ts)

	// 开始广播价格
	go tickerHandler.BroadcastPrices()

	return router.NewApiRouter(userHandler, strategyHandler, exchangeHandler, rateHandler, balanceHandler, tickerHandler)
}
