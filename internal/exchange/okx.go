package exchange

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	model2 "coinpilot/internal/model"
	goexv2 "github.com/nntaoli-project/goex/v2"
	"github.com/nntaoli-project/goex/v2/model"
	"github.com/nntaoli-project/goex/v2/okx/spot"
	"github.com/nntaoli-project/goex/v2/options"
)

// OkxConnector okx现货连接器，每套API凭证一个实例
type OkxConnector struct {
	mu      sync.Mutex
	apiConf []options.ApiOption
	pub     *spot.Spot
	prv     goexv2.IPrvRest
}

// 构造函数只存储配置，不初始化接口
func NewOkxConnector(apiKey, apiSecret, passphrase string) *OkxConnector {
	// okxv5 api 如果要使用模拟交易，需要切到到模拟交易下创建apikey
	opts := []options.ApiOption{
		options.WithApiKey(apiKey),
		options.WithApiSecretKey(apiSecret),
		options.WithPassphrase(passphrase),
	}
	return &OkxConnector{
		apiConf: opts,
	}
}

// 懒加载api服务，首次调用时拉取可交易币对
func (c *OkxConnector) ensureApi() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prv != nil {
		return nil
	}
	pub := goexv2.OKx.Spot
	if _, _, err := pub.GetExchangeInfo(); err != nil {
		return err
	}
	c.pub = pub
	c.prv = pub.NewPrvApi(c.apiConf...)
	return nil
}

// symbol 格式转换: "BTC/USDT" -> goex 需要的 CurrencyPair
func (c *OkxConnector) toCurrencyPair(symbol string) (model.CurrencyPair, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) == 1 { // 防止BTC-USDT
		parts = strings.Split(symbol, "-")
	}
	if len(parts) > 2 {
		parts = parts[:2]
	}
	if len(parts) != 2 {
		return model.CurrencyPair{}, errors.New("invalid symbol format, expected like BTC/USDT")
	}
	return c.pub.NewCurrencyPair(parts[0], parts[1])
}

func (c *OkxConnector) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.ensureApi(); err != nil {
		return 0, err
	}
	pair, err := c.toCurrencyPair(symbol)
	if err != nil {
		return 0, err
	}
	ticker, _, _ := c.pub.GetTicker(pair)
	if ticker == nil {
		return 0, errors.New("failed to get ticker")
	}
	return ticker.Last, nil
}

// 市价单并查询成交信息，把交易所回报压平成 OrderResult
func (c *OkxConnector) PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity float64) (*model2.OrderResult, error) {
	if err := c.ensureApi(); err != nil {
		return nil, err
	}
	pair, err := c.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}

	var orderSide model.OrderSide
	switch side {
	case SideBuy:
		orderSide = model.Spot_Buy
	case SideSell:
		orderSide = model.Spot_Sell
	default:
		return nil, errors.New("invalid order side")
	}

	createdOrder, _, err := c.prv.CreateOrder(pair, quantity, 0, orderSide, model.OrderType_Market)
	if err != nil {
		return nil, err
	}

	result := &model2.OrderResult{
		OrderID: createdOrder.Id,
		Status:  createdOrder.Status.String(),
	}

	// 市价单基本立即成交，回查一次拿到成交数量
	info, _, err := c.prv.GetOrderInfo(pair, createdOrder.Id)
	if err == nil && info != nil {
		result.Status = info.Status.String()
		result.Filled = info.ExecutedQty
	}
	if result.Filled <= 0 {
		result.Filled = quantity
	}

	// okx订单回报里没有直接的均价字段可靠可用，用最新价折算
	last, perr := c.GetLastPrice(ctx, symbol)
	if perr == nil && last > 0 {
		result.AvgPrice = last
		result.Cost = last * result.Filled
	}
	return result, nil
}

// GetBalances 查询账户全部资产。goex私有方法没有context，临时用超时控制
func (c *OkxConnector) GetBalances(ctx context.Context) (map[string]model2.AssetBalance, error) {
	if err := c.ensureApi(); err != nil {
		return nil, err
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ch := make(chan struct {
		bal map[string]model.Account
		err error
	})
	go func() {
		bal, _, err := c.prv.GetAccount("")
		ch <- struct {
			bal map[string]model.Account
			err error
		}{bal, err}
	}()

	select {
	case <-timeoutCtx.Done():
		return nil, timeoutCtx.Err()
	case result := <-ch:
		if result.err != nil {
			return nil, result.err
		}
		balances := make(map[string]model2.AssetBalance, len(result.bal))
		for coin, account := range result.bal {
			if account.Balance <= 0 {
				continue
			}
			balances[coin] = model2.AssetBalance{
				Coin:      account.Coin,
				Total:     account.Balance,
				Available: account.AvailableBalance,
				Frozen:    account.FrozenBalance,
			}
		}
		return balances, nil
	}
}
