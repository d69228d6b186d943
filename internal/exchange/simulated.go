package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"coinpilot/internal/model"
	"github.com/google/uuid"
)

// SimulatedConnector 模拟连接器，内存价格加小幅波动，订单立即成交。
// 本地联调和测试用。
type SimulatedConnector struct {
	mu       sync.Mutex
	prices   map[string]float64
	orders   map[string]*model.OrderResult
	balances map[string]model.AssetBalance
	feeRate  float64
	drift    bool
	failWith error // 注入的失败，下一次调用返回后清除
}

func NewSimulatedConnector() *SimulatedConnector {
	return &SimulatedConnector{
		prices:   make(map[string]float64),
		orders:   make(map[string]*model.OrderResult),
		balances: make(map[string]model.AssetBalance),
		feeRate:  0.001,
		drift:    true,
	}
}

// SetPrice 设置固定价格，同时关闭波动，测试期望确定的数值
func (s *SimulatedConnector) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
	s.drift = false
}

// FailNextWith 注入一次失败
func (s *SimulatedConnector) FailNextWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *SimulatedConnector) takeInjectedFailure() error {
	err := s.failWith
	s.failWith = nil
	return err
}

// 返回本地价格并做小幅浮动
func (s *SimulatedConnector) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeInjectedFailure(); err != nil {
		return 0, err
	}

	price, ok := s.prices[symbol]
	if !ok {
		// 如果没有初始化，随机一个价格并记录
		price = 10000 + rand.Float64()*2000
		s.prices[symbol] = price
	}
	if s.drift {
		// 模拟价格波动 ±0.5%
		fluctuation := (rand.Float64()*0.01 - 0.005) * price
		price += fluctuation
		s.prices[symbol] = price
	}
	return price, nil
}

func (s *SimulatedConnector) PlaceMarketOrder(ctx context.Context, symbol string, side Side, quantity float64) (*model.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeInjectedFailure(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("invalid quantity: %f", quantity)
	}
	price, ok := s.prices[symbol]
	if !ok {
		price = 10000 + rand.Float64()*2000
		s.prices[symbol] = price
	}

	cost := price * quantity
	result := &model.OrderResult{
		OrderID:  uuid.NewString(),
		Status:   "filled",
		Filled:   quantity,
		AvgPrice: price,
		Cost:     cost,
		Fee:      cost * s.feeRate,
	}
	s.orders[result.OrderID] = result
	return result, nil
}

// SetBalance 设置模拟账户某币种的持仓
func (s *SimulatedConnector) SetBalance(coin string, total, available float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[coin] = model.AssetBalance{
		Coin:      coin,
		Total:     total,
		Available: available,
		Frozen:    total - available,
	}
}

func (s *SimulatedConnector) GetBalances(ctx context.Context) (map[string]model.AssetBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.takeInjectedFailure(); err != nil {
		return nil, err
	}
	out := make(map[string]model.AssetBalance, len(s.balances))
	for coin, bal := range s.balances {
		if bal.Total <= 0 {
			continue
		}
		out[coin] = bal
	}
	return out, nil
}

// GetOrder 查询历史模拟订单
func (s *SimulatedConnector) GetOrder(orderID string) (*model.OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order not found: %s", orderID)
	}
	return order, nil
}
