package service

import (
	"coinpilot/internal/exchange"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/logger"
	"context"
	"sync"
	"time"
)

// 实时价格服务：按订阅的交易对轮询连接器，缓存最新价

// TickerData 单个交易对的实时行情
type TickerData struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"last_price"`
	Change    float64 `json:"change"`     // 相对上一笔缓存价的涨跌幅（%）
	UpdatedAt int64   `json:"updated_at"` // unix毫秒
}

type TickerService interface {
	// SubscribeSymbols 订阅一个或多个交易对
	SubscribeSymbols(ctx context.Context, symbols []string) error
	// UnsubscribeSymbols 取消订阅
	UnsubscribeSymbols(ctx context.Context, symbols []string) error
	// GetPrice 最新行情
	GetPrice(ctx context.Context, symbol string) (*TickerData, error)
	// GetPrices 批量获取
	GetPrices(ctx context.Context, symbols []string) ([]*TickerData, error)
	Close() error
}

// pollTicker 基于Connector轮询的实现，simulated和okx连接器都能喂
type pollTicker struct {
	sync.RWMutex
	conn       exchange.Connector
	subscribed map[string]struct{}
	prices     map[string]*TickerData
	interval   time.Duration
	closeCh    chan struct{}
	closeOnce  sync.Once
}

func NewPollTicker(conn exchange.Connector, interval time.Duration) *pollTicker {
	if interval <= 0 {
		interval = time.Second
	}
	s := &pollTicker{
		conn:       conn,
		subscribed: make(map[string]struct{}),
		prices:     make(map[string]*TickerData),
		interval:   interval,
		closeCh:    make(chan struct{}),
	}
	go s.pollLoop()
	return s
}

var _ TickerService = (*pollTicker)(nil)

func (s *pollTicker) pollLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

func (s *pollTicker) pollOnce() {
	s.RLock()
	symbols := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		symbols = append(symbols, sym)
	}
	s.RUnlock()

	for _, sym := range symbols {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		price, err := s.conn.GetLastPrice(ctx, sym)
		cancel()
		if err != nil {
			logger.Debugf("行情轮询失败 %s: %v", sym, err)
			continue
		}
		s.Lock()
		prev := s.prices[sym]
		data := &TickerData{
			Symbol:    sym,
			LastPrice: price,
			UpdatedAt: time.Now().UnixMilli(),
		}
		if prev != nil && prev.LastPrice > 0 {
			data.Change = (price - prev.LastPrice) / prev.LastPrice * 100
		}
		s.prices[sym] = data
		s.Unlock()
	}
}

func (s *pollTicker) SubscribeSymbols(ctx context.Context, symbols []string) error {
	s.Lock()
	for _, sym := range symbols {
		s.subscribed[sym] = struct{}{}
	}
	s.Unlock()
	// 立刻拉一次，订阅后首个广播就有数据
	s.pollOnce()
	return nil
}

func (s *pollTicker) UnsubscribeSymbols(ctx context.Context, symbols []string) error {
	s.Lock()
	defer s.Unlock()
	for _, sym := range symbols {
		delete(s.subscribed, sym)
		delete(s.prices, sym)
	}
	return nil
}

func (s *pollTicker) GetPrice(ctx context.Context, symbol string) (*TickerData, error) {
	s.RLock()
	data, ok := s.prices[symbol]
	s.RUnlock()
	if ok {
		return data, nil
	}
	// 未订阅的直接穿透到连接器
	price, err := s.conn.GetLastPrice(ctx, symbol)
	if err != nil {
		return nil, errors.Wrapf(err, ecode.ExchangeErr, "获取行情失败: %s", symbol)
	}
	return &TickerData{
		Symbol:    symbol,
		LastPrice: price,
		UpdatedAt: time.Now().UnixMilli(),
	}, nil
}

func (s *pollTicker) GetPrices(ctx context.Context, symbols []string) ([]*TickerData, error) {
	list := make([]*TickerData, 0, len(symbols))
	for _, sym := range symbols {
		data, err := s.GetPrice(ctx, sym)
		if err != nil {
			continue
		}
		list = append(list, data)
	}
	return list, nil
}

func (s *pollTicker) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
	})
	return nil
}
