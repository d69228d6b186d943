package engine

import (
	"errors"
	"sync"
	"time"

	"coinpilot/conf"
	"coinpilot/internal/dao"
	"coinpilot/internal/exchange"
	"coinpilot/pkg/workerpool"
)

var (
	// 策略未激活或处于不可处理状态
	ErrNotRunnable = errors.New("strategy is not runnable")
	// 同一策略的tick不允许重叠
	ErrTickInProgress = errors.New("strategy tick already in progress")
)

// Engine 策略执行引擎：tick协调、状态归并、后台扫描
type Engine struct {
	dao      dao.StrategyDao
	resolver exchange.Resolver
	pool     *workerpool.Pool
	cfg      conf.EngineConfig

	mu       sync.Mutex
	inflight map[int64]struct{} // 正在tick的策略id
}

func New(strategyDao dao.StrategyDao, resolver exchange.Resolver, cfg conf.EngineConfig) *Engine {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.WarmupDelay < 0 {
		cfg.WarmupDelay = 0
	}
	if cfg.StrategyDelay <= 0 {
		cfg.StrategyDelay = 100 * time.Millisecond
	}
	if cfg.OrderTimeout <= 0 || cfg.OrderTimeout > 60*time.Second {
		cfg.OrderTimeout = 30 * time.Second
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 8
	}
	return &Engine{
		dao:      strategyDao,
		resolver: resolver,
		pool:     workerpool.New(cfg.WorkerPoolSize),
		cfg:      cfg,
		inflight: make(map[int64]struct{}),
	}
}

// tryLock 同一策略的互斥，手动tick和扫描共享同一把锁
func (e *Engine) tryLock(strategyId int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[strategyId]; busy {
		return false
	}
	e.inflight[strategyId] = struct{}{}
	return true
}

func (e *Engine) unlock(strategyId int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, strategyId)
}

// Close 等待池内调用结束
func (e *Engine) Close() {
	e.pool.Close()
}
