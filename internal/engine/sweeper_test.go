package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coinpilot/conf"
	"coinpilot/internal/exchange"
	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
)

// 内存版StrategyDao，扫描器测试用
type memDao struct {
	mu      sync.Mutex
	rows    map[int64]*entity.Strategy
	patches []*model.StrategyPatch
	failOn  int64 // 指定策略落库失败
}

func newMemDao() *memDao {
	return &memDao{rows: make(map[int64]*entity.Strategy)}
}

func (d *memDao) StrategyCreate(ctx context.Context, s *entity.Strategy) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows[s.Id] = s
	return nil
}

func (d *memDao) StrategyGet(ctx context.Context, userId, id int64) (entity.Strategy, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.rows[id]; ok && s.UserId == userId {
		return *s, nil
	}
	return entity.Strategy{}, errors.New("not found")
}

func (d *memDao) StrategyList(ctx context.Context, userId int64, req *model.StrategyListReq) ([]entity.Strategy, int64, error) {
	return nil, 0, nil
}

func (d *memDao) StrategyUpdate(ctx context.Context, userId, id int64, columns map[string]interface{}) error {
	return nil
}

func (d *memDao) StrategyDelete(ctx context.Context, userId, id int64) error {
	return nil
}

func (d *memDao) StrategyListRunnable(ctx context.Context) ([]entity.Strategy, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []entity.Strategy
	for _, s := range d.rows {
		if s.IsActive && model.Status(s.Status).Processable() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (d *memDao) ApplyTickPatch(ctx context.Context, patch *model.StrategyPatch) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failOn == patch.StrategyId {
		return errors.New("persistence failed")
	}
	d.patches = append(d.patches, patch)
	row, ok := d.rows[patch.StrategyId]
	if !ok {
		return errors.New("not found")
	}
	if v, ok := patch.Columns["last_checked_at"]; ok {
		t := v.(time.Time)
		row.LastCheckedAt = &t
	}
	if v, ok := patch.Columns["status"]; ok {
		row.Status = v.(string)
	}
	if v, ok := patch.Columns["is_active"]; ok {
		row.IsActive = v.(bool)
	}
	return nil
}

func (d *memDao) ExecutionList(ctx context.Context, userId, strategyId int64, page, pageSize int) ([]entity.StrategyExecution, int64, error) {
	return nil, 0, nil
}

func (d *memDao) SignalList(ctx context.Context, userId, strategyId int64, page, pageSize int) ([]entity.StrategySignal, int64, error) {
	return nil, 0, nil
}

func (d *memDao) ExecutionStats(ctx context.Context, userId, strategyId int64) (model.StrategyStatsRes, error) {
	return model.StrategyStatsRes{}, nil
}

// 按 exchange_id 分发连接器的解析器
type fakeResolver struct {
	conns map[int64]exchange.Connector
	errOn int64
}

func (r *fakeResolver) Resolve(ctx context.Context, userId, exchangeRef int64) (exchange.Connector, error) {
	if exchangeRef == r.errOn {
		return nil, errors.New("credentials not found")
	}
	conn, ok := r.conns[exchangeRef]
	if !ok {
		return nil, errors.New("credentials not found")
	}
	return conn, nil
}

func testEngineConfig() conf.EngineConfig {
	return conf.EngineConfig{
		SweepInterval:  time.Second,
		StrategyDelay:  time.Millisecond,
		OrderTimeout:   time.Second,
		WorkerPoolSize: 2,
	}
}

func runnableRow(id, exchangeId int64, intervalSec int) *entity.Strategy {
	return &entity.Strategy{
		Id:               id,
		UserId:           10,
		Name:             "test",
		Symbol:           "BTC/USDT",
		ExchangeId:       exchangeId,
		IsActive:         true,
		Status:           string(model.StatusMonitoring),
		BasePrice:        100,
		TriggerPercent:   10,
		StopLossPercent:  5,
		CheckIntervalSec: intervalSec,
	}
}

func TestSweepDebounceSingleFetch(t *testing.T) {
	d := newMemDao()
	_ = d.StrategyCreate(context.Background(), runnableRow(1, 1, 60))
	conn := &orderConnector{price: 105}
	e := New(d, &fakeResolver{conns: map[int64]exchange.Connector{1: conn}}, testEngineConfig())
	defer e.Close()

	e.RunOnce(context.Background())
	e.RunOnce(context.Background())

	if got := atomic.LoadInt32(&conn.priceCalls); got != 1 {
		t.Errorf("防抖间隔内两轮扫描最多取价一次, got %d", got)
	}
}

func TestSweepFailureIsolation(t *testing.T) {
	d := newMemDao()
	_ = d.StrategyCreate(context.Background(), runnableRow(1, 1, 60))
	_ = d.StrategyCreate(context.Background(), runnableRow(2, 2, 60))

	bad := &orderConnector{priceErr: errors.New("exchange timeout")}
	good := &orderConnector{price: 105}
	e := New(d, &fakeResolver{conns: map[int64]exchange.Connector{1: bad, 2: good}}, testEngineConfig())
	defer e.Close()

	stats := e.RunOnce(context.Background())

	if stats.Total != 2 || stats.Processed != 2 {
		t.Fatalf("两个策略都应被处理: %+v", stats)
	}
	if stats.Errors != 1 {
		t.Errorf("只有一个策略出错: %+v", stats)
	}
	if atomic.LoadInt32(&good.priceCalls) != 1 {
		t.Error("一个策略失败不能挡住其他策略")
	}

	// 失败的策略last_checked_at同样推进
	row, _ := d.StrategyGet(context.Background(), 10, 1)
	if row.LastCheckedAt == nil {
		t.Error("取价失败的策略也要推进last_checked_at")
	}
}

func TestSweepCredentialFailureDeactivates(t *testing.T) {
	d := newMemDao()
	_ = d.StrategyCreate(context.Background(), runnableRow(1, 9, 60))
	e := New(d, &fakeResolver{conns: map[int64]exchange.Connector{}, errOn: 9}, testEngineConfig())
	defer e.Close()

	e.RunOnce(context.Background())

	row, _ := d.StrategyGet(context.Background(), 10, 1)
	if row.Status != string(model.StatusError) {
		t.Errorf("凭证缺失应error态, got %s", row.Status)
	}
	if row.IsActive {
		t.Error("error态必须停用")
	}
}

func TestSweepPersistenceFailureKeepsRetry(t *testing.T) {
	d := newMemDao()
	d.failOn = 1
	_ = d.StrategyCreate(context.Background(), runnableRow(1, 1, 60))
	conn := &orderConnector{price: 105}
	e := New(d, &fakeResolver{conns: map[int64]exchange.Connector{1: conn}}, testEngineConfig())
	defer e.Close()

	stats := e.RunOnce(context.Background())
	if stats.Errors != 1 {
		t.Errorf("落库失败应计为错误: %+v", stats)
	}
	// last_checked_at没推进，下一轮不会被防抖挡掉
	row, _ := d.StrategyGet(context.Background(), 10, 1)
	if row.LastCheckedAt != nil {
		t.Error("落库失败时不应推进last_checked_at")
	}
}

func TestManualTickMutualExclusion(t *testing.T) {
	d := newMemDao()
	row := runnableRow(1, 1, 60)
	_ = d.StrategyCreate(context.Background(), row)
	conn := &orderConnector{price: 105}
	e := New(d, &fakeResolver{conns: map[int64]exchange.Connector{1: conn}}, testEngineConfig())
	defer e.Close()

	if !e.tryLock(1) {
		t.Fatal("首次加锁应成功")
	}
	s, _ := model.StateFromEntity(row)
	if _, err := e.TickAndPersist(context.Background(), s); err != ErrTickInProgress {
		t.Errorf("持锁期间tick应被拒绝, got %v", err)
	}
	e.unlock(1)
	if _, err := e.TickAndPersist(context.Background(), s); err != nil {
		t.Errorf("解锁后应正常, got %v", err)
	}
}

func TestTickExpiredStrategySkipsEntryBuy(t *testing.T) {
	d := newMemDao()
	conn := &orderConnector{price: 100}
	e := New(d, &fakeResolver{conns: map[int64]exchange.Connector{1: conn}}, testEngineConfig())
	defer e.Close()

	// 超时两小时的无持仓策略，配了建仓金额也不能再开新仓
	s := monitoringStrategy()
	s.ExchangeId = 1
	s.MinInvestment = 500
	s.MaxRuntimeMin = 1
	s.CreatedAt = time.Now().Add(-2 * time.Hour)

	res := e.Tick(context.Background(), s, time.Now())
	if len(res.Signals) != 1 || res.Signals[0].Type != model.SignalExpired {
		t.Fatalf("应只有过期信号: %+v", res.Signals)
	}
	if len(res.Executions) != 0 {
		t.Fatalf("过期tick不得建仓: %+v", res.Executions)
	}
	if got := atomic.LoadInt32(&conn.orderCalls); got != 0 {
		t.Errorf("不应有任何下单调用, got %d", got)
	}
}

func TestSweepCountsSignalsAndOrders(t *testing.T) {
	d := newMemDao()
	row := runnableRow(1, 1, 60)
	// 有持仓且价格到触发价 => 会产出一笔卖单
	row.Status = string(model.StatusInPosition)
	row.PositionEntryPrice = 100
	row.PositionQuantity = 10
	row.PositionTotalCost = 1000
	_ = d.StrategyCreate(context.Background(), row)

	conn := &orderConnector{price: 110, fee: 1}
	e := New(d, &fakeResolver{conns: map[int64]exchange.Connector{1: conn}}, testEngineConfig())
	defer e.Close()

	stats := e.RunOnce(context.Background())
	if stats.SignalsGenerated == 0 {
		t.Error("应统计产生的信号")
	}
	if stats.OrdersExecuted != 1 {
		t.Errorf("应统计成交订单, got %d", stats.OrdersExecuted)
	}
	t.Logf("✅ sweep stats: %+v", stats)
}
