package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"coinpilot/conf"
	"coinpilot/internal/exchange"
	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
)

// 桩交易所dao，只喂凭证和清单
type stubExchangeDao struct {
	creds    []entity.UserExchange
	catalogs []entity.ExchangeCatalog
	userIds  []int64
}

func (d *stubExchangeDao) UserExchangeCreate(ctx context.Context, ue *entity.UserExchange) error {
	return nil
}

func (d *stubExchangeDao) UserExchangeList(ctx context.Context, userId int64) ([]entity.UserExchange, error) {
	return d.creds, nil
}

func (d *stubExchangeDao) UserExchangeGet(ctx context.Context, userId, id int64) (entity.UserExchange, error) {
	return entity.UserExchange{}, nil
}

func (d *stubExchangeDao) UserExchangeUpdate(ctx context.Context, userId, id int64, columns map[string]interface{}) error {
	return nil
}

func (d *stubExchangeDao) UserExchangeDelete(ctx context.Context, userId, id int64) error {
	return nil
}

func (d *stubExchangeDao) ActiveCredentialUserIds(ctx context.Context) ([]int64, error) {
	return d.userIds, nil
}

func (d *stubExchangeDao) CatalogList(ctx context.Context) ([]entity.ExchangeCatalog, error) {
	return d.catalogs, nil
}

func (d *stubExchangeDao) CatalogGet(ctx context.Context, id int64) (entity.ExchangeCatalog, error) {
	return entity.ExchangeCatalog{}, nil
}

// 桩快照dao，全内存
type stubBalanceDao struct {
	saved  []entity.BalanceSnapshot
	exists map[int64]bool
}

func (d *stubBalanceDao) SnapshotUpsert(ctx context.Context, snap *entity.BalanceSnapshot) error {
	snap.Id = int64(len(d.saved) + 1)
	d.saved = append(d.saved, *snap)
	return nil
}

func (d *stubBalanceDao) SnapshotExists(ctx context.Context, userId int64, date string) (bool, error) {
	return d.exists[userId], nil
}

func (d *stubBalanceDao) SnapshotList(ctx context.Context, userId int64, limit int) ([]entity.BalanceSnapshot, error) {
	return d.saved, nil
}

// 桩解析器，按凭证id返回连接器
type stubResolver struct {
	conns map[int64]exchange.Connector
	errOn int64
}

func (r *stubResolver) Resolve(ctx context.Context, userId, exchangeRef int64) (exchange.Connector, error) {
	if r.errOn != 0 && exchangeRef == r.errOn {
		return nil, errors.New("credential revoked")
	}
	return r.conns[exchangeRef], nil
}

// 桩汇率服务
type stubRateService struct {
	rates map[string]float64
	err   error
}

func (r *stubRateService) RateGet(ctx context.Context, base string) (model.ExchangeRateRes, error) {
	if r.err != nil {
		return model.ExchangeRateRes{}, r.err
	}
	return model.ExchangeRateRes{Base: base, Rates: r.rates, FetchedAt: time.Now().Unix()}, nil
}

func (r *stubRateService) RateConvert(ctx context.Context, req model.RateConvertReq) (model.RateConvertRes, error) {
	return model.RateConvertRes{}, r.err
}

func seededConnector() *exchange.SimulatedConnector {
	conn := exchange.NewSimulatedConnector()
	conn.SetPrice("BTC/USDT", 60000)
	conn.SetBalance("BTC", 0.5, 0.5)
	conn.SetBalance("USDT", 1000, 800)
	return conn
}

func testBalanceService(ed *stubExchangeDao, bd *stubBalanceDao, resolver *stubResolver, rates RateService) *balanceService {
	if rates == nil {
		rates = &stubRateService{rates: map[string]float64{"BRL": 5.5}}
	}
	return NewBalanceService(bd, ed, resolver, rates)
}

func TestBalanceListValuesAssets(t *testing.T) {
	ed := &stubExchangeDao{
		creds:    []entity.UserExchange{{Id: 1, UserId: 10, ExchangeId: 2, Label: "主账户", IsActive: true}},
		catalogs: []entity.ExchangeCatalog{{Id: 2, Name: "OKX"}},
	}
	resolver := &stubResolver{conns: map[int64]exchange.Connector{1: seededConnector()}}
	bs := testBalanceService(ed, &stubBalanceDao{}, resolver, nil)
	defer bs.Close()

	res, err := bs.BalanceList(context.Background(), 10)
	if err != nil {
		t.Fatalf("BalanceList: %v", err)
	}
	// 0.5 BTC * 60000 + 1000 USDT = 31000
	if math.Abs(res.TotalUsd-31000) > 1e-6 {
		t.Errorf("total got %f, want 31000", res.TotalUsd)
	}
	if len(res.Exchanges) != 1 {
		t.Fatalf("应有1个交易所, got %d", len(res.Exchanges))
	}
	entry := res.Exchanges[0]
	if entry.ExchangeName != "OKX" || entry.Error != "" {
		t.Errorf("entry异常: %+v", entry)
	}
	if len(entry.Tokens) != 2 {
		t.Fatalf("应有2个币种, got %d", len(entry.Tokens))
	}
	// 稳定币按1美元计价
	for _, token := range entry.Tokens {
		if token.Coin == "USDT" && token.PriceUsd != 1 {
			t.Errorf("USDT应按1估值, got %f", token.PriceUsd)
		}
	}
}

func TestBalanceListSkipsInactiveAndIsolatesFailure(t *testing.T) {
	ed := &stubExchangeDao{
		creds: []entity.UserExchange{
			{Id: 1, ExchangeId: 2, IsActive: true},
			{Id: 7, ExchangeId: 3, IsActive: true}, // resolver会失败
			{Id: 9, ExchangeId: 2, IsActive: false},
		},
		catalogs: []entity.ExchangeCatalog{{Id: 2, Name: "OKX"}, {Id: 3, Name: "Simulated"}},
	}
	resolver := &stubResolver{conns: map[int64]exchange.Connector{1: seededConnector()}, errOn: 7}
	bs := testBalanceService(ed, &stubBalanceDao{}, resolver, nil)
	defer bs.Close()

	res, err := bs.BalanceList(context.Background(), 10)
	if err != nil {
		t.Fatalf("单个交易所失败不应让整体报错: %v", err)
	}
	// 停用的凭证不出现，失败的带Error出现
	if len(res.Exchanges) != 2 {
		t.Fatalf("应有2个entry, got %d", len(res.Exchanges))
	}
	if res.Exchanges[1].CredentialId != 7 || res.Exchanges[1].Error == "" {
		t.Errorf("失败交易所应带Error: %+v", res.Exchanges[1])
	}
	if math.Abs(res.TotalUsd-31000) > 1e-6 {
		t.Errorf("失败交易所不计入总额, got %f", res.TotalUsd)
	}

	sum, err := bs.BalanceSummary(context.Background(), 10)
	if err != nil {
		t.Fatalf("BalanceSummary: %v", err)
	}
	if sum.ExchangesCount != 1 || sum.TokensCount != 2 {
		t.Errorf("汇总只统计成功的交易所: %+v", sum)
	}
}

func TestSnapshotSaveConvertsWithFallbackRate(t *testing.T) {
	old := conf.AppConfig.Rate.SnapshotCurrency
	conf.AppConfig.Rate.SnapshotCurrency = "BRL"
	defer func() { conf.AppConfig.Rate.SnapshotCurrency = old }()

	ed := &stubExchangeDao{
		creds:    []entity.UserExchange{{Id: 1, ExchangeId: 2, IsActive: true}},
		catalogs: []entity.ExchangeCatalog{{Id: 2, Name: "OKX"}},
	}
	resolver := &stubResolver{conns: map[int64]exchange.Connector{1: seededConnector()}}
	bd := &stubBalanceDao{}
	// 汇率接口不可用，应退回兜底汇率
	bs := testBalanceService(ed, bd, resolver, &stubRateService{err: errors.New("rate api down")})
	defer bs.Close()

	snap, err := bs.SnapshotSave(context.Background(), 10)
	if err != nil {
		t.Fatalf("SnapshotSave: %v", err)
	}
	if math.Abs(snap.TotalConverted-31000*fallbackConvertRate) > 1e-6 {
		t.Errorf("兜底折算错误, got %f", snap.TotalConverted)
	}
	if snap.Date != time.Now().UTC().Format(snapshotDateLayout) {
		t.Errorf("快照日期应为UTC当日, got %s", snap.Date)
	}
	if len(bd.saved) != 1 {
		t.Fatalf("应落库1条快照, got %d", len(bd.saved))
	}
	if len(snap.Details) != 1 || snap.Details[0].TokensCount != 2 {
		t.Errorf("快照明细异常: %+v", snap.Details)
	}
}

func TestSnapshotSweepSkipsUsersWithTodaySnapshot(t *testing.T) {
	ed := &stubExchangeDao{
		creds:    []entity.UserExchange{{Id: 1, ExchangeId: 2, IsActive: true}},
		catalogs: []entity.ExchangeCatalog{{Id: 2, Name: "OKX"}},
		userIds:  []int64{10, 20},
	}
	resolver := &stubResolver{conns: map[int64]exchange.Connector{1: seededConnector()}}
	bd := &stubBalanceDao{exists: map[int64]bool{10: true}}
	bs := testBalanceService(ed, bd, resolver, nil)
	defer bs.Close()

	bs.snapshotSweep()
	if len(bd.saved) != 1 {
		t.Fatalf("当日已有快照的用户应跳过, saved=%d", len(bd.saved))
	}
	if bd.saved[0].UserId != 20 {
		t.Errorf("应只给用户20生成快照, got user=%d", bd.saved[0].UserId)
	}
}
