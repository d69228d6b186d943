package service

import (
	"coinpilot/conf"
	"coinpilot/internal/dao"
	"coinpilot/internal/exchange"
	"coinpilot/internal/model"
	"coinpilot/internal/model/entity"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/logger"
	"coinpilot/utils"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// 账户资产聚合与每日快照

const (
	snapshotDateLayout = "2006-01-02"
	// 汇率接口不可用时的USD->BRL兜底汇率，快照宁可不准也不能断档
	fallbackConvertRate = 5.0
	// 相邻用户快照之间的间隔，所有用户打到同一批交易所接口上
	snapshotUserDelay = 500 * time.Millisecond
)

// 视作1美元的稳定币
var stablecoins = map[string]struct{}{
	"USDT": {}, "USDC": {}, "DAI": {}, "BUSD": {}, "USD": {},
}

type BalanceService interface {
	// 实时聚合用户全部凭证下的资产
	BalanceList(ctx context.Context, userId int64) (model.BalanceListRes, error)
	// 汇总视图：总额、交易所数、币种数
	BalanceSummary(ctx context.Context, userId int64) (model.BalanceSummaryRes, error)
	// 立即生成一份当日快照，已有则覆盖
	SnapshotSave(ctx context.Context, userId int64) (model.SnapshotRes, error)
	// 历史快照，时间倒序
	SnapshotList(ctx context.Context, userId int64, limit int) ([]model.SnapshotRes, error)
	Close() error
}

type balanceService struct {
	bd       dao.BalanceDao
	ed       dao.ExchangeDao
	resolver exchange.Resolver
	rates    RateService

	closeCh   chan struct{}
	closeOnce sync.Once
}

func NewBalanceService(bd dao.BalanceDao, ed dao.ExchangeDao, resolver exchange.Resolver, rates RateService) *balanceService {
	return &balanceService{
		bd:       bd,
		ed:       ed,
		resolver: resolver,
		rates:    rates,
		closeCh:  make(chan struct{}),
	}
}

var _ BalanceService = (*balanceService)(nil)

func (b *balanceService) BalanceList(ctx context.Context, userId int64) (res model.BalanceListRes, err error) {
	creds, err := b.ed.UserExchangeList(ctx, userId)
	if err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "查询凭证失败")
	}
	catalogs, err := b.ed.CatalogList(ctx)
	if err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "查询交易所失败")
	}
	names := make(map[int64]string, len(catalogs))
	for _, c := range catalogs {
		names[c.Id] = c.Name
	}

	// 各交易所并行拉取，单个失败不拖垮整体
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		entries []model.ExchangeBalanceRes
	)
	for _, cred := range creds {
		if !cred.IsActive {
			continue
		}
		wg.Add(1)
		go func(cred entity.UserExchange) {
			defer wg.Done()
			entry := b.fetchExchangeBalance(ctx, userId, cred, names[cred.ExchangeId])
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
		}(cred)
	}
	wg.Wait()

	sort.Slice(entries, func(i, j int) bool { return entries[i].CredentialId < entries[j].CredentialId })
	for _, entry := range entries {
		res.TotalUsd += entry.TotalUsd
	}
	res.Exchanges = entries
	res.Timestamp = time.Now().Unix()
	return res, nil
}

// fetchExchangeBalance 拉取单个凭证下的资产并按USD估值
func (b *balanceService) fetchExchangeBalance(ctx context.Context, userId int64, cred entity.UserExchange, exchangeName string) model.ExchangeBalanceRes {
	entry := model.ExchangeBalanceRes{
		CredentialId: cred.Id,
		ExchangeId:   cred.ExchangeId,
		ExchangeName: exchangeName,
		Label:        cred.Label,
	}
	conn, err := b.resolver.Resolve(ctx, userId, cred.Id)
	if err != nil {
		logger.Errorf("凭证解析失败 user=%d cred=%d: %v", userId, cred.Id, err)
		entry.Error = err.Error()
		return entry
	}
	balances, err := conn.GetBalances(ctx)
	if err != nil {
		logger.Errorf("余额拉取失败 user=%d cred=%d: %v", userId, cred.Id, err)
		entry.Error = err.Error()
		return entry
	}

	coins := make([]string, 0, len(balances))
	for coin := range balances {
		coins = append(coins, coin)
	}
	sort.Strings(coins)
	for _, coin := range coins {
		bal := balances[coin]
		token := model.TokenBalanceRes{
			Coin:      coin,
			Total:     bal.Total,
			Available: bal.Available,
			Frozen:    bal.Frozen,
		}
		token.PriceUsd = b.priceUsd(ctx, conn, coin)
		token.ValueUsd = bal.Total * token.PriceUsd
		entry.TotalUsd += token.ValueUsd
		entry.Tokens = append(entry.Tokens, token)
	}
	return entry
}

// priceUsd 单币估值，稳定币按1，其余走USDT交易对，拿不到价按0计
func (b *balanceService) priceUsd(ctx context.Context, conn exchange.Connector, coin string) float64 {
	if _, ok := stablecoins[strings.ToUpper(coin)]; ok {
		return 1
	}
	price, err := conn.GetLastPrice(ctx, coin+"/USDT")
	if err != nil {
		logger.Debugf("估值失败 %s: %v", coin, err)
		return 0
	}
	return price
}

func (b *balanceService) BalanceSummary(ctx context.Context, userId int64) (res model.BalanceSummaryRes, err error) {
	list, err := b.BalanceList(ctx, userId)
	if err != nil {
		return res, err
	}
	res.TotalUsd = list.TotalUsd
	res.Timestamp = list.Timestamp
	for _, entry := range list.Exchanges {
		if entry.Error != "" {
			continue
		}
		res.ExchangesCount++
		res.TokensCount += len(entry.Tokens)
	}
	return res, nil
}

func (b *balanceService) SnapshotSave(ctx context.Context, userId int64) (res model.SnapshotRes, err error) {
	list, err := b.BalanceList(ctx, userId)
	if err != nil {
		return res, err
	}

	details := make([]model.SnapshotDetail, 0, len(list.Exchanges))
	for _, entry := range list.Exchanges {
		if entry.Error != "" {
			continue
		}
		details = append(details, model.SnapshotDetail{
			ExchangeId:   entry.ExchangeId,
			ExchangeName: entry.ExchangeName,
			BalanceUsd:   entry.TotalUsd,
			TokensCount:  len(entry.Tokens),
		})
	}
	detailsJson, err := json.Marshal(details)
	if err != nil {
		return res, errors.Wrap(err, ecode.BalanceErr, "快照明细序列化失败")
	}

	currency := conf.AppConfig.Rate.SnapshotCurrency
	snap := entity.BalanceSnapshot{
		UserId:         userId,
		Date:           time.Now().UTC().Format(snapshotDateLayout),
		TotalUsd:       list.TotalUsd,
		TotalConverted: list.TotalUsd * b.convertRate(ctx, currency),
		Currency:       currency,
		Details:        detailsJson,
		CreatedAt:      utils.JsonTime(time.Now()),
	}
	if err = b.bd.SnapshotUpsert(ctx, &snap); err != nil {
		return res, errors.Wrap(err, ecode.DatabaseErr, "保存快照失败")
	}
	return model.SnapshotRes{
		Id:             snap.Id,
		Date:           snap.Date,
		TotalUsd:       snap.TotalUsd,
		TotalConverted: snap.TotalConverted,
		Currency:       snap.Currency,
		Details:        details,
		CreatedAt:      snap.CreatedAt,
	}, nil
}

// convertRate USD->目标法币汇率，接口失败时用兜底值
func (b *balanceService) convertRate(ctx context.Context, currency string) float64 {
	if currency == "" || currency == "USD" {
		return 1
	}
	table, err := b.rates.RateGet(ctx, "USD")
	if err == nil {
		if rate, ok := table.Rates[currency]; ok && rate > 0 {
			return rate
		}
	}
	logger.Warnf("汇率获取失败，快照使用兜底汇率 %s=%.2f: %v", currency, fallbackConvertRate, err)
	return fallbackConvertRate
}

func (b *balanceService) SnapshotList(ctx context.Context, userId int64, limit int) ([]model.SnapshotRes, error) {
	rows, err := b.bd.SnapshotList(ctx, userId, limit)
	if err != nil {
		return nil, errors.Wrap(err, ecode.DatabaseErr, "查询快照失败")
	}
	list := make([]model.SnapshotRes, 0, len(rows))
	for _, row := range rows {
		res := model.SnapshotRes{
			Id:             row.Id,
			Date:           row.Date,
			TotalUsd:       row.TotalUsd,
			TotalConverted: row.TotalConverted,
			Currency:       row.Currency,
			CreatedAt:      row.CreatedAt,
		}
		if len(row.Details) > 0 {
			if err = json.Unmarshal(row.Details, &res.Details); err != nil {
				logger.Errorf("快照明细反序列化失败 id=%d: %v", row.Id, err)
			}
		}
		list = append(list, res)
	}
	return list, nil
}

// StartSnapshotScheduler 启动快照调度：先立即跑一轮，之后按周期扫描。
// 每个持有活跃凭证的用户每天一份，当日已有快照的跳过。
func (b *balanceService) StartSnapshotScheduler(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		b.snapshotSweep()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.closeCh:
				return
			case <-ticker.C:
				b.snapshotSweep()
			}
		}
	}()
}

func (b *balanceService) snapshotSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	userIds, err := b.ed.ActiveCredentialUserIds(ctx)
	if err != nil {
		logger.Errorf("快照调度查询用户失败: %v", err)
		return
	}
	date := time.Now().UTC().Format(snapshotDateLayout)
	saved := 0
	for i, userId := range userIds {
		select {
		case <-b.closeCh:
			return
		default:
		}
		exists, err := b.bd.SnapshotExists(ctx, userId, date)
		if err != nil {
			logger.Errorf("快照存在性检查失败 user=%d: %v", userId, err)
			continue
		}
		if exists {
			continue
		}
		if _, err = b.SnapshotSave(ctx, userId); err != nil {
			logger.Errorf("用户快照失败 user=%d: %v", userId, err)
			continue
		}
		saved++
		if i < len(userIds)-1 {
			time.Sleep(snapshotUserDelay)
		}
	}
	if saved > 0 {
		logger.Infof("快照调度完成 date=%s users=%d saved=%d", date, len(userIds), saved)
	}
}

func (b *balanceService) Close() error {
	b.closeOnce.Do(func() {
		close(b.closeCh)
	})
	return nil
}
