package service

import (
	"coinpilot/conf"
	"coinpilot/internal/consts"
	"coinpilot/internal/model"
	"coinpilot/pkg/cache"
	"coinpilot/pkg/errors"
	"coinpilot/pkg/errors/ecode"
	"coinpilot/pkg/logger"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
)

type RateService interface {
	// 查询以base计价的汇率表
	RateGet(ctx context.Context, base string) (model.ExchangeRateRes, error)
	// 金额换算
	RateConvert(ctx context.Context, req model.RateConvertReq) (model.RateConvertRes, error)
}

type rateService struct {
	httpClient *http.Client
	rc         *redis.Client
}

func NewRateService() *rateService {
	return &rateService{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rc: cache.GetRedisClient(),
	}
}

// 上游返回结构
type rateApiPayload struct {
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
	TimeLastUpd int64              `json:"time_last_updated"`
}

func (r *rateService) RateGet(ctx context.Context, base string) (res model.ExchangeRateRes, err error) {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = "USD"
	}

	rdsKey := consts.RatePrefix + base
	jsonBytes, err := r.rc.Get(ctx, rdsKey).Bytes()
	if err == nil {
		if err = json.Unmarshal(jsonBytes, &res); err == nil {
			return res, nil
		}
		logger.Errorf("汇率缓存反序列化失败:%v", err.Error())
	} else if err != redis.Nil {
		logger.Errorf("Redis连接异常:%v", err.Error())
	}

	payload, err := r.fetch(ctx, base)
	if err != nil {
		return res, err
	}
	res.Base = payload.Base
	res.Rates = payload.Rates
	res.FetchedAt = time.Now().Unix()

	if jsonBytes, err = json.Marshal(res); err == nil {
		ttl := conf.AppConfig.Rate.CacheTTL
		if ttl <= 0 {
			ttl = time.Hour
		}
		if err = r.rc.Set(ctx, rdsKey, jsonBytes, ttl).Err(); err != nil {
			logger.Errorf("汇率写入Cache失败:%v", err.Error())
		}
	}
	return res, nil
}

func (r *rateService) RateConvert(ctx context.Context, req model.RateConvertReq) (res model.RateConvertRes, err error) {
	from := strings.ToUpper(strings.TrimSpace(req.From))
	to := strings.ToUpper(strings.TrimSpace(req.To))

	table, err := r.RateGet(ctx, from)
	if err != nil {
		return res, err
	}
	rate, ok := table.Rates[to]
	if !ok {
		return res, errors.WithCode(ecode.RateErr, "不支持的目标币种: %s", to)
	}
	res.From = from
	res.To = to
	res.Amount = req.Amount
	res.Rate = rate
	res.Result = req.Amount * rate
	return res, nil
}

// fetch 请求上游汇率接口
func (r *rateService) fetch(ctx context.Context, base string) (*rateApiPayload, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(conf.AppConfig.Rate.BaseURL, "/"), base)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, ecode.RateErr, "创建请求失败")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, ecode.RateErr, "汇率接口请求失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.WithCode(ecode.RateErr, "汇率接口返回 %d", resp.StatusCode)
	}

	var payload rateApiPayload
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, ecode.RateErr, "汇率响应解析失败")
	}
	if len(payload.Rates) == 0 {
		return nil, errors.WithCode(ecode.RateErr, "不支持的币种: %s", base)
	}
	return &payload, nil
}
