package conf

import (
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"time"
)

// 配置加载（API密钥等）

type Okx struct {
	ApiKey    string `yaml:"apiKey"`
	SecretKey string `yaml:"secretKey"`
	Password  string `yaml:"password"`
	Simulated bool   `yaml:"simulated"`
}

type Db struct {
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EngineConfig 策略执行引擎参数
type EngineConfig struct {
	SweepInterval      time.Duration `yaml:"sweep-interval"`       // 扫描活跃策略的周期
	WarmupDelay        time.Duration `yaml:"warmup-delay"`         // 启动后首次扫描前的等待
	StrategyDelay      time.Duration `yaml:"strategy-delay"`       // 相邻策略处理之间的间隔，避免打爆交易所限频
	OrderTimeout       time.Duration `yaml:"order-timeout"`        // 单次下单/行情调用超时
	WorkerPoolSize     int           `yaml:"worker-pool-size"`     // 阻塞型交易所调用的并发上限
	DefaultLotStep     float64       `yaml:"default-lot-step"`     // 分批卖出触发价档位递增系数
	DefaultIntervalSec int           `yaml:"default-interval-sec"` // 策略未配置时的最小检查间隔，0表示取扫描周期
}

type SecurityConfig struct {
	PrivateKey string `yaml:"private-key"` // 服务端curve25519私钥（hex）
	PublicKey  string `yaml:"public-key"`  // 存储公钥（hex）
	Salt       string `yaml:"salt"`
	SharedInfo string `yaml:"shared-info"`
}

type RateConfig struct {
	BaseURL          string        `yaml:"base-url"`
	CacheTTL         time.Duration `yaml:"cache-ttl"`
	SnapshotCurrency string        `yaml:"snapshot-currency"` // 快照折算的目标法币
	SnapshotInterval time.Duration `yaml:"snapshot-interval"` // 快照调度周期
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
	IdleTimeout  int    `yaml:"idle-timeout"`
}

type JwtConfig struct {
	Secret                  string `yaml:"secret"`
	JwtTtl                  int64  `yaml:"ttl"`              // token 有效期（秒）
	JwtBlacklistGracePeriod int64  `yaml:"blacklistperiod" ` // 黑名单宽限时间（秒）
}

type Config struct {
	AppName      string `yaml:"app_name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	Language     string `yaml:"language"`
	MaxPingCount int    `yaml:"max-ping-count"`
	ExternalURL  string `yaml:"external_url"`

	Okx      `yaml:"okx"`
	Db       `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Security SecurityConfig `yaml:"security"`
	Rate     RateConfig     `yaml:"rate"`
	Log      LogConfig      `yaml:"log"`
	Jwt      JwtConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	applyDefaults(&AppConfig)
	return nil
}

func applyDefaults(c *Config) {
	if c.Engine.SweepInterval <= 0 {
		c.Engine.SweepInterval = 30 * time.Second
	}
	if c.Engine.WarmupDelay <= 0 {
		c.Engine.WarmupDelay = 10 * time.Second
	}
	if c.Engine.StrategyDelay <= 0 {
		c.Engine.StrategyDelay = 100 * time.Millisecond
	}
	if c.Engine.OrderTimeout <= 0 || c.Engine.OrderTimeout > 60*time.Second {
		c.Engine.OrderTimeout = 30 * time.Second
	}
	if c.Engine.WorkerPoolSize <= 0 {
		c.Engine.WorkerPoolSize = 8
	}
	if c.Engine.DefaultLotStep <= 0 {
		c.Engine.DefaultLotStep = 0.5
	}
	if c.Rate.BaseURL == "" {
		c.Rate.BaseURL = "https://api.exchangerate-api.com/v4/latest"
	}
	if c.Rate.CacheTTL <= 0 {
		c.Rate.CacheTTL = time.Hour
	}
	if c.Rate.SnapshotCurrency == "" {
		c.Rate.SnapshotCurrency = "BRL"
	}
	if c.Rate.SnapshotInterval <= 0 {
		c.Rate.SnapshotInterval = time.Hour
	}
}
