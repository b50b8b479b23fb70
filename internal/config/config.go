package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Limiters  LimitersConfig  `yaml:"limiters"`
	Birdeye   BirdeyeConfig   `yaml:"birdeye"`
	Solana    SolanaConfig    `yaml:"solana"`
	Cache     CacheConfig     `yaml:"cache"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Stores    StoresConfig    `yaml:"stores"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	API       APIConfig       `yaml:"api"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type AppConfig struct {
	InstanceID      string        `yaml:"instance_id"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type RateBucket struct {
	RefillPerSec int           `yaml:"refill_per_sec"` // how many tokens are add every second
	Burst        int           `yaml:"burst"`          // max len bucket
	TTL          time.Duration `yaml:"ttl"`            // how long should you keep a key if it isn't use
}

// Inbound limit of the HTTP API, token bucket in redis
type RateLimitConfig struct {
	Enabled        bool       `yaml:"enabled"`
	ByIP           RateBucket `yaml:"by_ip"`
	TrustedProxies []string   `yaml:"trusted_proxies"` // ips or cidrs allowed to set X-Forwarded-For
}

// Outbound pacing per external API family
type LimiterConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstCapacity     int     `yaml:"burst_capacity"`
	AdaptiveTiming    *bool   `yaml:"adaptive_timing"`
}

type LimitersConfig struct {
	Price LimiterConfig `yaml:"price"`
	Chain LimiterConfig `yaml:"chain"`
}

type BirdeyeConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Chain     string        `yaml:"chain"`
	Timeframe string        `yaml:"timeframe"` // 1m|5m|15m|30m|1H|4H|1D
	Timeout   time.Duration `yaml:"timeout"`
}

type SolanaConfig struct {
	RPCURL       string `yaml:"rpc_url"`
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
}

type RedisCacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	MaxEntries int              `yaml:"max_entries"`
	EvictCount int              `yaml:"evict_count"`
	Redis      RedisCacheConfig `yaml:"redis"`
}

type AggregateConfig struct {
	SOLPriceUSD float64 `yaml:"sol_price_usd"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type StoresConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type PubSubConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
	Headers []string `yaml:"headers"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	CORS         CORSConfig    `yaml:"cors"`
}

type APIConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

type PyroscopeConfig struct {
	Enabled    bool              `yaml:"enabled"`
	AppName    string            `yaml:"app_name"`
	ServerAddr string            `yaml:"server_addr"`
	AuthToken  string            `yaml:"auth_token"`
	Tags       map[string]string `yaml:"tags"`
}

type MetricsConfig struct {
	Pyroscope PyroscopeConfig `yaml:"pyroscope"`
}

// Environment overrides; kept apart from Config so env never walks the yaml tree.
// An unset or empty variable leaves the yaml value alone.
type envOverrides struct {
	InstanceID     string  `env:"APP_INSTANCE_ID"`
	LogLevel       string  `env:"LOG_LEVEL"`
	BirdeyeBase    string  `env:"BIRDEYE_API_BASE"`
	BirdeyeAPIKey  string  `env:"BIRDEYE_API_KEY"`
	BirdeyeRPS     float64 `env:"BIRDEYE_RATE_LIMIT"`
	HeliusRPS      float64 `env:"HELIUS_RATE_LIMIT"`
	SolanaRPCURL   string  `env:"SOLANA_RPC_URL"`
	RedisAddr      string  `env:"REDIS_ADDR"`
	RedisPassword  string  `env:"REDIS_PASSWORD"`
	NATSURL        string  `env:"NATS_URL"`
	HTTPAddr       string  `env:"HTTP_ADDR"`
	PyroscopeToken string  `env:"PYROSCOPE_AUTH_TOKEN"`
}

func (o envOverrides) apply(c *Config) {
	setString(&c.App.InstanceID, o.InstanceID)
	setString(&c.Logging.Level, o.LogLevel)
	setString(&c.Birdeye.BaseURL, o.BirdeyeBase)
	setString(&c.Birdeye.APIKey, o.BirdeyeAPIKey)
	setString(&c.Solana.RPCURL, o.SolanaRPCURL)
	setString(&c.Stores.Redis.Addr, o.RedisAddr)
	setString(&c.Stores.Redis.Password, o.RedisPassword)
	setString(&c.PubSub.NATS.URL, o.NATSURL)
	setString(&c.API.HTTP.Addr, o.HTTPAddr)
	setString(&c.Metrics.Pyroscope.AuthToken, o.PyroscopeToken)

	if o.BirdeyeRPS > 0 {
		c.Limiters.Price.RequestsPerSecond = o.BirdeyeRPS
	}
	if o.HeliusRPS > 0 {
		c.Limiters.Chain.RequestsPerSecond = o.HeliusRPS
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Load reads yaml, applies env overrides and defaults, then validates
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config, error=%w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables, error=%w", err)
	}
	ov.apply(&cfg)

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 10 * time.Second
	}

	if c.Limiters.Price.RequestsPerSecond == 0 {
		c.Limiters.Price.RequestsPerSecond = 1
	}
	if c.Limiters.Price.BurstCapacity == 0 {
		c.Limiters.Price.BurstCapacity = 50
	}
	if c.Limiters.Chain.RequestsPerSecond == 0 {
		c.Limiters.Chain.RequestsPerSecond = 200
	}
	if c.Limiters.Chain.BurstCapacity == 0 {
		c.Limiters.Chain.BurstCapacity = 50
	}

	if c.Birdeye.BaseURL == "" {
		c.Birdeye.BaseURL = "https://public-api.birdeye.so/defi"
	}
	if c.Birdeye.Chain == "" {
		c.Birdeye.Chain = "solana"
	}
	if c.Birdeye.Timeframe == "" {
		c.Birdeye.Timeframe = "30m"
	}
	if c.Birdeye.Timeout <= 0 {
		c.Birdeye.Timeout = 15 * time.Second
	}

	if c.Solana.DefaultLimit <= 0 {
		c.Solana.DefaultLimit = 5
	}
	if c.Solana.MaxLimit <= 0 {
		c.Solana.MaxLimit = 100
	}

	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1000
	}
	if c.Cache.EvictCount <= 0 {
		c.Cache.EvictCount = 500
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "walletpnl:analysis:"
	}
	if c.Cache.Redis.TTL <= 0 {
		c.Cache.Redis.TTL = time.Hour
	}

	if c.Aggregate.SOLPriceUSD <= 0 {
		c.Aggregate.SOLPriceUSD = 150
	}

	if c.PubSub.NATS.SubjectPrefix == "" {
		c.PubSub.NATS.SubjectPrefix = "walletpnl.summary"
	}

	if c.API.HTTP.Addr == "" {
		c.API.HTTP.Addr = ":8080"
	}
	if c.API.HTTP.ReadTimeout <= 0 {
		c.API.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.API.HTTP.WriteTimeout <= 0 {
		c.API.HTTP.WriteTimeout = 5 * time.Minute // a wallet analysis waits on the price limiter
	}
	if c.API.HTTP.IdleTimeout <= 0 {
		c.API.HTTP.IdleTimeout = 60 * time.Second
	}
}

func (c *Config) Validate() error {
	for name, l := range map[string]LimiterConfig{"price": c.Limiters.Price, "chain": c.Limiters.Chain} {
		if l.RequestsPerSecond <= 0 {
			return fmt.Errorf("limiters.%s.requests_per_second must be > 0", name)
		}
		if l.BurstCapacity < 1 {
			return fmt.Errorf("limiters.%s.burst_capacity must be >= 1", name)
		}
	}

	if c.Solana.RPCURL == "" {
		return errors.New("solana.rpc_url is required")
	}
	if c.Solana.DefaultLimit > c.Solana.MaxLimit {
		return fmt.Errorf("solana.default_limit=%d exceeds max_limit=%d", c.Solana.DefaultLimit, c.Solana.MaxLimit)
	}

	if c.Cache.EvictCount > c.Cache.MaxEntries {
		return fmt.Errorf("cache.evict_count=%d exceeds max_entries=%d", c.Cache.EvictCount, c.Cache.MaxEntries)
	}

	if (c.Cache.Redis.Enabled || c.RateLimit.Enabled) && c.Stores.Redis.Addr == "" {
		return errors.New("stores.redis.addr is required when redis cache or rate limit is enabled")
	}

	if c.PubSub.NATS.Enabled && c.PubSub.NATS.URL == "" {
		return errors.New("pubsub.nats.url is required when nats is enabled")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
