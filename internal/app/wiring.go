package app

import (
	"context"
	"fmt"
	nethttp "net/http"
	"walletpnl/internal/aggregate"
	"walletpnl/internal/api/http"
	"walletpnl/internal/api/http/handlers"
	"walletpnl/internal/api/http/mw"
	"walletpnl/internal/birdeye"
	"walletpnl/internal/chain/solana"
	"walletpnl/internal/config"
	"walletpnl/internal/metrics"
	"walletpnl/internal/priceanalysis"
	"walletpnl/internal/pricecache"
	"walletpnl/internal/pubsub"
	"walletpnl/internal/pubsub/nats"
	"walletpnl/internal/scheduler"
	"walletpnl/internal/service"
	"walletpnl/internal/stores/redis"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	lgcfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

type Container struct {
	log logger.Logger
	app *App

	// infra, nil when disabled
	redis *redis.Client
	nc    *nats.Client

	wallet  *service.WalletService
	httpSrv *http.Server

	// metrics
	registry *prometheus.Registry
	profiler *pyroscope.Profiler
}

func (c *Container) Start() error {
	return c.app.Start()
}

func (c *Container) Stop(ctx context.Context) error {
	if err := c.app.Shutdown(ctx); err != nil {
		return fmt.Errorf("app shutdown is failed, error=%w", err)
	}
	return nil
}

// Cleanup releases the external clients, safe on a partially built container
func (c *Container) Cleanup() {
	if c.profiler != nil {
		if err := c.profiler.Stop(); err != nil {
			c.log.Errorf("Failed to stop profiler: %v", err)
		}
	}

	if c.nc != nil {
		if err := c.nc.Close(); err != nil {
			c.log.Errorf("Failed to close nats client: %v", err)
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Errorf("Failed to close redis client: %v", err)
		}
	}

	c.log.Info("Successfully cleaned up dependency")
}

// Build constructs the whole app from config
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	lg := logger.New(lgcfg.LoggerCfg{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	lg.Info("Successfully initialize logger")

	c := &Container{log: lg, registry: metrics.NewRegistry()}

	if err := c.buildInfra(ctx, cfg); err != nil {
		c.Cleanup()
		return nil, err
	}

	if err := c.buildWallet(cfg); err != nil {
		c.Cleanup()
		return nil, err
	}

	c.buildHTTP(cfg)
	c.app = NewApp(lg, c.httpSrv)

	lg.Info("Successfully initialize Wiring")
	return c, nil
}

func (c *Container) buildInfra(ctx context.Context, cfg *config.Config) error {
	profiler, err := metrics.InitPProf(c.log, &cfg.Metrics.Pyroscope, cfg.App.InstanceID)
	if err != nil {
		return fmt.Errorf("pyroscope initialize failed, error=%w", err)
	}
	if profiler != nil {
		c.profiler = profiler
		c.log.Infof("Successfully initialize Pyroscope to %s as %s", cfg.Metrics.Pyroscope.ServerAddr, cfg.Metrics.Pyroscope.AppName)
	}

	// redis backs the shared analysis cache and the inbound rate limit
	if cfg.Cache.Redis.Enabled || cfg.RateLimit.Enabled {
		rdb, err := redis.New(ctx, c.log, &cfg.Stores.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize redis client, error=%w", err)
		}
		c.redis = rdb
	}

	if cfg.PubSub.NATS.Enabled {
		nc, err := nats.New(c.log, &cfg.PubSub.NATS)
		if err != nil {
			return fmt.Errorf("failed to initialize nats client, error=%w", err)
		}
		c.nc = nc
	}

	return nil
}

func (c *Container) buildWallet(cfg *config.Config) error {
	limiterMetrics := scheduler.NewMetrics(c.registry)

	priceLimiter, err := scheduler.New(c.log, limiterConfig("price", cfg.Limiters.Price), limiterMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize price limiter, error=%w", err)
	}
	chainLimiter, err := scheduler.New(c.log, limiterConfig("chain", cfg.Limiters.Chain), limiterMetrics)
	if err != nil {
		return fmt.Errorf("failed to initialize chain limiter, error=%w", err)
	}
	c.log.Infof("Successfully initialize limiters, price=%.2f rps chain=%.2f rps",
		cfg.Limiters.Price.RequestsPerSecond, cfg.Limiters.Chain.RequestsPerSecond)

	birdeyeCl, err := birdeye.New(c.log, &cfg.Birdeye, &nethttp.Client{Timeout: cfg.Birdeye.Timeout})
	if err != nil {
		return fmt.Errorf("failed to initialize birdeye client, error=%w", err)
	}

	opts := []priceanalysis.Option{priceanalysis.WithMetrics(priceanalysis.NewMetrics(c.registry))}
	if cfg.Cache.Redis.Enabled {
		store, err := pricecache.NewRedisStore(c.log, &cfg.Cache.Redis, c.redis)
		if err != nil {
			return fmt.Errorf("failed to initialize analysis store, error=%w", err)
		}
		opts = append(opts, priceanalysis.WithStore(store))
		c.log.Infof("Successfully initialize analysis store by prefix %s", cfg.Cache.Redis.Prefix)
	}

	analyzer, err := priceanalysis.New(c.log, birdeyeCl, priceLimiter,
		pricecache.New(cfg.Cache.MaxEntries, cfg.Cache.EvictCount), opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize price analyzer, error=%w", err)
	}

	source, err := solana.NewSource(c.log, rpc.New(cfg.Solana.RPCURL), chainLimiter)
	if err != nil {
		return fmt.Errorf("failed to initialize solana source, error=%w", err)
	}

	var broadcaster pubsub.Broadcaster = pubsub.Nop{}
	if c.nc != nil {
		broadcaster = c.nc
	}

	c.wallet, err = service.NewWalletService(c.log, cfg, service.Deps{
		Source:      source,
		Decoder:     solana.NewDecoder(),
		Extractor:   solana.NewExtractor(),
		Analyzer:    analyzer,
		Summarizer:  aggregate.New(&cfg.Aggregate),
		Broadcaster: broadcaster,
		Limiters:    []service.LimiterStats{priceLimiter, chainLimiter},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize wallet service, error=%w", err)
	}

	c.log.Info("Successfully initialize wallet service")
	return nil
}

func (c *Container) buildHTTP(cfg *config.Config) {
	h := handlers.NewHandler(c.log, c.wallet, c.healthChecks())

	m := http.Middlewares{
		Log:  mw.NewLogging(c.log),
		Gzip: mw.NewGzip(0, c.log),
	}
	if cfg.API.HTTP.CORS.Enabled {
		m.CORS = mw.NewCORSConfig(&cfg.API.HTTP.CORS)
	}
	if cfg.RateLimit.Enabled {
		m.RateLimit = mw.NewRateLimit(&cfg.RateLimit, c.redis)
	}

	router := http.BuildRouter(h, metrics.Handler(c.registry), m)
	c.httpSrv = http.NewServer(c.log, &cfg.API.HTTP, router)

	c.log.Infof("Successfully initialize HTTP server, addr=%s", cfg.API.HTTP.Addr)
}

func (c *Container) healthChecks() map[string]handlers.Check {
	checks := make(map[string]handlers.Check)
	if c.redis != nil {
		checks["redis"] = c.redis.Health
	}
	if c.nc != nil {
		checks["nats"] = c.nc.Health
	}
	return checks
}

func limiterConfig(name string, l config.LimiterConfig) *scheduler.Config {
	return &scheduler.Config{
		Name:              name,
		RequestsPerSecond: l.RequestsPerSecond,
		BurstCapacity:     l.BurstCapacity,
		AdaptiveTiming:    l.AdaptiveTiming,
	}
}
