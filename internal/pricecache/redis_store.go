package pricecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"walletpnl/internal/config"
	"walletpnl/internal/domain"
	rdb "walletpnl/internal/stores/redis"

	goredis "github.com/redis/go-redis/v9"
	"gitlab.com/nevasik7/alerting/logger"
)

// Second-level store shared between instances; JSON value + TTL under "<prefix><analysis key>"
type RedisStore struct {
	log    logger.Logger
	rdb    *rdb.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(log logger.Logger, cfg *config.RedisCacheConfig, rdb *rdb.Client) (*RedisStore, error) {
	if cfg == nil {
		return nil, errors.New("config is required to the redis store")
	}
	if rdb == nil {
		return nil, errors.New("redis client is required to the redis store")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "walletpnl:analysis:"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisStore{
		log:    log,
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

// Get returns (nil, nil) when the key is absent
func (s *RedisStore) Get(ctx context.Context, key string) (*domain.PriceAnalysis, error) {
	data, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET %s failed: %w", key, err)
	}

	var a domain.PriceAnalysis
	if err = json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis %s: %w", key, err)
	}

	return &a, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, a *domain.PriceAnalysis) error {
	if a == nil {
		return nil
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis %s: %w", key, err)
	}

	if err = s.rdb.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s failed: %w", key, err)
	}

	s.log.Debugf("Stored analysis to redis by key=%s, ttl=%s", key, s.ttl)
	return nil
}
