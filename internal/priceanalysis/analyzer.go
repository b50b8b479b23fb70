package priceanalysis

import (
	"context"
	"errors"
	"sync"
	"time"
	"walletpnl/internal/domain"
	"walletpnl/internal/pricecache"
	"walletpnl/internal/scheduler"

	"gitlab.com/nevasik7/alerting/logger"
	"golang.org/x/sync/singleflight"
)

/*
	Resolves (mint, purchase time) lookups with the fewest outbound calls:
	1. group by AnalysisKey, the earliest timestamp of a group is its representative;
	2. memory cache -> shared store (optional) -> fetch;
	3. concurrent fetches of one key coalesce into a single flight;
	4. every page of the history is one task of the price limiter.
	A failed or empty lookup is "no data" and is never cached.
*/

type Lookup struct {
	Mint      string
	Timestamp int64
}

// Store is the optional second cache level shared between instances
type Store interface {
	Get(ctx context.Context, key string) (*domain.PriceAnalysis, error)
	Set(ctx context.Context, key string, a *domain.PriceAnalysis) error
}

type Analyzer struct {
	log     logger.Logger
	source  HistorySource
	limiter *scheduler.Scheduler
	cache   *pricecache.Cache
	store   Store
	metrics *Metrics
	flights singleflight.Group
	now     func() time.Time
}

type Option func(*Analyzer)

func WithStore(s Store) Option {
	return func(a *Analyzer) { a.store = s }
}

func WithMetrics(m *Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func New(log logger.Logger, source HistorySource, limiter *scheduler.Scheduler, cache *pricecache.Cache, opts ...Option) (*Analyzer, error) {
	if source == nil {
		return nil, errors.New("history source is required to the analyzer")
	}
	if limiter == nil {
		return nil, errors.New("scheduler is required to the analyzer")
	}
	if cache == nil {
		return nil, errors.New("cache is required to the analyzer")
	}

	a := &Analyzer{
		log:     log,
		source:  source,
		limiter: limiter,
		cache:   cache,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Group collapses lookups by AnalysisKey and keeps the minimum timestamp of each group
func Group(lookups []Lookup) map[string]Lookup {
	groups := make(map[string]Lookup, len(lookups))
	for _, l := range lookups {
		key := domain.AnalysisKey(l.Mint, l.Timestamp)
		if cur, ok := groups[key]; !ok || l.Timestamp < cur.Timestamp {
			groups[key] = l
		}
	}
	return groups
}

// Analyze resolves every lookup, fanning unique keys out concurrently, and waits for all of them.
// The result is keyed by AnalysisKey; keys with no data are absent.
func (a *Analyzer) Analyze(ctx context.Context, lookups []Lookup) map[string]*domain.PriceAnalysis {
	groups := Group(lookups)
	out := make(map[string]*domain.PriceAnalysis, len(groups))
	if len(groups) == 0 {
		return out
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for key, rep := range groups {
		wg.Add(1)
		go func(key string, rep Lookup) {
			defer wg.Done()

			res := a.resolve(ctx, key, rep)
			if res == nil {
				return
			}
			mu.Lock()
			out[key] = res
			mu.Unlock()
		}(key, rep)
	}
	wg.Wait()

	a.log.Debugf("Price analysis: %d lookups, %d unique keys, %d with data", len(lookups), len(groups), len(out))
	return out
}

// Get resolves a single (mint, timestamp)
func (a *Analyzer) Get(ctx context.Context, mint string, timestamp int64) *domain.PriceAnalysis {
	return a.resolve(ctx, domain.AnalysisKey(mint, timestamp), Lookup{Mint: mint, Timestamp: timestamp})
}

func (a *Analyzer) resolve(ctx context.Context, key string, rep Lookup) *domain.PriceAnalysis {
	if res, ok := a.cache.Get(key); ok {
		a.metrics.lookup(resultMemoryHit)
		return res
	}

	ch := a.flights.DoChan(key, func() (any, error) {
		// the flight outlives any single waiter
		return a.load(context.WithoutCancel(ctx), key, rep)
	})

	select {
	case <-ctx.Done():
		return nil
	case r := <-ch:
		if r.Err != nil {
			return nil
		}
		res, _ := r.Val.(*domain.PriceAnalysis)
		return res
	}
}

func (a *Analyzer) load(ctx context.Context, key string, rep Lookup) (*domain.PriceAnalysis, error) {
	// another flight may have finished between the cache check and this one starting
	if res, ok := a.cache.Get(key); ok {
		a.metrics.lookup(resultMemoryHit)
		return res, nil
	}

	if a.store != nil {
		res, err := a.store.Get(ctx, key)
		if err != nil {
			a.log.Warnf("Failed to read analysis %s from store, error=%v", key, err)
		}
		if res != nil {
			a.metrics.lookup(resultStoreHit)
			a.remember(key, res)
			return res, nil
		}
	}

	history, calls, err := fullHistory(ctx, a.limiter, a.source, rep.Mint, rep.Timestamp, a.now().Unix())
	a.metrics.chunks(calls)
	if err != nil {
		a.metrics.lookup(resultFailed)
		a.log.Errorf("Price history for mint=%s from=%d failed after %d calls, error=%v", rep.Mint, rep.Timestamp, calls, err)
		return nil, err
	}

	res := Compute(history)
	if res == nil {
		a.metrics.lookup(resultNoData)
		a.log.Debugf("No price data for mint=%s from=%d", rep.Mint, rep.Timestamp)
		return nil, nil
	}

	a.metrics.lookup(resultFetched)
	a.remember(key, res)

	if a.store != nil {
		if err = a.store.Set(ctx, key, res); err != nil {
			a.log.Warnf("Failed to write analysis %s to store, error=%v", key, err)
		}
	}

	return res, nil
}

func (a *Analyzer) remember(key string, res *domain.PriceAnalysis) {
	a.cache.Set(key, res)
	a.metrics.cacheLen(a.cache.Len())
}
