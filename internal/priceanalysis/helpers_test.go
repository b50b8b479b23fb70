package priceanalysis

import (
	"context"
	"sync"
	"testing"
	"time"
	"walletpnl/internal/domain"
	"walletpnl/internal/pricecache"
	"walletpnl/internal/scheduler"

	"github.com/stretchr/testify/require"
	"gitlab.com/nevasik7/alerting/logger"
)

// NoopLogger is a logger that does nothing (for testing)
type NoopLogger struct{}

func (n *NoopLogger) Debug(msg string)                          {}
func (n *NoopLogger) Debugf(format string, args ...interface{}) {}
func (n *NoopLogger) Info(msg string)                           {}
func (n *NoopLogger) Infof(format string, args ...interface{})  {}
func (n *NoopLogger) Warn(msg string)                           {}
func (n *NoopLogger) Warnf(format string, args ...interface{})  {}
func (n *NoopLogger) Error(msg string)                          {}
func (n *NoopLogger) Errorf(format string, args ...interface{}) {}
func (n *NoopLogger) Fatal(msg string)                          {}
func (n *NoopLogger) Fatalf(format string, args ...interface{}) {}
func (n *NoopLogger) Panic(msg string)                          {}
func (n *NoopLogger) Panicf(format string, args ...interface{}) {}
func (n *NoopLogger) WithField(key string, value interface{}) logger.Logger {
	return n
}
func (n *NoopLogger) WithFields(fields map[string]interface{}) logger.Logger {
	return n
}

const testNow = int64(100_000)

type chunkCall struct {
	mint     string
	from, to int64
}

// serves slices of a fixed series per mint, optionally in pages of pageSize
type fakeSource struct {
	mu       sync.Mutex
	series   map[string][]domain.PricePoint
	pageSize int
	err      error
	calls    []chunkCall
}

func (f *fakeSource) HistoryChunk(_ context.Context, mint string, from, to int64) ([]domain.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, chunkCall{mint: mint, from: from, to: to})
	if f.err != nil {
		return nil, f.err
	}

	var out []domain.PricePoint
	for _, p := range f.series[mint] {
		if p.Timestamp < from || p.Timestamp > to {
			continue
		}
		out = append(out, p)
		if f.pageSize > 0 && len(out) == f.pageSize {
			break
		}
	}
	return out, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSource) snapshot() []chunkCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chunkCall(nil), f.calls...)
}

// first-page requests of a mint, one per lookup sequence
func (f *fakeSource) startsFrom(mint string, from int64) int {
	n := 0
	for _, c := range f.snapshot() {
		if c.mint == mint && c.from == from {
			n++
		}
	}
	return n
}

type memStore struct {
	mu     sync.Mutex
	data   map[string]*domain.PriceAnalysis
	getErr error
	sets   int
}

func newMemStore() *memStore {
	return &memStore{data: map[string]*domain.PriceAnalysis{}}
}

func (m *memStore) Get(_ context.Context, key string) (*domain.PriceAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memStore) Set(_ context.Context, key string, a *domain.PriceAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = a
	m.sets++
	return nil
}

func newTestAnalyzer(t *testing.T, src HistorySource, opts ...Option) (*Analyzer, *pricecache.Cache) {
	t.Helper()

	limiter, err := scheduler.New(&NoopLogger{}, &scheduler.Config{
		Name:              "price-test",
		RequestsPerSecond: 1000,
		BurstCapacity:     50,
	}, nil)
	require.NoError(t, err)

	cache := pricecache.New(100, 50)
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(testNow, 0) })}, opts...)

	a, err := New(&NoopLogger{}, src, limiter, cache, opts...)
	require.NoError(t, err)
	return a, cache
}

func points(pairs ...float64) []domain.PricePoint {
	out := make([]domain.PricePoint, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.PricePoint{Timestamp: int64(pairs[i]), Value: pairs[i+1]})
	}
	return out
}
