package priceanalysis

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultMemoryHit = "memory_hit"
	resultStoreHit  = "store_hit"
	resultFetched   = "fetched"
	resultNoData    = "no_data"
	resultFailed    = "failed"
)

type Metrics struct {
	Lookups     *prometheus.CounterVec
	ChunkCalls  prometheus.Counter
	CacheLength prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "walletpnl_price_lookups_total",
			Help: "Unique (mint, hour) lookups by how they were resolved",
		}, []string{"result"}),
		ChunkCalls: f.NewCounter(prometheus.CounterOpts{
			Name: "walletpnl_price_history_chunk_calls_total",
			Help: "Outbound price history chunk requests",
		}),
		CacheLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "walletpnl_price_cache_entries",
			Help: "Entries held by the in-memory analysis cache",
		}),
	}
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) chunks(n int) {
	if m == nil {
		return
	}
	m.ChunkCalls.Add(float64(n))
}

func (m *Metrics) cacheLen(n int) {
	if m == nil {
		return
	}
	m.CacheLength.Set(float64(n))
}
