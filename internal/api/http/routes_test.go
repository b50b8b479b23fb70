package http

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"walletpnl/internal/api/http/handlers"
	"walletpnl/internal/api/http/mw"
	"walletpnl/internal/config"
	"walletpnl/internal/scheduler"
	"walletpnl/internal/service"
	"walletpnl/internal/stores/redis"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/nevasik7/alerting/logger"
)

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

type stubWallet struct {
	calls int
}

func (s *stubWallet) AnalyzeWallet(_ context.Context, address string, limit int, _ string) (*service.Report, error) {
	s.calls++
	if address == "boom" {
		panic("decoder exploded")
	}
	return &service.Report{Address: address, Pagination: service.Pagination{Limit: limit}}, nil
}

func (s *stubWallet) Limiters() []scheduler.Stats {
	return []scheduler.Stats{{Name: "chain"}}
}

func newTestRouter(t *testing.T, m Middlewares) (http.Handler, *stubWallet) {
	t.Helper()
	wallet := &stubWallet{}
	h := handlers.NewHandler(&NoopLogger{}, wallet, nil)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return BuildRouter(h, metrics, m), wallet
}

func TestBuildRouter_Routes(t *testing.T) {
	router, wallet := newTestRouter(t, Middlewares{Log: mw.NewLogging(&NoopLogger{})})

	testCases := []struct {
		path   string
		status int
	}{
		{path: "/healthz", status: http.StatusOK},
		{path: "/readiness", status: http.StatusOK},
		{path: "/metrics", status: http.StatusOK},
		{path: "/api/limiters", status: http.StatusOK},
		{path: "/api/trades/Wallet111?limit=3", status: http.StatusOK},
		{path: "/api/unknown", status: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, 1, wallet.calls)
}

func TestBuildRouter_RecoversPanics(t *testing.T) {
	router, _ := newTestRouter(t, Middlewares{Log: mw.NewLogging(&NoopLogger{})})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/trades/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBuildRouter_RateLimitOnlyOnAPI(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := &redis.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}

	rl := mw.NewRateLimit(&config.RateLimitConfig{
		Enabled: true,
		ByIP:    config.RateBucket{RefillPerSec: 1, Burst: 1, TTL: time.Minute},
	}, rdb)
	router, _ := newTestRouter(t, Middlewares{RateLimit: rl})

	get := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "192.168.10.10:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, get("/api/limiters"))
	assert.Equal(t, http.StatusTooManyRequests, get("/api/limiters"))

	// probes are not limited
	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusOK, get("/healthz"))
}

func TestBuildRouter_GzipAndCORS(t *testing.T) {
	router, _ := newTestRouter(t, Middlewares{
		Gzip: mw.NewGzip(0, &NoopLogger{}),
		CORS: mw.NewCORSConfig(&config.CORSConfig{}),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/limiters", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_ServeAndShutdown(t *testing.T) {
	router, _ := newTestRouter(t, Middlewares{})
	srv := NewServer(&NoopLogger{}, &config.HTTPConfig{
		Addr:         "127.0.0.1:0",
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		IdleTimeout:  time.Second,
	}, router)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
