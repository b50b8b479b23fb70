package mw

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"
	"walletpnl/internal/config"
	"walletpnl/internal/stores/redis"
	"walletpnl/pkg/httputil"

	goredis "github.com/redis/go-redis/v9"
)

const defaultBucketTTL = 2 * time.Minute

// RateLimitMiddleware is a per client ip token bucket kept in redis
type RateLimitMiddleware struct {
	Cfg *config.RateLimitConfig
	Rdb *redis.Client
}

func NewRateLimit(cfg *config.RateLimitConfig, rdb *redis.Client) *RateLimitMiddleware {
	if cfg == nil {
		panic("rate limit config cannot be nil")
	}
	if rdb == nil {
		panic("redis client cannot be nil")
	}

	c := *cfg
	if c.ByIP.TTL == 0 {
		c.ByIP.TTL = defaultBucketTTL
	}
	return &RateLimitMiddleware{Cfg: &c, Rdb: rdb}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractClientIP(r, m.Cfg.TrustedProxies)

		ok, left := m.allow(r.Context(), "rl:ip:"+ip, time.Now(), m.Cfg.ByIP)

		w.Header().Set("X-RateLimit-Limit-IP", strconv.Itoa(m.Cfg.ByIP.Burst))
		w.Header().Set("X-RateLimit-Remaining-IP", strconv.FormatInt(left, 10))

		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(m.calculateRetryAfter()))
			_ = httputil.Error(w, r, http.StatusTooManyRequests, httputil.CodeRateLimited, "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// seconds until the bucket holds one token again
func (m *RateLimitMiddleware) calculateRetryAfter() int {
	rate := m.Cfg.ByIP.RefillPerSec
	if rate <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(rate))))
}

// atomic token bucket in one round trip
var luaTokenBucket = goredis.NewScript(`
-- KEYS[1] = key
-- ARGV[1] = now_ms
-- ARGV[2] = refill_per_sec (integer)
-- ARGV[3] = burst (integer)
-- ARGV[4] = ttl_seconds
local key   = KEYS[1]
local now   = tonumber(ARGV[1])
local rate  = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])
local ttl   = tonumber(ARGV[4])

local last_ms = tonumber(redis.call('HGET', key, 'ts') or now)
local tokens  = tonumber(redis.call('HGET', key, 'tok') or burst)

if now > last_ms then
  local delta = (now - last_ms) / 1000.0
  tokens = math.min(burst, tokens + (delta * rate))
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HSET', key, 'tok', tostring(tokens), 'ts', tostring(now))
redis.call('EXPIRE', key, ttl)

return {allowed, math.floor(tokens)}
`)

// allow fails open: a redis outage never blocks the API
func (m *RateLimitMiddleware) allow(ctx context.Context, key string, now time.Time, b config.RateBucket) (bool, int64) {
	ttl := int(b.TTL.Seconds())
	if ttl <= 0 {
		ttl = int(defaultBucketTTL.Seconds())
	}

	res, err := luaTokenBucket.Run(ctx, m.Rdb, []string{key},
		now.UnixMilli(),
		b.RefillPerSec,
		b.Burst,
		ttl,
	).Int64Slice()
	if err != nil || len(res) < 2 {
		return true, 0
	}

	return res[0] == 1, res[1]
}

// extractClientIP trusts forwarding headers only from a trusted peer.
// With no trusted list configured any non-public peer counts as a proxy.
func extractClientIP(r *http.Request, trusted []string) string {
	peer := remoteAddrIP(r.RemoteAddr)
	if peer == "unknown" {
		return peer
	}

	fromProxy := isTrusted(peer, trusted)
	if len(trusted) == 0 {
		fromProxy = !isPublicIP(peer)
	}
	if !fromProxy {
		return peer
	}

	if chain := parseXFF(r.Header.Get("X-Forwarded-For")); len(chain) > 0 {
		for _, ip := range chain {
			if isPublicIP(ip) {
				return ip
			}
		}
		return chain[0]
	}

	if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
		if addr, err := netip.ParseAddr(xrip); err == nil {
			return addr.String()
		}
	}

	return peer
}

func remoteAddrIP(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return "unknown"
	}
	return addr.String()
}

func parseXFF(xff string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(xff, ",") {
		addr, err := netip.ParseAddr(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, addr.String())
	}
	return out
}

func isTrusted(ip string, trusted []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	for _, t := range trusted {
		if strings.Contains(t, "/") {
			if prefix, err := netip.ParsePrefix(t); err == nil && prefix.Contains(addr) {
				return true
			}
			continue
		}
		if other, err := netip.ParseAddr(t); err == nil && other == addr {
			return true
		}
	}
	return false
}

func isPublicIP(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	return !(addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || addr.IsMulticast())
}
