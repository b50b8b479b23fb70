//go:build ignore

// Run: go run ./build-tools/loadgen.go -base http://localhost:8080 -rps 5 -duration 60s -wallets W1,W2

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math"
	mrand "math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

type stats struct {
	sent    atomic.Int64
	ok      atomic.Int64
	limited atomic.Int64
	failed  atomic.Int64
	totalMs atomic.Int64
}

func main() {
	var (
		base     = flag.String("base", "http://localhost:8080", "api base url")
		rps      = flag.Int("rps", 5, "requests per second target")
		duration = flag.Duration("duration", 30*time.Second, "how long to run")
		wallets  = flag.String("wallets", "", "comma-separated wallet addresses")
		limit    = flag.Int("limit", 5, "transactions per request")
	)
	flag.Parse()

	addrs := splitTrim(*wallets)
	if len(addrs) == 0 {
		fmt.Println("no wallets provided")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Minute}
	fmt.Printf("loadgen → base=%s rps=%d duration=%s wallets=%d\n", *base, *rps, duration.String(), len(addrs))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	end := time.Now().Add(*duration)

	// steady pace with a little drift
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	perTick := float64(*rps) / 10.0 // 10 ticks in sec
	accum := 0.0

	var (
		st stats
		wg sync.WaitGroup
	)

loop:
	for {
		select {
		case <-ctx.Done():
			fmt.Println("signal received, stopping…")
			break loop
		case now := <-tick.C:
			if now.After(end) {
				break loop
			}

			accum += perTick
			batch := int(math.Floor(accum))
			if batch <= 0 {
				continue
			}
			accum -= float64(batch)

			for i := 0; i < batch; i++ {
				wallet := addrs[mrand.Intn(len(addrs))]
				wg.Add(1)
				go func() {
					defer wg.Done()
					hit(ctx, client, tradesURL(*base, wallet, *limit), &st)
				}()
			}
		}
	}

	fmt.Println("waiting in-flight requests…")
	wg.Wait()

	sent := st.sent.Load()
	avg := int64(0)
	if sent > 0 {
		avg = st.totalMs.Load() / sent
	}
	fmt.Printf("done: sent=%d ok=%d limited=%d failed=%d avg_ms=%d\n",
		sent, st.ok.Load(), st.limited.Load(), st.failed.Load(), avg)
}

func hit(ctx context.Context, client *http.Client, target string, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		st.failed.Add(1)
		return
	}

	start := time.Now()
	resp, err := client.Do(req)
	st.sent.Add(1)
	st.totalMs.Add(time.Since(start).Milliseconds())
	if err != nil {
		st.failed.Add(1)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		st.ok.Add(1)
	case resp.StatusCode == http.StatusTooManyRequests:
		st.limited.Add(1)
	default:
		st.failed.Add(1)
	}
}

func tradesURL(base, wallet string, limit int) string {
	return fmt.Sprintf("%s/api/trades/%s?limit=%d", strings.TrimRight(base, "/"), url.PathEscape(wallet), limit)
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
