package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goguard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (validate + authorize)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "goguard:credentials:", "credential key prefix")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	accessToken := unsignedToken(time.Now().Add(24 * time.Hour))
	backend := httptest.NewServer(stubBackend(accessToken))
	defer backend.Close()

	credentialStore, err := store.NewRedis(client, store.RedisConfig{Prefix: *prefix})
	if err != nil {
		fmt.Fprintf(os.Stderr, "credential store: %v\n", err)
		os.Exit(1)
	}
	seed := store.Credentials{
		Token:        accessToken,
		RefreshToken: "refresh-loadtest",
		UserJSON:     `{"id":"u1"}`,
	}
	if err := credentialStore.Save(ctx, seed); err != nil {
		fmt.Fprintf(os.Stderr, "seed credentials: %v\n", err)
		os.Exit(1)
	}

	guard, err := goguard.New().
		WithBaseURL(backend.URL).
		WithCredentialStore(credentialStore).
		WithRoute(goguard.RouteRule{Route: "/dashboard"}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "guard build: %v\n", err)
		os.Exit(1)
	}
	defer guard.Close()

	validateStats := runValidatePhase(ctx, guard, *ops, *concurrency)
	authorizeStats := runAuthorizePhase(ctx, guard, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("authorize", authorizeStats)
}

func runValidatePhase(ctx context.Context, guard *goguard.Guard, ops, concurrency int) phaseStats {
	coordinator := guard.Coordinator()
	return runPhase(ops, concurrency, func() bool {
		return coordinator.ValidateSession(ctx).Valid
	})
}

func runAuthorizePhase(ctx context.Context, guard *goguard.Guard, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, func() bool {
		return guard.Authorize(ctx, "/dashboard").Allowed
	})
}

func runPhase(ops, concurrency int, op func() bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				ok := op()
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func stubBackend(accessToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/validate-session", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":       map[string]string{"id": "u1"},
			"expires_at": time.Now().Add(24 * time.Hour).Unix(),
		})
	})
	return mux
}

func unsignedToken(exp time.Time) string {
	enc := func(v any) string {
		raw, _ := json.Marshal(v)
		return base64.RawURLEncoding.EncodeToString(raw)
	}
	header := enc(map[string]string{"alg": "none", "typ": "JWT"})
	claims := enc(map[string]any{"sub": "u1", "exp": exp.Unix()})
	return header + "." + claims + "."
}
