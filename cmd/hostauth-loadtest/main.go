package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"

	hostAuth "github.com/MrEthical07/hostAuth"
	"github.com/MrEthical07/hostAuth/hosts"
	"github.com/MrEthical07/hostAuth/policy"
	"github.com/MrEthical07/hostAuth/session/redisstore"
)

const loadHost = "load.test"

const hostDoc = `{
	"serverName": "load.test",
	"secretKey": "loadtest-secret-loadtest-secret",
	"server": {"auth": {"mode": "refreshTokens", "bindCsrs": true, "refreshInSeconds": 86400}}
}`

type sessionState struct {
	token   string
	refresh string
	csrs    string
}

func main() {
	var (
		sessions    = flag.IntP("sessions", "n", 10000, "number of sessions to log in")
		concurrency = flag.IntP("concurrency", "c", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "hostauth-load", "redis key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, err := buildEngine(redisstore.New(client, *prefix))
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("logging in %d sessions...\n", *sessions)
	startSeed := time.Now()
	for i := 0; i < *sessions; i++ {
		st, err := login(ctx, engine, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = st
	}
	fmt.Printf("logged in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authorize := runPhase(states, *ops, *concurrency, func(st *sessionState) error {
		_, _, err := engine.Authorize(requestCtx(ctx, st, ""), st.token)
		return err
	})
	slide := runPhase(states, *ops, *concurrency, func(st *sessionState) error {
		_, _, err := engine.Authorize(requestCtx(ctx, st, policy.ModeSlideExpiration), st.token)
		return err
	})
	refresh := runPhase(states, *ops, *concurrency, func(st *sessionState) error {
		_, _, err := engine.Refresh(requestCtx(ctx, st, ""), st.token, st.refresh)
		return err
	})

	fmt.Println("---- results ----")
	printStats("authorize", authorize)
	printStats("authorize+slide", slide)
	printStats("refresh", refresh)

	snap := engine.MetricsSnapshot()
	fmt.Printf("store failures=%d sessions slid=%d\n",
		snap.Counters[hostAuth.MetricStoreFailure], snap.Counters[hostAuth.MetricSessionSlid])
}

func buildEngine(store *redisstore.Store) (*hostAuth.Engine, error) {
	files, err := hosts.Parse([]byte(hostDoc), "json")
	if err != nil {
		return nil, err
	}
	return hostAuth.New().
		WithHosts(files...).
		WithStore(store).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithMetricsEnabled(true).
		Build()
}

func login(ctx context.Context, engine *hostAuth.Engine, i int) (sessionState, error) {
	provider, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, gjwt.MapClaims{
		"id":   fmt.Sprintf("user-%d", i),
		"role": "member",
	}).SignedString([]byte("loadtest-provider"))
	if err != nil {
		return sessionState{}, err
	}
	st := sessionState{csrs: fmt.Sprintf("csrs-%d", i)}
	st.token, st.refresh, err = engine.Login(requestCtx(ctx, &st, ""), provider, nil)
	return st, err
}

func requestCtx(ctx context.Context, st *sessionState, mode policy.Mode) context.Context {
	ctx = hostAuth.WithCSRS(hostAuth.WithHost(ctx, loadHost), st.csrs)
	if mode != "" {
		ctx = hostAuth.WithRouteMode(ctx, mode)
	}
	return ctx
}

func runPhase(states []sessionState, ops, concurrency int, op func(*sessionState) error) phaseStats {
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
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				st := &states[r.Intn(len(states))]
				t0 := time.Now()
				err := op(st)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
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
