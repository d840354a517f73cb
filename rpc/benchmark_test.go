package rpc

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newBenchRedis connects to REDIS_ADDR when set and to an in-process server
// otherwise.
func newBenchRedis(b *testing.B) *redis.Client {
	b.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(b).Addr()
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		PoolSize:     256,
		MinIdleConns: 64,
		// BLPOP may block longer than any fixed read deadline.
		ReadTimeout:  -1,
		WriteTimeout: 200 * time.Millisecond,
	})
	b.Cleanup(func() { _ = rdb.Close() })

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		b.Fatalf("redis ping failed: %v", err)
	}
	return rdb
}

func BenchmarkFire(b *testing.B) {
	rdb := newBenchRedis(b)
	r := New(NewRedisBroker(rdb), WithPrefix("bench_fire:"), WithPollTimeout(time.Second))
	b.Cleanup(func() { _ = r.Close() })

	done := make(chan struct{}, 1<<20)
	if err := r.HandleCustom("task", func(context.Context, *Call, string) error {
		done <- struct{}{}
		return nil
	}); err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	payload := []byte(`"payload"`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Fire(ctx, "task", payload); err != nil {
			b.Fatalf("fire failed: %v", err)
		}
	}
	for i := 0; i < b.N; i++ {
		<-done
	}
	b.StopTimer()
}

func BenchmarkSendParallel(b *testing.B) {
	rdb := newBenchRedis(b)
	srv := New(NewRedisBroker(rdb), WithPrefix("bench_send:"), WithPollTimeout(time.Second))
	cli := New(NewRedisBroker(rdb), WithPrefix("bench_send:"))
	b.Cleanup(func() {
		_ = cli.Close()
		_ = srv.Close()
	})

	if err := srv.HandleUnlimited("GET_INFO", func(*Context) (any, error) {
		return "ok", nil
	}); err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	if _, err := cli.Send(ctx, "GET_INFO", "ping", 5*time.Second); err != nil {
		b.Fatalf("warmup call failed: %v", err)
	}

	req := []byte(`{"id":101}`)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := cli.Send(ctx, "GET_INFO", req, 5*time.Second); err != nil {
				b.Errorf("call failed: %v", err)
				return
			}
		}
	})
	b.StopTimer()
}
