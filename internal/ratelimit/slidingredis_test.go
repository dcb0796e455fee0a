package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisAllowSlidingWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	window := 50 * time.Millisecond
	limiter := Redis{Client: client, Prefix: "test:", Window: window, Max: 2}
	ctx := context.Background()

	for i := 0; i < limiter.Max; i++ {
		d, err := limiter.Allow(ctx, "key")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("expected request %d to be allowed", i)
		}
		if d.Remaining != limiter.Max-(i+1) {
			t.Fatalf("unexpected remaining: %d", d.Remaining)
		}
	}

	d, err := limiter.Allow(ctx, "key")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected third request to be rejected")
	}
	if d.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", d.Remaining)
	}

	// scores are wall-clock nanoseconds, so the window has to pass in real time
	time.Sleep(2 * window)

	d, err = limiter.Allow(ctx, "key")
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !d.Allowed {
		t.Fatal("expected request after window to be allowed")
	}
}

func TestRedisWithoutClientAllows(t *testing.T) {
	d, err := Redis{Max: 1, Window: time.Second}.Allow(context.Background(), "k")
	if err != nil || !d.Allowed {
		t.Fatalf("expected pass-through, got %+v %v", d, err)
	}
}

func TestMemoryLimiter(t *testing.T) {
	lim := NewMemory(2, time.Minute)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		d, err := lim.Allow(ctx, "ip")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: %+v %v", i, d, err)
		}
	}
	d, err := lim.Allow(ctx, "ip")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed || d.Remaining != 0 || d.Limit != 2 {
		t.Fatalf("expected rejection, got %+v", d)
	}
}
