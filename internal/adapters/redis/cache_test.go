package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "reviewscout/internal/adapters/redis"
	"reviewscout/internal/domain"
)

func TestCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	res := domain.ProductResolution{ProductName: "Notion", ReviewsURL: "https://example.com/r"}
	if err := c.Set(ctx, "product:g2:notion", res, 60); err != nil {
		t.Fatal(err)
	}

	var got domain.ProductResolution
	hit, err := c.Get(ctx, "product:g2:notion", &got)
	if err != nil || !hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if got != res {
		t.Fatalf("got %+v, want %+v", got, res)
	}

	if err := c.Del(ctx, "product:g2:notion"); err != nil {
		t.Fatal(err)
	}
	hit, err = c.Get(ctx, "product:g2:notion", &got)
	if err != nil || hit {
		t.Fatalf("after del: hit=%v err=%v", hit, err)
	}
}

func TestCacheMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	var got domain.ProductResolution
	hit, err := c.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatal("unexpected hit")
	}
}

func TestCacheTTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 30); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(31 * time.Second)

	var got string
	hit, err := c.Get(ctx, "k", &got)
	if err != nil || hit {
		t.Fatalf("expired key: hit=%v err=%v", hit, err)
	}
}
