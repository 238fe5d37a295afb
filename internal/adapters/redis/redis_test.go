package redisad_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisad "hotel_ops/internal/adapters/redis"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := redisad.NewClient(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

type room struct {
	ID     int64
	Number string
}

func TestCache_SetGetDel(t *testing.T) {
	mr, c := newRedis(t)
	cache := redisad.NewCache(c)
	ctx := context.Background()

	var got room
	if ok, err := cache.Get(ctx, "room:1", &got); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := cache.Set(ctx, "room:1", room{ID: 1, Number: "101"}, 60); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL("room:1"); ttl != 60*time.Second {
		t.Fatalf("ttl: %v", ttl)
	}
	if ok, err := cache.Get(ctx, "room:1", &got); !ok || err != nil || got.Number != "101" {
		t.Fatalf("hit: ok=%v err=%v got=%+v", ok, err, got)
	}
	if err := cache.Del(ctx, "room:1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if mr.Exists("room:1") {
		t.Fatal("key survived delete")
	}
}

func TestCache_CorruptEntryIsDropped(t *testing.T) {
	mr, c := newRedis(t)
	cache := redisad.NewCache(c)
	if err := mr.Set("room:2", "{not json"); err != nil {
		t.Fatal(err)
	}
	var got room
	ok, err := cache.Get(context.Background(), "room:2", &got)
	if ok || err == nil {
		t.Fatalf("expected decode failure, got ok=%v err=%v", ok, err)
	}
	if mr.Exists("room:2") {
		t.Fatal("corrupt entry kept")
	}
}

func TestRoomLocker_Exclusive(t *testing.T) {
	_, c := newRedis(t)
	l := redisad.NewRoomLocker(c, 5*time.Second)

	unlock, err := l.Lock(context.Background(), 7)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, 7); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second lock should time out, got %v", err)
	}

	// other rooms are independent
	u8, err := l.Lock(context.Background(), 8)
	if err != nil {
		t.Fatalf("lock other room: %v", err)
	}
	u8()

	unlock()
	unlock() // idempotent

	u, err := l.Lock(context.Background(), 7)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	u()
}

func TestRoomLocker_ExpiredLockIsNotStolenBack(t *testing.T) {
	mr, c := newRedis(t)
	l := redisad.NewRoomLocker(c, time.Second)

	stale, err := l.Lock(context.Background(), 3)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(context.Background(), 3)
	if err != nil {
		t.Fatalf("lock after expiry: %v", err)
	}
	stale()
	if !mr.Exists("lock:room:3") {
		t.Fatal("stale holder released the new holder's lock")
	}
	fresh()
	if mr.Exists("lock:room:3") {
		t.Fatal("lock not released")
	}
}
