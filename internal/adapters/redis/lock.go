package redisad

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// release deletes the key only while it still holds our token, so a lock that
// expired and was taken by someone else is left alone.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RoomLocker is a per-room mutex shared by every API replica.
type RoomLocker struct {
	c     *redis.Client
	ttl   time.Duration
	retry time.Duration
}

func NewRoomLocker(c *redis.Client, ttl time.Duration) *RoomLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RoomLocker{c: c, ttl: ttl, retry: 25 * time.Millisecond}
}

func lockKey(roomID int64) string { return fmt.Sprintf("lock:room:%d", roomID) }

// Lock blocks until the room is free or ctx is done. The lock lapses after
// the configured TTL if its holder dies.
func (l *RoomLocker) Lock(ctx context.Context, roomID int64) (func(), error) {
	key := lockKey(roomID)
	token := uuid.NewString()

	t := time.NewTicker(l.retry)
	defer t.Stop()
	for {
		ok, err := l.c.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := release.Run(ctx, l.c, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				log.Warn().Err(err).Int64("room_id", roomID).Msg("room lock release failed")
			}
		})
	}, nil
}
