package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"hotel_ops/internal/domain"
)

// QueryService serves read-mostly room lookups through the cache.
type QueryService struct {
	rooms    domain.RoomRepository
	cache    domain.Cache
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewQueryService(r domain.RoomRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{rooms: r, cache: c, cacheTTL: ttl}
}

func roomKey(id int64) string { return fmt.Sprintf("room:%d", id) }

func invalidateRoom(ctx context.Context, c domain.Cache, id int64) {
	if c != nil {
		_ = c.Del(ctx, roomKey(id))
	}
}

func (s *QueryService) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	key := roomKey(id)
	var r domain.Room
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &r); ok {
			return r, nil
		}
	}
	// collapse concurrent misses for the same room into one store read
	v, err, _ := s.sf.Do(strconv.FormatInt(id, 10), func() (any, error) {
		r, err := s.rooms.GetRoom(ctx, id)
		if err != nil {
			return domain.Room{}, notFound("room", id, err)
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, key, r, int(s.cacheTTL.Seconds()))
		}
		return r, nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return v.(domain.Room), nil
}

// Quote is the price preview for a stay, without reserving anything.
type Quote struct {
	RoomID       int64
	CheckIn      time.Time
	CheckOut     time.Time
	Nights       int
	NightlyPrice decimal.Decimal
	Total        decimal.Decimal
}

func (s *QueryService) Quote(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (Quote, error) {
	checkIn, checkOut = domain.DateOf(checkIn), domain.DateOf(checkOut)
	if !checkIn.Before(checkOut) {
		return Quote{}, invalidArg("check-in date must be before check-out date")
	}
	r, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		RoomID:       roomID,
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		Nights:       domain.Nights(checkIn, checkOut),
		NightlyPrice: CurrentPrice(r),
		Total:        BookingTotal(r, checkIn, checkOut),
	}, nil
}
