package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
)

// CurrentPrice is the room's effective nightly rate:
// (base + seasonal) * multiplier, clamped at zero.
func CurrentPrice(r domain.Room) decimal.Decimal {
	p := r.BasePrice
	if r.SeasonalRate != nil {
		p = p.Add(*r.SeasonalRate)
	}
	if r.Multiplier != nil {
		p = p.Mul(*r.Multiplier)
	}
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// BookingTotal prices a stay at the room's current rate, rounded to cents.
func BookingTotal(r domain.Room, checkIn, checkOut time.Time) decimal.Decimal {
	nights := decimal.NewFromInt(int64(domain.Nights(checkIn, checkOut)))
	return CurrentPrice(r).Mul(nights).Round(2)
}

type PricingService struct {
	rooms domain.RoomRepository
	cache domain.Cache
	now   func() time.Time
}

func NewPricingService(r domain.RoomRepository, c domain.Cache) *PricingService {
	return &PricingService{rooms: r, cache: c, now: utcNow}
}

func (s *PricingService) WithClock(now func() time.Time) *PricingService {
	s.now = now
	return s
}

func (s *PricingService) SetBasePrice(ctx context.Context, roomID int64, price decimal.Decimal) (domain.Room, error) {
	const op = "set_base_price"
	if price.IsNegative() {
		return domain.Room{}, s.reject(op, roomID, invalidArg("base price must not be negative"))
	}
	if err := checkMoney("base price", price); err != nil {
		return domain.Room{}, s.reject(op, roomID, err)
	}
	return s.mutate(ctx, op, roomID, domain.RoomPriceChange{BasePrice: &price})
}

// ApplySeasonalRate sets the additive adjustment; negative values discount.
func (s *PricingService) ApplySeasonalRate(ctx context.Context, roomID int64, rate decimal.Decimal) (domain.Room, error) {
	const op = "apply_seasonal_rate"
	if err := checkMoney("seasonal rate", rate); err != nil {
		return domain.Room{}, s.reject(op, roomID, err)
	}
	return s.mutate(ctx, op, roomID, domain.RoomPriceChange{SeasonalRate: &rate})
}

// ApplyDynamicMultiplier sets the multiplicative factor. Bounds are the caller's concern.
func (s *PricingService) ApplyDynamicMultiplier(ctx context.Context, roomID int64, m decimal.Decimal) (domain.Room, error) {
	const op = "apply_dynamic_multiplier"
	if err := checkMultiplier(m); err != nil {
		return domain.Room{}, s.reject(op, roomID, err)
	}
	return s.mutate(ctx, op, roomID, domain.RoomPriceChange{Multiplier: &m})
}

// mutate writes only the changed pricing column, so concurrent setters on
// the same room do not overwrite each other.
func (s *PricingService) mutate(ctx context.Context, op string, roomID int64, c domain.RoomPriceChange) (domain.Room, error) {
	c.At = s.now()
	r, err := s.rooms.UpdateRoomPrice(ctx, roomID, c)
	if err != nil {
		err = notFound("room", roomID, err)
		failure(op, err).Int64("room_id", roomID).Msg("pricing update failed")
		return domain.Room{}, err
	}
	invalidateRoom(ctx, s.cache, roomID)
	log.Info().Str("op", op).Int64("room_id", roomID).
		Str("current_price", CurrentPrice(r).StringFixed(2)).
		Msg("room price updated")
	return r, nil
}

func (s *PricingService) reject(op string, roomID int64, err error) error {
	failure(op, err).Int64("room_id", roomID).Msg("pricing update rejected")
	return err
}

// checkMoney rejects amounts finer than the stored cent precision.
func checkMoney(what string, d decimal.Decimal) error {
	if !domain.FitsScale(d, domain.MoneyScale) {
		return invalidArg("%s must have at most %d decimal places", what, domain.MoneyScale)
	}
	return nil
}

func checkMultiplier(m decimal.Decimal) error {
	if !domain.FitsScale(m, domain.MultiplierScale) {
		return invalidArg("multiplier must have at most %d decimal places", domain.MultiplierScale)
	}
	return nil
}

func utcNow() time.Time { return time.Now().UTC() }
