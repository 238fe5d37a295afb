package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
)

type RoomInput struct {
	Number       string
	BasePrice    decimal.Decimal
	CategoryID   int64
	Available    *bool // defaults to true
	SeasonalRate *decimal.Decimal
	Multiplier   *decimal.Decimal // defaults to 1
}

type RoomService struct {
	store domain.Store
	cache domain.Cache
	now   func() time.Time
}

func NewRoomService(s domain.Store, c domain.Cache) *RoomService {
	return &RoomService{store: s, cache: c, now: utcNow}
}

func (s *RoomService) CreateCategory(ctx context.Context, name string, description *string) (domain.RoomCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.RoomCategory{}, invalidArg("category name is required")
	}
	taken, err := s.store.CategoryNameExists(ctx, name)
	if err != nil {
		return domain.RoomCategory{}, err
	}
	if taken {
		return domain.RoomCategory{}, conflict("category %q already exists", name)
	}
	c := domain.RoomCategory{Name: name, Description: description}
	if c.ID, err = s.store.CreateCategory(ctx, c); err != nil {
		return domain.RoomCategory{}, err
	}
	log.Info().Int64("category_id", c.ID).Str("name", c.Name).Msg("category created")
	return c, nil
}

func (s *RoomService) ListCategories(ctx context.Context) ([]domain.RoomCategory, error) {
	return s.store.ListCategories(ctx)
}

func (s *RoomService) CreateRoom(ctx context.Context, in RoomInput) (domain.Room, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return domain.Room{}, invalidArg("room number is required")
	}
	if in.BasePrice.IsNegative() {
		return domain.Room{}, invalidArg("base price must not be negative")
	}
	if err := checkMoney("base price", in.BasePrice); err != nil {
		return domain.Room{}, err
	}
	if in.SeasonalRate != nil {
		if err := checkMoney("seasonal rate", *in.SeasonalRate); err != nil {
			return domain.Room{}, err
		}
	}
	if in.Multiplier != nil {
		if err := checkMultiplier(*in.Multiplier); err != nil {
			return domain.Room{}, err
		}
	}
	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		return domain.Room{}, notFound("category", in.CategoryID, err)
	}
	taken, err := s.store.RoomNumberExists(ctx, number)
	if err != nil {
		return domain.Room{}, err
	}
	if taken {
		return domain.Room{}, conflict("room number %q already exists", number)
	}

	r := domain.Room{
		Number:          number,
		BasePrice:       in.BasePrice,
		Available:       true,
		SeasonalRate:    in.SeasonalRate,
		Multiplier:      in.Multiplier,
		LastPriceUpdate: s.now(),
		CategoryID:      in.CategoryID,
	}
	if in.Available != nil {
		r.Available = *in.Available
	}
	if r.Multiplier == nil {
		one := decimal.NewFromInt(1)
		r.Multiplier = &one
	}
	if r.ID, err = s.store.CreateRoom(ctx, r); err != nil {
		return domain.Room{}, err
	}
	log.Info().Int64("room_id", r.ID).Str("number", r.Number).Msg("room created")
	return r, nil
}

func (s *RoomService) ListRooms(ctx context.Context, q domain.RoomsQuery) (domain.Page[domain.Room], error) {
	q.Page = NormalizePage(q.Page)
	return s.store.ListRooms(ctx, q)
}

// SetAvailability toggles the operational flag. Bookings ignore it.
func (s *RoomService) SetAvailability(ctx context.Context, id int64, available bool) (domain.Room, error) {
	r, err := s.store.SetRoomAvailability(ctx, id, available)
	if err != nil {
		return domain.Room{}, notFound("room", id, err)
	}
	invalidateRoom(ctx, s.cache, id)
	log.Info().Int64("room_id", id).Bool("available", available).Msg("room availability changed")
	return r, nil
}

// DeleteRoom refuses while any booking still references the room.
func (s *RoomService) DeleteRoom(ctx context.Context, id int64) error {
	if _, err := s.store.GetRoom(ctx, id); err != nil {
		return notFound("room", id, err)
	}
	pg, err := s.store.ListBookings(ctx, domain.BookingFilter{RoomID: &id}, domain.PageQuery{Limit: 1})
	if err != nil {
		return err
	}
	if len(pg.Items) > 0 {
		return invalidState("room %d still has bookings", id)
	}
	if err := s.store.DeleteRoom(ctx, id); err != nil {
		return notFound("room", id, err)
	}
	invalidateRoom(ctx, s.cache, id)
	log.Info().Int64("room_id", id).Msg("room deleted")
	return nil
}
