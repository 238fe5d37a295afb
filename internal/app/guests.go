package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_ops/internal/domain"
)

type GuestInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address *string `json:"address"`
}

type GuestService struct {
	guests domain.GuestRepository
	now    func() time.Time
}

func NewGuestService(g domain.GuestRepository) *GuestService {
	return &GuestService{guests: g, now: utcNow}
}

func (s *GuestService) Register(ctx context.Context, in GuestInput) (domain.Guest, error) {
	g := domain.Guest{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		Address:      in.Address,
		RegisteredAt: s.now(),
	}
	if g.Name == "" || g.Email == "" || g.Phone == "" {
		return domain.Guest{}, invalidArg("guest name, email and phone are required")
	}
	if taken, err := s.guests.EmailExists(ctx, g.Email); err != nil {
		return domain.Guest{}, err
	} else if taken {
		return domain.Guest{}, conflict("email %q is already registered", g.Email)
	}
	if taken, err := s.guests.PhoneExists(ctx, g.Phone); err != nil {
		return domain.Guest{}, err
	} else if taken {
		return domain.Guest{}, conflict("phone %q is already registered", g.Phone)
	}
	id, err := s.guests.CreateGuest(ctx, g)
	if err != nil {
		return domain.Guest{}, err
	}
	g.ID = id
	log.Info().Int64("guest_id", g.ID).Msg("guest registered")
	return g, nil
}

func (s *GuestService) GetGuest(ctx context.Context, id int64) (domain.Guest, error) {
	g, err := s.guests.GetGuest(ctx, id)
	if err != nil {
		return domain.Guest{}, notFound("guest", id, err)
	}
	return g, nil
}

func (s *GuestService) ListGuests(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.Guest], error) {
	return s.guests.ListGuests(ctx, NormalizePage(pg))
}
