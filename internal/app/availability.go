package app

import (
	"context"
	"time"

	"hotel_ops/internal/domain"
)

// AvailabilityChecker answers whether a room is free over a half-open date range.
type AvailabilityChecker struct {
	bookings domain.BookingRepository
}

func NewAvailabilityChecker(b domain.BookingRepository) *AvailabilityChecker {
	return &AvailabilityChecker{bookings: b}
}

// ConflictingBookings lists the non-cancelled bookings of roomID that share
// at least one night with [checkIn, checkOut). Touching endpoints do not conflict.
func (a *AvailabilityChecker) ConflictingBookings(ctx context.Context, roomID int64, checkIn, checkOut time.Time) ([]domain.Booking, error) {
	checkIn, checkOut = domain.DateOf(checkIn), domain.DateOf(checkOut)
	found, err := a.bookings.ConflictingBookings(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	// the store's range query is trusted for narrowing only
	out := make([]domain.Booking, 0, len(found))
	for _, b := range found {
		if b.RoomID == roomID && b.Occupies(checkIn, checkOut) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (a *AvailabilityChecker) IsAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time) (bool, error) {
	cs, err := a.ConflictingBookings(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return len(cs) == 0, nil
}
