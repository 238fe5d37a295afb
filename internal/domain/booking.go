package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingCancelled  BookingStatus = "CANCELLED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingNoShow     BookingStatus = "NO_SHOW"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingConfirmed:  {BookingCancelled, BookingCheckedIn, BookingNoShow},
	BookingCheckedIn:  {BookingCheckedOut},
	BookingCancelled:  {},
	BookingCheckedOut: {},
	BookingNoShow:     {},
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// CanTransitionTo reports whether target is reachable in one step.
// Staying in the same status is always allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	if s == target {
		return s.Valid()
	}
	for _, t := range bookingTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown booking status %q", ErrInvalidArgument, s)
	}
	return st, nil
}

type Booking struct {
	ID             int64
	CheckIn        time.Time // calendar date, UTC midnight
	CheckOut       time.Time // exclusive
	TotalAmount    decimal.Decimal
	CreatedAt      time.Time
	Status         BookingStatus
	GuestID        int64
	RoomID         int64
	Guests         int
	SpecialRequest *string
}

// Occupies reports whether the booking holds its room over part of [checkIn, checkOut).
func (b Booking) Occupies(checkIn, checkOut time.Time) bool {
	return b.Status != BookingCancelled && Overlaps(b.CheckIn, b.CheckOut, checkIn, checkOut)
}

// Overlaps is the half-open interval test: [a1,a2) and [b1,b2) share a night.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Nights counts calendar days between the two dates, never less than one.
func Nights(checkIn, checkOut time.Time) int {
	// whole seconds, not time.Duration, which saturates after ~292 years
	n := int((DateOf(checkOut).Unix() - DateOf(checkIn).Unix()) / 86400)
	if n < 1 {
		return 1
	}
	return n
}
