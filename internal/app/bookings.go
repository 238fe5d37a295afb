package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_ops/internal/adapters/observability"
	"hotel_ops/internal/domain"
)

// DeletePolicy decides what happens to payments when their booking is deleted.
type DeletePolicy string

const (
	// DeleteRestrict refuses to delete bookings that still hold completed payments.
	DeleteRestrict DeletePolicy = "restrict"
	// DeleteCascade removes the booking and every payment attached to it.
	DeleteCascade DeletePolicy = "cascade"
)

func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DeleteRestrict, nil
	case DeleteRestrict, DeleteCascade:
		return p, nil
	}
	return "", invalidArg("unknown delete policy %q", s)
}

type BookingInput struct {
	RoomID         int64
	GuestID        int64
	CheckIn        time.Time
	CheckOut       time.Time
	Guests         int // zero means one
	SpecialRequest *string
}

// BookingPatch carries a partial update. Nil fields are left untouched.
type BookingPatch struct {
	RoomID         *int64
	GuestID        *int64
	CheckIn        *time.Time
	CheckOut       *time.Time
	Guests         *int
	SpecialRequest *string
	Status         *domain.BookingStatus
}

type BookingService struct {
	store  domain.Store
	avail  *AvailabilityChecker
	locker domain.RoomLocker
	events domain.EventPublisher
	policy DeletePolicy
	now    func() time.Time
}

// NewBookingService wires the lifecycle manager. A nil locker leaves
// double-booking protection to the store; a nil publisher drops events.
func NewBookingService(s domain.Store, l domain.RoomLocker, ev domain.EventPublisher, policy DeletePolicy) *BookingService {
	if l == nil {
		l = noLock{}
	}
	if ev == nil {
		ev = NopPublisher{}
	}
	if policy == "" {
		policy = DeleteRestrict
	}
	return &BookingService{
		store:  s,
		avail:  NewAvailabilityChecker(s),
		locker: l,
		events: ev,
		policy: policy,
		now:    utcNow,
	}
}

func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func (s *BookingService) CreateBooking(ctx context.Context, in BookingInput) (b domain.Booking, err error) {
	defer func() { s.observeBooking("create", err, b.ID, in.RoomID) }()

	checkIn, checkOut := domain.DateOf(in.CheckIn), domain.DateOf(in.CheckOut)
	if !checkIn.Before(checkOut) {
		return domain.Booking{}, invalidArg("check-in date must be before check-out date")
	}
	if checkIn.Before(domain.DateOf(s.now())) {
		return domain.Booking{}, invalidArg("check-in date cannot be in the past")
	}
	guests, err := guestCount(in.Guests)
	if err != nil {
		return domain.Booking{}, err
	}

	room, err := s.store.GetRoom(ctx, in.RoomID)
	if err != nil {
		return domain.Booking{}, notFound("room", in.RoomID, err)
	}
	if _, err := s.store.GetGuest(ctx, in.GuestID); err != nil {
		return domain.Booking{}, notFound("guest", in.GuestID, err)
	}

	unlock, err := s.lock(ctx, room.ID)
	if err != nil {
		return domain.Booking{}, err
	}
	defer unlock()

	free, err := s.avail.IsAvailable(ctx, room.ID, checkIn, checkOut)
	if err != nil {
		return domain.Booking{}, err
	}
	if !free {
		return domain.Booking{}, conflict("room %s is not available for the selected dates", room.Number)
	}

	b = domain.Booking{
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		TotalAmount:    BookingTotal(room, checkIn, checkOut),
		CreatedAt:      s.now(),
		Status:         domain.BookingConfirmed,
		GuestID:        in.GuestID,
		RoomID:         room.ID,
		Guests:         guests,
		SpecialRequest: in.SpecialRequest,
	}
	id, err := s.store.CreateBooking(ctx, b)
	if err != nil {
		return domain.Booking{}, err
	}
	b.ID = id

	log.Info().Int64("booking_id", b.ID).Int64("room_id", b.RoomID).Int64("guest_id", b.GuestID).
		Str("check_in", b.CheckIn.Format(time.DateOnly)).Str("check_out", b.CheckOut.Format(time.DateOnly)).
		Str("total", b.TotalAmount.StringFixed(2)).Msg("booking created")
	s.publish(ctx, bookingEvent(domain.EventBookingCreated, b, s.now()))
	return b, nil
}

func (s *BookingService) UpdateBooking(ctx context.Context, id int64, p BookingPatch) (b domain.Booking, err error) {
	var cur domain.Booking
	defer func() {
		roomID := b.RoomID
		if roomID == 0 {
			roomID = cur.RoomID
		}
		s.observeBooking("update", err, id, roomID)
	}()

	cur, err = s.store.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, notFound("booking", id, err)
	}
	next := cur
	if p.CheckIn != nil {
		next.CheckIn = domain.DateOf(*p.CheckIn)
	}
	if p.CheckOut != nil {
		next.CheckOut = domain.DateOf(*p.CheckOut)
	}
	if p.RoomID != nil {
		next.RoomID = *p.RoomID
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return domain.Booking{}, invalidArg("unknown booking status %q", *p.Status)
		}
		if !cur.Status.CanTransitionTo(*p.Status) {
			return domain.Booking{}, invalidState("booking cannot move from %s to %s", cur.Status, *p.Status)
		}
		next.Status = *p.Status
	}

	moved := next.RoomID != cur.RoomID || !next.CheckIn.Equal(cur.CheckIn) || !next.CheckOut.Equal(cur.CheckOut)
	if moved {
		if !next.CheckIn.Before(next.CheckOut) {
			return domain.Booking{}, invalidArg("check-in date must be before check-out date")
		}
		unlock, err := s.lock(ctx, next.RoomID)
		if err != nil {
			return domain.Booking{}, err
		}
		defer unlock()
		if next.Status != domain.BookingCancelled {
			cs, err := s.avail.ConflictingBookings(ctx, next.RoomID, next.CheckIn, next.CheckOut)
			if err != nil {
				return domain.Booking{}, err
			}
			for _, c := range cs {
				if c.ID != id {
					return domain.Booking{}, conflict("room %d is not available for the selected dates", next.RoomID)
				}
			}
		}
	}

	room, err := s.store.GetRoom(ctx, next.RoomID)
	if err != nil {
		return domain.Booking{}, notFound("room", next.RoomID, err)
	}
	if p.GuestID != nil && *p.GuestID != cur.GuestID {
		if _, err := s.store.GetGuest(ctx, *p.GuestID); err != nil {
			return domain.Booking{}, notFound("guest", *p.GuestID, err)
		}
		next.GuestID = *p.GuestID
	}
	if p.Guests != nil {
		if next.Guests, err = guestCount(*p.Guests); err != nil {
			return domain.Booking{}, err
		}
	}
	if p.SpecialRequest != nil {
		next.SpecialRequest = p.SpecialRequest
	}
	next.TotalAmount = BookingTotal(room, next.CheckIn, next.CheckOut)

	if err := s.store.UpdateBooking(ctx, next); err != nil {
		return domain.Booking{}, notFound("booking", id, err)
	}

	log.Info().Int64("booking_id", id).Int64("room_id", next.RoomID).Bool("moved", moved).
		Str("status", string(next.Status)).Str("total", next.TotalAmount.StringFixed(2)).Msg("booking updated")
	s.publish(ctx, bookingEvent(domain.EventBookingUpdated, next, s.now()))
	if next.Status != cur.Status {
		s.publish(ctx, bookingEvent(domain.EventBookingStatusChanged, next, s.now()))
	}
	return next, nil
}

// UpdateStatus moves a booking along its lifecycle. Re-applying the current
// status is a no-op.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, to domain.BookingStatus) (b domain.Booking, err error) {
	defer func() { s.observeBooking("status", err, id, b.RoomID) }()

	if !to.Valid() {
		return domain.Booking{}, invalidArg("unknown booking status %q", to)
	}
	b, err = s.store.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, notFound("booking", id, err)
	}
	if !b.Status.CanTransitionTo(to) {
		return domain.Booking{}, invalidState("booking cannot move from %s to %s", b.Status, to)
	}
	if b.Status == to {
		return b, nil
	}
	if err := s.store.UpdateBookingStatus(ctx, id, to); err != nil {
		return domain.Booking{}, notFound("booking", id, err)
	}
	from := b.Status
	b.Status = to

	log.Info().Int64("booking_id", id).Str("from", string(from)).Str("to", string(to)).Msg("booking status changed")
	s.publish(ctx, bookingEvent(domain.EventBookingStatusChanged, b, s.now()))
	return b, nil
}

func (s *BookingService) Cancel(ctx context.Context, id int64) (domain.Booking, error) {
	return s.UpdateStatus(ctx, id, domain.BookingCancelled)
}

// DeleteBooking removes a booking and its payments, subject to the delete policy.
func (s *BookingService) DeleteBooking(ctx context.Context, id int64) (err error) {
	var b domain.Booking
	defer func() { s.observeBooking("delete", err, id, b.RoomID) }()

	b, err = s.store.GetBooking(ctx, id)
	if err != nil {
		return notFound("booking", id, err)
	}
	// the store checks for completed payments in the same transaction as the delete
	if err := s.store.DeleteBooking(ctx, id, s.policy == DeleteRestrict); err != nil {
		return notFound("booking", id, err)
	}

	log.Info().Int64("booking_id", id).Str("policy", string(s.policy)).Msg("booking deleted")
	s.publish(ctx, bookingEvent(domain.EventBookingDeleted, b, s.now()))
	return nil
}

// ---- reads ----

func (s *BookingService) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, notFound("booking", id, err)
	}
	return b, nil
}

func (s *BookingService) ListBookings(ctx context.Context, f domain.BookingFilter, pg domain.PageQuery) (domain.Page[domain.Booking], error) {
	if f.Status != nil && !f.Status.Valid() {
		return domain.Page[domain.Booking]{}, invalidArg("unknown booking status %q", *f.Status)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return domain.Page[domain.Booking]{}, invalidArg("start date must not be after end date")
	}
	return s.store.ListBookings(ctx, f, NormalizePage(pg))
}

func (s *BookingService) BookingsByGuest(ctx context.Context, guestID int64) ([]domain.Booking, error) {
	return s.all(ctx, domain.BookingFilter{GuestID: &guestID})
}

func (s *BookingService) BookingsByRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	return s.all(ctx, domain.BookingFilter{RoomID: &roomID})
}

func (s *BookingService) BookingsByStatus(ctx context.Context, st domain.BookingStatus) ([]domain.Booking, error) {
	if !st.Valid() {
		return nil, invalidArg("unknown booking status %q", st)
	}
	return s.all(ctx, domain.BookingFilter{Status: &st})
}

// BookingsByDateRange returns bookings whose stay lies entirely within [start, end].
func (s *BookingService) BookingsByDateRange(ctx context.Context, start, end time.Time) ([]domain.Booking, error) {
	start, end = domain.DateOf(start), domain.DateOf(end)
	if start.After(end) {
		return nil, invalidArg("start date must not be after end date")
	}
	return s.all(ctx, domain.BookingFilter{From: &start, To: &end})
}

func (s *BookingService) CountByStatus(ctx context.Context, st domain.BookingStatus) (int64, error) {
	if !st.Valid() {
		return 0, invalidArg("unknown booking status %q", st)
	}
	return s.store.CountBookingsByStatus(ctx, st)
}

func (s *BookingService) all(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	pg, err := s.store.ListBookings(ctx, f, domain.PageQuery{})
	if err != nil {
		return nil, err
	}
	return pg.Items, nil
}

// ---- helpers ----

func (s *BookingService) lock(ctx context.Context, roomID int64) (func(), error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, roomID)
	observability.ObserveLockWait(fmt.Sprintf("%T", s.locker), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("lock room %d: %w", roomID, err)
	}
	return unlock, nil
}

// observeBooking records the outcome; zero ids are left out of the log line.
func (s *BookingService) observeBooking(op string, err error, bookingID, roomID int64) {
	observability.ObserveBooking(op, outcome(err))
	if err == nil {
		return
	}
	ev := failure("booking."+op, err)
	if bookingID != 0 {
		ev = ev.Int64("booking_id", bookingID)
	}
	if roomID != 0 {
		ev = ev.Int64("room_id", roomID)
	}
	ev.Msg("booking operation failed")
}

func (s *BookingService) publish(ctx context.Context, e domain.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", e.Type).Int64("booking_id", e.BookingID).Msg("event publish failed")
	}
}

func bookingEvent(typ string, b domain.Booking, at time.Time) domain.Event {
	return domain.Event{
		Type:       typ,
		BookingID:  b.ID,
		RoomID:     b.RoomID,
		GuestID:    b.GuestID,
		Status:     string(b.Status),
		Amount:     b.TotalAmount.StringFixed(2),
		OccurredAt: at,
	}
}

func guestCount(n int) (int, error) {
	switch {
	case n < 0:
		return 0, invalidArg("guest count must not be negative")
	case n == 0:
		return 1, nil
	}
	return n, nil
}
