package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type RoomRepository interface {
	CreateCategory(ctx context.Context, c RoomCategory) (int64, error)
	GetCategory(ctx context.Context, id int64) (RoomCategory, error)
	CategoryNameExists(ctx context.Context, name string) (bool, error)
	ListCategories(ctx context.Context) ([]RoomCategory, error)

	CreateRoom(ctx context.Context, r Room) (int64, error)
	GetRoom(ctx context.Context, id int64) (Room, error)
	RoomNumberExists(ctx context.Context, number string) (bool, error)
	ListRooms(ctx context.Context, q RoomsQuery) (Page[Room], error)
	// UpdateRoomPrice writes only the pricing columns set in c and returns the
	// stored row, so concurrent changes to different columns both survive.
	UpdateRoomPrice(ctx context.Context, id int64, c RoomPriceChange) (Room, error)
	SetRoomAvailability(ctx context.Context, id int64, available bool) (Room, error)
	DeleteRoom(ctx context.Context, id int64) error
}

type GuestRepository interface {
	CreateGuest(ctx context.Context, g Guest) (int64, error)
	GetGuest(ctx context.Context, id int64) (Guest, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	ListGuests(ctx context.Context, pg PageQuery) (Page[Guest], error)
}

type BookingRepository interface {
	// Write paths. CreateBooking and UpdateBooking re-check room occupancy
	// atomically with the write and fail with ErrConflict on overlap.
	CreateBooking(ctx context.Context, b Booking) (int64, error)
	UpdateBooking(ctx context.Context, b Booking) error
	UpdateBookingStatus(ctx context.Context, id int64, s BookingStatus) error
	// DeleteBooking removes the booking together with its payments. With
	// restrict set it fails with ErrInvalidState when a payment is COMPLETED;
	// the check and the delete are atomic.
	DeleteBooking(ctx context.Context, id int64, restrict bool) error

	// Read paths
	GetBooking(ctx context.Context, id int64) (Booking, error)
	// ConflictingBookings returns non-cancelled bookings of the room whose
	// [check-in, check-out) overlaps [checkIn, checkOut).
	ConflictingBookings(ctx context.Context, roomID int64, checkIn, checkOut time.Time) ([]Booking, error)
	ListBookings(ctx context.Context, f BookingFilter, pg PageQuery) (Page[Booking], error)
	CountBookingsByStatus(ctx context.Context, s BookingStatus) (int64, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, p Payment) (int64, error)
	// UpdatePayment writes the full row only while the stored status is still
	// expect; otherwise it fails with ErrInvalidState.
	UpdatePayment(ctx context.Context, p Payment, expect PaymentStatus) error
	// UpdatePaymentStatus is a compare-and-set of the status. A non-nil paidAt
	// is stored with it.
	UpdatePaymentStatus(ctx context.Context, id int64, from, to PaymentStatus, paidAt *time.Time) error
	DeletePayment(ctx context.Context, id int64) error

	GetPayment(ctx context.Context, id int64) (Payment, error)
	GetPaymentByTransactionID(ctx context.Context, txn string) (Payment, error)
	TransactionIDExists(ctx context.Context, txn string) (bool, error)
	ListPayments(ctx context.Context, f PaymentFilter, pg PageQuery) (Page[Payment], error)
	CountPaymentsByStatus(ctx context.Context, s PaymentStatus) (int64, error)
	// SumCompleted totals COMPLETED payments, optionally scoped to one booking.
	// An empty sum is zero.
	SumCompleted(ctx context.Context, bookingID *int64) (decimal.Decimal, error)
}

// Store is the durable storage collaborator of the engine.
type Store interface {
	RoomRepository
	GuestRepository
	BookingRepository
	PaymentRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// RoomLocker serialises the check-and-write sequence of bookings per room.
// The returned func releases the lock and is safe to call more than once.
type RoomLocker interface {
	Lock(ctx context.Context, roomID int64) (func(), error)
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

type Event struct {
	Type       string    `json:"type"`
	BookingID  int64     `json:"booking_id,omitempty"`
	RoomID     int64     `json:"room_id,omitempty"`
	GuestID    int64     `json:"guest_id,omitempty"`
	PaymentID  int64     `json:"payment_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Amount     string    `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventBookingCreated       = "booking.created"
	EventBookingUpdated       = "booking.updated"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingDeleted       = "booking.deleted"
	EventPaymentCreated       = "payment.created"
	EventPaymentCompleted     = "payment.completed"
	EventPaymentRefunded      = "payment.refunded"
)

// Read models & queries

type PageQuery struct {
	Limit  int     // <= 0 means unbounded
	Cursor *string // id of the last item of the previous page
}

type Page[T any] struct {
	Items      []T
	NextCursor *string
}

type RoomsQuery struct {
	AvailableOnly bool
	CategoryID    *int64
	Page          PageQuery
}

type BookingFilter struct {
	GuestID *int64
	RoomID  *int64
	Status  *BookingStatus
	// From/To select bookings fully contained in [From, To]:
	// check-in >= From and check-out <= To.
	From *time.Time
	To   *time.Time
}

type PaymentFilter struct {
	BookingID *int64
	Status    *PaymentStatus
	Method    *PaymentMethod
	// Inclusive bounds on the payment timestamp.
	From *time.Time
	To   *time.Time
}
