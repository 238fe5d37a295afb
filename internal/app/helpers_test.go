package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hotel_ops/internal/app"
	"hotel_ops/internal/domain"
	"hotel_ops/internal/storage/memory"
)

// ---- fakes ----

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(ctx context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
	hits  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	switch d := dst.(type) {
	case *domain.Room:
		*d = v.(domain.Room)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

// pausingStore holds the first call of one read method until release is
// closed, so a test can run a competing operation inside the gap.
type pausingStore struct {
	*memory.Store
	mu      sync.Mutex
	method  string
	reached chan struct{}
	release chan struct{}
}

func pauseOn(st *memory.Store, method string) *pausingStore {
	return &pausingStore{Store: st, method: method, reached: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingStore) hold(method string) {
	p.mu.Lock()
	hit := p.method == method
	if hit {
		p.method = ""
	}
	p.mu.Unlock()
	if hit {
		close(p.reached)
		<-p.release
	}
}

func (p *pausingStore) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	out, err := p.Store.GetPayment(ctx, id)
	p.hold("GetPayment")
	return out, err
}

func (p *pausingStore) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	out, err := p.Store.GetBooking(ctx, id)
	p.hold("GetBooking")
	return out, err
}

func (p *pausingStore) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	out, err := p.Store.GetRoom(ctx, id)
	p.hold("GetRoom")
	return out, err
}

// ---- fixture ----

// today is the fixed clock used by every service under test.
var today = day("2025-03-10")

type fixture struct {
	store  *memory.Store
	events *recorder
	room   domain.Room
	guest  domain.Guest
}

// newFixture seeds one room priced (100 + 10) * 1.2 = 132 per night and one guest.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	rooms := app.NewRoomService(st, nil)
	cat, err := rooms.CreateCategory(ctx, "Deluxe", nil)
	if err != nil {
		t.Fatalf("category: %v", err)
	}
	room, err := rooms.CreateRoom(ctx, app.RoomInput{
		Number:       "101",
		BasePrice:    dec("100"),
		CategoryID:   cat.ID,
		SeasonalRate: ptr(dec("10")),
		Multiplier:   ptr(dec("1.2")),
	})
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	guest, err := app.NewGuestService(st).Register(ctx, app.GuestInput{
		Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+441234567",
	})
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	return fixture{store: st, events: &recorder{}, room: room, guest: guest}
}

func (f fixture) bookings(policy app.DeletePolicy) *app.BookingService {
	return app.NewBookingService(f.store, nil, f.events, policy).WithClock(func() time.Time { return today })
}

func (f fixture) payments() *app.PaymentService {
	return app.NewPaymentService(f.store, f.events).WithClock(func() time.Time { return today })
}

func (f fixture) book(t *testing.T, svc *app.BookingService, in, out string) domain.Booking {
	t.Helper()
	b, err := svc.CreateBooking(context.Background(), app.BookingInput{
		RoomID: f.room.ID, GuestID: f.guest.ID, CheckIn: day(in), CheckOut: day(out),
	})
	if err != nil {
		t.Fatalf("book %s..%s: %v", in, out, err)
	}
	return b
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("want %v, got %v", target, err)
	}
}
