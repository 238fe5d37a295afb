// Package memory is an in-process domain.Store used for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	seq        int64
	categories map[int64]domain.RoomCategory
	rooms      map[int64]domain.Room
	guests     map[int64]domain.Guest
	bookings   map[int64]domain.Booking
	payments   map[int64]domain.Payment
}

var _ domain.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		categories: map[int64]domain.RoomCategory{},
		rooms:      map[int64]domain.Room{},
		guests:     map[int64]domain.Guest{},
		bookings:   map[int64]domain.Booking{},
		payments:   map[int64]domain.Payment{},
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// ---- categories & rooms ----

func (s *Store) CreateCategory(ctx context.Context, c domain.RoomCategory) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.categories {
		if strings.EqualFold(e.Name, c.Name) {
			return 0, fmt.Errorf("%w: category %q already exists", domain.ErrConflict, c.Name)
		}
	}
	c.ID = s.nextID()
	s.categories[c.ID] = c
	return c.ID, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (domain.RoomCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.RoomCategory{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *Store) CategoryNameExists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.RoomCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomCategory, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateRoom(ctx context.Context, r domain.Room) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.rooms {
		if e.Number == r.Number {
			return 0, fmt.Errorf("%w: room number %q already exists", domain.ErrConflict, r.Number)
		}
	}
	r.ID = s.nextID()
	s.rooms[r.ID] = r
	return r.ID, nil
}

func (s *Store) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return r, nil
}

func (s *Store) RoomNumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListRooms(ctx context.Context, q domain.RoomsQuery) (domain.Page[domain.Room], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Room
	for _, r := range s.rooms {
		if q.AvailableOnly && !r.Available {
			continue
		}
		if q.CategoryID != nil && r.CategoryID != *q.CategoryID {
			continue
		}
		out = append(out, r)
	}
	return paginate(out, func(r domain.Room) int64 { return r.ID }, q.Page)
}

func (s *Store) UpdateRoomPrice(ctx context.Context, id int64, c domain.RoomPriceChange) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	if c.BasePrice != nil {
		r.BasePrice = *c.BasePrice
	}
	if c.SeasonalRate != nil {
		v := *c.SeasonalRate
		r.SeasonalRate = &v
	}
	if c.Multiplier != nil {
		v := *c.Multiplier
		r.Multiplier = &v
	}
	r.LastPriceUpdate = c.At
	s.rooms[id] = r
	return r, nil
}

func (s *Store) SetRoomAvailability(ctx context.Context, id int64, available bool) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	r.Available = available
	s.rooms[id] = r
	return r, nil
}

func (s *Store) DeleteRoom(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.rooms, id)
	return nil
}

// ---- guests ----

func (s *Store) CreateGuest(ctx context.Context, g domain.Guest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.guests {
		if strings.EqualFold(e.Email, g.Email) || e.Phone == g.Phone {
			return 0, fmt.Errorf("%w: guest email or phone already registered", domain.ErrConflict)
		}
	}
	g.ID = s.nextID()
	s.guests[g.ID] = g
	return g.ID, nil
}

func (s *Store) GetGuest(ctx context.Context, id int64) (domain.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[id]
	if !ok {
		return domain.Guest{}, domain.ErrNotFound
	}
	return g, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guests {
		if strings.EqualFold(g.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) PhoneExists(ctx context.Context, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.guests {
		if g.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListGuests(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.Guest], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Guest, 0, len(s.guests))
	for _, g := range s.guests {
		out = append(out, g)
	}
	return paginate(out, func(g domain.Guest) int64 { return g.ID }, pg)
}

// ---- bookings ----

// conflictsLocked must be called with s.mu held.
func (s *Store) conflictsLocked(roomID, excludeID int64, checkIn, checkOut time.Time) []domain.Booking {
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.ID == excludeID || b.RoomID != roomID {
			continue
		}
		if b.Occupies(checkIn, checkOut) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.Status != domain.BookingCancelled && len(s.conflictsLocked(b.RoomID, 0, b.CheckIn, b.CheckOut)) > 0 {
		return 0, fmt.Errorf("%w: room %d is already booked for the selected dates", domain.ErrConflict, b.RoomID)
	}
	b.ID = s.nextID()
	s.bookings[b.ID] = b
	return b.ID, nil
}

func (s *Store) UpdateBooking(ctx context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return domain.ErrNotFound
	}
	if b.Status != domain.BookingCancelled && len(s.conflictsLocked(b.RoomID, b.ID, b.CheckIn, b.CheckOut)) > 0 {
		return fmt.Errorf("%w: room %d is already booked for the selected dates", domain.ErrConflict, b.RoomID)
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, st domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = st
	s.bookings[id] = b
	return nil
}

func (s *Store) DeleteBooking(ctx context.Context, id int64, restrict bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return domain.ErrNotFound
	}
	if restrict {
		if paid := s.completedLocked(&id); paid.IsPositive() {
			return fmt.Errorf("%w: booking %d has completed payments of %s; refund them first",
				domain.ErrInvalidState, id, paid.StringFixed(2))
		}
	}
	for pid, p := range s.payments {
		if p.BookingID == id {
			delete(s.payments, pid)
		}
	}
	delete(s.bookings, id)
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *Store) ConflictingBookings(ctx context.Context, roomID int64, checkIn, checkOut time.Time) ([]domain.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conflictsLocked(roomID, 0, checkIn, checkOut), nil
}

func (s *Store) ListBookings(ctx context.Context, f domain.BookingFilter, pg domain.PageQuery) (domain.Page[domain.Booking], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if f.GuestID != nil && b.GuestID != *f.GuestID {
			continue
		}
		if f.RoomID != nil && b.RoomID != *f.RoomID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.From != nil && b.CheckIn.Before(*f.From) {
			continue
		}
		if f.To != nil && b.CheckOut.After(*f.To) {
			continue
		}
		out = append(out, b)
	}
	return paginate(out, func(b domain.Booking) int64 { return b.ID }, pg)
}

func (s *Store) CountBookingsByStatus(ctx context.Context, st domain.BookingStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, b := range s.bookings {
		if b.Status == st {
			n++
		}
	}
	return n, nil
}

// ---- payments ----

func (s *Store) CreatePayment(ctx context.Context, p domain.Payment) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[p.BookingID]; !ok {
		return 0, fmt.Errorf("booking %d: %w", p.BookingID, domain.ErrNotFound)
	}
	for _, e := range s.payments {
		if e.TransactionID == p.TransactionID {
			return 0, fmt.Errorf("%w: transaction id %q already exists", domain.ErrConflict, p.TransactionID)
		}
	}
	p.ID = s.nextID()
	s.payments[p.ID] = p
	return p.ID, nil
}

func (s *Store) UpdatePayment(ctx context.Context, p domain.Payment, expect domain.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.payments[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != expect {
		return staleStatus(p.ID, expect, cur.Status)
	}
	if _, ok := s.bookings[p.BookingID]; !ok {
		return fmt.Errorf("booking %d: %w", p.BookingID, domain.ErrNotFound)
	}
	for _, e := range s.payments {
		if e.ID != p.ID && e.TransactionID == p.TransactionID {
			return fmt.Errorf("%w: transaction id %q already exists", domain.ErrConflict, p.TransactionID)
		}
	}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) UpdatePaymentStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, paidAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != from {
		return staleStatus(id, from, p.Status)
	}
	p.Status = to
	if paidAt != nil {
		p.PaidAt = *paidAt
	}
	s.payments[id] = p
	return nil
}

func staleStatus(id int64, want, got domain.PaymentStatus) error {
	return fmt.Errorf("%w: payment %d is %s, expected %s", domain.ErrInvalidState, id, got, want)
}

func (s *Store) DeletePayment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.payments, id)
	return nil
}

func (s *Store) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetPaymentByTransactionID(ctx context.Context, txn string) (domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.TransactionID == txn {
			return p, nil
		}
	}
	return domain.Payment{}, domain.ErrNotFound
}

func (s *Store) TransactionIDExists(ctx context.Context, txn string) (bool, error) {
	_, err := s.GetPaymentByTransactionID(ctx, txn)
	return err == nil, nil
}

func (s *Store) ListPayments(ctx context.Context, f domain.PaymentFilter, pg domain.PageQuery) (domain.Page[domain.Payment], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Payment
	for _, p := range s.payments {
		if f.BookingID != nil && p.BookingID != *f.BookingID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.Method != nil && p.Method != *f.Method {
			continue
		}
		if f.From != nil && p.PaidAt.Before(*f.From) {
			continue
		}
		if f.To != nil && p.PaidAt.After(*f.To) {
			continue
		}
		out = append(out, p)
	}
	return paginate(out, func(p domain.Payment) int64 { return p.ID }, pg)
}

func (s *Store) CountPaymentsByStatus(ctx context.Context, st domain.PaymentStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, p := range s.payments {
		if p.Status == st {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumCompleted(ctx context.Context, bookingID *int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completedLocked(bookingID), nil
}

// completedLocked must be called with s.mu held.
func (s *Store) completedLocked(bookingID *int64) decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.payments {
		if p.Status != domain.PaymentCompleted {
			continue
		}
		if bookingID != nil && p.BookingID != *bookingID {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}

// paginate sorts by id and applies keyset pagination.
func paginate[T any](items []T, id func(T) int64, pg domain.PageQuery) (domain.Page[T], error) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
	if pg.Cursor != nil && *pg.Cursor != "" {
		after, err := strconv.ParseInt(*pg.Cursor, 10, 64)
		if err != nil {
			return domain.Page[T]{}, fmt.Errorf("%w: bad cursor %q", domain.ErrInvalidArgument, *pg.Cursor)
		}
		i := sort.Search(len(items), func(i int) bool { return id(items[i]) > after })
		items = items[i:]
	}
	out := domain.Page[T]{Items: items}
	if pg.Limit > 0 && len(items) > pg.Limit {
		out.Items = items[:pg.Limit]
		next := strconv.FormatInt(id(items[pg.Limit-1]), 10)
		out.NextCursor = &next
	}
	return out, nil
}
