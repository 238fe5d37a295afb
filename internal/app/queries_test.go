package app_test

import (
	"context"
	"testing"
	"time"

	"hotel_ops/internal/app"
	"hotel_ops/internal/domain"
)

func TestGetRoom_CacheMissThenHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := &fakeCache{}
	q := app.NewQueryService(f.store, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	r, err := q.GetRoom(ctx, f.room.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if r.Number != "101" {
		t.Fatalf("unexpected room: %+v", r)
	}

	// change the store behind the cache's back; the cached copy wins
	if _, err := f.store.SetRoomAvailability(ctx, f.room.ID, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	r2, err := q.GetRoom(ctx, f.room.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !r2.Available || cache.hits != 1 {
		t.Fatalf("expected cached room, got %+v (hits=%d)", r2, cache.hits)
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := app.NewQueryService(f.store, nil, time.Minute).GetRoom(context.Background(), 404)
	wantErr(t, err, domain.ErrNotFound)
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	q := app.NewQueryService(f.store, &fakeCache{}, time.Minute)

	got, err := q.Quote(context.Background(), f.room.ID, day("2025-05-01"), day("2025-05-04"))
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if got.Nights != 3 || got.NightlyPrice.StringFixed(2) != "132.00" || got.Total.StringFixed(2) != "396.00" {
		t.Fatalf("quote: %+v", got)
	}

	_, err = q.Quote(context.Background(), f.room.ID, day("2025-05-04"), day("2025-05-01"))
	wantErr(t, err, domain.ErrInvalidArgument)
}

func TestRoomsAndGuests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rooms := app.NewRoomService(f.store, nil)

	_, err := rooms.CreateCategory(ctx, "deluxe", nil)
	wantErr(t, err, domain.ErrConflict)
	_, err = rooms.CreateRoom(ctx, app.RoomInput{Number: "101", BasePrice: dec("50"), CategoryID: f.room.CategoryID})
	wantErr(t, err, domain.ErrConflict)
	_, err = rooms.CreateRoom(ctx, app.RoomInput{Number: "102", BasePrice: dec("50"), CategoryID: 999})
	wantErr(t, err, domain.ErrNotFound)

	spare, err := rooms.CreateRoom(ctx, app.RoomInput{Number: "102", BasePrice: dec("50"), CategoryID: f.room.CategoryID, Available: ptr(false)})
	if err != nil || spare.Available || !spare.Multiplier.Equal(dec("1")) {
		t.Fatalf("spare: %+v err=%v", spare, err)
	}
	page, err := rooms.ListRooms(ctx, domain.RoomsQuery{AvailableOnly: true})
	if err != nil || len(page.Items) != 1 || page.Items[0].ID != f.room.ID {
		t.Fatalf("available rooms: %+v err=%v", page, err)
	}

	f.book(t, f.bookings(app.DeleteRestrict), "2025-04-01", "2025-04-02")
	wantErr(t, rooms.DeleteRoom(ctx, f.room.ID), domain.ErrInvalidState)
	wantErr(t, rooms.DeleteRoom(ctx, spare.ID), nil)

	guests := app.NewGuestService(f.store)
	_, err = guests.Register(ctx, app.GuestInput{Name: "Bob", Email: "ADA@example.com", Phone: "1"})
	wantErr(t, err, domain.ErrConflict)
	_, err = guests.Register(ctx, app.GuestInput{Name: "Bob", Email: "bob@example.com"})
	wantErr(t, err, domain.ErrInvalidArgument)
}
