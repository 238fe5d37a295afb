package app_test

import (
	"context"
	"strings"
	"testing"

	"hotel_ops/internal/app"
	"hotel_ops/internal/domain"
	"hotel_ops/internal/storage/memory"
)

const seedJSON = `{
  "categories": [{"name": "Standard"}, {"name": "Suite", "description": "top floor"}],
  "rooms": [
    {"number": "101", "category": "standard", "base_price": "80"},
    {"number": "102", "category": "Standard", "base_price": "85.50", "available": false},
    {"number": "501", "category": "Suite", "base_price": 300, "seasonal_rate": "25", "multiplier": "1.1"},
    {"number": "999", "category": "Penthouse", "base_price": "900"}
  ],
  "guests": [
    {"name": "Ada", "email": "ada@example.com", "phone": "+4411"},
    {"name": "Grace", "email": "grace@example.com", "phone": "+1202"}
  ]
}`

func TestSeeder_ImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	rooms := app.NewRoomService(st, nil)
	seeder := app.NewSeeder(rooms, app.NewGuestService(st))

	data, err := app.ParseSeed(strings.NewReader(seedJSON))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	rep, err := seeder.Import(ctx, data, 3)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	// 2 categories + 3 rooms + 2 guests; the Penthouse room has no category
	if rep.Created != 7 || rep.Failed != 1 || rep.Skipped != 0 {
		t.Fatalf("first run: %+v", rep)
	}

	rep, err = seeder.Import(ctx, data, 3)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if rep.Created != 0 || rep.Skipped != 7 || rep.Failed != 1 {
		t.Fatalf("second run: %+v", rep)
	}

	page, _ := rooms.ListRooms(ctx, domain.RoomsQuery{})
	if len(page.Items) != 3 {
		t.Fatalf("rooms: %d", len(page.Items))
	}
	for _, r := range page.Items {
		if r.Number == "501" && app.CurrentPrice(r).StringFixed(2) != "357.50" {
			t.Fatalf("suite price: %s", app.CurrentPrice(r))
		}
		if r.Number == "102" && r.Available {
			t.Fatal("102 should be unavailable")
		}
	}
}

func TestParseSeed_RejectsUnknownFields(t *testing.T) {
	_, err := app.ParseSeed(strings.NewReader(`{"hotels": []}`))
	wantErr(t, err, domain.ErrInvalidArgument)
}
