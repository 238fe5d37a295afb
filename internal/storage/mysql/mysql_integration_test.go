//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
	mysqlrepo "hotel_ops/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string { return &s }

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("..", "..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// startMySQL runs an isolated MySQL and returns a migrated handle.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping docker-backed test in -short mode")
	}
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=hotel",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/hotel?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

// ---------- the test ----------
func TestRepo_MySQL_BookingLifecycle(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	catID, err := repo.CreateCategory(ctx, domain.RoomCategory{Name: "Suite", Description: pstr("top floor")})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := repo.CreateCategory(ctx, domain.RoomCategory{Name: "suite"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate category: %v", err)
	}

	seasonal := decimal.RequireFromString("10.00")
	mult := decimal.RequireFromString("1.2000")
	roomID, err := repo.CreateRoom(ctx, domain.Room{
		Number: "101", BasePrice: decimal.RequireFromString("100.00"), Available: true,
		SeasonalRate: &seasonal, Multiplier: &mult, LastPriceUpdate: now, CategoryID: catID,
	})
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	room, err := repo.GetRoom(ctx, roomID)
	if err != nil || room.Multiplier == nil || !room.Multiplier.Equal(mult) {
		t.Fatalf("GetRoom: %+v err=%v", room, err)
	}

	// pricing writes touch only their own column
	base := decimal.RequireFromString("120.00")
	if _, err := repo.UpdateRoomPrice(ctx, roomID, domain.RoomPriceChange{BasePrice: &base, At: now}); err != nil {
		t.Fatalf("UpdateRoomPrice: %v", err)
	}
	room, err = repo.SetRoomAvailability(ctx, roomID, false)
	if err != nil || room.Available || !room.BasePrice.Equal(base) || !room.SeasonalRate.Equal(seasonal) {
		t.Fatalf("SetRoomAvailability: %+v err=%v", room, err)
	}
	if _, err := repo.UpdateRoomPrice(ctx, 9999, domain.RoomPriceChange{BasePrice: &base, At: now}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("price of missing room: %v", err)
	}

	guestID, err := repo.CreateGuest(ctx, domain.Guest{Name: "Ada", Email: "ada@example.com", Phone: "+44123", RegisteredAt: now})
	if err != nil {
		t.Fatalf("CreateGuest: %v", err)
	}

	b := domain.Booking{
		CheckIn: day("2030-04-10"), CheckOut: day("2030-04-12"), TotalAmount: decimal.RequireFromString("264.00"),
		CreatedAt: now, Status: domain.BookingConfirmed, GuestID: guestID, RoomID: roomID, Guests: 2,
	}
	b.ID, err = repo.CreateBooking(ctx, b)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	clash := b
	clash.CheckIn, clash.CheckOut = day("2030-04-11"), day("2030-04-13")
	if _, err := repo.CreateBooking(ctx, clash); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("overlap must conflict: %v", err)
	}
	touching := b
	touching.CheckIn, touching.CheckOut = day("2030-04-12"), day("2030-04-14")
	if _, err := repo.CreateBooking(ctx, touching); err != nil {
		t.Fatalf("touching stay: %v", err)
	}

	// moving within its own range is fine
	b.CheckOut = day("2030-04-11")
	if err := repo.UpdateBooking(ctx, b); err != nil {
		t.Fatalf("UpdateBooking: %v", err)
	}

	cs, err := repo.ConflictingBookings(ctx, roomID, day("2030-04-10"), day("2030-04-20"))
	if err != nil || len(cs) != 2 {
		t.Fatalf("ConflictingBookings: %d err=%v", len(cs), err)
	}

	pid, err := repo.CreatePayment(ctx, domain.Payment{
		Amount: decimal.RequireFromString("50.00"), Method: domain.MethodCash, Status: domain.PaymentCompleted,
		TransactionID: "TXN-ABCDEF12", PaidAt: now, BookingID: b.ID,
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if _, err := repo.CreatePayment(ctx, domain.Payment{
		Amount: decimal.RequireFromString("1.00"), Method: domain.MethodCash, Status: domain.PaymentPending,
		TransactionID: "TXN-ABCDEF12", PaidAt: now, BookingID: b.ID,
	}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate txn: %v", err)
	}
	sum, err := repo.SumCompleted(ctx, &b.ID)
	if err != nil || !sum.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("SumCompleted: %s err=%v", sum, err)
	}

	page, err := repo.ListBookings(ctx, domain.BookingFilter{RoomID: &roomID}, domain.PageQuery{Limit: 1})
	if err != nil || len(page.Items) != 1 || page.NextCursor == nil {
		t.Fatalf("ListBookings page: %+v err=%v", page, err)
	}

	// status writes are compare-and-set
	if err := repo.UpdatePaymentStatus(ctx, pid, domain.PaymentPending, domain.PaymentCompleted, &now); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("stale status CAS: %v", err)
	}
	stale, _ := repo.GetPayment(ctx, pid)
	stale.Notes = pstr("late")
	if err := repo.UpdatePayment(ctx, stale, domain.PaymentPending); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("guarded full-row update: %v", err)
	}

	if err := repo.DeleteBooking(ctx, b.ID, true); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("restricted delete with completed payment: %v", err)
	}
	if err := repo.UpdatePaymentStatus(ctx, pid, domain.PaymentCompleted, domain.PaymentRefunded, nil); err != nil {
		t.Fatalf("refund CAS: %v", err)
	}
	if err := repo.DeleteBooking(ctx, b.ID, true); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if _, err := repo.GetPayment(ctx, pid); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("payment should go with its booking: %v", err)
	}
	if err := repo.UpdateBookingStatus(ctx, b.ID, domain.BookingCancelled); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("status update on deleted booking: %v", err)
	}
}
