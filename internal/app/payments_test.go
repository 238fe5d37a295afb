package app_test

import (
	"context"
	"regexp"
	"testing"

	"hotel_ops/internal/app"
	"hotel_ops/internal/domain"
)

var txnPattern = regexp.MustCompile(`^TXN-[0-9A-F]{8}$`)

func TestNewTransactionID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := app.NewTransactionID()
		if !txnPattern.MatchString(id) {
			t.Fatalf("bad transaction id %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 99 {
		t.Fatalf("transaction ids collide too often: %d unique", len(seen))
	}
}

func TestPaymentLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.bookings(app.DeleteRestrict), "2025-04-01", "2025-04-03")
	svc := f.payments()

	p, err := svc.CreatePayment(ctx, app.PaymentInput{BookingID: b.ID, Amount: dec("100"), Method: domain.MethodCreditCard})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != domain.PaymentPending || !txnPattern.MatchString(p.TransactionID) {
		t.Fatalf("unexpected payment: %+v", p)
	}

	_, err = svc.Refund(ctx, p.ID)
	wantErr(t, err, domain.ErrInvalidState)

	p, err = svc.Process(ctx, p.ID)
	if err != nil || p.Status != domain.PaymentCompleted {
		t.Fatalf("process: %+v err=%v", p, err)
	}
	_, err = svc.Process(ctx, p.ID)
	wantErr(t, err, domain.ErrInvalidState)

	balance, err := svc.OutstandingBalance(ctx, b.ID)
	if err != nil || balance.StringFixed(2) != "164.00" {
		t.Fatalf("balance: %s err=%v", balance, err)
	}

	p, err = svc.Refund(ctx, p.ID)
	if err != nil || p.Status != domain.PaymentRefunded {
		t.Fatalf("refund: %+v err=%v", p, err)
	}
	_, err = svc.UpdateStatus(ctx, p.ID, domain.PaymentPending)
	wantErr(t, err, domain.ErrInvalidState)

	if p, err = svc.UpdateStatus(ctx, p.ID, domain.PaymentRefunded); err != nil || p.Status != domain.PaymentRefunded {
		t.Fatalf("same-state update should be a no-op: %+v err=%v", p, err)
	}

	total, _ := svc.TotalCompleted(ctx)
	if !total.IsZero() {
		t.Fatalf("refunded payment still counted: %s", total)
	}
	want := []string{domain.EventBookingCreated, domain.EventPaymentCreated, domain.EventPaymentCompleted, domain.EventPaymentRefunded}
	got := f.events.types()
	if len(got) != len(want) {
		t.Fatalf("events: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: %v", got)
		}
	}
}

func TestCreatePayment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.bookings(app.DeleteRestrict), "2025-04-01", "2025-04-03")
	svc := f.payments()

	if _, err := svc.CreatePayment(ctx, app.PaymentInput{BookingID: b.ID, Amount: dec("10"), Method: domain.MethodCash, TransactionID: "TXN-FIXED"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name string
		in   app.PaymentInput
		want error
	}{
		{"zero amount", app.PaymentInput{BookingID: b.ID, Amount: dec("0"), Method: domain.MethodCash}, domain.ErrInvalidArgument},
		{"negative amount", app.PaymentInput{BookingID: b.ID, Amount: dec("-5"), Method: domain.MethodCash}, domain.ErrInvalidArgument},
		{"sub-cent amount", app.PaymentInput{BookingID: b.ID, Amount: dec("0.004"), Method: domain.MethodCash}, domain.ErrInvalidArgument},
		{"three decimals", app.PaymentInput{BookingID: b.ID, Amount: dec("10.125"), Method: domain.MethodCash}, domain.ErrInvalidArgument},
		{"unknown method", app.PaymentInput{BookingID: b.ID, Amount: dec("5"), Method: "BARTER"}, domain.ErrInvalidArgument},
		{"unknown booking", app.PaymentInput{BookingID: 999, Amount: dec("5"), Method: domain.MethodCash}, domain.ErrNotFound},
		{"duplicate transaction", app.PaymentInput{BookingID: b.ID, Amount: dec("5"), Method: domain.MethodCash, TransactionID: "TXN-FIXED"}, domain.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreatePayment(ctx, tc.in)
			wantErr(t, err, tc.want)
		})
	}
}

func TestPaymentReadsAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bookings := f.bookings(app.DeleteRestrict)
	b1 := f.book(t, bookings, "2025-04-01", "2025-04-03")
	b2 := f.book(t, bookings, "2025-04-03", "2025-04-04")
	svc := f.payments()

	mk := func(bookingID int64, amount string, m domain.PaymentMethod, complete bool) domain.Payment {
		t.Helper()
		p, err := svc.CreatePayment(ctx, app.PaymentInput{BookingID: bookingID, Amount: dec(amount), Method: m})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if complete {
			if p, err = svc.Process(ctx, p.ID); err != nil {
				t.Fatalf("process: %v", err)
			}
		}
		return p
	}
	mk(b1.ID, "100", domain.MethodCash, true)
	mk(b1.ID, "64.50", domain.MethodDebitCard, true)
	pending := mk(b2.ID, "20", domain.MethodCash, false)
	mk(b2.ID, "30", domain.MethodBankTransfer, true)

	total, _ := svc.TotalCompleted(ctx)
	if total.StringFixed(2) != "194.50" {
		t.Fatalf("total completed: %s", total)
	}
	paid, _ := svc.TotalPaidForBooking(ctx, b1.ID)
	if paid.StringFixed(2) != "164.50" {
		t.Fatalf("paid for booking: %s", paid)
	}
	// 264.00 - 164.50
	if bal, _ := svc.OutstandingBalance(ctx, b1.ID); bal.StringFixed(2) != "99.50" {
		t.Fatalf("balance: %s", bal)
	}
	_, err := svc.TotalPaidForBooking(ctx, 999)
	wantErr(t, err, domain.ErrNotFound)

	if ps, _ := svc.PaymentsByBooking(ctx, b2.ID); len(ps) != 2 {
		t.Fatalf("by booking: %d", len(ps))
	}
	if ps, _ := svc.PaymentsByMethod(ctx, domain.MethodCash); len(ps) != 2 {
		t.Fatalf("by method: %d", len(ps))
	}
	if ps, _ := svc.PaymentsByStatus(ctx, domain.PaymentPending); len(ps) != 1 || ps[0].ID != pending.ID {
		t.Fatalf("by status: %+v", ps)
	}
	if n, _ := svc.CountByStatus(ctx, domain.PaymentCompleted); n != 3 {
		t.Fatalf("count completed: %d", n)
	}
	got, err := svc.GetByTransactionID(ctx, pending.TransactionID)
	if err != nil || got.ID != pending.ID {
		t.Fatalf("by txn: %+v err=%v", got, err)
	}
	_, err = svc.GetByTransactionID(ctx, "TXN-NOPE")
	wantErr(t, err, domain.ErrNotFound)

	wantErr(t, svc.DeletePayment(ctx, pending.ID), nil)
	wantErr(t, svc.DeletePayment(ctx, pending.ID), domain.ErrNotFound)
}

func TestUpdatePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.bookings(app.DeleteRestrict), "2025-04-01", "2025-04-03")
	svc := f.payments()
	p, _ := svc.CreatePayment(ctx, app.PaymentInput{BookingID: b.ID, Amount: dec("10"), Method: domain.MethodCash})
	other, _ := svc.CreatePayment(ctx, app.PaymentInput{BookingID: b.ID, Amount: dec("10"), Method: domain.MethodCash})

	up, err := svc.UpdatePayment(ctx, p.ID, app.PaymentPatch{Amount: ptr(dec("12.5")), Method: ptr(domain.MethodDigitalWallet), Notes: ptr("app")})
	if err != nil || !up.Amount.Equal(dec("12.5")) || up.Method != domain.MethodDigitalWallet || *up.Notes != "app" {
		t.Fatalf("update: %+v err=%v", up, err)
	}
	_, err = svc.UpdatePayment(ctx, p.ID, app.PaymentPatch{TransactionID: ptr(other.TransactionID)})
	wantErr(t, err, domain.ErrConflict)
	_, err = svc.UpdatePayment(ctx, p.ID, app.PaymentPatch{Status: ptr(domain.PaymentRefunded)})
	wantErr(t, err, domain.ErrInvalidState)
	_, err = svc.UpdatePayment(ctx, p.ID, app.PaymentPatch{Amount: ptr(dec("0"))})
	wantErr(t, err, domain.ErrInvalidArgument)
	_, err = svc.UpdatePayment(ctx, p.ID, app.PaymentPatch{Amount: ptr(dec("1.005"))})
	wantErr(t, err, domain.ErrInvalidArgument)

	up, err = svc.UpdatePayment(ctx, p.ID, app.PaymentPatch{Status: ptr(domain.PaymentCompleted)})
	if err != nil || up.Status != domain.PaymentCompleted {
		t.Fatalf("complete via update: %+v err=%v", up, err)
	}
}

func TestUpdatePayment_StaleEditCannotUndoRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.bookings(app.DeleteRestrict), "2025-04-01", "2025-04-03")
	svc := f.payments()
	p, _ := svc.CreatePayment(ctx, app.PaymentInput{BookingID: b.ID, Amount: dec("100"), Method: domain.MethodCash})
	if _, err := svc.Process(ctx, p.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	// the notes edit reads the COMPLETED row, then waits while the refund lands
	slow := pauseOn(f.store, "GetPayment")
	editor := app.NewPaymentService(slow, nil)
	done := make(chan error, 1)
	go func() {
		_, err := editor.UpdatePayment(ctx, p.ID, app.PaymentPatch{Notes: ptr("late note")})
		done <- err
	}()
	<-slow.reached
	if _, err := svc.Refund(ctx, p.ID); err != nil {
		t.Fatalf("refund: %v", err)
	}
	close(slow.release)
	wantErr(t, <-done, domain.ErrInvalidState)

	got, _ := svc.GetPayment(ctx, p.ID)
	if got.Status != domain.PaymentRefunded || got.Notes != nil {
		t.Fatalf("refund was overwritten: %+v", got)
	}
	if total, _ := svc.TotalCompleted(ctx); !total.IsZero() {
		t.Fatalf("refunded money counted again: %s", total)
	}
}

func TestRefund_ConcurrentTransitionsApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.book(t, f.bookings(app.DeleteRestrict), "2025-04-01", "2025-04-03")
	svc := f.payments()
	p, _ := svc.CreatePayment(ctx, app.PaymentInput{BookingID: b.ID, Amount: dec("100"), Method: domain.MethodCash})
	if _, err := svc.Process(ctx, p.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	slow := pauseOn(f.store, "GetPayment")
	late := app.NewPaymentService(slow, f.events)
	done := make(chan error, 1)
	go func() {
		_, err := late.Refund(ctx, p.ID)
		done <- err
	}()
	<-slow.reached
	if _, err := svc.Refund(ctx, p.ID); err != nil {
		t.Fatalf("refund: %v", err)
	}
	close(slow.release)
	wantErr(t, <-done, domain.ErrInvalidState)

	refunds := 0
	for _, typ := range f.events.types() {
		if typ == domain.EventPaymentRefunded {
			refunds++
		}
	}
	if refunds != 1 {
		t.Fatalf("refund applied %d times", refunds)
	}
}
