package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_ops/internal/adapters/observability"
	"hotel_ops/internal/domain"
)

type PaymentInput struct {
	BookingID     int64
	Amount        decimal.Decimal
	Method        domain.PaymentMethod
	TransactionID string // generated when empty
	Reference     *string
	Notes         *string
}

// PaymentPatch carries a partial update. Nil fields are left untouched.
type PaymentPatch struct {
	BookingID     *int64
	Amount        *decimal.Decimal
	Method        *domain.PaymentMethod
	Status        *domain.PaymentStatus
	TransactionID *string
	Reference     *string
	Notes         *string
}

type PaymentService struct {
	store  domain.Store
	events domain.EventPublisher
	now    func() time.Time
}

func NewPaymentService(s domain.Store, ev domain.EventPublisher) *PaymentService {
	if ev == nil {
		ev = NopPublisher{}
	}
	return &PaymentService{store: s, events: ev, now: utcNow}
}

func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

// NewTransactionID returns "TXN-" followed by eight upper-case hex characters.
func NewTransactionID() string {
	return "TXN-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreatePayment records a PENDING payment against an existing booking.
func (s *PaymentService) CreatePayment(ctx context.Context, in PaymentInput) (p domain.Payment, err error) {
	defer func() { s.logFailure("create", err, p.ID) }()

	if !in.Amount.IsPositive() {
		return domain.Payment{}, invalidArg("payment amount must be greater than zero")
	}
	if err := checkMoney("payment amount", in.Amount); err != nil {
		return domain.Payment{}, err
	}
	if !in.Method.Valid() {
		return domain.Payment{}, invalidArg("unknown payment method %q", in.Method)
	}
	if _, err := s.store.GetBooking(ctx, in.BookingID); err != nil {
		return domain.Payment{}, notFound("booking", in.BookingID, err)
	}

	txn := strings.TrimSpace(in.TransactionID)
	if txn == "" {
		if txn, err = s.freshTransactionID(ctx); err != nil {
			return domain.Payment{}, err
		}
	} else {
		taken, err := s.store.TransactionIDExists(ctx, txn)
		if err != nil {
			return domain.Payment{}, err
		}
		if taken {
			return domain.Payment{}, conflict("transaction id %q already exists", txn)
		}
	}

	p = domain.Payment{
		Amount:        in.Amount,
		Method:        in.Method,
		Status:        domain.PaymentPending,
		TransactionID: txn,
		PaidAt:        s.now(),
		BookingID:     in.BookingID,
		Reference:     in.Reference,
		Notes:         in.Notes,
	}
	id, err := s.store.CreatePayment(ctx, p)
	if err != nil {
		return domain.Payment{}, notFound("booking", in.BookingID, err)
	}
	p.ID = id

	log.Info().Int64("payment_id", p.ID).Int64("booking_id", p.BookingID).
		Str("txn", p.TransactionID).Str("amount", p.Amount.StringFixed(2)).Msg("payment created")
	s.publish(ctx, paymentEvent(domain.EventPaymentCreated, p, s.now()))
	return p, nil
}

// Process completes a PENDING payment.
func (s *PaymentService) Process(ctx context.Context, id int64) (domain.Payment, error) {
	return s.transition(ctx, "process", id, domain.PaymentCompleted, domain.PaymentPending)
}

// Refund reverses a COMPLETED payment.
func (s *PaymentService) Refund(ctx context.Context, id int64) (domain.Payment, error) {
	return s.transition(ctx, "refund", id, domain.PaymentRefunded, domain.PaymentCompleted)
}

// UpdateStatus applies any legal transition. Re-applying the current status is a no-op.
func (s *PaymentService) UpdateStatus(ctx context.Context, id int64, to domain.PaymentStatus) (domain.Payment, error) {
	if !to.Valid() {
		err := invalidArg("unknown payment status %q", to)
		s.logFailure("status", err, id)
		return domain.Payment{}, err
	}
	return s.transition(ctx, "status", id, to, "")
}

// transition moves a payment to `to`. A non-empty `from` pins the required source state.
func (s *PaymentService) transition(ctx context.Context, op string, id int64, to, from domain.PaymentStatus) (p domain.Payment, err error) {
	defer func() { s.logFailure(op, err, id) }()

	p, err = s.store.GetPayment(ctx, id)
	if err != nil {
		return domain.Payment{}, notFound("payment", id, err)
	}
	if from != "" && p.Status != from {
		return domain.Payment{}, invalidState("only %s payments can move to %s; payment %d is %s", from, to, id, p.Status)
	}
	if !p.Status.CanTransitionTo(to) {
		return domain.Payment{}, invalidState("payment cannot move from %s to %s", p.Status, to)
	}
	if p.Status == to {
		return p, nil
	}
	prev := p.Status
	var paidAt *time.Time
	if to == domain.PaymentCompleted {
		at := s.now()
		paidAt = &at
		p.PaidAt = at
	}
	// compare-and-set: a concurrent transition makes this fail instead of
	// being overwritten
	if err := s.store.UpdatePaymentStatus(ctx, id, prev, to, paidAt); err != nil {
		return domain.Payment{}, notFound("payment", id, err)
	}
	p.Status = to

	observability.ObservePaymentTransition(string(to))
	log.Info().Int64("payment_id", id).Str("from", string(prev)).Str("to", string(to)).Msg("payment status changed")
	switch to {
	case domain.PaymentCompleted:
		s.publish(ctx, paymentEvent(domain.EventPaymentCompleted, p, s.now()))
	case domain.PaymentRefunded:
		s.publish(ctx, paymentEvent(domain.EventPaymentRefunded, p, s.now()))
	}
	return p, nil
}

func (s *PaymentService) UpdatePayment(ctx context.Context, id int64, in PaymentPatch) (p domain.Payment, err error) {
	defer func() { s.logFailure("update", err, id) }()

	cur, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return domain.Payment{}, notFound("payment", id, err)
	}
	p = cur
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return domain.Payment{}, invalidArg("payment amount must be greater than zero")
		}
		if err := checkMoney("payment amount", *in.Amount); err != nil {
			return domain.Payment{}, err
		}
		p.Amount = *in.Amount
	}
	if in.Method != nil {
		if !in.Method.Valid() {
			return domain.Payment{}, invalidArg("unknown payment method %q", *in.Method)
		}
		p.Method = *in.Method
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return domain.Payment{}, invalidArg("unknown payment status %q", *in.Status)
		}
		if !cur.Status.CanTransitionTo(*in.Status) {
			return domain.Payment{}, invalidState("payment cannot move from %s to %s", cur.Status, *in.Status)
		}
		p.Status = *in.Status
		if p.Status == domain.PaymentCompleted && cur.Status != domain.PaymentCompleted {
			p.PaidAt = s.now()
		}
	}
	if in.TransactionID != nil {
		txn := strings.TrimSpace(*in.TransactionID)
		if txn == "" {
			return domain.Payment{}, invalidArg("transaction id must not be blank")
		}
		if txn != cur.TransactionID {
			taken, err := s.store.TransactionIDExists(ctx, txn)
			if err != nil {
				return domain.Payment{}, err
			}
			if taken {
				return domain.Payment{}, conflict("transaction id %q already exists", txn)
			}
		}
		p.TransactionID = txn
	}
	if in.BookingID != nil && *in.BookingID != cur.BookingID {
		if _, err := s.store.GetBooking(ctx, *in.BookingID); err != nil {
			return domain.Payment{}, notFound("booking", *in.BookingID, err)
		}
		p.BookingID = *in.BookingID
	}
	if in.Reference != nil {
		p.Reference = in.Reference
	}
	if in.Notes != nil {
		p.Notes = in.Notes
	}

	// the row is written only if nobody changed the status since it was read
	if err := s.store.UpdatePayment(ctx, p, cur.Status); err != nil {
		return domain.Payment{}, notFound("payment", id, err)
	}
	log.Info().Int64("payment_id", id).Str("status", string(p.Status)).Msg("payment updated")
	if p.Status != cur.Status {
		observability.ObservePaymentTransition(string(p.Status))
		switch p.Status {
		case domain.PaymentCompleted:
			s.publish(ctx, paymentEvent(domain.EventPaymentCompleted, p, s.now()))
		case domain.PaymentRefunded:
			s.publish(ctx, paymentEvent(domain.EventPaymentRefunded, p, s.now()))
		}
	}
	return p, nil
}

func (s *PaymentService) DeletePayment(ctx context.Context, id int64) (err error) {
	defer func() { s.logFailure("delete", err, id) }()
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return notFound("payment", id, err)
	}
	log.Info().Int64("payment_id", id).Msg("payment deleted")
	return nil
}

// ---- reads ----

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return domain.Payment{}, notFound("payment", id, err)
	}
	return p, nil
}

func (s *PaymentService) GetByTransactionID(ctx context.Context, txn string) (domain.Payment, error) {
	p, err := s.store.GetPaymentByTransactionID(ctx, txn)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Payment{}, fmt.Errorf("transaction %q: %w", txn, domain.ErrNotFound)
	}
	return p, err
}

func (s *PaymentService) ListPayments(ctx context.Context, f domain.PaymentFilter, pg domain.PageQuery) (domain.Page[domain.Payment], error) {
	if f.Status != nil && !f.Status.Valid() {
		return domain.Page[domain.Payment]{}, invalidArg("unknown payment status %q", *f.Status)
	}
	if f.Method != nil && !f.Method.Valid() {
		return domain.Page[domain.Payment]{}, invalidArg("unknown payment method %q", *f.Method)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return domain.Page[domain.Payment]{}, invalidArg("start must not be after end")
	}
	return s.store.ListPayments(ctx, f, NormalizePage(pg))
}

func (s *PaymentService) PaymentsByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	return s.all(ctx, domain.PaymentFilter{BookingID: &bookingID})
}

func (s *PaymentService) PaymentsByStatus(ctx context.Context, st domain.PaymentStatus) ([]domain.Payment, error) {
	if !st.Valid() {
		return nil, invalidArg("unknown payment status %q", st)
	}
	return s.all(ctx, domain.PaymentFilter{Status: &st})
}

func (s *PaymentService) PaymentsByMethod(ctx context.Context, m domain.PaymentMethod) ([]domain.Payment, error) {
	if !m.Valid() {
		return nil, invalidArg("unknown payment method %q", m)
	}
	return s.all(ctx, domain.PaymentFilter{Method: &m})
}

func (s *PaymentService) PaymentsByDateRange(ctx context.Context, from, to time.Time) ([]domain.Payment, error) {
	if from.After(to) {
		return nil, invalidArg("start must not be after end")
	}
	return s.all(ctx, domain.PaymentFilter{From: &from, To: &to})
}

func (s *PaymentService) CountByStatus(ctx context.Context, st domain.PaymentStatus) (int64, error) {
	if !st.Valid() {
		return 0, invalidArg("unknown payment status %q", st)
	}
	return s.store.CountPaymentsByStatus(ctx, st)
}

// TotalCompleted sums every COMPLETED payment.
func (s *PaymentService) TotalCompleted(ctx context.Context) (decimal.Decimal, error) {
	return s.store.SumCompleted(ctx, nil)
}

func (s *PaymentService) TotalPaidForBooking(ctx context.Context, bookingID int64) (decimal.Decimal, error) {
	if _, err := s.store.GetBooking(ctx, bookingID); err != nil {
		return decimal.Zero, notFound("booking", bookingID, err)
	}
	return s.store.SumCompleted(ctx, &bookingID)
}

// OutstandingBalance is the booking total minus completed payments. It goes
// negative when the guest has overpaid.
func (s *PaymentService) OutstandingBalance(ctx context.Context, bookingID int64) (decimal.Decimal, error) {
	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return decimal.Zero, notFound("booking", bookingID, err)
	}
	paid, err := s.store.SumCompleted(ctx, &bookingID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.TotalAmount.Sub(paid), nil
}

func (s *PaymentService) all(ctx context.Context, f domain.PaymentFilter) ([]domain.Payment, error) {
	pg, err := s.store.ListPayments(ctx, f, domain.PageQuery{})
	if err != nil {
		return nil, err
	}
	return pg.Items, nil
}

// ---- helpers ----

const txnAttempts = 5

func (s *PaymentService) freshTransactionID(ctx context.Context) (string, error) {
	for i := 0; i < txnAttempts; i++ {
		txn := NewTransactionID()
		taken, err := s.store.TransactionIDExists(ctx, txn)
		if err != nil {
			return "", err
		}
		if !taken {
			return txn, nil
		}
	}
	return "", conflict("could not allocate a unique transaction id")
}

func (s *PaymentService) logFailure(op string, err error, id int64) {
	if err != nil {
		failure("payment."+op, err).Int64("payment_id", id).Msg("payment operation failed")
	}
}

func (s *PaymentService) publish(ctx context.Context, e domain.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", e.Type).Int64("payment_id", e.PaymentID).Msg("event publish failed")
	}
}

func paymentEvent(typ string, p domain.Payment, at time.Time) domain.Event {
	return domain.Event{
		Type:       typ,
		BookingID:  p.BookingID,
		PaymentID:  p.ID,
		Status:     string(p.Status),
		Amount:     p.Amount.StringFixed(2),
		OccurredAt: at,
	}
}
