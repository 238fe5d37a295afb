package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
)

func (r *Repo) CreatePayment(ctx context.Context, p domain.Payment) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertPaymentSQL,
		p.Amount,
		string(p.Method),
		string(p.Status),
		p.TransactionID,
		p.PaidAt,
		p.BookingID,
		valStr(p.Reference),
		valStr(p.Notes),
	)
	if err != nil {
		return 0, mapErr(err, "transaction "+p.TransactionID)
	}
	return res.LastInsertId()
}

func (r *Repo) UpdatePayment(ctx context.Context, p domain.Payment, expect domain.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx, updatePaymentSQL,
		p.Amount,
		string(p.Method),
		string(p.Status),
		p.TransactionID,
		p.PaidAt,
		p.BookingID,
		valStr(p.Reference),
		valStr(p.Notes),
		p.ID,
		string(expect),
	)
	if err != nil {
		return mapErr(err, "transaction "+p.TransactionID)
	}
	return statusGuarded(ctx, r.db, res, "payments", p.ID, string(expect))
}

func (r *Repo) UpdatePaymentStatus(ctx context.Context, id int64, from, to domain.PaymentStatus, paidAt *time.Time) error {
	var at any
	if paidAt != nil {
		at = *paidAt
	}
	res, err := r.db.ExecContext(ctx, updatePaymentStatusSQL, string(to), at, id, string(from))
	if err != nil {
		return err
	}
	return statusGuarded(ctx, r.db, res, "payments", id, string(from))
}

func (r *Repo) DeletePayment(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, "payments", id)
}

func scanPayment(s scanner) (domain.Payment, error) {
	var p domain.Payment
	var method, status string
	var ref, notes sql.NullString
	if err := s.Scan(
		&p.ID,
		&p.Amount,
		&method,
		&status,
		&p.TransactionID,
		&p.PaidAt,
		&p.BookingID,
		&ref,
		&notes,
	); err != nil {
		return domain.Payment{}, err
	}
	p.Method = domain.PaymentMethod(method)
	p.Status = domain.PaymentStatus(status)
	p.Reference = strPtr(ref)
	p.Notes = strPtr(notes)
	return p, nil
}

func (r *Repo) GetPayment(ctx context.Context, id int64) (domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, selectPaymentSQL+" WHERE id = ?", id))
	if err != nil {
		return domain.Payment{}, mapErr(err, "payment")
	}
	return p, nil
}

func (r *Repo) GetPaymentByTransactionID(ctx context.Context, txn string) (domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, selectPaymentSQL+" WHERE transaction_id = ?", txn))
	if err != nil {
		return domain.Payment{}, mapErr(err, "payment")
	}
	return p, nil
}

func (r *Repo) TransactionIDExists(ctx context.Context, txn string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE transaction_id = ?)`, txn).Scan(&ok)
	return ok, err
}

func (r *Repo) ListPayments(ctx context.Context, f domain.PaymentFilter, pg domain.PageQuery) (domain.Page[domain.Payment], error) {
	var w where
	if f.BookingID != nil {
		w.add("booking_id = ?", *f.BookingID)
	}
	if f.Status != nil {
		w.add("status = ?", string(*f.Status))
	}
	if f.Method != nil {
		w.add("method = ?", string(*f.Method))
	}
	if f.From != nil {
		w.add("paid_at >= ?", *f.From)
	}
	if f.To != nil {
		w.add("paid_at <= ?", *f.To)
	}
	tail, err := w.page(pg)
	if err != nil {
		return domain.Page[domain.Payment]{}, err
	}
	rows, err := r.db.QueryContext(ctx, selectPaymentSQL+tail, w.args...)
	if err != nil {
		return domain.Page[domain.Payment]{}, err
	}
	items, err := collect(rows, scanPayment)
	if err != nil {
		return domain.Page[domain.Payment]{}, err
	}
	return pageOf(items, func(p domain.Payment) int64 { return p.ID }, pg.Limit), nil
}

func (r *Repo) CountPaymentsByStatus(ctx context.Context, s domain.PaymentStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments WHERE status = ?`, string(s)).Scan(&n)
	return n, err
}

func (r *Repo) SumCompleted(ctx context.Context, bookingID *int64) (decimal.Decimal, error) {
	q, args := sumCompletedSQL, []any{}
	if bookingID != nil {
		q += " AND booking_id = ?"
		args = append(args, *bookingID)
	}
	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}
