package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
)

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	var req sql.NullString
	var status string
	if err := s.Scan(
		&b.ID,
		&b.CheckIn,
		&b.CheckOut,
		&b.TotalAmount,
		&b.CreatedAt,
		&status,
		&b.GuestID,
		&b.RoomID,
		&b.Guests,
		&req,
	); err != nil {
		return domain.Booking{}, err
	}
	b.Status = domain.BookingStatus(status)
	b.SpecialRequest = strPtr(req)
	return b, nil
}

// lockAndCheck takes the room row lock and fails with ErrConflict when
// another live booking of the room overlaps [in, out).
func lockAndCheck(ctx context.Context, tx *sql.Tx, roomID, excludeID int64, in, out time.Time) error {
	var id int64
	if err := tx.QueryRowContext(ctx, lockRoomSQL, roomID).Scan(&id); err != nil {
		return mapErr(err, "room")
	}
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings"+overlapWhere, roomID, excludeID, out, in).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: room %d is already booked for the selected dates", domain.ErrConflict, roomID)
	}
	return nil
}

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) (int64, error) {
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if b.Status != domain.BookingCancelled {
			if err := lockAndCheck(ctx, tx, b.RoomID, 0, b.CheckIn, b.CheckOut); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, insertBookingSQL,
			b.CheckIn,
			b.CheckOut,
			b.TotalAmount,
			b.CreatedAt,
			string(b.Status),
			b.GuestID,
			b.RoomID,
			b.Guests,
			valStr(b.SpecialRequest),
		)
		if err != nil {
			return mapErr(err, "booking")
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

func (r *Repo) UpdateBooking(ctx context.Context, b domain.Booking) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if b.Status != domain.BookingCancelled {
			if err := lockAndCheck(ctx, tx, b.RoomID, b.ID, b.CheckIn, b.CheckOut); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, updateBookingSQL,
			b.CheckIn,
			b.CheckOut,
			b.TotalAmount,
			string(b.Status),
			b.GuestID,
			b.RoomID,
			b.Guests,
			valStr(b.SpecialRequest),
			b.ID,
		)
		if err != nil {
			return mapErr(err, "booking")
		}
		return touched(ctx, tx, res, "bookings", b.ID)
	})
}

func (r *Repo) UpdateBookingStatus(ctx context.Context, id int64, s domain.BookingStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(s), id)
	if err != nil {
		return err
	}
	return touched(ctx, r.db, res, "bookings", id)
}

func (r *Repo) DeleteBooking(ctx context.Context, id int64, restrict bool) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var locked int64
		if err := tx.QueryRowContext(ctx, lockBookingSQL, id).Scan(&locked); err != nil {
			return mapErr(err, "booking")
		}
		if restrict {
			rows, err := tx.QueryContext(ctx, lockBookingPaymentsSQL, id)
			if err != nil {
				return err
			}
			paid := decimal.Zero
			for rows.Next() {
				var status string
				var amount decimal.Decimal
				if err := rows.Scan(&status, &amount); err != nil {
					rows.Close()
					return err
				}
				if status == string(domain.PaymentCompleted) {
					paid = paid.Add(amount)
				}
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			if paid.IsPositive() {
				return fmt.Errorf("%w: booking %d has completed payments of %s; refund them first",
					domain.ErrInvalidState, id, paid.StringFixed(2))
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE booking_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return touched(ctx, tx, res, "bookings", id)
	})
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, selectBookingSQL+" WHERE id = ?", id))
	if err != nil {
		return domain.Booking{}, mapErr(err, "booking")
	}
	return b, nil
}

func (r *Repo) ConflictingBookings(ctx context.Context, roomID int64, checkIn, checkOut time.Time) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, selectBookingSQL+overlapWhere+" ORDER BY id", roomID, 0, checkOut, checkIn)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanBooking)
}

func (r *Repo) ListBookings(ctx context.Context, f domain.BookingFilter, pg domain.PageQuery) (domain.Page[domain.Booking], error) {
	var w where
	if f.GuestID != nil {
		w.add("guest_id = ?", *f.GuestID)
	}
	if f.RoomID != nil {
		w.add("room_id = ?", *f.RoomID)
	}
	if f.Status != nil {
		w.add("status = ?", string(*f.Status))
	}
	if f.From != nil {
		w.add("check_in >= ?", *f.From)
	}
	if f.To != nil {
		w.add("check_out <= ?", *f.To)
	}
	tail, err := w.page(pg)
	if err != nil {
		return domain.Page[domain.Booking]{}, err
	}
	rows, err := r.db.QueryContext(ctx, selectBookingSQL+tail, w.args...)
	if err != nil {
		return domain.Page[domain.Booking]{}, err
	}
	items, err := collect(rows, scanBooking)
	if err != nil {
		return domain.Page[domain.Booking]{}, err
	}
	return pageOf(items, func(b domain.Booking) int64 { return b.ID }, pg.Limit), nil
}

func (r *Repo) CountBookingsByStatus(ctx context.Context, s domain.BookingStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE status = ?`, string(s)).Scan(&n)
	return n, err
}
