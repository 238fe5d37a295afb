package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
)

func (r *Repo) CreateCategory(ctx context.Context, c domain.RoomCategory) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertCategorySQL, c.Name, valStr(c.Description))
	if err != nil {
		return 0, mapErr(err, "category "+c.Name)
	}
	return res.LastInsertId()
}

func scanCategory(s scanner) (domain.RoomCategory, error) {
	var c domain.RoomCategory
	var desc sql.NullString
	if err := s.Scan(&c.ID, &c.Name, &desc); err != nil {
		return domain.RoomCategory{}, err
	}
	c.Description = strPtr(desc)
	return c, nil
}

func (r *Repo) GetCategory(ctx context.Context, id int64) (domain.RoomCategory, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, selectCategorySQL+" WHERE id = ?", id))
	if err != nil {
		return domain.RoomCategory{}, mapErr(err, "category")
	}
	return c, nil
}

func (r *Repo) CategoryNameExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM room_categories WHERE name = ?)`, name).Scan(&ok)
	return ok, err
}

func (r *Repo) ListCategories(ctx context.Context) ([]domain.RoomCategory, error) {
	rows, err := r.db.QueryContext(ctx, selectCategorySQL+" ORDER BY id")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCategory)
}

func (r *Repo) CreateRoom(ctx context.Context, rm domain.Room) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertRoomSQL,
		rm.Number,
		rm.BasePrice,
		rm.Available,
		valDec(rm.SeasonalRate),
		valDec(rm.Multiplier),
		rm.LastPriceUpdate,
		rm.CategoryID,
	)
	if err != nil {
		return 0, mapErr(err, "room "+rm.Number)
	}
	return res.LastInsertId()
}

func scanRoom(s scanner) (domain.Room, error) {
	var rm domain.Room
	var seasonal, mult decimal.NullDecimal
	if err := s.Scan(
		&rm.ID,
		&rm.Number,
		&rm.BasePrice,
		&rm.Available,
		&seasonal,
		&mult,
		&rm.LastPriceUpdate,
		&rm.CategoryID,
	); err != nil {
		return domain.Room{}, err
	}
	rm.SeasonalRate = decPtr(seasonal)
	rm.Multiplier = decPtr(mult)
	return rm, nil
}

func (r *Repo) GetRoom(ctx context.Context, id int64) (domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, selectRoomSQL+" WHERE id = ?", id))
	if err != nil {
		return domain.Room{}, mapErr(err, "room")
	}
	return rm, nil
}

func (r *Repo) RoomNumberExists(ctx context.Context, number string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rooms WHERE number = ?)`, number).Scan(&ok)
	return ok, err
}

func (r *Repo) ListRooms(ctx context.Context, q domain.RoomsQuery) (domain.Page[domain.Room], error) {
	var w where
	if q.AvailableOnly {
		w.add("available = TRUE")
	}
	if q.CategoryID != nil {
		w.add("category_id = ?", *q.CategoryID)
	}
	tail, err := w.page(q.Page)
	if err != nil {
		return domain.Page[domain.Room]{}, err
	}
	rows, err := r.db.QueryContext(ctx, selectRoomSQL+tail, w.args...)
	if err != nil {
		return domain.Page[domain.Room]{}, err
	}
	items, err := collect(rows, scanRoom)
	if err != nil {
		return domain.Page[domain.Room]{}, err
	}
	return pageOf(items, func(rm domain.Room) int64 { return rm.ID }, q.Page.Limit), nil
}

func (r *Repo) UpdateRoomPrice(ctx context.Context, id int64, c domain.RoomPriceChange) (domain.Room, error) {
	var (
		cols []string
		args []any
	)
	if c.BasePrice != nil {
		cols = append(cols, "base_price = ?")
		args = append(args, *c.BasePrice)
	}
	if c.SeasonalRate != nil {
		cols = append(cols, "seasonal_rate = ?")
		args = append(args, *c.SeasonalRate)
	}
	if c.Multiplier != nil {
		cols = append(cols, "multiplier = ?")
		args = append(args, *c.Multiplier)
	}
	if len(cols) == 0 {
		return domain.Room{}, fmt.Errorf("%w: no pricing column to update", domain.ErrInvalidArgument)
	}
	args = append(args, c.At, id)

	var out domain.Room
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, fmt.Sprintf(updateRoomPriceSQL, strings.Join(cols, ", ")), args...)
		if err != nil {
			return err
		}
		if err := touched(ctx, tx, res, "rooms", id); err != nil {
			return err
		}
		out, err = scanRoom(tx.QueryRowContext(ctx, selectRoomSQL+" WHERE id = ?", id))
		return mapErr(err, "room")
	})
	return out, err
}

func (r *Repo) SetRoomAvailability(ctx context.Context, id int64, available bool) (domain.Room, error) {
	var out domain.Room
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateRoomAvailabilitySQL, available, id)
		if err != nil {
			return err
		}
		if err := touched(ctx, tx, res, "rooms", id); err != nil {
			return err
		}
		out, err = scanRoom(tx.QueryRowContext(ctx, selectRoomSQL+" WHERE id = ?", id))
		return mapErr(err, "room")
	})
	return out, err
}

func (r *Repo) DeleteRoom(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return mapErr(err, "room")
	}
	return touched(ctx, r.db, res, "rooms", id)
}
