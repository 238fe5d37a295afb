package mysql

import (
	"context"
	"database/sql"

	"hotel_ops/internal/domain"
)

func (r *Repo) CreateGuest(ctx context.Context, g domain.Guest) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertGuestSQL, g.Name, g.Email, g.Phone, valStr(g.Address), g.RegisteredAt)
	if err != nil {
		return 0, mapErr(err, "guest email or phone")
	}
	return res.LastInsertId()
}

func scanGuest(s scanner) (domain.Guest, error) {
	var g domain.Guest
	var addr sql.NullString
	if err := s.Scan(&g.ID, &g.Name, &g.Email, &g.Phone, &addr, &g.RegisteredAt); err != nil {
		return domain.Guest{}, err
	}
	g.Address = strPtr(addr)
	return g, nil
}

func (r *Repo) GetGuest(ctx context.Context, id int64) (domain.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, selectGuestSQL+" WHERE id = ?", id))
	if err != nil {
		return domain.Guest{}, mapErr(err, "guest")
	}
	return g, nil
}

func (r *Repo) EmailExists(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM guests WHERE email = ?)`, email).Scan(&ok)
	return ok, err
}

func (r *Repo) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM guests WHERE phone = ?)`, phone).Scan(&ok)
	return ok, err
}

func (r *Repo) ListGuests(ctx context.Context, pg domain.PageQuery) (domain.Page[domain.Guest], error) {
	var w where
	tail, err := w.page(pg)
	if err != nil {
		return domain.Page[domain.Guest]{}, err
	}
	rows, err := r.db.QueryContext(ctx, selectGuestSQL+tail, w.args...)
	if err != nil {
		return domain.Page[domain.Guest]{}, err
	}
	items, err := collect(rows, scanGuest)
	if err != nil {
		return domain.Page[domain.Guest]{}, err
	}
	return pageOf(items, func(g domain.Guest) int64 { return g.ID }, pg.Limit), nil
}
