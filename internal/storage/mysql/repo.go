package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"hotel_ops/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valDec(p *decimal.Decimal) any {
	if p == nil {
		return nil
	}
	return *p
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func decPtr(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	d := nd.Decimal
	return &d
}

type Repo struct{ db *sql.DB }

var _ domain.Store = (*Repo)(nil)

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects with the pool settings the API expects and pings once.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// MySQL server error numbers we translate into domain errors.
const (
	errDuplicateKey    = 1062
	errRowReferenced   = 1451
	errNoReferencedRow = 1452
)

func mapErr(err error, what string) error {
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateKey:
			return fmt.Errorf("%w: %s already exists", domain.ErrConflict, what)
		case errRowReferenced:
			return fmt.Errorf("%w: %s is still referenced", domain.ErrInvalidState, what)
		case errNoReferencedRow:
			return fmt.Errorf("%s references a missing row: %w", what, domain.ErrNotFound)
		}
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// touched turns "no rows affected" into ErrNotFound. MySQL reports zero
// changed rows for a no-op update, so existence is checked separately.
func touched(ctx context.Context, q queryer, res sql.Result, table string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	var one int
	err = q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// statusGuarded explains a zero-row update guarded by "status = expect":
// the row is gone, its status moved on, or nothing needed changing.
func statusGuarded(ctx context.Context, q queryer, res sql.Result, table string, id int64, expect string) error {
	n, err := res.RowsAffected()
	if err != nil || n > 0 {
		return err
	}
	var status string
	err = q.QueryRowContext(ctx, "SELECT status FROM "+table+" WHERE id = ?", id).Scan(&status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case err != nil:
		return err
	case status != expect:
		return fmt.Errorf("%w: %s %d is %s, expected %s", domain.ErrInvalidState, strings.TrimSuffix(table, "s"), id, status, expect)
	}
	return nil
}

// where accumulates AND-ed conditions and their args.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends the keyset condition and returns the query tail. One extra
// row is fetched to tell whether a next page exists.
func (w *where) page(pg domain.PageQuery) (string, error) {
	if pg.Cursor != nil && *pg.Cursor != "" {
		after, err := strconv.ParseInt(*pg.Cursor, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: bad cursor %q", domain.ErrInvalidArgument, *pg.Cursor)
		}
		w.add("id > ?", after)
	}
	tail := w.String() + " ORDER BY id"
	if pg.Limit > 0 {
		tail += " LIMIT ?"
		w.args = append(w.args, pg.Limit+1)
	}
	return tail, nil
}

func pageOf[T any](items []T, id func(T) int64, limit int) domain.Page[T] {
	out := domain.Page[T]{Items: items}
	if limit > 0 && len(items) > limit {
		out.Items = items[:limit]
		next := strconv.FormatInt(id(items[limit-1]), 10)
		out.NextCursor = &next
	}
	return out
}

type scanner interface {
	Scan(dest ...any) error
}

// collect drains rows through scan.
func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
