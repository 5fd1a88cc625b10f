package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepo mutates the stock-keeping columns on books. Every delta is a
// single conditional UPDATE so concurrent fulfillments can never interleave a
// read-modify-write. A debit past zero clamps instead of failing, matching
// the storefront's tolerate-oversell policy.
type LedgerRepo struct{ DB *pgxpool.Pool }

func (r *LedgerRepo) Debit(ctx context.Context, bookID string, qty int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE books
		SET stock = GREATEST(0, stock - $2),
		    sold_quantity = sold_quantity + $2,
		    updated_at = now()
		WHERE id = $1`, bookID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *LedgerRepo) Credit(ctx context.Context, bookID string, qty int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE books
		SET stock = stock + $2,
		    sold_quantity = GREATEST(0, sold_quantity - $2),
		    updated_at = now()
		WHERE id = $1`, bookID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

// GetLedger reads the current counters, mainly for the admin dashboard.
func (r *LedgerRepo) GetLedger(ctx context.Context, bookID string) (Ledger, error) {
	l := Ledger{BookID: bookID}
	err := r.DB.QueryRow(ctx,
		`SELECT stock, sold_quantity FROM books WHERE id=$1`, bookID,
	).Scan(&l.Stock, &l.SoldQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, ErrBookNotFound
	}
	return l, err
}
