package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, name, email, shipping_address, phone_number,
		                   total_price, completed, buyer_confirmed, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.UserID, o.Name, o.Email, o.ShippingAddress, o.PhoneNumber,
		o.TotalPrice.String(), o.Completed, o.BuyerConfirmed, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	for _, l := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, book_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4)`,
			o.ID, l.BookID, l.Quantity, l.UnitPrice.String(),
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, user_id, name, email, shipping_address, phone_number,
		       total_price::text, completed, buyer_confirmed, created_at, updated_at
		FROM orders WHERE id=$1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := r.loadLines(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, name, email, shipping_address, phone_number,
		       total_price::text, completed, buyer_confirmed, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, name, email, shipping_address, phone_number,
		       total_price::text, completed, buyer_confirmed, created_at, updated_at
		FROM orders WHERE email=$1 ORDER BY created_at DESC`, email)
}

// SetCompleted is a compare-and-swap: the flag only flips if it still holds
// the value the caller observed.
func (r *Repo) SetCompleted(ctx context.Context, id string, desired, was bool) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET completed=$2, updated_at=now()
		WHERE id=$1 AND completed=$3`, id, desired, was)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// Confirm is a compare-and-swap over both flags: confirmation is write-once,
// and completed must still hold the value the caller observed.
func (r *Repo) Confirm(ctx context.Context, id string, completedWas bool) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET buyer_confirmed=TRUE, completed=TRUE, updated_at=now()
		WHERE id=$1 AND buyer_confirmed=FALSE AND completed=$2`, id, completedWas)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repo) missingOrConflict(ctx context.Context, id string) error {
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT 1 FROM orders WHERE id=$1`, id).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return err
	}
	return ErrConflict
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := r.loadLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) loadLines(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT book_id, quantity, unit_price::text
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l Line
		var price string
		if err := rows.Scan(&l.BookID, &l.Quantity, &price); err != nil {
			return err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("parse unit_price: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var total string
	err := row.Scan(&o.ID, &o.UserID, &o.Name, &o.Email, &o.ShippingAddress, &o.PhoneNumber,
		&total, &o.Completed, &o.BuyerConfirmed, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_price: %w", err)
	}
	return &o, nil
}
