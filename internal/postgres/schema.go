package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger columns carry CHECK constraints as a backstop; the application
// clamps at zero before the database ever sees a negative value.
const schema = `
CREATE TABLE IF NOT EXISTS books (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	stock         INT  NOT NULL DEFAULT 0 CHECK (stock >= 0),
	sold_quantity INT  NOT NULL DEFAULT 0 CHECK (sold_quantity >= 0),
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS orders (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	name             TEXT NOT NULL,
	email            TEXT NOT NULL,
	shipping_address TEXT NOT NULL,
	phone_number     TEXT NOT NULL,
	total_price      NUMERIC(12,2) NOT NULL,
	completed        BOOLEAN NOT NULL DEFAULT FALSE,
	buyer_confirmed  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(email);

CREATE TABLE IF NOT EXISTS order_items (
	id         BIGSERIAL PRIMARY KEY,
	order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
	book_id    TEXT NOT NULL,
	quantity   INT  NOT NULL CHECK (quantity >= 1),
	unit_price NUMERIC(12,2) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

CREATE TABLE IF NOT EXISTS interactions (
	id               BIGSERIAL PRIMARY KEY,
	user_id          TEXT NOT NULL,
	book_id          TEXT NOT NULL,
	interaction_type TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
