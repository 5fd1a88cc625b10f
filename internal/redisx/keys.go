package redisx

import "time"

const (
	// Cache of the buyer's order list: orders:email:{email} -> JSON array.
	// Invalidated whenever an order with that email mutates.
	KeyOrdersByEmail = "orders:email:%s"

	// Dedup for consumed events: dedup:{consumer}:{event_id}.
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
