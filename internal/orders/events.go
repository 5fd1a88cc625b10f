package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventOrderCompleted   = "OrderCompleted"
	EventOrderReopened    = "OrderReopened"
	EventReceiptConfirmed = "ReceiptConfirmed"
	EventCatalogActivity  = "CatalogActivity"
)

type Envelope struct {
	EventID       string          `json:"event_id"`   // uuid
	EventType     string          `json:"event_type"` // one of the consts above
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"` // RFC3339
	Producer      string          `json:"producer"`    // e.g. "bookstore-api"
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload types per event ----

type LineQty struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

type OrderCreatedPayload struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Lines      []LineQty `json:"lines"`
	TotalPrice string    `json:"total_price"`
}

type OrderCompletedPayload struct {
	OrderID string `json:"order_id"`
	// Via records which transition completed the order: "admin" for a status
	// update, "buyer-confirmation" for a confirm-receipt.
	Via string `json:"via"`
}

type OrderReopenedPayload struct {
	OrderID string `json:"order_id"`
}

type ReceiptConfirmedPayload struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email"`
}

// CatalogActivityPayload is consumed, not produced, by this service: the CRUD
// surfaces outside this core (reviews, wishlists, signups) publish one per
// mutation so the rebuild scheduler hears about them.
type CatalogActivityPayload struct {
	Reason string `json:"reason"`
	UserID string `json:"user_id,omitempty"`
}

func ToLineQtys(lines []Line) []LineQty {
	out := make([]LineQty, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineQty{BookID: l.BookID, Quantity: l.Quantity})
	}
	return out
}
