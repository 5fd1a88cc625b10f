package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	ShippingAddress string          `json:"shippingAddress"`
	PhoneNumber     string          `json:"phoneNumber"`
	Lines           []Line          `json:"products"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Completed       bool            `json:"completed"`
	BuyerConfirmed  bool            `json:"buyerConfirmed"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type Line struct {
	BookID    string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"price"`
}

// Ledger is the stock-keeping subset of a book. Stock and SoldQuantity are
// non-negative and mutated only through fulfillment transitions.
type Ledger struct {
	BookID       string
	Stock        int
	SoldQuantity int
}
