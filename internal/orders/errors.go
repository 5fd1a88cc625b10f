package orders

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrBookNotFound  = errors.New("book not found")

	// ErrNotOrderOwner: confirm-receipt email does not match the email
	// snapshotted on the order at checkout.
	ErrNotOrderOwner = errors.New("not allowed to confirm this order")

	// ErrAlreadyConfirmed: buyerConfirmed is write-once.
	ErrAlreadyConfirmed = errors.New("order already confirmed")

	// ErrConflict: a compare-and-swap on the order's flags lost a race with a
	// concurrent writer (another process instance). The ledger was not touched.
	ErrConflict = errors.New("order modified concurrently")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
