package orders

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStore persists orders. Flag flips are conditional writes: the store
// must only apply them when the current flag value matches the caller's
// expectation and return ErrConflict otherwise.
type OrderStore interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	// SetCompleted persists completed=desired iff completed is still was.
	SetCompleted(ctx context.Context, id string, desired, was bool) error
	// Confirm sets buyerConfirmed=true and completed=true iff buyerConfirmed
	// is still false and completed still holds completedWas.
	Confirm(ctx context.Context, id string, completedWas bool) error
	Delete(ctx context.Context, id string) error
}

// LedgerStore applies stock deltas one book at a time. Both operations clamp
// at zero and must be atomic per call (no read-modify-write at the caller).
type LedgerStore interface {
	// Debit: stock = max(0, stock-qty), soldQuantity += qty.
	Debit(ctx context.Context, bookID string, qty int) error
	// Credit: stock += qty, soldQuantity = max(0, soldQuantity-qty).
	Credit(ctx context.Context, bookID string, qty int) error
}

// RebuildTrigger is the scheduler's trigger entry point. Never blocks.
type RebuildTrigger interface {
	Trigger(reason string)
}

// EventSink receives fulfillment events, fire and forget.
type EventSink interface {
	Publish(eventType, orderID string, payload any)
}

type CreateInput struct {
	UserID          string
	Name            string
	Email           string
	ShippingAddress string
	PhoneNumber     string
	Lines           []Line
	TotalPrice      decimal.Decimal
}

// Service is the fulfillment state machine: the only writer of the stock
// ledger. Transitions on the same order are serialized by a per-order lock.
type Service struct {
	Orders  OrderStore
	Ledger  LedgerStore
	Rebuild RebuildTrigger
	Events  EventSink

	locks *keyLocks
	now   func() time.Time
}

func NewService(os OrderStore, ls LedgerStore, rt RebuildTrigger, sink EventSink) *Service {
	return &Service{
		Orders:  os,
		Ledger:  ls,
		Rebuild: rt,
		Events:  sink,
		locks:   newKeyLocks(),
		now:     time.Now,
	}
}

// Create validates and persists a new order with both flags false, then
// signals the scheduler unconditionally. The total is stored as supplied by
// the caller and is not recomputed from the lines.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	if _, err := uuid.Parse(in.UserID); err != nil {
		return nil, &ValidationError{Field: "userId", Reason: "valid userId is required"}
	}
	for _, f := range []struct{ name, v string }{
		{"name", in.Name},
		{"email", in.Email},
		{"shippingAddress", in.ShippingAddress},
		{"phoneNumber", in.PhoneNumber},
	} {
		if strings.TrimSpace(f.v) == "" {
			return nil, &ValidationError{Field: f.name, Reason: "required"}
		}
	}
	if len(in.Lines) == 0 {
		return nil, &ValidationError{Field: "products", Reason: "at least one line is required"}
	}
	for _, l := range in.Lines {
		if l.BookID == "" {
			return nil, &ValidationError{Field: "products", Reason: "productId is required"}
		}
		if l.Quantity < 1 {
			return nil, &ValidationError{Field: "products", Reason: "quantity must be at least 1"}
		}
	}
	if in.TotalPrice.IsNegative() {
		return nil, &ValidationError{Field: "totalPrice", Reason: "must not be negative"}
	}

	now := s.now().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		Name:            in.Name,
		Email:           in.Email,
		ShippingAddress: in.ShippingAddress,
		PhoneNumber:     in.PhoneNumber,
		Lines:           in.Lines,
		TotalPrice:      in.TotalPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	s.publish(EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Email:      o.Email,
		Lines:      ToLineQtys(o.Lines),
		TotalPrice: o.TotalPrice.String(),
	})
	s.trigger("order-created")
	return o, nil
}

// SetCompleted flips the completed flag under admin control. On false->true
// every line is debited from the book ledger; on true->false it is credited
// back. Missing books are skipped line by line, not rolled back.
func (s *Service) SetCompleted(ctx context.Context, id string, desired bool) (*Order, error) {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	was := o.Completed

	// Claim the transition before touching the ledger so a racing writer in
	// another instance gets ErrConflict instead of a double-applied delta.
	if err := s.Orders.SetCompleted(ctx, id, desired, was); err != nil {
		return nil, err
	}
	o.Completed = desired
	o.UpdatedAt = s.now().UTC()

	switch {
	case !was && desired:
		s.applyDebits(ctx, o)
		s.publish(EventOrderCompleted, o.ID, OrderCompletedPayload{OrderID: o.ID, Via: "admin"})
		s.trigger("order-completed")
	case was && !desired:
		s.applyCredits(ctx, o)
		s.publish(EventOrderReopened, o.ID, OrderReopenedPayload{OrderID: o.ID})
	}
	return o, nil
}

// ConfirmReceipt is the buyer's self-service completion. The email must match
// the snapshot taken at checkout, and confirmation is write-once.
func (s *Service) ConfirmReceipt(ctx context.Context, id, email string) (*Order, error) {
	if strings.TrimSpace(email) == "" {
		return nil, &ValidationError{Field: "email", Reason: "customer email is required to confirm receipt"}
	}

	s.locks.lock(id)
	defer s.locks.unlock(id)

	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Email != email {
		return nil, ErrNotOrderOwner
	}
	if o.BuyerConfirmed {
		return nil, ErrAlreadyConfirmed
	}
	was := o.Completed

	// Claim both flags against the observed state: a SetCompleted racing in
	// from another instance makes this conflict instead of debiting again.
	if err := s.Orders.Confirm(ctx, id, was); err != nil {
		return nil, err
	}
	o.BuyerConfirmed = true
	o.Completed = true
	o.UpdatedAt = s.now().UTC()

	if !was {
		s.applyDebits(ctx, o)
		s.publish(EventOrderCompleted, o.ID, OrderCompletedPayload{OrderID: o.ID, Via: "buyer-confirmation"})
		s.trigger("order-completed")
	}
	s.publish(EventReceiptConfirmed, o.ID, ReceiptConfirmedPayload{OrderID: o.ID, Email: email})
	return o, nil
}

// Delete removes the record. Deletion is not a completion-state transition:
// stock effects already applied stay applied.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Orders.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Orders.Get(ctx, id)
}

func (s *Service) ListAll(ctx context.Context) ([]Order, error) {
	return s.Orders.ListAll(ctx)
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.Orders.ListByEmail(ctx, email)
}

func (s *Service) applyDebits(ctx context.Context, o *Order) {
	for _, l := range o.Lines {
		if err := s.Ledger.Debit(ctx, l.BookID, l.Quantity); err != nil {
			if errors.Is(err, ErrBookNotFound) {
				log.Printf("[orders] order %s: book %s missing, line skipped", o.ID, l.BookID)
				continue
			}
			log.Printf("[orders] order %s: debit book %s failed: %v", o.ID, l.BookID, err)
		}
	}
}

func (s *Service) applyCredits(ctx context.Context, o *Order) {
	for _, l := range o.Lines {
		if err := s.Ledger.Credit(ctx, l.BookID, l.Quantity); err != nil {
			if errors.Is(err, ErrBookNotFound) {
				log.Printf("[orders] order %s: book %s missing, line skipped", o.ID, l.BookID)
				continue
			}
			log.Printf("[orders] order %s: credit book %s failed: %v", o.ID, l.BookID, err)
		}
	}
}

func (s *Service) trigger(reason string) {
	if s.Rebuild != nil {
		s.Rebuild.Trigger(reason)
	}
}

func (s *Service) publish(eventType, orderID string, payload any) {
	if s.Events != nil {
		s.Events.Publish(eventType, orderID, payload)
	}
}
