package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Giang1311/BookStore-sub000/internal/orders"
	"github.com/Giang1311/BookStore-sub000/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// LedgerReader exposes the stock counters for the admin dashboard.
type LedgerReader interface {
	GetLedger(ctx context.Context, bookID string) (orders.Ledger, error)
}

type OrdersHandler struct {
	Svc    *orders.Service
	Ledger LedgerReader
	Redis  *redis.Client
	Auth   Authorizer
}

type CreateOrderReq struct {
	UserID          string          `json:"userId"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	ShippingAddress string          `json:"shippingAddress"`
	PhoneNumber     string          `json:"phoneNumber"`
	Products        []orders.Line   `json:"products"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
}

type SetStatusReq struct {
	Completed bool `json:"completed"`
}

type ConfirmReceiptReq struct {
	Email string `json:"email"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/email/{email}", h.listByEmail)
	r.Patch("/orders/{id}/confirm-receipt", h.confirmReceipt)

	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin(h.Auth))
		r.Get("/orders", h.listAll)
		r.Patch("/orders/{id}/status", h.setStatus)
		r.Delete("/orders/{id}", h.deleteOrder)
		r.Get("/books/{id}/ledger", h.getLedger)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var ve *orders.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": ve.Error()})
	case errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Order not found"})
	case errors.Is(err, orders.ErrBookNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
	case errors.Is(err, orders.ErrNotOrderOwner):
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "You are not allowed to confirm this order"})
	case errors.Is(err, orders.ErrAlreadyConfirmed):
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Order already confirmed"})
	case errors.Is(err, orders.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Order was modified concurrently, retry"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": err.Error()})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.Create(ctx, orders.CreateInput{
		UserID:          req.UserID,
		Name:            req.Name,
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
		PhoneNumber:     req.PhoneNumber,
		Lines:           req.Products,
		TotalPrice:      req.TotalPrice,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidateEmail(ctx, o.Email)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	os, err := h.Svc.ListAll(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if os == nil {
		os = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) listByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "missing email"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrdersByEmail, email)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	os, err := h.Svc.ListByEmail(ctx, email)
	if err != nil {
		writeError(w, err)
		return
	}
	if os == nil {
		os = []orders.Order{}
	}
	b, _ := json.Marshal(os)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLOrderCache).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SetStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Svc.SetCompleted(ctx, id, req.Completed)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidateEmail(ctx, o.Email)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) confirmReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ConfirmReceiptReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Svc.ConfirmReceipt(ctx, id, req.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidateEmail(ctx, o.Email)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// fetch first so the email cache can be invalidated after the delete
	o, err := h.Svc.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	h.invalidateEmail(ctx, o.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Order deleted successfully"})
}

func (h *OrdersHandler) getLedger(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	l, err := h.Ledger.GetLedger(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bookId":       l.BookID,
		"stock":        l.Stock,
		"soldQuantity": l.SoldQuantity,
	})
}

func (h *OrdersHandler) invalidateEmail(ctx context.Context, email string) {
	if h.Redis == nil || email == "" {
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrdersByEmail, email)).Err()
}
