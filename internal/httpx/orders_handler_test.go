package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Giang1311/BookStore-sub000/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "test-admin-token"

// ---- fakes ----

type fakeOrders struct {
	mu sync.Mutex
	m  map[string]*orders.Order
}

func (s *fakeOrders) Insert(_ context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *o
	s.m[o.ID] = &cp
	return nil
}

func (s *fakeOrders) Get(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrders) ListAll(_ context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.m {
		out = append(out, *o)
	}
	return out, nil
}

func (s *fakeOrders) ListByEmail(_ context.Context, email string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.m {
		if o.Email == email {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeOrders) SetCompleted(_ context.Context, id string, desired, was bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if o.Completed != was {
		return orders.ErrConflict
	}
	o.Completed = desired
	return nil
}

func (s *fakeOrders) Confirm(_ context.Context, id string, completedWas bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.m[id]
	if !ok {
		return orders.ErrOrderNotFound
	}
	if o.BuyerConfirmed || o.Completed != completedWas {
		return orders.ErrConflict
	}
	o.BuyerConfirmed = true
	o.Completed = true
	return nil
}

func (s *fakeOrders) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[id]; !ok {
		return orders.ErrOrderNotFound
	}
	delete(s.m, id)
	return nil
}

type fakeLedger struct {
	mu sync.Mutex
	m  map[string]*orders.Ledger
}

func (l *fakeLedger) Debit(_ context.Context, bookID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[bookID]
	if !ok {
		return orders.ErrBookNotFound
	}
	b.Stock -= qty
	if b.Stock < 0 {
		b.Stock = 0
	}
	b.SoldQuantity += qty
	return nil
}

func (l *fakeLedger) Credit(_ context.Context, bookID string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[bookID]
	if !ok {
		return orders.ErrBookNotFound
	}
	b.Stock += qty
	b.SoldQuantity -= qty
	if b.SoldQuantity < 0 {
		b.SoldQuantity = 0
	}
	return nil
}

func (l *fakeLedger) GetLedger(_ context.Context, bookID string) (orders.Ledger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[bookID]
	if !ok {
		return orders.Ledger{}, orders.ErrBookNotFound
	}
	return *b, nil
}

type noopTrigger struct{}

func (noopTrigger) Trigger(string) {}

// ---- harness ----

func newTestServer(t *testing.T) (*httptest.Server, *fakeOrders, *fakeLedger) {
	t.Helper()
	store := &fakeOrders{m: make(map[string]*orders.Order)}
	ledger := &fakeLedger{m: map[string]*orders.Ledger{
		"b1": {BookID: "b1", Stock: 5, SoldQuantity: 0},
	}}
	svc := orders.NewService(store, ledger, noopTrigger{}, nil)

	router := NewRouter()
	h := &OrdersHandler{Svc: svc, Ledger: ledger, Auth: TokenAuthorizer{Token: adminToken}}
	h.Register(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, store, ledger
}

func doJSON(t *testing.T, method, url string, body any, admin bool) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Token", adminToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeOrder(t *testing.T, resp *http.Response) orders.Order {
	t.Helper()
	defer resp.Body.Close()
	var o orders.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))
	return o
}

func validCreateReq() CreateOrderReq {
	return CreateOrderReq{
		UserID:          uuid.NewString(),
		Name:            "Alex Reader",
		Email:           "buyer@x.com",
		ShippingAddress: "1 Book St",
		PhoneNumber:     "555-0101",
		Products:        []orders.Line{{BookID: "b1", Quantity: 2, UnitPrice: decimal.NewFromInt(15)}},
		TotalPrice:      decimal.NewFromInt(30),
	}
}

// ---- tests ----

func TestCreateOrder(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/orders", validCreateReq(), false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decodeOrder(t, resp)
	assert.NotEmpty(t, o.ID)
	assert.False(t, o.Completed)
	assert.False(t, o.BuyerConfirmed)
	assert.Equal(t, "30", o.TotalPrice.String())
}

func TestCreateOrderRejectsBadInput(t *testing.T) {
	ts, _, _ := newTestServer(t)

	bad := validCreateReq()
	bad.Products[0].Quantity = 0
	resp := doJSON(t, http.MethodPost, ts.URL+"/orders", bad, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	ts, _, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/orders"},
		{http.MethodPatch, "/orders/some-id/status"},
		{http.MethodDelete, "/orders/some-id"},
		{http.MethodGet, "/books/b1/ledger"},
	} {
		resp := doJSON(t, tc.method, ts.URL+tc.path, map[string]any{}, false)
		resp.Body.Close()
		assert.Equalf(t, http.StatusForbidden, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
}

func TestStatusTransitionMovesStock(t *testing.T) {
	ts, _, ledger := newTestServer(t)

	created := decodeOrder(t, doJSON(t, http.MethodPost, ts.URL+"/orders", validCreateReq(), false))

	resp := doJSON(t, http.MethodPatch, ts.URL+"/orders/"+created.ID+"/status", SetStatusReq{Completed: true}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeOrder(t, resp)
	assert.True(t, updated.Completed)

	l, err := ledger.GetLedger(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 3, l.Stock)
	assert.Equal(t, 2, l.SoldQuantity)
}

func TestStatusUnknownOrderIs404(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPatch, ts.URL+"/orders/nope/status", SetStatusReq{Completed: true}, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConfirmReceiptFlow(t *testing.T) {
	ts, _, ledger := newTestServer(t)

	created := decodeOrder(t, doJSON(t, http.MethodPost, ts.URL+"/orders", validCreateReq(), false))
	confirmURL := ts.URL + "/orders/" + created.ID + "/confirm-receipt"

	// wrong email is forbidden and leaves everything untouched
	resp := doJSON(t, http.MethodPatch, confirmURL, ConfirmReceiptReq{Email: "wrong@x.com"}, false)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	l, _ := ledger.GetLedger(context.Background(), "b1")
	require.Equal(t, 5, l.Stock)

	// matching email confirms and fulfills
	resp = doJSON(t, http.MethodPatch, confirmURL, ConfirmReceiptReq{Email: "buyer@x.com"}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeOrder(t, resp)
	assert.True(t, updated.Completed)
	assert.True(t, updated.BuyerConfirmed)
	l, _ = ledger.GetLedger(context.Background(), "b1")
	assert.Equal(t, 3, l.Stock)

	// second confirmation conflicts, stock unchanged
	resp = doJSON(t, http.MethodPatch, confirmURL, ConfirmReceiptReq{Email: "buyer@x.com"}, false)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	l, _ = ledger.GetLedger(context.Background(), "b1")
	assert.Equal(t, 3, l.Stock)
}

func TestDeleteOrder(t *testing.T) {
	ts, store, _ := newTestServer(t)

	created := decodeOrder(t, doJSON(t, http.MethodPost, ts.URL+"/orders", validCreateReq(), false))

	resp := doJSON(t, http.MethodDelete, ts.URL+"/orders/"+created.ID, nil, true)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := store.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/orders/"+created.ID, nil, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListByEmail(t *testing.T) {
	ts, _, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp := doJSON(t, http.MethodPost, ts.URL+"/orders", validCreateReq(), false)
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/orders/email/buyer@x.com")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []orders.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestGetLedger(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/books/b1/ledger", nil, true)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "b1", got["bookId"])
	assert.Equal(t, float64(5), got["stock"])

	resp = doJSON(t, http.MethodGet, ts.URL+"/books/missing/ledger", nil, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
