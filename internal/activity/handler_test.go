package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	kafkax "github.com/Giang1311/BookStore-sub000/internal/kafka"
	"github.com/Giang1311/BookStore-sub000/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerRecorder struct {
	mu      sync.Mutex
	reasons []string
}

func (r *triggerRecorder) Trigger(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func activityMessage(t *testing.T, reason string) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      uuid.NewString(),
		EventType:    orders.EventCatalogActivity,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "review-service",
		Payload:      kafkax.MustMarshal(orders.CatalogActivityPayload{Reason: reason}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleTriggersRebuild(t *testing.T) {
	rec := &triggerRecorder{}
	h := &Handler{Rebuild: rec}

	require.NoError(t, h.Handle(context.Background(), activityMessage(t, "review-created")))
	require.NoError(t, h.Handle(context.Background(), activityMessage(t, "new-user-created")))
	assert.Equal(t, []string{"review-created", "new-user-created"}, rec.reasons)
}

func TestHandleIgnoresOtherEventTypes(t *testing.T) {
	rec := &triggerRecorder{}
	h := &Handler{Rebuild: rec}

	env := orders.Envelope{
		EventID:   uuid.NewString(),
		EventType: orders.EventOrderCreated,
		Payload:   kafkax.MustMarshal(orders.OrderCreatedPayload{OrderID: "o1"}),
	}
	require.NoError(t, h.Handle(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)}))
	assert.Empty(t, rec.reasons)
}

func TestHandleSkipsEmptyReason(t *testing.T) {
	rec := &triggerRecorder{}
	h := &Handler{Rebuild: rec}

	require.NoError(t, h.Handle(context.Background(), activityMessage(t, "")))
	assert.Empty(t, rec.reasons)
}

func TestHandleRejectsGarbage(t *testing.T) {
	rec := &triggerRecorder{}
	h := &Handler{Rebuild: rec}

	err := h.Handle(context.Background(), kafkago.Message{Value: []byte("not json")})
	assert.Error(t, err, "bad messages must not be committed")
	assert.Empty(t, rec.reasons)
}
