package orders

import (
	"time"

	kafkax "github.com/Giang1311/BookStore-sub000/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Feed publishes fulfillment events to kafka, fire and forget. Creation
// events go to the created topic, every completion-axis event to the
// completed topic.
type Feed struct {
	Created   *kafkax.Producer
	Completed *kafkax.Producer
	Service   string
}

func (f *Feed) Publish(eventType, orderID string, payload any) {
	var p *kafkax.Producer
	switch eventType {
	case EventOrderCreated:
		p = f.Created
	case EventOrderCompleted, EventOrderReopened, EventReceiptConfirmed:
		p = f.Completed
	}
	if p == nil {
		return
	}

	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      f.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
