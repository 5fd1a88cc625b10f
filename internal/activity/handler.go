// Package activity feeds the rebuild scheduler from outside the fulfillment
// core: review, wishlist and signup services publish CatalogActivity events
// on their own mutation paths, and this consumer turns each into a trigger.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	kafkax "github.com/Giang1311/BookStore-sub000/internal/kafka"
	"github.com/Giang1311/BookStore-sub000/internal/orders"
	"github.com/Giang1311/BookStore-sub000/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Handler struct {
	Redis   *redis.Client
	Rebuild orders.RebuildTrigger
}

// Handle is wired as the consumer handler for the catalog activity topic.
func (h *Handler) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventCatalogActivity {
		return nil // ignore
	}

	// dedup via redis on event_id; redeliveries must not double-trigger
	if h.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, "activity", env.EventID)
		exists, _ := redisx.Exists(ctx, h.Redis, dkey)
		if exists {
			return nil
		}
		_ = h.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}

	p, err := kafkax.UnwrapPayload[orders.CatalogActivityPayload](env.Payload)
	if err != nil {
		return err
	}
	if p.Reason == "" {
		log.Printf("[activity] event %s has no reason, skipped", env.EventID)
		return nil
	}
	h.Rebuild.Trigger(p.Reason)
	return nil
}
