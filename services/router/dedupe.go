package router

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const dedupPrefix = "evt:seen:"

// DedupWindow is how long a gateway message id is remembered. Webhook
// redeliveries inside the window are dropped.
const DedupWindow = 30 * time.Second

// EventDeduper drops redelivered webhook events by message id.
type EventDeduper struct {
	client *redis.Client
}

func NewEventDeduper(client *redis.Client) *EventDeduper {
	return &EventDeduper{client: client}
}

// Seen marks the event id and reports whether it was already known. Redis
// being down fails open: processing a duplicate is safer than dropping a
// real message, and the flow operations tolerate retries.
func (d *EventDeduper) Seen(ctx context.Context, eventID string) bool {
	if d == nil || d.client == nil || eventID == "" {
		return false
	}
	ok, err := d.client.SetNX(ctx, dedupPrefix+eventID, 1, DedupWindow).Result()
	if err != nil {
		return false
	}
	return !ok
}
