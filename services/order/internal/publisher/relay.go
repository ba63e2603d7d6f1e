package publisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Skotchmaster/storefront/pkg/mykafka"
	"github.com/Skotchmaster/storefront/services/order/internal/store"
)

type Publisher interface {
	Publish(ctx context.Context, key, eventType string, payload []byte) error
}

// Relay copies committed outbox rows to the broker. Delivery is at least
// once: a row stays pending until the publish call succeeds.
type Relay struct {
	Outbox    store.Outbox
	Publisher Publisher
	Interval  time.Duration
	Batch     int
	Logger    *slog.Logger
	Now       func() time.Time
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger().Error("outbox_relay_error", "error", err)
			}
		}
	}
}

// ProcessOnce publishes one batch and returns how many rows were marked.
// It stops at the first failed publish so events for an order keep their order.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	events, err := r.Outbox.PendingEvents(ctx, r.batch())
	if err != nil {
		return 0, err
	}

	l := r.logger()
	sent := 0
	for _, ev := range events {
		if err := r.Publisher.Publish(ctx, ev.AggregateID.String(), ev.EventType, ev.Payload); err != nil {
			if errors.Is(err, mykafka.ErrUnavailable) {
				l.Warn("outbox_publish_skipped", "reason", "breaker open", "pending", len(events)-sent)
			} else {
				l.Warn("outbox_publish_failed", "event_id", ev.ID, "event_type", ev.EventType, "error", err)
			}
			return sent, nil
		}
		if err := r.Outbox.MarkPublished(ctx, ev.ID, r.now()); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		l.Debug("outbox_published", "count", sent)
	}
	return sent, nil
}

func (r *Relay) batch() int {
	if r.Batch > 0 {
		return r.Batch
	}
	return 100
}

func (r *Relay) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

func (r *Relay) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
