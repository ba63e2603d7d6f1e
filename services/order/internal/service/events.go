package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/services/order/internal/domain"
	"github.com/Skotchmaster/storefront/services/order/internal/models"
	"github.com/Skotchmaster/storefront/services/order/internal/store"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

type EventItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// OrderEvent is the JSON payload written to the outbox.
type OrderEvent struct {
	OrderID     uuid.UUID          `json:"order_id"`
	UserID      uuid.UUID          `json:"user_id"`
	Status      domain.OrderStatus `json:"status"`
	From        domain.OrderStatus `json:"from,omitempty"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	Items       []EventItem        `json:"items,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

func enqueue(ctx context.Context, tx store.Outbox, eventType string, ev OrderEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return tx.EnqueueEvent(ctx, &models.OutboxEvent{
		AggregateID: ev.OrderID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   ev.OccurredAt,
	})
}

func eventItems(details []models.OrderDetail) []EventItem {
	items := make([]EventItem, 0, len(details))
	for _, d := range details {
		items = append(items, EventItem{ProductID: d.ProductID, Quantity: d.Quantity})
	}
	return items
}
