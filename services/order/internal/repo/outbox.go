package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/services/order/internal/models"
)

func (r *GormRepo) EnqueueEvent(ctx context.Context, e *models.OutboxEvent) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

// PendingEvents returns unpublished events oldest first.
func (r *GormRepo) PendingEvents(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var events []models.OutboxEvent
	err := r.DB.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormRepo) MarkPublished(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ? AND published_at IS NULL", eventID).
		Update("published_at", at).Error
}
