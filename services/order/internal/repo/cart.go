package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/services/order/internal/models"
)

// CartByUser loads the cart with every line and the line's current product row.
func (r *GormRepo) CartByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Lines.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &cart, nil
}

func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartLine{}).Error
}
