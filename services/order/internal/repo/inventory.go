package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/services/order/internal/models"
	"github.com/Skotchmaster/storefront/services/order/internal/store"
)

func (r *GormRepo) AvailableQuantity(ctx context.Context, productID uuid.UUID) (int, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Select("id", "quantity").Take(&p, "id = ?", productID).Error; err != nil {
		return 0, notFound(err)
	}
	return p.Quantity, nil
}

// DecrementStock checks and subtracts in one statement, so concurrent
// checkouts can never take the quantity below zero.
func (r *GormRepo) DecrementStock(ctx context.Context, productID uuid.UUID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("decrement stock: amount must be > 0, got %d", amount)
	}

	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", productID, amount).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	if _, err := r.AvailableQuantity(ctx, productID); err != nil {
		return err
	}
	return store.ErrInsufficientStock
}

func (r *GormRepo) IncrementStock(ctx context.Context, productID uuid.UUID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("increment stock: amount must be > 0, got %d", amount)
	}

	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
