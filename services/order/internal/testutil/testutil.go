// Package testutil builds in-memory databases and fixtures for order service tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/services/order/internal/models"
)

// NewDB returns a migrated in-memory SQLite database. The pool is pinned to a
// single connection because every :memory: connection is its own database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func Price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func SeedProduct(t *testing.T, db *gorm.DB, name, price string, qty int) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: Price(price), Quantity: qty}
	require.NoError(t, db.Create(&p).Error)
	return p
}

// SeedCart creates the user's cart (if missing) and adds one line per product,
// snapshotting the product price unless priceAtTime is given.
func SeedCart(t *testing.T, db *gorm.DB, userID uuid.UUID, lines ...Line) models.Cart {
	t.Helper()

	cart := models.Cart{UserID: userID}
	require.NoError(t, db.Where("user_id = ?", userID).FirstOrCreate(&cart).Error)

	for _, l := range lines {
		price := l.Product.Price
		if l.PriceAtTime != "" {
			price = Price(l.PriceAtTime)
		}
		line := models.CartLine{
			CartID:      cart.ID,
			ProductID:   l.Product.ID,
			Quantity:    l.Quantity,
			PriceAtTime: price,
		}
		require.NoError(t, db.Omit("Product").Create(&line).Error)
	}
	return cart
}

type Line struct {
	Product     models.Product
	Quantity    int
	PriceAtTime string
}

func StockOf(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", productID).Error)
	return p.Quantity
}

func CountRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
