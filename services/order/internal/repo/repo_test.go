package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/services/order/internal/domain"
	"github.com/Skotchmaster/storefront/services/order/internal/models"
	"github.com/Skotchmaster/storefront/services/order/internal/store"
	"github.com/Skotchmaster/storefront/services/order/internal/testutil"
)

func TestDecrementStock(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	p := testutil.SeedProduct(t, db, "P", "10", 3)

	require.NoError(t, r.DecrementStock(ctx, p.ID, 2))
	assert.Equal(t, 1, testutil.StockOf(t, db, p.ID))

	err := r.DecrementStock(ctx, p.ID, 2)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, 1, testutil.StockOf(t, db, p.ID))

	err = r.DecrementStock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, r.DecrementStock(ctx, p.ID, 0))
}

func TestIncrementStockAndAvailableQuantity(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	p := testutil.SeedProduct(t, db, "P", "10", 0)

	require.NoError(t, r.IncrementStock(ctx, p.ID, 4))
	q, err := r.AvailableQuantity(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, q)

	assert.ErrorIs(t, r.IncrementStock(ctx, uuid.New(), 1), store.ErrNotFound)
	_, err = r.AvailableQuantity(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDecrementStock_ConcurrentNeverOversells(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	p := testutil.SeedProduct(t, db, "P", "10", 5)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.DecrementStock(ctx, p.ID, 1); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 0, testutil.StockOf(t, db, p.ID))
}

func TestCartByUser_LoadsLinesWithProducts(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	user := uuid.New()
	p1 := testutil.SeedProduct(t, db, "A", "5", 10)
	p2 := testutil.SeedProduct(t, db, "B", "7.5", 10)
	cart := testutil.SeedCart(t, db, user,
		testutil.Line{Product: p1, Quantity: 1},
		testutil.Line{Product: p2, Quantity: 2, PriceAtTime: "7"},
	)

	got, err := r.CartByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	for _, l := range got.Lines {
		assert.Equal(t, l.ProductID, l.Product.ID)
		assert.NotEmpty(t, l.Product.Name)
	}

	require.NoError(t, r.ClearCart(ctx, cart.ID))
	got, err = r.CartByUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, got.Lines)

	_, err = r.CartByUser(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func seedOrder(t *testing.T, r *GormRepo, user uuid.UUID, status domain.OrderStatus, at time.Time) *models.Order {
	t.Helper()
	o := &models.Order{
		UserID:          user,
		TotalAmount:     testutil.Price("10"),
		ShippingAddress: "addr",
		Status:          status,
		CreatedAt:       at,
	}
	require.NoError(t, r.CreateOrder(context.Background(), o))
	return o
}

func TestUpdateStatus_Conditional(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	o := seedOrder(t, r, uuid.New(), domain.StatusPending, time.Now())

	require.NoError(t, r.UpdateStatus(ctx, o.ID, domain.StatusPending, domain.StatusCancelled))
	err := r.UpdateStatus(ctx, o.ID, domain.StatusPending, domain.StatusCancelled)
	assert.ErrorIs(t, err, store.ErrStaleStatus)

	err = r.UpdateStatus(ctx, uuid.New(), domain.StatusPending, domain.StatusCancelled)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := r.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestOrdersByUser_NewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := seedOrder(t, r, user, domain.StatusPending, base)
	newer := seedOrder(t, r, user, domain.StatusPending, base.Add(time.Hour))
	seedOrder(t, r, uuid.New(), domain.StatusPending, base.Add(2*time.Hour))

	orders, err := r.OrdersByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)
}

func TestListOrders_FilterAndPaging(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedOrder(t, r, uuid.New(), domain.StatusPending, base.Add(time.Duration(i)*time.Minute))
	}
	shipped := seedOrder(t, r, uuid.New(), domain.StatusShipped, base.Add(time.Hour))

	all, total, err := r.ListOrders(ctx, store.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 6, total)
	require.Len(t, all, 2)
	assert.Equal(t, shipped.ID, all[0].ID)

	page, total, err := r.ListOrders(ctx, store.OrderFilter{Status: domain.StatusPending, Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	assert.Len(t, page, 1)
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	p := testutil.SeedProduct(t, db, "P", "10", 5)
	boom := errors.New("boom")

	err := r.Atomic(ctx, func(tx store.Repository) error {
		require.NoError(t, tx.DecrementStock(ctx, p.ID, 3))
		require.NoError(t, tx.CreateOrder(ctx, &models.Order{
			UserID: uuid.New(), TotalAmount: testutil.Price("30"), ShippingAddress: "a", Status: domain.StatusPending,
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, testutil.StockOf(t, db, p.ID))
	assert.Zero(t, testutil.CountRows(t, db, &models.Order{}))
}

func TestOutbox_PendingAndMarkPublished(t *testing.T) {
	db := testutil.NewDB(t)
	r := New(db)
	ctx := context.Background()
	agg := uuid.New()

	e1 := &models.OutboxEvent{AggregateID: agg, EventType: "order.created", Payload: []byte(`{"a":1}`), CreatedAt: time.Now().Add(-time.Minute)}
	e2 := &models.OutboxEvent{AggregateID: agg, EventType: "order.cancelled", Payload: []byte(`{"a":2}`), CreatedAt: time.Now()}
	require.NoError(t, r.EnqueueEvent(ctx, e1))
	require.NoError(t, r.EnqueueEvent(ctx, e2))

	pending, err := r.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, e1.ID, pending[0].ID)
	assert.JSONEq(t, `{"a":1}`, string(pending[0].Payload))

	require.NoError(t, r.MarkPublished(ctx, e1.ID, time.Now()))
	pending, err = r.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, e2.ID, pending[0].ID)
}
