package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrders_Counters(t *testing.T) {
	t.Parallel()

	o := NewOrders(prometheus.NewRegistry(), "order")
	o.OrderPlaced()
	o.OrderPlaced()
	o.OrderCancelled()
	o.CheckoutFailed("empty_cart")
	o.StatusChanged("shipped")

	assert.Equal(t, 2.0, testutil.ToFloat64(o.Placed))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.Cancelled))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.CheckoutFailures.WithLabelValues("empty_cart")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.StatusChanges.WithLabelValues("shipped")))
}

func TestOrders_NilIsNoop(t *testing.T) {
	t.Parallel()

	var o *Orders
	assert.NotPanics(t, func() {
		o.OrderPlaced()
		o.OrderCancelled()
		o.CheckoutFailed("x")
		o.StatusChanged("y")
	})
}

func TestServerMetrics_MiddlewareAndHandler(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	sm := NewServerMetrics(reg, "order")

	e := echo.New()
	e.Use(sm.Middleware)
	e.GET("/orders/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/metrics", echo.WrapHandler(Handler(reg)))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(sm.Requests.WithLabelValues("/orders/:id", "204")))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_order_http_requests_total")
}
