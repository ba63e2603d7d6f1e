package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
)

type Deps struct {
	OrderHandler *OrderHTTP
	JWTSecret    []byte
	// Refresher may be nil; expired tokens are then rejected.
	Refresher middleware.Refresher
	Ready     func(ctx context.Context) error
	Metrics   http.Handler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	authMW := middleware.NewAutoRefreshMiddleware(d.JWTSecret, d.Refresher)

	orders := e.Group("/orders")

	user := orders.Group("", authMW.RequireAuth)
	user.POST("/create", d.OrderHandler.CreateOrder)
	user.GET("/my-orders", d.OrderHandler.MyOrders)
	user.GET("/detail/:id", d.OrderHandler.OrderDetail)
	user.PUT("/cancel/:id", d.OrderHandler.CancelOrder)

	admin := orders.Group("/admin", authMW.RequireAdmin)
	admin.GET("/all", d.OrderHandler.AllOrders)
	admin.PUT("/status/:id", d.OrderHandler.UpdateStatus)
	admin.GET("/:id/items", d.OrderHandler.OrderItems)
}
