package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/idempotency"
	"github.com/Skotchmaster/storefront/pkg/logging"
	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/services/order/internal/service"
	"github.com/Skotchmaster/storefront/services/order/internal/transport"
)

type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key string) (string, error)
	Complete(ctx context.Context, scope, key, result string) error
	Release(ctx context.Context, scope, key string) error
}

type OrderHTTP struct {
	Svc *service.OrderService
	// Idem is optional; without it the Idempotency-Key header is ignored.
	Idem IdempotencyStore
}

func (h *OrderHTTP) GetID(c echo.Context) (uuid.UUID, error) {
	s, ok := c.Get(middleware.ContextUserID).(string)
	if !ok || s == "" {
		return uuid.Nil, errors.New("unauthorized")
	}

	userID, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.New("unauthorized")
	}
	return userID, nil
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("create_order_error", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	key := ""
	if h.Idem != nil {
		key = idempotency.Key(c.Request())
	}
	scope := userID.String()

	if key != "" {
		prev, err := h.Idem.Begin(ctx, scope, key)
		switch {
		case errors.Is(err, idempotency.ErrInvalidKey):
			l.Warn("create_order_error", "status", 400, "reason", "invalid idempotency key", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
		case errors.Is(err, idempotency.ErrInProgress):
			l.Warn("create_order_error", "status", 409, "reason", "duplicate in flight", "error", err)
			return echo.NewHTTPError(http.StatusConflict, "request with this idempotency key is in progress")
		case err != nil:
			l.Error("create_order_error", "status", 503, "reason", "idempotency store unavailable", "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "try again later")
		case prev != "":
			return h.replay(c, userID, prev)
		}
	}

	order, err := h.Svc.PlaceOrder(ctx, userID, service.PlaceOrderInput{
		ShippingAddress: req.ShippingAddress,
		Note:            req.Note,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		if key != "" {
			if rerr := h.Idem.Release(ctx, scope, key); rerr != nil {
				l.Warn("idempotency_release_failed", "error", rerr)
			}
		}
		if service.IsBusiness(err) {
			l.Warn("create_order_error", "status", 400, "reason", err.Error(), "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("create_order_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if key != "" {
		if err := h.Idem.Complete(ctx, scope, key, order.ID.String()); err != nil {
			l.Warn("idempotency_complete_failed", "order_id", order.ID, "error", err)
		}
	}

	l.Info("create_order_success", "order_id", order.ID, "total", order.TotalAmount.String())
	return c.JSON(http.StatusCreated, order)
}

func (h *OrderHTTP) replay(c echo.Context, userID uuid.UUID, stored string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	orderID, err := uuid.Parse(stored)
	if err != nil {
		l.Error("create_order_error", "status", 500, "reason", "corrupt idempotency record", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	order, err := h.Svc.GetMyOrder(ctx, userID, orderID)
	if err != nil {
		l.Error("create_order_error", "status", 500, "reason", "replayed order missing", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("create_order_replayed", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.my_orders")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("my_orders_error", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.Svc.ListMyOrders(ctx, userID)
	if err != nil {
		l.Error("my_orders_error", "status", 500, "reason", "cannot list orders", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) OrderDetail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.order_detail")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("order_detail_error", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("order_detail_error", "status", 400, "reason", "invalid order id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.Svc.GetMyOrder(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, service.ErrNotFoundOrForbidden) {
			l.Warn("order_detail_error", "status", 404, "reason", "not found", "order_id", orderID)
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		l.Error("order_detail_error", "status", 500, "reason", "cannot load order", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	userID, err := h.GetID(c)
	if err != nil {
		l.Warn("cancel_order_error", "status", 401, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("cancel_order_error", "status", 400, "reason", "invalid order id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := h.Svc.CancelOrder(ctx, userID, orderID)
	if err != nil {
		if service.IsBusiness(err) {
			l.Warn("cancel_order_error", "status", 400, "reason", err.Error(), "order_id", orderID)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("cancel_order_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}
