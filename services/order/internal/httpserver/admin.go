package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/services/order/internal/service"
	"github.com/Skotchmaster/storefront/services/order/internal/transport"
	"github.com/Skotchmaster/storefront/services/order/internal/util"
)

func (h *OrderHTTP) AllOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_all")

	page, err := h.Svc.ListAll(ctx, service.ListParams{
		Page:   util.ParsePage(c.QueryParam("page"), 1),
		Size:   util.ParsePage(c.QueryParam("size"), util.DefaultPageSize),
		Status: c.QueryParam("status"),
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("admin_all_error", "status", 400, "reason", err.Error())
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("admin_all_error", "status", 500, "reason", "cannot list orders", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, transport.OrderListResponse{
		Data: page.Items,
		Meta: transport.NewPageMeta(page.Page, page.Size, page.Total),
	})
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_update_status")

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid order id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_status_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("update_status_error", "status", 404, "reason", "not found", "order_id", orderID)
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case service.IsBusiness(err):
			l.Warn("update_status_error", "status", 400, "reason", err.Error(), "order_id", orderID)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("update_status_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("update_status_success", "order_id", order.ID, "to", order.Status)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) OrderItems(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.admin_items")

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("order_items_error", "status", 400, "reason", "invalid order id", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	items, err := h.Svc.OrderItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("order_items_error", "status", 404, "reason", "not found", "order_id", orderID)
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		l.Error("order_items_error", "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, items)
}
