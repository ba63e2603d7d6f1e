package transport

import "github.com/Skotchmaster/storefront/services/order/internal/models"

type CreateOrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	Note            string `json:"note"`
	PaymentMethod   string `json:"payment_method"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type OrderListResponse struct {
	Data []models.Order `json:"data"`
	Meta PageMeta       `json:"meta"`
}

func NewPageMeta(page, size int, total int64) PageMeta {
	var pages int64
	if size > 0 {
		pages = (total + int64(size) - 1) / int64(size)
	}
	return PageMeta{
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: pages,
		HasPrev:    page > 1,
		HasNext:    int64(page) < pages,
	}
}
