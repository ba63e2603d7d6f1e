package service

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/services/order/internal/domain"
	"github.com/Skotchmaster/storefront/services/order/internal/models"
)

// newPendingPayment is the payment stub: no provider is called, the record
// only captures what the customer owes and how they chose to pay.
func newPendingPayment(orderID uuid.UUID, amount decimal.Decimal, method domain.PaymentMethod) *models.Payment {
	return &models.Payment{
		OrderID: orderID,
		Amount:  amount,
		Method:  method,
		Status:  domain.PaymentPending,
	}
}
