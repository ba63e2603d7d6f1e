package domain

import (
	"errors"
	"fmt"
	"strings"
)

type PaymentMethod string

const (
	PaymentCOD     PaymentMethod = "COD"
	PaymentBanking PaymentMethod = "BANKING"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

// ParsePaymentMethod maps an empty value to cash on delivery.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case "", PaymentCOD:
		return PaymentCOD, nil
	case PaymentBanking:
		return PaymentBanking, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
	}
}
