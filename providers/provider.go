package providers

import (
	"context"

	"payment-service/models"
)

// PaymentGateway is the boundary to the external payment processor.
type PaymentGateway interface {
	// CreateOrder registers a trackable order and returns the gateway's view of it.
	CreateOrder(ctx context.Context, spec models.GatewayOrderSpec) (models.GatewayOrder, error)

	// FetchPayment returns full details for a payment id.
	FetchPayment(ctx context.Context, paymentID string) (models.GatewayPayment, error)
}
