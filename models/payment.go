package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VerificationRequest holds the fields the gateway hands back to the client
// after checkout. UserID and PlanID are carried for audit only.
type VerificationRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
	UserID    string `json:"userId"`
	PlanID    string `json:"planId"`
}

// VerificationResult is only produced for an authentic payment.
type VerificationResult struct {
	Authentic      bool
	SubscriptionID string
	PaymentDetails *PaymentDetails // nil when enrichment failed
}

// PaymentDetails is the best-effort enrichment fetched after verification.
type PaymentDetails struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"` // major units
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
	Method       string          `json:"method"`
	PayerEmail   string          `json:"email"`
	PayerContact string          `json:"contact"`
}

// GatewayPayment is the gateway's payment entity.
type GatewayPayment struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	OrderID   string `json:"order_id"`
	Method    string `json:"method"`
	Captured  bool   `json:"captured"`
	Email     string `json:"email"`
	Contact   string `json:"contact"`
	CreatedAt int64  `json:"created_at"`
}

// PaymentEvent is published for the downstream billing service once a
// payment has been verified.
type PaymentEvent struct {
	Type           string    `json:"type"` // "payment_verified"
	OrderID        string    `json:"order_id"`
	PaymentID      string    `json:"payment_id"`
	UserID         string    `json:"user_id"`
	PlanID         string    `json:"plan_id"`
	SubscriptionID string    `json:"subscription_id"`
	Amount         int64     `json:"amount,omitempty"` // smallest currency unit
	Currency       string    `json:"currency,omitempty"`
	Status         string    `json:"status,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
