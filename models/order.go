package models

import "github.com/shopspring/decimal"

// OrderRequest is the checkout intent posted by the client. Amount is in
// major currency units (rupees, not paise).
type OrderRequest struct {
	PlanID   string          `json:"planId" validate:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency" validate:"required,len=3,alpha"`
	UserID   string          `json:"userId" validate:"required"`
}

// OrderResult carries what the checkout UI needs to open the gateway
// payment sheet. Amount is in minor units.
type OrderResult struct {
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PublicKey string `json:"key_id"`
}

// GatewayOrderSpec is the order-creation payload sent to the gateway.
type GatewayOrderSpec struct {
	Amount   int64             `json:"amount"` // minor units
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway's view of a created order.
type GatewayOrder struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}
