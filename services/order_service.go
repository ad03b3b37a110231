package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"payment-service/apperrors"
	"payment-service/models"
	"payment-service/providers"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// minorUnitScale converts major currency units to the gateway's minor units.
// It is fixed for every currency; callers always pass major units.
const minorUnitScale = 2

// maxMinorAmount is the largest minor-unit amount that fits the gateway's
// integer amount field.
var maxMinorAmount = decimal.NewFromInt(math.MaxInt64)

const missingOrderFieldsMsg = "Missing required fields: planId, amount, currency, userId"

// OrderService defines the order-creation use case.
type OrderService interface {
	CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error)
}

// OrderServiceConfig tunes the order service.
type OrderServiceConfig struct {
	// PublicKeyID is the gateway key id echoed to the client.
	PublicKeyID string
	// IdempotencyWindow is how long a created order is replayed for an
	// identical intent. Zero disables replay even with a cache.
	IdempotencyWindow time.Duration
}

type orderServiceImpl struct {
	gateway   providers.PaymentGateway
	cache     OrderCache
	cfg       OrderServiceConfig
	validator *requestValidator
	now       func() time.Time
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService. cache may be nil.
func NewOrderService(
	gateway providers.PaymentGateway,
	cache OrderCache,
	cfg OrderServiceConfig,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		gateway:   gateway,
		cache:     cache,
		cfg:       cfg,
		validator: newRequestValidator(),
		now:       time.Now,
		logger:    logger,
	}
}

// CreateOrder validates the intent and registers an order with the gateway.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.OrderResult, error) {
	if req == nil {
		return nil, apperrors.Validation(missingOrderFieldsMsg)
	}
	normalizeOrderRequest(req)

	minor, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	key := orderIntentKey(req)
	if cached := s.lookupCached(ctx, key); cached != nil {
		s.logger.Info("Replaying cached order for repeated intent",
			zap.String("order_id", cached.OrderID),
			zap.String("user_id", req.UserID),
			zap.String("plan_id", req.PlanID),
		)
		return cached, nil
	}

	now := s.now()
	spec := models.GatewayOrderSpec{
		Amount:   minor,
		Currency: req.Currency,
		Receipt:  fmt.Sprintf("receipt_%d", now.UnixMilli()),
		Notes: map[string]string{
			"planId":    req.PlanID,
			"userId":    req.UserID,
			"orderDate": now.UTC().Format(time.RFC3339),
		},
	}

	order, err := s.gateway.CreateOrder(ctx, spec)
	if err != nil {
		s.logger.Error("Order creation failed",
			zap.String("user_id", req.UserID),
			zap.String("plan_id", req.PlanID),
			zap.Error(err),
		)
		return nil, gatewayError(err)
	}

	if order.Amount != minor {
		s.logger.Warn("Gateway order amount differs from requested amount",
			zap.String("order_id", order.ID),
			zap.Int64("requested", minor),
			zap.Int64("gateway", order.Amount),
		)
	}
	currency := order.Currency
	if currency == "" {
		currency = req.Currency
	}

	result := &models.OrderResult{
		OrderID:   order.ID,
		Amount:    minor,
		Currency:  currency,
		PublicKey: s.cfg.PublicKeyID,
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("receipt", spec.Receipt),
		zap.Int64("amount", order.Amount),
		zap.String("currency", order.Currency),
		zap.String("user_id", req.UserID),
		zap.String("plan_id", req.PlanID),
	)

	s.storeCached(ctx, key, result)
	return result, nil
}

// validate checks the request and returns the amount in minor units.
func (s *orderServiceImpl) validate(req *models.OrderRequest) (int64, error) {
	missing, invalid := s.validator.check(req)
	if len(missing) > 0 || req.Amount.IsZero() {
		return 0, apperrors.Validation(missingOrderFieldsMsg)
	}
	if len(invalid) > 0 {
		return 0, apperrors.Validation("Invalid currency: must be a 3-letter ISO 4217 code")
	}
	if req.Amount.IsNegative() {
		return 0, apperrors.Validation("Invalid amount: must be greater than zero")
	}

	minor := req.Amount.Shift(minorUnitScale)
	if !minor.IsInteger() {
		return 0, apperrors.Validation("Invalid amount: at most two decimal places are allowed")
	}
	if minor.GreaterThan(maxMinorAmount) {
		return 0, apperrors.Validation("Invalid amount: exceeds the maximum order amount")
	}
	return minor.IntPart(), nil
}

func (s *orderServiceImpl) lookupCached(ctx context.Context, key string) *models.OrderResult {
	if s.cache == nil || s.cfg.IdempotencyWindow <= 0 {
		return nil
	}
	order, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Order cache lookup failed", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	order.PublicKey = s.cfg.PublicKeyID
	return order
}

func (s *orderServiceImpl) storeCached(ctx context.Context, key string, order *models.OrderResult) {
	if s.cache == nil || s.cfg.IdempotencyWindow <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, order, s.cfg.IdempotencyWindow); err != nil {
		s.logger.Warn("Order cache store failed",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
	}
}

func normalizeOrderRequest(req *models.OrderRequest) {
	req.PlanID = strings.TrimSpace(req.PlanID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
}

// gatewayError surfaces the gateway's own description when it sent one.
func gatewayError(err error) *apperrors.Error {
	var gwErr *providers.GatewayError
	if errors.As(err, &gwErr) && gwErr.Description != "" {
		return apperrors.New(apperrors.KindGateway, apperrors.ErrGateway.Code, gwErr.Description, err)
	}
	return apperrors.Gateway(err)
}
