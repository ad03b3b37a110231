package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"payment-service/apperrors"
	"payment-service/models"
	aws_pkg "payment-service/pkg/aws"
	"payment-service/providers"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const missingVerificationFieldsMsg = "Missing payment verification parameters"

// Business metric names recorded by the verification flow.
const (
	MetricPaymentVerified = "PaymentSucceeded"
	MetricPaymentRejected = "PaymentFailed"
)

// MetricsRecorder counts business events. *aws_pkg.MetricsClient satisfies it.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// VerificationService defines the post-checkout verification use case.
type VerificationService interface {
	VerifyPayment(ctx context.Context, req *models.VerificationRequest) (*models.VerificationResult, error)
}

// VerificationServiceConfig tunes the verification service.
type VerificationServiceConfig struct {
	// Secret is the gateway key secret shared with the gateway. Never logged.
	Secret string
	// SNSTopicArn receives payment_verified events; empty disables publishing.
	SNSTopicArn string
}

type verificationServiceImpl struct {
	gateway   providers.PaymentGateway
	orders    OrderForgetter
	snsClient aws_pkg.SNSPublisher
	metrics   MetricsRecorder
	cfg       VerificationServiceConfig
	validator *requestValidator
	newID     func() string
	logger    *zap.Logger
}

// NewVerificationService creates a new VerificationService. orders,
// snsClient and metrics may be nil.
func NewVerificationService(
	gateway providers.PaymentGateway,
	orders OrderForgetter,
	snsClient aws_pkg.SNSPublisher,
	metrics MetricsRecorder,
	cfg VerificationServiceConfig,
	logger *zap.Logger,
) VerificationService {
	return &verificationServiceImpl{
		gateway:   gateway,
		orders:    orders,
		snsClient: snsClient,
		metrics:   metrics,
		cfg:       cfg,
		validator: newRequestValidator(),
		newID:     newSubscriptionID,
		logger:    logger,
	}
}

// VerifyPayment proves a gateway callback authentic and enriches it with
// payment details when the gateway answers.
func (s *verificationServiceImpl) VerifyPayment(ctx context.Context, req *models.VerificationRequest) (*models.VerificationResult, error) {
	if req == nil {
		return nil, apperrors.Validation(missingVerificationFieldsMsg)
	}
	// Whitespace-only values count as missing, but the HMAC is computed
	// over the values exactly as received.
	trimmed := *req
	trimmed.OrderID = strings.TrimSpace(req.OrderID)
	trimmed.PaymentID = strings.TrimSpace(req.PaymentID)
	trimmed.Signature = strings.TrimSpace(req.Signature)
	if missing, _ := s.validator.check(&trimmed); len(missing) > 0 {
		return nil, apperrors.Validation(missingVerificationFieldsMsg)
	}

	// An empty key would let anyone forge a valid HMAC.
	if s.cfg.Secret == "" {
		s.logger.Error("Payment verification attempted without a gateway secret configured")
		return nil, apperrors.Internal(errors.New("payment gateway secret is not configured"))
	}

	if !VerifySignature(s.cfg.Secret, req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("Payment signature mismatch",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
			zap.String("user_id", req.UserID),
			zap.String("plan_id", req.PlanID),
		)
		s.recordCount(ctx, MetricPaymentRejected)
		return nil, apperrors.SignatureMismatch()
	}

	result := &models.VerificationResult{
		Authentic:      true,
		SubscriptionID: s.newID(),
	}

	payment, err := s.gateway.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		s.logger.Warn("Payment verified but fetching payment details failed",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
			zap.Error(err),
		)
	} else {
		result.PaymentDetails = toPaymentDetails(payment)
	}

	fields := []zap.Field{
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", req.PaymentID),
		zap.String("user_id", req.UserID),
		zap.String("plan_id", req.PlanID),
		zap.String("subscription_id", result.SubscriptionID),
	}
	if d := result.PaymentDetails; d != nil {
		fields = append(fields,
			zap.String("amount", d.Amount.String()),
			zap.String("status", d.Status),
		)
	}
	s.logger.Info("Payment verified successfully", fields...)

	s.recordCount(ctx, MetricPaymentVerified)
	s.forgetOrder(ctx, req.OrderID)
	s.publishVerified(ctx, req, result, payment, err == nil)
	return result, nil
}

func toPaymentDetails(p models.GatewayPayment) *models.PaymentDetails {
	return &models.PaymentDetails{
		ID:           p.ID,
		Amount:       decimal.New(p.Amount, -minorUnitScale),
		Currency:     p.Currency,
		Status:       p.Status,
		Method:       p.Method,
		PayerEmail:   p.Email,
		PayerContact: p.Contact,
	}
}

// forgetOrder stops a paid order from being replayed to a new checkout.
func (s *verificationServiceImpl) forgetOrder(ctx context.Context, orderID string) {
	if s.orders == nil {
		return
	}
	if err := s.orders.Forget(ctx, orderID); err != nil {
		s.logger.Warn("Failed to drop paid order from cache",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (s *verificationServiceImpl) recordCount(ctx context.Context, metric string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordCount(ctx, metric, map[string]string{"Service": "payment-service"}); err != nil {
		s.logger.Warn("Failed to record metric", zap.String("metric", metric), zap.Error(err))
	}
}

// publishVerified hands the verified payment to the billing service
// (non-fatal on error).
func (s *verificationServiceImpl) publishVerified(ctx context.Context, req *models.VerificationRequest, result *models.VerificationResult, payment models.GatewayPayment, enriched bool) {
	if s.snsClient == nil || s.cfg.SNSTopicArn == "" {
		return
	}
	event := models.PaymentEvent{
		Type:           "payment_verified",
		OrderID:        req.OrderID,
		PaymentID:      req.PaymentID,
		UserID:         req.UserID,
		PlanID:         req.PlanID,
		SubscriptionID: result.SubscriptionID,
		Timestamp:      time.Now().UTC(),
	}
	if enriched {
		event.Amount = payment.Amount
		event.Currency = payment.Currency
		event.Status = payment.Status
	}

	b, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal payment event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.cfg.SNSTopicArn, b); err != nil {
		s.logger.Error("Failed to publish payment event to SNS",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("Payment event published to SNS",
		zap.String("event_type", event.Type),
		zap.String("order_id", event.OrderID),
	)
}

// newSubscriptionID returns a time-ordered placeholder id for the billing
// service to adopt. It is never stored here.
func newSubscriptionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "sub_" + strings.ReplaceAll(id.String(), "-", "")
}
