package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"payment-service/apperrors"
	"payment-service/models"
	"payment-service/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret    = "testsecret"
	testOrderID   = "order_ABC123"
	testPaymentID = "pay_XYZ789"
	testTopicArn  = "arn:aws:sns:us-east-1:000000000000:payment-events"
)

type verificationFixture struct {
	gateway *mockGateway
	orders  *memoryOrderCache
	sns     *mockSNS
	metrics *mockMetrics
	svc     services.VerificationService
}

func newVerificationFixture(secret string) *verificationFixture {
	f := &verificationFixture{
		gateway: &mockGateway{payment: models.GatewayPayment{
			ID:       testPaymentID,
			Entity:   "payment",
			Amount:   49900,
			Currency: "INR",
			Status:   "captured",
			OrderID:  testOrderID,
			Method:   "upi",
			Captured: true,
			Email:    "payer@example.com",
			Contact:  "+919999999999",
		}},
		orders:  newMemoryOrderCache(),
		sns:     &mockSNS{},
		metrics: &mockMetrics{},
	}
	f.svc = services.NewVerificationService(f.gateway, f.orders, f.sns, f.metrics, services.VerificationServiceConfig{
		Secret:      secret,
		SNSTopicArn: testTopicArn,
	}, zap.NewNop())
	return f
}

func signedRequest() *models.VerificationRequest {
	return &models.VerificationRequest{
		OrderID:   testOrderID,
		PaymentID: testPaymentID,
		Signature: services.ComputeSignature(testSecret, testOrderID, testPaymentID),
		UserID:    "user_123",
		PlanID:    "premium_monthly",
	}
}

func TestVerifyPayment_Authentic(t *testing.T) {
	f := newVerificationFixture(testSecret)

	result, err := f.svc.VerifyPayment(context.Background(), signedRequest())
	require.NoError(t, err)

	assert.True(t, result.Authentic)
	assert.True(t, strings.HasPrefix(result.SubscriptionID, "sub_"))
	assert.Len(t, result.SubscriptionID, len("sub_")+32)

	require.NotNil(t, result.PaymentDetails)
	d := result.PaymentDetails
	assert.Equal(t, testPaymentID, d.ID)
	assert.Equal(t, "499", d.Amount.String())
	assert.Equal(t, "INR", d.Currency)
	assert.Equal(t, "captured", d.Status)
	assert.Equal(t, "upi", d.Method)
	assert.Equal(t, "payer@example.com", d.PayerEmail)
	assert.Equal(t, "+919999999999", d.PayerContact)

	assert.Equal(t, []string{testPaymentID}, f.gateway.fetchedIDs)
	assert.Equal(t, 1, f.metrics.counts[services.MetricPaymentVerified])
	assert.Zero(t, f.metrics.counts[services.MetricPaymentRejected])
}

func TestVerifyPayment_FractionalEnrichmentAmount(t *testing.T) {
	f := newVerificationFixture(testSecret)
	f.gateway.payment.Amount = 49999

	result, err := f.svc.VerifyPayment(context.Background(), signedRequest())
	require.NoError(t, err)
	require.NotNil(t, result.PaymentDetails)
	assert.Equal(t, "499.99", result.PaymentDetails.Amount.String())
}

func TestVerifyPayment_SubscriptionIDsAreUnique(t *testing.T) {
	f := newVerificationFixture(testSecret)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		result, err := f.svc.VerifyPayment(context.Background(), signedRequest())
		require.NoError(t, err)
		assert.False(t, seen[result.SubscriptionID], "duplicate subscription id %s", result.SubscriptionID)
		seen[result.SubscriptionID] = true
	}
}

func TestVerifyPayment_ForgedSignature(t *testing.T) {
	f := newVerificationFixture(testSecret)
	req := signedRequest()
	req.Signature = "deadbeef"

	result, err := f.svc.VerifyPayment(context.Background(), req)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSignatureMismatch))
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
	assert.Equal(t, "Payment verification failed", apperrors.From(err).Message)
	assert.Equal(t, 0, f.gateway.fetchCalls())
	assert.Empty(t, f.sns.messages)
	assert.Equal(t, 1, f.metrics.counts[services.MetricPaymentRejected])
}

func TestVerifyPayment_SignatureBoundToOrderAndPayment(t *testing.T) {
	cases := map[string]func(*models.VerificationRequest){
		"other order":      func(r *models.VerificationRequest) { r.OrderID = "order_OTHER" },
		"other payment":    func(r *models.VerificationRequest) { r.PaymentID = "pay_OTHER" },
		"uppercased hex":   func(r *models.VerificationRequest) { r.Signature = strings.ToUpper(r.Signature) },
		"truncated":        func(r *models.VerificationRequest) { r.Signature = r.Signature[:len(r.Signature)-2] },
		"signed elsewhere": func(r *models.VerificationRequest) { r.Signature = services.ComputeSignature("othersecret", testOrderID, testPaymentID) },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newVerificationFixture(testSecret)
			req := signedRequest()
			mutate(req)

			_, err := f.svc.VerifyPayment(context.Background(), req)
			assert.True(t, errors.Is(err, apperrors.ErrSignatureMismatch))
			assert.Equal(t, 0, f.gateway.fetchCalls())
		})
	}
}

func TestVerifyPayment_RepeatedMismatchIsStable(t *testing.T) {
	f := newVerificationFixture(testSecret)

	for i := 0; i < 5; i++ {
		req := signedRequest()
		req.Signature = "deadbeef"
		_, err := f.svc.VerifyPayment(context.Background(), req)
		assert.True(t, errors.Is(err, apperrors.ErrSignatureMismatch))
	}
	assert.Equal(t, 0, f.gateway.fetchCalls())
	assert.Equal(t, 5, f.metrics.counts[services.MetricPaymentRejected])
}

func TestVerifyPayment_EnrichmentFailureStillAuthentic(t *testing.T) {
	f := newVerificationFixture(testSecret)
	f.gateway.paymentErr = errGatewayDown

	result, err := f.svc.VerifyPayment(context.Background(), signedRequest())

	require.NoError(t, err)
	assert.True(t, result.Authentic)
	assert.NotEmpty(t, result.SubscriptionID)
	assert.Nil(t, result.PaymentDetails)
	assert.Equal(t, 1, f.gateway.fetchCalls())

	require.Len(t, f.sns.messages, 1)
	var event models.PaymentEvent
	require.NoError(t, json.Unmarshal(f.sns.messages[0], &event))
	assert.Zero(t, event.Amount)
	assert.Empty(t, event.Status)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	cases := map[string]func(*models.VerificationRequest){
		"order id":   func(r *models.VerificationRequest) { r.OrderID = "" },
		"payment id": func(r *models.VerificationRequest) { r.PaymentID = "  " },
		"signature":  func(r *models.VerificationRequest) { r.Signature = "" },
		"all": func(r *models.VerificationRequest) {
			*r = models.VerificationRequest{}
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newVerificationFixture(testSecret)
			req := signedRequest()
			mutate(req)

			_, err := f.svc.VerifyPayment(context.Background(), req)

			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))
			assert.Equal(t, "Missing payment verification parameters", apperrors.From(err).Message)
			assert.Equal(t, 0, f.gateway.fetchCalls())
			assert.Empty(t, f.metrics.counts)
		})
	}
}

func TestVerifyPayment_InformationalFieldsOptional(t *testing.T) {
	f := newVerificationFixture(testSecret)
	req := signedRequest()
	req.UserID = ""
	req.PlanID = ""

	result, err := f.svc.VerifyPayment(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Authentic)
}

func TestVerifyPayment_NoSecretConfigured(t *testing.T) {
	f := newVerificationFixture("")
	req := signedRequest()
	req.Signature = services.ComputeSignature("", testOrderID, testPaymentID)

	_, err := f.svc.VerifyPayment(context.Background(), req)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInternal))
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusCode(err))
	assert.Equal(t, 0, f.gateway.fetchCalls())
}

func TestVerifyPayment_PublishesVerifiedEvent(t *testing.T) {
	f := newVerificationFixture(testSecret)

	result, err := f.svc.VerifyPayment(context.Background(), signedRequest())
	require.NoError(t, err)

	require.Len(t, f.sns.messages, 1)
	assert.Equal(t, testTopicArn, f.sns.topics[0])

	var event models.PaymentEvent
	require.NoError(t, json.Unmarshal(f.sns.messages[0], &event))
	assert.Equal(t, "payment_verified", event.Type)
	assert.Equal(t, testOrderID, event.OrderID)
	assert.Equal(t, testPaymentID, event.PaymentID)
	assert.Equal(t, "user_123", event.UserID)
	assert.Equal(t, "premium_monthly", event.PlanID)
	assert.Equal(t, result.SubscriptionID, event.SubscriptionID)
	assert.Equal(t, int64(49900), event.Amount)
	assert.Equal(t, "INR", event.Currency)
	assert.Equal(t, "captured", event.Status)
	assert.False(t, event.Timestamp.IsZero())
}

func TestVerifyPayment_PublishFailureIsNonFatal(t *testing.T) {
	f := newVerificationFixture(testSecret)
	f.sns.publishErr = errors.New("sns: throttled")

	result, err := f.svc.VerifyPayment(context.Background(), signedRequest())

	require.NoError(t, err)
	assert.True(t, result.Authentic)
	assert.Len(t, f.sns.messages, 1)
}

func TestVerifyPayment_WithoutOptionalCollaborators(t *testing.T) {
	gw := &mockGateway{payment: models.GatewayPayment{ID: testPaymentID, Amount: 100, Currency: "INR"}}
	svc := services.NewVerificationService(gw, nil, nil, nil, services.VerificationServiceConfig{
		Secret: testSecret,
	}, zap.NewNop())

	result, err := svc.VerifyPayment(context.Background(), signedRequest())

	require.NoError(t, err)
	require.NotNil(t, result.PaymentDetails)
	assert.Equal(t, "1", result.PaymentDetails.Amount.String())
}

func TestVerifyPayment_SignsValuesAsReceived(t *testing.T) {
	f := newVerificationFixture(testSecret)
	req := signedRequest()
	req.OrderID = " " + testOrderID
	req.Signature = services.ComputeSignature(testSecret, req.OrderID, testPaymentID)

	result, err := f.svc.VerifyPayment(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Authentic)

	// A signature over the trimmed id does not cover the padded one.
	req = signedRequest()
	req.OrderID = testOrderID + " "
	_, err = f.svc.VerifyPayment(context.Background(), req)
	assert.True(t, errors.Is(err, apperrors.ErrSignatureMismatch))
}

func TestVerifyPayment_PaidOrderIsNoLongerReplayed(t *testing.T) {
	f := newVerificationFixture(testSecret)
	orders := services.NewOrderService(f.gateway, f.orders, services.OrderServiceConfig{
		PublicKeyID:       "rzp_test_key",
		IdempotencyWindow: 10 * time.Minute,
	}, zap.NewNop())
	intent := func() *models.OrderRequest {
		return &models.OrderRequest{
			PlanID:   "premium_monthly",
			Amount:   decimal.NewFromInt(499),
			Currency: "INR",
			UserID:   "user_123",
		}
	}

	first, err := orders.CreateOrder(context.Background(), intent())
	require.NoError(t, err)
	replayed, err := orders.CreateOrder(context.Background(), intent())
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, replayed.OrderID)

	req := signedRequest()
	req.OrderID = first.OrderID
	req.Signature = services.ComputeSignature(testSecret, first.OrderID, testPaymentID)
	_, err = f.svc.VerifyPayment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{first.OrderID}, f.orders.forgotten)

	second, err := orders.CreateOrder(context.Background(), intent())
	require.NoError(t, err)
	assert.NotEqual(t, first.OrderID, second.OrderID)
	assert.Equal(t, 2, f.gateway.orderCalls())
}

func TestVerifyPayment_MismatchKeepsCachedOrder(t *testing.T) {
	f := newVerificationFixture(testSecret)
	req := signedRequest()
	req.Signature = "deadbeef"

	_, err := f.svc.VerifyPayment(context.Background(), req)

	assert.True(t, errors.Is(err, apperrors.ErrSignatureMismatch))
	assert.Empty(t, f.orders.forgotten)
}
