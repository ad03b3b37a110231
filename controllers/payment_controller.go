package controllers

import (
	"errors"
	"net/http"
	"time"

	"payment-service/apperrors"
	"payment-service/logger"
	"payment-service/models"
	"payment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentController handles HTTP requests for checkout orders and payment
// verification.
type PaymentController struct {
	orders        services.OrderService
	verifications services.VerificationService
	configured    bool
	log           *zap.Logger
}

// NewPaymentController creates a new PaymentController. configured reports
// whether gateway credentials are present, for the health endpoint.
func NewPaymentController(orders services.OrderService, verifications services.VerificationService, configured bool, log *zap.Logger) *PaymentController {
	return &PaymentController{
		orders:        orders,
		verifications: verifications,
		configured:    configured,
		log:           log,
	}
}

// CreateOrder handles POST /api/order
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	order, err := pc.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		appErr := apperrors.From(err)
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(apperrors.StatusCode(err), gin.H{"error": appErr.Message})
			return
		}
		logger.FromContext(c, pc.log).Error("Order creation error", zap.Error(err))
		c.JSON(apperrors.StatusCode(err), gin.H{
			"error":   "Failed to create order",
			"message": appErr.Message,
		})
		return
	}

	c.JSON(http.StatusOK, order)
}

// VerifyPayment handles POST /api/verify
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	var req models.VerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, err := pc.verifications.VerifyPayment(c.Request.Context(), &req)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrSignatureMismatch):
		c.JSON(apperrors.StatusCode(err), gin.H{
			"error":   "Invalid signature",
			"message": apperrors.From(err).Message,
		})
		return
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(apperrors.StatusCode(err), gin.H{"error": apperrors.From(err).Message})
		return
	default:
		logger.FromContext(c, pc.log).Error("Verification error", zap.Error(err))
		c.JSON(apperrors.StatusCode(err), gin.H{
			"error":   "Verification failed",
			"message": apperrors.From(err).Message,
		})
		return
	}

	resp := gin.H{
		"success":        true,
		"message":        "Payment verified successfully",
		"subscriptionId": result.SubscriptionID,
	}
	if d := result.PaymentDetails; d != nil {
		resp["payment"] = gin.H{
			"id":       d.ID,
			"amount":   d.Amount.InexactFloat64(),
			"currency": d.Currency,
			"status":   d.Status,
			"method":   d.Method,
			"email":    d.PayerEmail,
			"contact":  d.PayerContact,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Health handles GET /api/health
func (pc *PaymentController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "OK",
		"message":            "Cambliss News Payment Server",
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
		"razorpayConfigured": pc.configured,
	})
}
