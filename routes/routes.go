package routes

import (
	"payment-service/controllers"

	"github.com/gin-gonic/gin"
)

// RegisterPaymentRoutes sets up the checkout API.
func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController) {
	api := r.Group("/api")

	api.GET("/health", pc.Health)
	api.POST("/order", pc.CreateOrder)
	api.POST("/verify", pc.VerifyPayment)
}
