package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ProLink-Marketplace/service-booking/internal/application"
	"github.com/ProLink-Marketplace/service-booking/pkg/auth"
	"github.com/ProLink-Marketplace/service-booking/pkg/middleware"
	"github.com/ProLink-Marketplace/service-booking/pkg/response"
)

// PaymentHandler handles payment authorization, capture and the pro's
// connected payout account.
type PaymentHandler struct {
	service *application.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	customerOnly := middleware.RequireRole(auth.RoleCustomer)
	proOnly := middleware.RequireRole(auth.RolePro)

	bookings := r.Group("/api/v1/bookings")
	bookings.Use(authMW)
	{
		bookings.POST("/:id/authorize", customerOnly, h.AuthorizePayment)
		bookings.POST("/:id/pay", customerOnly, h.CapturePayment)
	}

	account := r.Group("/api/v1/payment-account")
	account.Use(authMW, proOnly)
	{
		account.GET("", h.GetPaymentAccount)
		account.PUT("", h.SetPaymentAccount)
	}
}

// AuthorizePayment handles POST /api/v1/bookings/:id/authorize. Returns the
// provider's client confirmation token for the customer's client.
func (h *PaymentHandler) AuthorizePayment(c *gin.Context) {
	bookingID, userID, ok := bookingAndUser(c)
	if !ok {
		return
	}

	result, err := h.service.AuthorizePayment(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CapturePayment handles POST /api/v1/bookings/:id/pay. Finalizes the
// charge against an awaiting_payment booking.
func (h *PaymentHandler) CapturePayment(c *gin.Context) {
	bookingID, userID, ok := bookingAndUser(c)
	if !ok {
		return
	}

	result, err := h.service.CapturePayment(c.Request.Context(), bookingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetPaymentAccount handles GET /api/v1/payment-account.
func (h *PaymentHandler) GetPaymentAccount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.service.GetPaymentAccount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SetPaymentAccount handles PUT /api/v1/payment-account.
func (h *PaymentHandler) SetPaymentAccount(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body struct {
		AccountID      string `json:"account_id" binding:"required"`
		ChargesEnabled bool   `json:"charges_enabled"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetPaymentAccount(c.Request.Context(), userID, body.AccountID, body.ChargesEnabled)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
