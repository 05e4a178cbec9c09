package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formalys/formalys-server/internal/models"
	"github.com/formalys/formalys-server/internal/payment"
	"github.com/formalys/formalys-server/internal/service"
	"github.com/formalys/formalys-server/internal/utils"
)

// Handler holds the HTTP handlers and their dependencies
type Handler struct {
	svc      service.Service
	verifier *payment.WebhookVerifier
	logger   *utils.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, verifier *payment.WebhookVerifier) *Handler {
	return &Handler{
		svc:      svc,
		verifier: verifier,
		logger:   utils.NewLogger(),
	}
}

// SetupRoutes registers all API routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	{
		auth.POST("/signup", h.SignUp)
		auth.POST("/login", h.Login)
	}
	api.POST("/webhooks/stripe", h.StripeWebhook)

	// Authenticated routes
	protected := api.Group("")
	protected.Use(AuthMiddleware())
	{
		protected.GET("/profile", h.GetProfile)
		protected.PUT("/profile", h.UpdateProfile)
		protected.GET("/users", h.ListUsers)

		protected.POST("/formalities", h.CreateFormality)
		protected.GET("/formalities", h.ListFormalities)
		protected.GET("/formalities/:id", h.GetFormality)
		protected.PUT("/formalities/:id", h.UpdateFormality)
		protected.DELETE("/formalities/:id", h.DeleteFormality)
		protected.POST("/formalities/:id/clients", h.AddClients)
		protected.DELETE("/formalities/:id/clients/:clientId", h.RemoveClient)
		protected.GET("/formalities/:id/history", h.GetHistory)

		protected.GET("/formalities/:id/price", h.GetPrice)
		protected.POST("/formalities/:id/payment-link", h.GeneratePaymentLink)
		protected.POST("/formalities/:id/payment-link/send", h.SendPaymentLink)
		protected.POST("/checkout/session", h.CreateCheckoutSession)

		protected.GET("/formalities/:id/messages", h.GetMessages)
		protected.POST("/formalities/:id/messages", h.SendMessage)
		protected.POST("/formalities/:id/messages/read", h.MarkMessagesRead)
		protected.GET("/messages/unread", h.GetUnreadMessages)

		protected.GET("/tribunals", h.ListTribunals)
		protected.GET("/tariffs", h.ListTariffs)
	}
}

// respondError maps a business error to its HTTP status and error envelope
func (h *Handler) respondError(c *gin.Context, err error) {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.HTTPCode, models.ErrorResponse{
			Status:  "error",
			Code:    svcErr.Code,
			Message: svcErr.Message,
		})
		return
	}

	h.logger.Error("internal error: %v", err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Status:  "error",
		Code:    "INTERNAL_ERROR",
		Message: "An internal error occurred",
	})
}

func (h *Handler) badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "INVALID_REQUEST",
		Message: message,
	})
}

func formalityID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Auth handlers
func (h *Handler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.SignUp(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Profile handlers
func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.svc.GetProfile(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	profile, err := h.svc.UpdateProfile(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *Handler) ListUsers(c *gin.Context) {
	profiles, err := h.svc.ListProfiles(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profiles)
}

// Formality handlers
func (h *Handler) CreateFormality(c *gin.Context) {
	var req models.CreateFormalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	detail, err := h.svc.CreateFormality(c.Request.Context(), c.GetString("userId"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, detail)
}

func (h *Handler) ListFormalities(c *gin.Context) {
	details, err := h.svc.ListFormalities(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) GetFormality(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	detail, err := h.svc.GetFormality(c.Request.Context(), c.GetString("userId"), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) UpdateFormality(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	var req models.UpdateFormalityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	detail, err := h.svc.UpdateFormality(c.Request.Context(), c.GetString("userId"), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *Handler) DeleteFormality(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	if err := h.svc.DeleteFormality(c.Request.Context(), c.GetString("userId"), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) AddClients(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	var req models.AddClientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	if err := h.svc.AddClients(c.Request.Context(), c.GetString("userId"), id, req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) RemoveClient(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	clientID := c.Param("clientId")
	if clientID == "" {
		h.badRequest(c, "invalid client id")
		return
	}

	if err := h.svc.RemoveClient(c.Request.Context(), c.GetString("userId"), id, clientID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	entries, err := h.svc.GetHistory(c.Request.Context(), c.GetString("userId"), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// Pricing and payment handlers
func (h *Handler) GetPrice(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	breakdown, err := h.svc.GetPrice(c.Request.Context(), c.GetString("userId"), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

func (h *Handler) GeneratePaymentLink(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	var req models.PaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.GeneratePaymentLink(c.Request.Context(), c.GetString("userId"), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) SendPaymentLink(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	var req models.SendPaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	if err := h.svc.SendPaymentLink(c.Request.Context(), c.GetString("userId"), id, req); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	resp, err := h.svc.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StripeWebhook receives provider events. The raw body is verified against
// the signature header before anything is touched; a bad signature means the
// payload is discarded with a 400 and no side effects. Handling errors after
// verification return 500 so the provider redelivers.
func (h *Handler) StripeWebhook(c *gin.Context) {
	payloadBytes, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.String(http.StatusBadRequest, "cannot read payload")
		return
	}

	event, err := h.verifier.ParseEvent(payloadBytes, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Error("webhook signature verification failed: %v", err)
		c.String(http.StatusBadRequest, "invalid signature")
		return
	}

	if string(event.Type) == payment.EventCheckoutCompleted {
		completed, err := payment.ExtractCheckoutCompleted(event)
		if err != nil {
			h.logger.Error("webhook event decode failed: %v", err)
			c.String(http.StatusInternalServerError, "malformed event payload")
			return
		}

		if err := h.svc.HandleCheckoutCompleted(c.Request.Context(), completed); err != nil {
			h.logger.Error("webhook handling failed for session %s: %v", completed.SessionID, err)
			c.String(http.StatusInternalServerError, "event handling failed")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Messaging handlers
func (h *Handler) GetMessages(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	messages, err := h.svc.GetMessages(c.Request.Context(), c.GetString("userId"), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err.Error())
		return
	}

	message, err := h.svc.SendMessage(c.Request.Context(), c.GetString("userId"), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *Handler) MarkMessagesRead(c *gin.Context) {
	id, ok := formalityID(c)
	if !ok {
		h.badRequest(c, "invalid formality id")
		return
	}

	if err := h.svc.MarkMessagesRead(c.Request.Context(), c.GetString("userId"), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) GetUnreadMessages(c *gin.Context) {
	messages, err := h.svc.GetUnreadMessages(c.Request.Context(), c.GetString("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// Reference data handlers
func (h *Handler) ListTribunals(c *gin.Context) {
	tribunals, err := h.svc.ListTribunals(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tribunals)
}

func (h *Handler) ListTariffs(c *gin.Context) {
	tariffs, err := h.svc.ListTariffs(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tariffs)
}
