package checkout

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/praxis/server/internal/shared/errors"
	"github.com/praxis/server/internal/utils/middleware"
)

// Handler handles HTTP requests for checkout.
type Handler struct {
	service   *Service
	validator *Validator
}

// NewHandler creates a new checkout handler.
func NewHandler(service *Service, validator *Validator) *Handler {
	return &Handler{service: service, validator: validator}
}

// RegisterRoutes registers the checkout routes. guard runs before every
// authenticated handler; preflight answers OPTIONS on the billing route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, preflight gin.HandlerFunc, guard ...gin.HandlerFunc) {
	r.OPTIONS("/billing", preflight)
	r.POST("/billing", chain(guard, h.CreateBilling)...)
	r.GET("/subscription", chain(guard, h.GetSubscription)...)
}

// CreateBilling creates a provider billing for the authenticated user.
//
//	@Summary		Create billing
//	@Description	Create a provider billing for the monthly plan and record a pending subscription
//	@Tags			Checkout
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		BillingRequest	true	"Billing request"
//	@Success		200		{object}	BillingResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		405		{object}	ErrorResponse
//	@Failure		429		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/billing [post]
func (h *Handler) CreateBilling(c *gin.Context) {
	var req BillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.InvalidRequest("request body must be a JSON billing request"))
		return
	}

	req.Normalize()
	if err := h.validator.Validate(&req); err != nil {
		respondError(c, err)
		return
	}

	if err := checkSubject(middleware.GetSubject(c), req.UserID); err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.service.CreateBilling(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSubscription returns the authenticated user's subscription.
//
//	@Summary		Get subscription
//	@Description	Return the subscription recorded for the authenticated user
//	@Tags			Checkout
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	SubscriptionResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/subscription [get]
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.service.GetSubscription(c.Request.Context(), middleware.GetSubject(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "subscription_not_found", Message: "Nenhuma assinatura encontrada"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Tente novamente mais tarde."})
		return
	}

	c.JSON(http.StatusOK, sub.ToResponse())
}

// --- Helpers ---

func chain(guard []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(guard)+1)
	handlers = append(handlers, guard...)
	return append(handlers, h)
}

// checkSubject rejects a body whose user_id is not the token subject.
func checkSubject(subject, userID string) error {
	if subject == userID {
		return nil
	}
	appErr := apperrors.Forbidden("user_id does not match the authenticated session")
	appErr.Err = fmt.Errorf("%w: %w", ErrSubjectMismatch, apperrors.ErrForbidden)
	return appErr
}

// respondError renders err. Provider and database failures collapse into one generic message.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode, ErrorResponse{Error: appErr.Code, Message: appErr.Message})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "billing_creation_failed",
		Message: GenericFailureMessage,
	})
}
