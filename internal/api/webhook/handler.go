// Package webhook receives payment processor events.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/mystery-box/internal/api/respond"
	"github.com/aimd54/mystery-box/internal/service/payments"
	"github.com/aimd54/mystery-box/internal/stripe"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// maxBodyBytes caps webhook payloads.
const maxBodyBytes = 65536

// SignatureHeader carries the processor's HMAC signature.
const SignatureHeader = "Stripe-Signature"

// PaymentService interface for webhook processing.
type PaymentService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error)
}

// Handler handles webhook requests.
type Handler struct {
	paymentService PaymentService
	log            *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(paymentService PaymentService, log *logger.Logger) *Handler {
	return &Handler{
		paymentService: paymentService,
		log:            log,
	}
}

// HandleStripe verifies and applies a Stripe event. Anything that verifies is
// acknowledged with 200 so the processor stops redelivering it.
// POST /webhook.
func (h *Handler) HandleStripe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Webhook Error: unreadable body")
		return
	}

	result, err := h.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(SignatureHeader))
	if errors.Is(err, stripe.ErrInvalidSignature) {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Webhook Error: "+err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Error processing webhook")
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "Internal Server Error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "result": result})
}

var _ PaymentService = (*payments.Service)(nil)
