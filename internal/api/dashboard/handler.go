// Package dashboard provides REST API handlers for signed-in users: starting
// an unlock checkout, listing their payments and reading the box board.
package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/mystery-box/internal/api/middleware"
	"github.com/aimd54/mystery-box/internal/api/respond"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/internal/service/payments"
	"github.com/aimd54/mystery-box/internal/stripe"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// PaymentService interface for payment operations.
type PaymentService interface {
	CreateCheckout(ctx context.Context, userID string) (*stripe.CheckoutSession, error)
	ListPayments(userID string) ([]models.Payment, error)
}

// BoardService interface for the box board.
type BoardService interface {
	Board() (*claims.Board, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	paymentService PaymentService
	boardService   BoardService
	log            *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(paymentService *payments.Service, claimService *claims.Service, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(paymentService, claimService, log)
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(paymentService PaymentService, boardService BoardService, log *logger.Logger) *Handler {
	return &Handler{
		paymentService: paymentService,
		boardService:   boardService,
		log:            log,
	}
}

// Register mounts the user routes. The group must already carry the auth middleware.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/create-checkout-session", h.CreateCheckoutSession)
	rg.GET("/payments", h.ListPayments)
	rg.GET("/boxes", h.GetBoard)
}

// CreateCheckoutSession starts an unlock payment for the caller.
// POST /create-checkout-session.
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	session, err := h.paymentService.CreateCheckout(c.Request.Context(), userID)
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to create checkout session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionId": session.ID,
		"url":       session.URL,
	})
}

// ListPayments returns the caller's payments, newest first.
// GET /payments.
func (h *Handler) ListPayments(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	list, err := h.paymentService.ListPayments(userID)
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to retrieve payments")
		return
	}

	h.log.Debug().
		Str("user_id", userID).
		Int("count", len(list)).
		Msg("Retrieved payments")

	c.JSON(http.StatusOK, gin.H{
		"payments": list,
	})
}

// GetBoard returns the server-side box board.
// GET /boxes.
func (h *Handler) GetBoard(c *gin.Context) {
	board, err := h.boardService.Board()
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to retrieve box board")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":        board.Total,
		"opened":       board.Opened,
		"boxes":        board.Boxes,
		"generated_at": time.Now().UTC(),
	})
}

func (h *Handler) userID(c *gin.Context) (string, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, respond.CodeUnauthorized, "Unauthorized")
		return "", false
	}
	return identity.UserID, true
}
