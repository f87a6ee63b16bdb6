// Package admin provides REST API handlers for the administrator console:
// claim listings, the open/deliver/cancel transitions, manual and direct
// openings, and the pending-user queue.
package admin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/mystery-box/internal/api/middleware"
	"github.com/aimd54/mystery-box/internal/api/respond"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/repository"
	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// ClaimService interface for claim operations.
type ClaimService interface {
	Open(ctx context.Context, claimID string, actor claims.Actor) (*models.PrizeClaim, error)
	MarkDelivered(ctx context.Context, claimID string, actor claims.Actor) (*models.PrizeClaim, error)
	Cancel(ctx context.Context, claimID string, actor claims.Actor) (*models.PrizeClaim, error)
	CreateManual(ctx context.Context, req claims.ManualRequest, actor claims.Actor) (*models.PrizeClaim, error)
	DirectBoxOpening(ctx context.Context, req claims.DirectRequest, actor claims.Actor) (*models.PrizeClaim, error)
	List(filter claims.Filter) ([]claims.ClaimView, error)
	OpenedBoxes() (map[int]claims.BoxView, int, error)
	PendingUsers() ([]claims.PendingUser, error)
}

// NotificationLog interface for the admin audit trail.
type NotificationLog interface {
	ListRecent(limit int) ([]models.AdminNotification, error)
}

// Handler handles admin API requests.
type Handler struct {
	claimService  ClaimService
	notifications NotificationLog
	log           *logger.Logger
}

// NewHandler creates a new admin handler.
func NewHandler(claimService *claims.Service, notificationRepo *repository.NotificationRepository, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(claimService, notificationRepo, log)
}

// NewHandlerWithInterfaces creates a new admin handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(claimService ClaimService, notifications NotificationLog, log *logger.Logger) *Handler {
	return &Handler{
		claimService:  claimService,
		notifications: notifications,
		log:           log,
	}
}

// Register mounts the admin routes. The group must already carry the auth
// and admin middleware.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/prize-claims", h.ListPrizeClaims)
	rg.POST("/open-prize", h.OpenPrize)
	rg.POST("/manual-open-prize", h.ManualOpenPrize)
	rg.POST("/direct-box-opening", h.DirectBoxOpening)
	rg.POST("/mark-delivered", h.MarkDelivered)
	rg.POST("/cancel-claim", h.CancelClaim)
	rg.GET("/pending-users", h.PendingUsers)
	rg.GET("/notifications", h.ListNotifications)
}

type claimRequest struct {
	ClaimID string `json:"claimId"`
}

type manualOpenRequest struct {
	UserEmail string `json:"userEmail"`
	PaymentID string `json:"paymentId"`
	PrizeName string `json:"prizeName"`
	BoxNumber *int   `json:"boxNumber"`
}

type directOpeningRequest struct {
	BoxNumber  int    `json:"boxNumber"`
	PrizeName  string `json:"prizeName"`
	PrizeValue *int64 `json:"prizeValue"`
	PrizeGlow  string `json:"prizeGlow"`
}

// ListPrizeClaims lists claims, or the opened-box map when format=boxes.
// GET /admin/prize-claims?filter=opened&format=boxes.
func (h *Handler) ListPrizeClaims(c *gin.Context) {
	if c.Query("format") == "boxes" {
		boxes, total, err := h.claimService.OpenedBoxes()
		if err != nil {
			respond.FromError(c, h.log, err, "Failed to retrieve opened boxes")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"openedBoxes": boxes,
			"totalOpened": total,
		})
		return
	}

	filter, err := claims.ParseFilter(c.Query("filter"))
	if err != nil {
		respond.FromError(c, h.log, err, "Invalid filter")
		return
	}

	views, err := h.claimService.List(filter)
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to retrieve prize claims")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"prizeClaims":  views,
		"count":        len(views),
		"filter":       filter,
		"generated_at": time.Now().UTC(),
	})
}

// OpenPrize allocates a random prize to a pending claim.
// POST /admin/open-prize {claimId}.
func (h *Handler) OpenPrize(c *gin.Context) {
	var req claimRequest
	if !h.bind(c, &req) {
		return
	}

	claim, err := h.claimService.Open(c.Request.Context(), req.ClaimID, h.actor(c))
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to open prize")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prizeClaim": claims.NewClaimView(claim),
		"message":    "Prize opened successfully",
	})
}

// MarkDelivered marks an opened claim as delivered.
// POST /admin/mark-delivered {claimId}.
func (h *Handler) MarkDelivered(c *gin.Context) {
	var req claimRequest
	if !h.bind(c, &req) {
		return
	}

	claim, err := h.claimService.MarkDelivered(c.Request.Context(), req.ClaimID, h.actor(c))
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to mark prize as delivered")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prizeClaim": claims.NewClaimView(claim),
		"message":    "Prize marked as delivered successfully",
	})
}

// CancelClaim cancels a pending claim.
// POST /admin/cancel-claim {claimId}.
func (h *Handler) CancelClaim(c *gin.Context) {
	var req claimRequest
	if !h.bind(c, &req) {
		return
	}

	claim, err := h.claimService.Cancel(c.Request.Context(), req.ClaimID, h.actor(c))
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to cancel prize claim")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prizeClaim": claims.NewClaimView(claim),
		"message":    "Prize claim cancelled successfully",
	})
}

// ManualOpenPrize opens a chosen, boxed or random prize for a user.
// POST /admin/manual-open-prize {userEmail|paymentId, prizeName, boxNumber?}.
func (h *Handler) ManualOpenPrize(c *gin.Context) {
	var req manualOpenRequest
	if !h.bind(c, &req) {
		return
	}

	claim, err := h.claimService.CreateManual(c.Request.Context(), claims.ManualRequest{
		UserEmail: req.UserEmail,
		PaymentID: req.PaymentID,
		PrizeName: req.PrizeName,
		BoxNumber: req.BoxNumber,
	}, h.actor(c))
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to open prize manually")
		return
	}

	prizeName := ""
	if claim.PrizeType != nil {
		prizeName = claim.PrizeType.Name
	}
	message := fmt.Sprintf("Prize %q successfully opened for %s", prizeName, claim.User.DisplayName())
	if req.BoxNumber != nil {
		message += fmt.Sprintf(" (Box %d)", *req.BoxNumber)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    message,
		"prizeClaim": claims.NewClaimView(claim),
	})
}

// DirectBoxOpening records a board opening with no end user.
// POST /admin/direct-box-opening {boxNumber, prizeName, prizeValue?, prizeGlow?}.
func (h *Handler) DirectBoxOpening(c *gin.Context) {
	var req directOpeningRequest
	if !h.bind(c, &req) {
		return
	}

	claim, err := h.claimService.DirectBoxOpening(c.Request.Context(), claims.DirectRequest{
		BoxNumber:  req.BoxNumber,
		PrizeName:  req.PrizeName,
		PrizeValue: req.PrizeValue,
		PrizeGlow:  req.PrizeGlow,
	}, h.actor(c))
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to track direct box opening")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       fmt.Sprintf("Direct box opening tracked: Box #%d - %s", req.BoxNumber, claim.PrizeType.Name),
		"directOpening": claims.NewClaimView(claim),
	})
}

// PendingUsers lists users waiting for an admin opening.
// GET /admin/pending-users.
func (h *Handler) PendingUsers(c *gin.Context) {
	users, err := h.claimService.PendingUsers()
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to retrieve pending users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"pendingUsers": users,
		"count":        len(users),
	})
}

// ListNotifications returns the latest audit entries, newest first.
// GET /admin/notifications?limit=50.
func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := parseLimit(c, 50)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	entries, err := h.notifications.ListRecent(limit)
	if err != nil {
		respond.FromError(c, h.log, err, "Failed to retrieve notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": entries,
		"count":         len(entries),
	})
}

// parseLimit extracts and validates the limit query parameter.
func parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	if limit > 500 {
		return 0, fmt.Errorf("limit cannot exceed 500")
	}
	return limit, nil
}

// bind decodes the JSON body, answering 400 on malformed input.
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "Invalid request body")
		return false
	}
	return true
}

// actor is the admin identity set by the auth middleware.
func (h *Handler) actor(c *gin.Context) claims.Actor {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return claims.Actor{}
	}
	return claims.Actor{UserID: identity.UserID, Email: identity.Email, Name: identity.Name}
}
