// Package payments handles the unlock checkout and the payment webhook.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	prommetrics "github.com/aimd54/mystery-box/internal/metrics"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/repository"
	"github.com/aimd54/mystery-box/internal/service/claims"
	"github.com/aimd54/mystery-box/internal/stripe"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// Webhook outcomes, also used as the metric result label.
const (
	ResultProcessed = "processed"
	ResultDuplicate = "duplicate"
	ResultIgnored   = "ignored"
	ResultInvalid   = "invalid_signature"
	ResultError     = "error"
)

// Gateway interface for the payment processor.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, user *models.User) (*stripe.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*stripe.Event, error)
}

// PaymentRepository interface for payment operations.
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByCheckoutSessionID(sessionID string) (*models.Payment, error)
	HasClaim(paymentID string) (bool, error)
	ListByUser(userID string) ([]models.Payment, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id string) (*models.User, error)
	CreateOrUpdate(user *models.User) error
}

// ClaimCreator opens the pending claim for a recorded payment.
type ClaimCreator interface {
	CreateFromPayment(ctx context.Context, payment *models.Payment) (*models.PrizeClaim, error)
}

// Service records payments.
type Service struct {
	gateway  Gateway
	payments PaymentRepository
	users    UserRepository
	claims   ClaimCreator
	log      *logger.Logger
}

// NewService creates a new payment service.
func NewService(
	gateway *stripe.Gateway,
	paymentRepo *repository.PaymentRepository,
	userRepo *repository.UserRepository,
	claimService *claims.Service,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(gateway, paymentRepo, userRepo, claimService, log)
}

// NewServiceWithInterfaces creates a new payment service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	gateway Gateway,
	paymentRepo PaymentRepository,
	userRepo UserRepository,
	claimCreator ClaimCreator,
	log *logger.Logger,
) *Service {
	return &Service{
		gateway:  gateway,
		payments: paymentRepo,
		users:    userRepo,
		claims:   claimCreator,
		log:      log,
	}
}

// CreateCheckout opens a hosted checkout for the signed-in user and returns its session.
func (s *Service) CreateCheckout(ctx context.Context, userID string) (*stripe.CheckoutSession, error) {
	user, err := s.users.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %s", claims.ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("session_id", session.ID).
		Msg("Checkout session created")

	return session, nil
}

// ListPayments returns the user's payments, newest first.
func (s *Service) ListPayments(userID string) ([]models.Payment, error) {
	payments, err := s.payments.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

// HandleWebhook verifies and applies a processor event. A paid completed
// checkout records one payment and one pending claim; redeliveries of the
// same checkout session are acknowledged without side effects once the claim
// exists.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) {
			prommetrics.RecordWebhookEvent("unknown", ResultInvalid)
			s.log.Warn().Err(err).Msg("Webhook signature verification failed")
			return ResultInvalid, err
		}
		prommetrics.RecordWebhookEvent("unknown", ResultError)
		return ResultError, err
	}

	result, err := s.apply(ctx, event)
	prommetrics.RecordWebhookEvent(event.Type, result)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("Failed to process webhook event")
		return result, err
	}

	s.log.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("result", result).
		Msg("Webhook event handled")

	return result, nil
}

func (s *Service) apply(ctx context.Context, event *stripe.Event) (string, error) {
	if event.Type != stripe.EventCheckoutCompleted || event.Checkout == nil || !event.Checkout.Paid() {
		return ResultIgnored, nil
	}
	checkout := event.Checkout

	if checkout.SessionID != "" {
		existing, err := s.payments.GetByCheckoutSessionID(checkout.SessionID)
		if err == nil && existing != nil {
			return s.applyRedelivery(ctx, existing)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return ResultError, err
		}
	}

	user, err := s.ensureUser(checkout)
	if err != nil {
		return ResultError, err
	}

	payment := &models.Payment{
		ID:                      uuid.NewString(),
		UserID:                  user.ID,
		Amount:                  checkout.Amount,
		Currency:                strings.ToLower(checkout.Currency),
		Status:                  checkout.PaymentStatus,
		StripePaymentIntentID:   checkout.PaymentIntentID,
		StripeCheckoutSessionID: checkout.SessionID,
	}
	if err := s.payments.Create(payment); err != nil {
		return ResultError, err
	}
	payment.User = user
	prommetrics.RecordPaymentReceived(payment.Currency)

	s.log.Info().
		Str("payment_id", payment.ID).
		Str("user_id", user.ID).
		Int64("amount", payment.Amount).
		Str("currency", payment.Currency).
		Msg("Payment recorded")

	if _, err := s.claims.CreateFromPayment(ctx, payment); err != nil {
		return ResultError, fmt.Errorf("failed to create claim for payment %s: %w", payment.ID, err)
	}

	return ResultProcessed, nil
}

// applyRedelivery acknowledges a checkout that was already recorded. A payment
// left without a claim by an earlier failed delivery gets its claim now.
func (s *Service) applyRedelivery(ctx context.Context, existing *models.Payment) (string, error) {
	claimed, err := s.payments.HasClaim(existing.ID)
	if err != nil {
		return ResultError, err
	}
	if claimed {
		s.log.Info().
			Str("session_id", existing.StripeCheckoutSessionID).
			Str("payment_id", existing.ID).
			Msg("Duplicate checkout completion ignored")
		return ResultDuplicate, nil
	}

	s.log.Warn().
		Str("session_id", existing.StripeCheckoutSessionID).
		Str("payment_id", existing.ID).
		Msg("Recorded payment has no claim, creating it on redelivery")
	if _, err := s.claims.CreateFromPayment(ctx, existing); err != nil {
		return ResultError, fmt.Errorf("failed to create claim for payment %s: %w", existing.ID, err)
	}
	return ResultProcessed, nil
}

// ensureUser returns the payment owner, mirroring them from the checkout when
// they have not signed in to this service yet.
func (s *Service) ensureUser(checkout *stripe.CompletedCheckout) (*models.User, error) {
	user, err := s.users.GetByID(checkout.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user = &models.User{ID: checkout.UserID, Email: checkout.CustomerEmail}
	if err := s.users.CreateOrUpdate(user); err != nil {
		return nil, err
	}
	return user, nil
}
