// Package claims implements the prize claim lifecycle and its read projections.
package claims

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimd54/mystery-box/internal/catalog"
	prommetrics "github.com/aimd54/mystery-box/internal/metrics"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/notify"
	"github.com/aimd54/mystery-box/internal/repository"
	"github.com/aimd54/mystery-box/internal/service/allocation"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// ClaimRepository interface for prize claim operations.
type ClaimRepository interface {
	Create(claim *models.PrizeClaim) error
	Update(claim *models.PrizeClaim) error
	GetByID(id string) (*models.PrizeClaim, error)
	ListByStatus(statuses ...models.ClaimStatus) ([]models.PrizeClaim, error)
	ListOpened() ([]models.PrizeClaim, error)
	ListWithBoxNumber() ([]models.PrizeClaim, error)
	ListPending() ([]models.PrizeClaim, error)
	FindByPayment(paymentID string, status models.ClaimStatus) (*models.PrizeClaim, error)
	CountOpenedForUser(userID string) (int64, error)
	CountByStatus(status models.ClaimStatus) (int64, error)
	CountOpenedBetween(start, end time.Time) (int64, error)
	CountDeliveredBetween(start, end time.Time) (int64, error)
	DeleteAll() (int64, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	CreateOrUpdate(user *models.User) error
}

// PaymentRepository interface for payment operations.
type PaymentRepository interface {
	GetByID(id string) (*models.Payment, error)
	ListUnclaimed() ([]models.Payment, error)
}

// NotificationRepository interface for the admin notification log.
type NotificationRepository interface {
	Create(notification *models.AdminNotification) error
}

// Notifier queues an outbound alert.
type Notifier interface {
	Enqueue(ctx context.Context, msg notify.Message) error
}

// Actor is the administrator performing an operation.
type Actor struct {
	UserID string
	Email  string
	Name   string
}

// Label is how the actor appears in notes and alerts.
func (a Actor) Label() string {
	switch {
	case a.Email != "":
		return a.Email
	case a.Name != "":
		return a.Name
	case a.UserID != "":
		return a.UserID
	default:
		return "Unknown Admin"
	}
}

// Service manages claim state transitions.
type Service struct {
	claims        ClaimRepository
	users         UserRepository
	payments      PaymentRepository
	notifications NotificationRepository
	engine        *allocation.Engine
	notifier      Notifier
	log           *logger.Logger
	now           func() time.Time
}

// NewService creates a new claim service.
func NewService(
	claimRepo *repository.ClaimRepository,
	userRepo *repository.UserRepository,
	paymentRepo *repository.PaymentRepository,
	notificationRepo *repository.NotificationRepository,
	engine *allocation.Engine,
	notifier Notifier,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(claimRepo, userRepo, paymentRepo, notificationRepo, engine, notifier, log)
}

// NewServiceWithInterfaces creates a new claim service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	claimRepo ClaimRepository,
	userRepo UserRepository,
	paymentRepo PaymentRepository,
	notificationRepo NotificationRepository,
	engine *allocation.Engine,
	notifier Notifier,
	log *logger.Logger,
) *Service {
	return &Service{
		claims:        claimRepo,
		users:         userRepo,
		payments:      paymentRepo,
		notifications: notificationRepo,
		engine:        engine,
		notifier:      notifier,
		log:           log,
		now:           time.Now,
	}
}

// Catalog exposes the prize pool the service allocates from.
func (s *Service) Catalog() *catalog.Catalog {
	return s.engine.Catalog()
}

func (s *Service) getClaim(claimID string) (*models.PrizeClaim, error) {
	if claimID == "" {
		return nil, fmt.Errorf("%w: claim ID is required", ErrValidation)
	}
	claim, err := s.claims.GetByID(claimID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: prize claim %s", ErrNotFound, claimID)
	}
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// Open allocates a weighted-random prize to a pending claim.
func (s *Service) Open(ctx context.Context, claimID string, actor Actor) (*models.PrizeClaim, error) {
	claim, err := s.getClaim(claimID)
	if err != nil {
		s.recordFailure("open", err)
		return nil, err
	}

	if claim.Status != models.ClaimStatusPending {
		err := fmt.Errorf("%w: prize claim is not pending (status %s)", ErrConflict, claim.Status)
		s.recordFailure("open", err)
		return nil, err
	}

	entry := s.engine.Random()
	prizeType, err := s.engine.Resolve(entry)
	if err != nil {
		s.recordFailure("open", err)
		return nil, err
	}

	now := s.now()
	opener := actor.Label()
	claim.Status = models.ClaimStatusOpened
	claim.PrizeTypeID = &prizeType.ID
	claim.OpenedAt = &now
	claim.OpenedBy = &opener

	if err := s.claims.Update(claim); err != nil {
		s.recordFailure("open", err)
		return nil, err
	}
	claim.PrizeType = prizeType

	prommetrics.RecordClaimTransition("open", "success")
	prommetrics.RecordPrizeAllocated(allocation.ModeRandom, prizeType.Glow, prizeType.Value)

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("user_id", claim.UserID).
		Str("prize", prizeType.Name).
		Str("admin", opener).
		Msg("Prize opened")

	s.announce(ctx, &models.AdminNotification{
		Type:         models.NotificationPrizeOpened,
		Title:        "Prize Opened",
		Message:      fmt.Sprintf("Admin %s opened %q for %s", opener, prizeType.Name, claim.User.DisplayName()),
		UserID:       claim.UserID,
		PrizeClaimID: &claim.ID,
	}, notify.PrizeOpenedAlert(models.NotificationPrizeOpened, claim.User, prizeType, claim.BoxNumber, opener))

	return claim, nil
}

// MarkDelivered advances an opened claim to delivered.
func (s *Service) MarkDelivered(ctx context.Context, claimID string, actor Actor) (*models.PrizeClaim, error) {
	claim, err := s.getClaim(claimID)
	if err != nil {
		s.recordFailure("deliver", err)
		return nil, err
	}

	if claim.Status != models.ClaimStatusOpened {
		err := fmt.Errorf("%w: prize claim is not opened (status %s)", ErrConflict, claim.Status)
		s.recordFailure("deliver", err)
		return nil, err
	}

	now := s.now()
	claim.Status = models.ClaimStatusDelivered
	claim.DeliveredAt = &now

	if err := s.claims.Update(claim); err != nil {
		s.recordFailure("deliver", err)
		return nil, err
	}

	prommetrics.RecordClaimTransition("deliver", "success")

	prizeName := "Unknown"
	if claim.PrizeType != nil {
		prizeName = claim.PrizeType.Name
	}
	s.log.Info().
		Str("claim_id", claim.ID).
		Str("user_id", claim.UserID).
		Str("prize", prizeName).
		Str("admin", actor.Label()).
		Msg("Prize delivered")

	s.announce(ctx, &models.AdminNotification{
		Type:         models.NotificationPrizeDelivered,
		Title:        "Prize Delivered",
		Message:      fmt.Sprintf("Admin %s marked %q delivered to %s", actor.Label(), prizeName, claim.User.DisplayName()),
		UserID:       claim.UserID,
		PrizeClaimID: &claim.ID,
	}, notify.PrizeDeliveredAlert(claim.User, claim.PrizeType, actor.Label()))

	return claim, nil
}

// Cancel withdraws a claim that has not been opened yet.
func (s *Service) Cancel(ctx context.Context, claimID string, actor Actor) (*models.PrizeClaim, error) {
	claim, err := s.getClaim(claimID)
	if err != nil {
		s.recordFailure("cancel", err)
		return nil, err
	}

	if claim.Status != models.ClaimStatusPending {
		err := fmt.Errorf("%w: only pending claims can be cancelled (status %s)", ErrConflict, claim.Status)
		s.recordFailure("cancel", err)
		return nil, err
	}

	claim.Status = models.ClaimStatusCancelled
	claim.Notes = appendNote(claim.Notes, "Cancelled by admin "+actor.Label())

	if err := s.claims.Update(claim); err != nil {
		s.recordFailure("cancel", err)
		return nil, err
	}

	prommetrics.RecordClaimTransition("cancel", "success")
	s.log.Info().
		Str("claim_id", claim.ID).
		Str("user_id", claim.UserID).
		Str("admin", actor.Label()).
		Msg("Prize claim cancelled")

	s.announce(ctx, &models.AdminNotification{
		Type:         models.NotificationPrizeCancelled,
		Title:        "Prize Cancelled",
		Message:      fmt.Sprintf("Admin %s cancelled the pending claim of %s", actor.Label(), claim.User.DisplayName()),
		UserID:       claim.UserID,
		PrizeClaimID: &claim.ID,
	}, notify.PrizeCancelledAlert(claim.User, claim.ID, actor.Label()))

	return claim, nil
}

// ManualRequest selects the target and prize for a manual opening.
// Either UserEmail or PaymentID identifies the user; BoxNumber wins over
// PrizeName, and with neither the prize is drawn at random.
type ManualRequest struct {
	UserEmail string
	PaymentID string
	PrizeName string
	BoxNumber *int
}

// CreateManual opens a prize for a user outside the normal pending flow.
func (s *Service) CreateManual(ctx context.Context, req ManualRequest, actor Actor) (*models.PrizeClaim, error) {
	claim, err := s.createManual(ctx, req, actor)
	if err != nil {
		s.recordFailure("manual", err)
		return nil, err
	}
	prommetrics.RecordClaimTransition("manual", "success")
	return claim, nil
}

func (s *Service) createManual(ctx context.Context, req ManualRequest, actor Actor) (*models.PrizeClaim, error) {
	req.UserEmail = strings.TrimSpace(req.UserEmail)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.PrizeName = strings.TrimSpace(req.PrizeName)

	if req.UserEmail == "" && req.PaymentID == "" {
		return nil, fmt.Errorf("%w: user email or payment ID is required", ErrValidation)
	}

	user, payment, err := s.resolveManualTarget(req)
	if err != nil {
		return nil, err
	}

	entry, mode, err := s.selectManualPrize(req)
	if err != nil {
		return nil, err
	}

	prizeType, err := s.engine.Resolve(entry)
	if err != nil {
		return nil, err
	}

	now := s.now()
	opener := actor.Label()
	note := "Manually opened by admin " + opener
	if req.BoxNumber != nil {
		note += fmt.Sprintf(" (Box #%d)", *req.BoxNumber)
	}

	var claim *models.PrizeClaim
	if payment != nil {
		claim, err = s.claims.FindByPayment(payment.ID, models.ClaimStatusPending)
		if err != nil {
			return nil, err
		}
	}

	if claim == nil {
		claim = &models.PrizeClaim{
			ID:     uuid.NewString(),
			UserID: user.ID,
		}
		if payment != nil {
			claim.PaymentID = &payment.ID
		}
	}

	claim.Status = models.ClaimStatusOpened
	claim.PrizeTypeID = &prizeType.ID
	claim.BoxNumber = req.BoxNumber
	claim.OpenedAt = &now
	claim.OpenedBy = &opener
	claim.Notes = appendNote(claim.Notes, note)

	if claim.CreatedAt.IsZero() {
		err = s.claims.Create(claim)
	} else {
		err = s.claims.Update(claim)
	}
	if err != nil {
		return nil, err
	}

	claim.User = user
	claim.Payment = payment
	claim.PrizeType = prizeType

	prommetrics.RecordPrizeAllocated(mode, prizeType.Glow, prizeType.Value)

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("user_id", user.ID).
		Str("prize", prizeType.Name).
		Str("mode", mode).
		Str("admin", opener).
		Msg("Prize manually opened")

	message := fmt.Sprintf("Admin %s manually opened %q for %s", opener, prizeType.Name, user.DisplayName())
	if req.BoxNumber != nil {
		message += fmt.Sprintf(" (Box #%d)", *req.BoxNumber)
	}
	s.announce(ctx, &models.AdminNotification{
		Type:         models.NotificationManualPrizeOpened,
		Title:        "Manual Prize Opened",
		Message:      message,
		UserID:       user.ID,
		PrizeClaimID: &claim.ID,
	}, notify.PrizeOpenedAlert(models.NotificationManualPrizeOpened, user, prizeType, req.BoxNumber, opener))

	return claim, nil
}

// resolveManualTarget finds the user and applies the duplicate-open guard.
// The guard is a read before the write and is not serialized.
func (s *Service) resolveManualTarget(req ManualRequest) (*models.User, *models.Payment, error) {
	if req.PaymentID != "" {
		payment, err := s.payments.GetByID(req.PaymentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: payment %s", ErrNotFound, req.PaymentID)
		}
		if err != nil {
			return nil, nil, err
		}

		opened, err := s.claims.FindByPayment(payment.ID, models.ClaimStatusOpened)
		if err != nil {
			return nil, nil, err
		}
		if opened != nil {
			return nil, nil, fmt.Errorf("%w: payment already has an opened prize", ErrConflict)
		}

		user := payment.User
		if user == nil {
			user, err = s.users.GetByID(payment.UserID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("%w: user %s", ErrNotFound, payment.UserID)
			}
			if err != nil {
				return nil, nil, err
			}
		}
		return user, payment, nil
	}

	user, err := s.users.GetByEmail(req.UserEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("%w: user %s", ErrNotFound, req.UserEmail)
	}
	if err != nil {
		return nil, nil, err
	}

	openCount, err := s.claims.CountOpenedForUser(user.ID)
	if err != nil {
		return nil, nil, err
	}
	if openCount > 0 {
		return nil, nil, fmt.Errorf("%w: user already has an opened prize awaiting delivery", ErrConflict)
	}
	return user, nil, nil
}

func (s *Service) selectManualPrize(req ManualRequest) (catalog.Entry, string, error) {
	switch {
	case req.BoxNumber != nil:
		entry, err := s.engine.ByBox(*req.BoxNumber)
		if err != nil {
			return catalog.Entry{}, "", fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if err := s.ensureBoxUnopened(*req.BoxNumber); err != nil {
			return catalog.Entry{}, "", err
		}
		return entry, allocation.ModeBox, nil
	case req.PrizeName != "":
		return s.engine.ByName(req.PrizeName, nil, ""), allocation.ModeName, nil
	default:
		return s.engine.Random(), allocation.ModeRandom, nil
	}
}

// ensureBoxUnopened rejects a box that already holds an opened or delivered claim.
func (s *Service) ensureBoxUnopened(boxNumber int) error {
	boxed, err := s.claims.ListWithBoxNumber()
	if err != nil {
		return err
	}
	for _, c := range boxed {
		if c.BoxNumber != nil && *c.BoxNumber == boxNumber {
			return fmt.Errorf("%w: box #%d is already opened", ErrConflict, boxNumber)
		}
	}
	return nil
}

// DirectRequest describes a box opened on the board with no end user.
type DirectRequest struct {
	BoxNumber  int
	PrizeName  string
	PrizeValue *int64
	PrizeGlow  string
}

// DirectBoxOpening records a board opening owned by the admin.
func (s *Service) DirectBoxOpening(ctx context.Context, req DirectRequest, actor Actor) (*models.PrizeClaim, error) {
	claim, err := s.directBoxOpening(ctx, req, actor)
	if err != nil {
		s.recordFailure("direct", err)
		return nil, err
	}
	prommetrics.RecordClaimTransition("direct", "success")
	return claim, nil
}

func (s *Service) directBoxOpening(ctx context.Context, req DirectRequest, actor Actor) (*models.PrizeClaim, error) {
	req.PrizeName = strings.TrimSpace(req.PrizeName)
	if req.BoxNumber == 0 || req.PrizeName == "" {
		return nil, fmt.Errorf("%w: box number and prize name are required", ErrValidation)
	}
	if total := s.engine.Catalog().TotalBoxes(); req.BoxNumber < 1 || req.BoxNumber > total {
		return nil, fmt.Errorf("%w: box number must be between 1 and %d", ErrValidation, total)
	}
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: admin identity is required", ErrValidation)
	}
	if err := s.ensureBoxUnopened(req.BoxNumber); err != nil {
		return nil, err
	}

	// The admin becomes the synthetic owner; make sure the row exists.
	owner := &models.User{ID: actor.UserID, Name: actor.Name, Email: actor.Email}
	if err := s.users.CreateOrUpdate(owner); err != nil {
		return nil, err
	}

	entry := s.engine.ByName(req.PrizeName, req.PrizeValue, req.PrizeGlow)
	prizeType, err := s.engine.Resolve(entry)
	if err != nil {
		return nil, err
	}

	now := s.now()
	opener := actor.Label()
	boxNumber := req.BoxNumber
	claim := &models.PrizeClaim{
		ID:          uuid.NewString(),
		UserID:      owner.ID,
		PrizeTypeID: &prizeType.ID,
		Status:      models.ClaimStatusOpened,
		BoxNumber:   &boxNumber,
		Notes:       fmt.Sprintf("Direct admin opening by %s - Box #%d - %s (No user assigned)", opener, boxNumber, prizeType.Name),
		OpenedBy:    &opener,
		OpenedAt:    &now,
	}
	if err := s.claims.Create(claim); err != nil {
		return nil, err
	}
	claim.User = owner
	claim.PrizeType = prizeType

	prommetrics.RecordPrizeAllocated(allocation.ModeName, prizeType.Glow, prizeType.Value)

	s.log.Info().
		Str("claim_id", claim.ID).
		Int("box_number", boxNumber).
		Str("prize", prizeType.Name).
		Str("admin", opener).
		Msg("Direct box opening recorded")

	s.announce(ctx, &models.AdminNotification{
		Type:         models.NotificationDirectBoxOpened,
		Title:        "Direct Box Opening",
		Message:      fmt.Sprintf("Admin %s directly opened box #%d containing %q (No user assigned)", opener, boxNumber, prizeType.Name),
		UserID:       owner.ID,
		PrizeClaimID: &claim.ID,
	}, notify.PrizeOpenedAlert(models.NotificationDirectBoxOpened, owner, prizeType, &boxNumber, opener))

	return claim, nil
}

// CreateFromPayment creates the pending claim for a freshly recorded payment.
func (s *Service) CreateFromPayment(ctx context.Context, payment *models.Payment) (*models.PrizeClaim, error) {
	claim := &models.PrizeClaim{
		ID:        uuid.NewString(),
		UserID:    payment.UserID,
		PaymentID: &payment.ID,
		Status:    models.ClaimStatusPending,
	}
	if err := s.claims.Create(claim); err != nil {
		s.recordFailure("create", err)
		return nil, err
	}
	prommetrics.RecordClaimTransition("create", "success")

	user := payment.User
	if user == nil {
		var err error
		user, err = s.users.GetByID(payment.UserID)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", payment.UserID).Msg("Failed to load payment owner for alert")
		}
	}
	claim.User = user
	claim.Payment = payment

	s.log.Info().
		Str("claim_id", claim.ID).
		Str("payment_id", payment.ID).
		Str("user_id", payment.UserID).
		Int64("amount", payment.Amount).
		Msg("Pending prize claim created")

	s.announce(ctx, &models.AdminNotification{
		Type:         models.NotificationNewPayment,
		Title:        "New Prize Payment",
		Message:      fmt.Sprintf("%s paid %s and is waiting for a prize", user.DisplayName(), notify.FormatAmount(payment.Amount, payment.Currency)),
		UserID:       payment.UserID,
		PrizeClaimID: &claim.ID,
	}, notify.NewPaymentAlert(user, payment))

	return claim, nil
}

// PurgeAll deletes every claim. Maintenance only.
func (s *Service) PurgeAll() (int64, error) {
	deleted, err := s.claims.DeleteAll()
	if err != nil {
		return 0, err
	}
	s.log.Warn().Int64("deleted", deleted).Msg("Purged all prize claims")
	return deleted, nil
}

// announce appends the audit entry and queues the outbound alert. Neither
// failure affects the already persisted claim mutation.
func (s *Service) announce(ctx context.Context, entry *models.AdminNotification, alert notify.Message) {
	if err := s.notifications.Create(entry); err != nil {
		prommetrics.RecordNotificationFailed("audit_log")
		s.log.Error().
			Err(err).
			Str("type", entry.Type).
			Msg("Failed to append admin notification")
	}

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, alert); err != nil {
		prommetrics.RecordNotificationFailed("enqueue")
		s.log.Error().
			Err(err).
			Str("type", alert.Type).
			Msg("Failed to enqueue outbound notification")
	}
}

func (s *Service) recordFailure(operation string, err error) {
	status := "error"
	switch {
	case errors.Is(err, ErrValidation):
		status = "invalid"
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case errors.Is(err, ErrConflict):
		status = "conflict"
	}
	prommetrics.RecordClaimTransition(operation, status)
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
