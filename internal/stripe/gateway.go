// Package stripe wraps the Stripe API calls the unlock checkout needs.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/models"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// EventCheckoutCompleted is the only event type that creates payments.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutSession is a created hosted checkout.
type CheckoutSession struct {
	ID  string
	URL string
}

// CompletedCheckout is the subset of a completed checkout session the service records.
type CompletedCheckout struct {
	SessionID       string
	PaymentIntentID string
	PaymentStatus   string
	UserID          string
	CustomerEmail   string
	Amount          int64
	Currency        string
}

// Event is a verified webhook event. Checkout is set only for completed checkouts.
type Event struct {
	ID       string
	Type     string
	Checkout *CompletedCheckout
}

// Gateway talks to Stripe.
type Gateway struct {
	api     *client.API
	cfg     config.StripeConfig
	baseURL string
}

// Option customizes a Gateway.
type Option func(*stripeapi.Backends)

// WithAPIURL points the API backend at a different host. Used by tests.
func WithAPIURL(url string) Option {
	return func(b *stripeapi.Backends) {
		b.API = stripeapi.GetBackendWithConfig(stripeapi.APIBackend, &stripeapi.BackendConfig{
			URL:               stripeapi.String(url),
			MaxNetworkRetries: stripeapi.Int64(0),
			LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelNull},
		})
	}
}

// NewGateway creates a Stripe gateway. baseURL is where checkout redirects land.
func NewGateway(cfg config.StripeConfig, baseURL string, opts ...Option) *Gateway {
	var backends *stripeapi.Backends
	if len(opts) > 0 {
		backends = &stripeapi.Backends{
			API:     stripeapi.GetBackend(stripeapi.APIBackend),
			Connect: stripeapi.GetBackend(stripeapi.ConnectBackend),
			Uploads: stripeapi.GetBackend(stripeapi.UploadsBackend),
		}
		for _, opt := range opts {
			opt(backends)
		}
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, backends)

	return &Gateway{
		api:     api,
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// CreateCheckoutSession starts a one-off unlock payment for the user.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, user *models.User) (*CheckoutSession, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency: stripeapi.String(g.cfg.Currency),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripeapi.String(g.cfg.ProductName),
						Description: stripeapi.String(g.cfg.ProductDescription),
					},
					UnitAmount: stripeapi.Int64(g.cfg.UnlockAmount),
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		SuccessURL: stripeapi.String(g.baseURL + "/dashboard?payment_success=true"),
		CancelURL:  stripeapi.String(g.baseURL + "/dashboard?payment_cancelled=true"),
	}
	if user.Email != "" {
		params.CustomerEmail = stripeapi.String(user.Email)
	}
	params.AddMetadata("userId", user.ID)
	params.Context = ctx

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session for user %s: %w", user.ID, err)
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	raw, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	if event.Type != EventCheckoutCompleted || raw.Data == nil {
		return event, nil
	}

	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(raw.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session from event %s: %w", raw.ID, err)
	}

	checkout := &CompletedCheckout{
		SessionID:     session.ID,
		PaymentStatus: string(session.PaymentStatus),
		UserID:        session.Metadata["userId"],
		CustomerEmail: session.CustomerEmail,
		Amount:        session.AmountTotal,
		Currency:      string(session.Currency),
	}
	if session.PaymentIntent != nil {
		checkout.PaymentIntentID = session.PaymentIntent.ID
	}
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		checkout.CustomerEmail = session.CustomerDetails.Email
	}
	event.Checkout = checkout

	return event, nil
}

// Paid reports whether the checkout settled and carries an owner.
func (c *CompletedCheckout) Paid() bool {
	return c.PaymentStatus == models.PaymentStatusPaid && c.UserID != ""
}
