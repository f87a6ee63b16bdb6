package mocks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/stripe"
)

// MockGateway stands in for the Stripe gateway. Webhook payloads are plain
// JSON stripe.Event values and the signature must equal Signature.
type MockGateway struct {
	Signature string

	CreateCheckoutSessionFunc func(ctx context.Context, user *models.User) (*stripe.CheckoutSession, error)

	CheckoutUsers []string
}

// NewMockGateway creates a mock gateway accepting the given signature.
func NewMockGateway(signature string) *MockGateway {
	return &MockGateway{Signature: signature}
}

// CreateCheckoutSession records the user and returns a canned session.
func (m *MockGateway) CreateCheckoutSession(ctx context.Context, user *models.User) (*stripe.CheckoutSession, error) {
	m.CheckoutUsers = append(m.CheckoutUsers, user.ID)
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, user)
	}
	id := fmt.Sprintf("cs_mock_%d", len(m.CheckoutUsers))
	return &stripe.CheckoutSession{ID: id, URL: "https://checkout.example.com/" + id}, nil
}

// ParseWebhook decodes a JSON-encoded stripe.Event once the signature matches.
func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*stripe.Event, error) {
	if signature != m.Signature {
		return nil, fmt.Errorf("%w: signature mismatch", stripe.ErrInvalidSignature)
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode mock event: %w", err)
	}
	return &event, nil
}

// CompletedCheckoutPayload builds a webhook body for a completed checkout.
func CompletedCheckoutPayload(sessionID, userID, status string, amount int64) []byte {
	payload, _ := json.Marshal(stripe.Event{
		ID:   "evt_" + sessionID,
		Type: stripe.EventCheckoutCompleted,
		Checkout: &stripe.CompletedCheckout{
			SessionID:       sessionID,
			PaymentIntentID: "pi_" + sessionID,
			PaymentStatus:   status,
			UserID:          userID,
			CustomerEmail:   userID + "@example.com",
			Amount:          amount,
			Currency:        "usd",
		},
	})
	return payload
}
