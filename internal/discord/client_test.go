package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/notify"
	"github.com/aimd54/mystery-box/pkg/logger"
)

func newTestClient(url string, enabled bool) *Client {
	return NewClient(&config.DiscordConfig{
		WebhookURL: url,
		Username:   "Prize Bot",
		AvatarURL:  "https://example.com/bot.png",
		Enabled:    enabled,
	}, logger.NewNop())
}

func TestClient_Send(t *testing.T) {
	var received WebhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(server.URL, true)
	user := &models.User{ID: "u1", Name: "Ash", Email: "ash@example.com"}
	payment := &models.Payment{Amount: 500, Currency: "usd"}

	msg := notify.NewPaymentAlert(user, payment)
	msg.CreatedAt = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, client.Send(context.Background(), msg))

	assert.Equal(t, "Prize Bot", received.Username)
	assert.Equal(t, "https://example.com/bot.png", received.AvatarURL)
	assert.Contains(t, received.Content, "Admin Action Required")
	require.Len(t, received.Embeds, 1)

	embed := received.Embeds[0]
	assert.Equal(t, ColorNewPayment, embed.Color)
	assert.Equal(t, "2026-05-01T10:00:00Z", embed.Timestamp)
	require.NotNil(t, embed.Footer)
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "$5.00", embed.Fields[2].Value)
}

func TestClient_SendErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, true)
	err := client.Send(context.Background(), notify.Message{Type: models.NotificationPrizeOpened, Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_DisabledSkips(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL, false).Send(context.Background(), notify.Message{Title: "x"}))
	require.NoError(t, newTestClient("", true).Send(context.Background(), notify.Message{Title: "x"}))
	assert.False(t, called)
}

func TestColorFor(t *testing.T) {
	tests := map[string]int{
		models.NotificationNewPayment:        ColorNewPayment,
		models.NotificationPrizeOpened:       ColorOpened,
		models.NotificationManualPrizeOpened: ColorOpened,
		models.NotificationDirectBoxOpened:   ColorOpened,
		models.NotificationPrizeDelivered:    ColorDelivered,
		models.NotificationPrizeCancelled:    ColorFailed,
		notify.TypeDailySummary:              ColorInfo,
	}

	for typ, want := range tests {
		assert.Equal(t, want, ColorFor(typ), typ)
	}
}
