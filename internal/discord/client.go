// Package discord provides a webhook client for sending admin alerts to Discord.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aimd54/mystery-box/internal/config"
	"github.com/aimd54/mystery-box/internal/models"
	"github.com/aimd54/mystery-box/internal/notify"
	"github.com/aimd54/mystery-box/pkg/logger"
)

// Embed colors per alert type.
const (
	ColorNewPayment = 0x00ff00
	ColorOpened     = 0xffa500
	ColorDelivered  = 0x008000
	ColorFailed     = 0xff0000
	ColorInfo       = 0x0099ff
)

// Client handles Discord webhook notifications.
type Client struct {
	webhookURL string
	username   string
	avatarURL  string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Discord client.
func NewClient(cfg *config.DiscordConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		username:   cfg.Username,
		avatarURL:  cfg.AvatarURL,
		enabled:    cfg.Enabled && cfg.WebhookURL != "",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// WebhookPayload is the body Discord accepts on a webhook URL.
type WebhookPayload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// Embed is a rich message block.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

// EmbedField represents an embed field.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents an embed footer.
type EmbedFooter struct {
	Text string `json:"text"`
}

// ColorFor maps an alert type to its embed color.
func ColorFor(notificationType string) int {
	switch notificationType {
	case models.NotificationNewPayment:
		return ColorNewPayment
	case models.NotificationPrizeOpened, models.NotificationManualPrizeOpened, models.NotificationDirectBoxOpened:
		return ColorOpened
	case models.NotificationPrizeDelivered:
		return ColorDelivered
	case models.NotificationPrizeCancelled:
		return ColorFailed
	default:
		return ColorInfo
	}
}

// Send renders an outbox message as an embed and posts it. It satisfies notify.Sink.
func (c *Client) Send(ctx context.Context, msg notify.Message) error {
	if !c.enabled {
		c.log.Debug().
			Str("type", msg.Type).
			Str("title", msg.Title).
			Msg("Discord is disabled, skipping message")
		return nil
	}

	created := msg.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	embed := Embed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       ColorFor(msg.Type),
		Timestamp:   created.UTC().Format(time.RFC3339),
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if msg.Type == models.NotificationNewPayment {
		embed.Footer = &EmbedFooter{Text: "Open the admin panel to open the prize"}
	}

	return c.SendPayload(ctx, &WebhookPayload{
		Content: msg.Headline,
		Embeds:  []Embed{embed},
	})
}

// SendPayload posts a raw webhook payload.
func (c *Client) SendPayload(ctx context.Context, payload *WebhookPayload) error {
	if payload.Username == "" {
		payload.Username = c.username
	}
	if payload.AvatarURL == "" {
		payload.AvatarURL = c.avatarURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Discord: %w", err)
	}
	defer resp.Body.Close()

	// Discord answers 204 unless ?wait=true is set.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Int("embeds", len(payload.Embeds)).
		Msg("Sent message to Discord")

	return nil
}
