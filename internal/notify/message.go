// Package notify queues outbound admin alerts in Redis and delivers them to a sink.
package notify

import (
	"context"
	"time"
)

// Alert kinds beyond the claim lifecycle notification types.
const (
	TypeDailySummary = "DAILY_SUMMARY"
)

// Field is a labelled value rendered alongside the alert.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Message is one outbound alert.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Headline  string    `json:"headline,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Fields    []Field   `json:"fields,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
}

// Sink delivers a message to its final destination.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}
