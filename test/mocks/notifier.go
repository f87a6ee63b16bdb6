package mocks

import (
	"context"
	"sync"

	"github.com/aimd54/mystery-box/internal/notify"
)

// MockNotifier records queued alerts instead of sending them to Redis.
type MockNotifier struct {
	EnqueueFunc func(ctx context.Context, msg notify.Message) error

	mu       sync.Mutex
	messages []notify.Message
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Enqueue records the message, or delegates to EnqueueFunc when set.
func (m *MockNotifier) Enqueue(ctx context.Context, msg notify.Message) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of everything enqueued so far.
func (m *MockNotifier) Messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notify.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Types returns the type of every enqueued message, in order.
func (m *MockNotifier) Types() []string {
	msgs := m.Messages()
	types := make([]string, len(msgs))
	for i, msg := range msgs {
		types[i] = msg.Type
	}
	return types
}
