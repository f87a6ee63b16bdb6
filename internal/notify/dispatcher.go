package notify

import (
	"context"
	"time"

	"github.com/aimd54/mystery-box/internal/metrics"
	"github.com/aimd54/mystery-box/pkg/logger"
)

const maxBackoff = 10 * time.Minute

// Dispatcher drains the outbox into a sink. Delivery is at-least-once: a
// message that fails is retried with exponential backoff until maxAttempts,
// then dead-lettered. A send cut short by shutdown is requeued without
// spending an attempt.
type Dispatcher struct {
	queue        *Queue
	sink         Sink
	maxAttempts  int
	baseBackoff  time.Duration
	pollInterval time.Duration
	log          *logger.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(queue *Queue, sink Sink, maxAttempts int, baseBackoff, pollInterval time.Duration, log *logger.Logger) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Dispatcher{
		queue:        queue,
		sink:         sink,
		maxAttempts:  maxAttempts,
		baseBackoff:  baseBackoff,
		pollInterval: pollInterval,
		log:          log,
	}
}

// Run blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.log.Info().
		Str("queue", d.queue.pendingKey()).
		Int("max_attempts", d.maxAttempts).
		Msg("Notification dispatcher started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.queue.PromoteDue(ctx); err != nil && ctx.Err() == nil {
			d.log.Error().Err(err).Msg("Failed to promote due notifications")
		}

		// Drain everything currently pending before sleeping.
		for ctx.Err() == nil {
			processed, err := d.ProcessOne(ctx)
			if err != nil {
				d.log.Error().Err(err).Msg("Notification dispatch error")
				break
			}
			if !processed {
				break
			}
		}

		if _, err := d.queue.Depth(ctx); err != nil && ctx.Err() == nil {
			d.log.Warn().Err(err).Msg("Failed to read notification queue depth")
		}

		select {
		case <-ctx.Done():
			d.log.Info().Msg("Notification dispatcher stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessOne delivers the oldest pending message, if any.
func (d *Dispatcher) ProcessOne(ctx context.Context) (bool, error) {
	msg, raw, ok, err := d.queue.pop(ctx)
	if !ok {
		return false, err
	}
	if err != nil {
		// Poison payload; keep it for inspection and move on.
		metrics.RecordNotificationFailed("decode")
		if dlqErr := d.queue.deadLetter(ctx, []byte(raw)); dlqErr != nil {
			return true, dlqErr
		}
		d.log.Error().Err(err).Msg("Dead-lettered undecodable notification")
		return true, nil
	}

	start := time.Now()
	sendErr := d.sink.Send(ctx, msg)
	metrics.ObserveNotificationDelivery(time.Since(start).Seconds())

	if sendErr == nil {
		metrics.RecordNotificationSent(msg.Type)
		d.log.Debug().
			Str("notification_id", msg.ID).
			Str("type", msg.Type).
			Int("attempt", msg.Attempts+1).
			Msg("Notification delivered")
		return true, nil
	}

	if ctx.Err() != nil {
		// Interrupted by shutdown: hand the message back untouched for the next run.
		if err := d.queue.requeue(context.WithoutCancel(ctx), raw); err != nil {
			return true, err
		}
		d.log.Info().
			Str("notification_id", msg.ID).
			Str("type", msg.Type).
			Msg("Notification returned to queue on shutdown")
		return true, nil
	}

	msg.Attempts++
	msg.LastError = sendErr.Error()
	metrics.RecordNotificationFailed("sink_error")

	if msg.Attempts >= d.maxAttempts {
		d.log.Error().
			Err(sendErr).
			Str("notification_id", msg.ID).
			Str("type", msg.Type).
			Int("attempts", msg.Attempts).
			Msg("Notification exhausted retries, moving to dead-letter list")
		payload, encErr := encode(msg)
		if encErr != nil {
			return true, encErr
		}
		return true, d.queue.deadLetter(ctx, payload)
	}

	delay := d.backoff(msg.Attempts)
	d.log.Warn().
		Err(sendErr).
		Str("notification_id", msg.ID).
		Str("type", msg.Type).
		Int("attempt", msg.Attempts).
		Dur("retry_in", delay).
		Msg("Notification delivery failed, scheduling retry")
	return true, d.queue.scheduleRetry(ctx, msg, delay)
}

// backoff doubles per attempt: base, 2*base, 4*base, ...
func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.baseBackoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
