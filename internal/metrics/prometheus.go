// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the mystery box service.
var (
	// Claim lifecycle.
	ClaimTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prize_claim_transitions_total",
			Help: "Total claim lifecycle operations by outcome",
		},
		[]string{"operation", "status"},
	)

	PrizesAllocatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prizes_allocated_total",
			Help: "Total prizes allocated by selection mode and glow tier",
		},
		[]string{"mode", "glow"},
	)

	PrizeValueAllocatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prize_value_allocated_minor_units_total",
			Help: "Sum of allocated prize values in minor currency units",
		},
	)

	ClaimsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prize_claims",
			Help: "Current number of prize claims per status",
		},
		[]string{"status"},
	)

	// Payments.
	PaymentsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_received_total",
			Help: "Total completed checkout payments recorded",
		},
		[]string{"currency"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "Total payment processor webhook events by type and result",
		},
		[]string{"type", "result"},
	)

	// Notification outbox.
	NotificationsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_enqueued_total",
			Help: "Total outbound notifications queued",
		},
		[]string{"type"},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total outbound notifications delivered to the sink",
		},
		[]string{"type"},
	)

	NotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total failed notification attempts",
		},
		[]string{"reason"},
	)

	NotificationsDeadLetteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dead_lettered_total",
			Help: "Total notifications moved to the dead-letter list",
		},
	)

	NotificationQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Current number of notifications per queue",
		},
		[]string{"queue"},
	)

	NotificationDeliverySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notification_delivery_seconds",
			Help:    "Time taken to deliver a notification to the sink",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8), // 50ms to ~6s
		},
	)

	// HTTP.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler run",
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute the daily summary job",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 8), // 100ms to ~13s
		},
	)
)

// RecordClaimTransition records a lifecycle operation outcome.
func RecordClaimTransition(operation, status string) {
	ClaimTransitionsTotal.WithLabelValues(operation, status).Inc()
}

// RecordPrizeAllocated records an allocated prize.
func RecordPrizeAllocated(mode, glow string, value int64) {
	PrizesAllocatedTotal.WithLabelValues(mode, glow).Inc()
	if value > 0 {
		PrizeValueAllocatedTotal.Add(float64(value))
	}
}

// SetClaimsByStatus sets the current claim count for a status.
func SetClaimsByStatus(status string, count int64) {
	ClaimsByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordPaymentReceived records a recorded payment.
func RecordPaymentReceived(currency string) {
	PaymentsReceivedTotal.WithLabelValues(currency).Inc()
}

// RecordWebhookEvent records a processed webhook event.
func RecordWebhookEvent(eventType, result string) {
	WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// RecordNotificationEnqueued records a queued notification.
func RecordNotificationEnqueued(notificationType string) {
	NotificationsEnqueuedTotal.WithLabelValues(notificationType).Inc()
}

// RecordNotificationSent records a delivered notification.
func RecordNotificationSent(notificationType string) {
	NotificationsSentTotal.WithLabelValues(notificationType).Inc()
}

// RecordNotificationFailed records a failed notification attempt.
func RecordNotificationFailed(reason string) {
	NotificationsFailedTotal.WithLabelValues(reason).Inc()
}

// RecordNotificationDeadLettered records a notification given up on.
func RecordNotificationDeadLettered() {
	NotificationsDeadLetteredTotal.Inc()
}

// SetNotificationQueueDepth sets the current depth of a queue.
func SetNotificationQueueDepth(queue string, depth int64) {
	NotificationQueueDepth.WithLabelValues(queue).Set(float64(depth))
}

// ObserveNotificationDelivery observes the duration of a sink call.
func ObserveNotificationDelivery(seconds float64) {
	NotificationDeliverySeconds.Observe(seconds)
}

// ObserveHTTPRequest observes a served request.
func ObserveHTTPRequest(method, route, code string, seconds float64) {
	HTTPRequestDurationSeconds.WithLabelValues(method, route, code).Observe(seconds)
}

// RecordSchedulerJobRun records a scheduler job execution.
func RecordSchedulerJobRun(status string) {
	SchedulerJobsRunTotal.WithLabelValues(status).Inc()
}

// SetSchedulerLastRun sets the timestamp of the last scheduler run.
func SetSchedulerLastRun() {
	SchedulerLastRunTimestamp.SetToCurrentTime()
}

// ObserveSchedulerJobDuration observes the duration of a scheduler job.
func ObserveSchedulerJobDuration(seconds float64) {
	SchedulerJobDurationSeconds.Observe(seconds)
}
