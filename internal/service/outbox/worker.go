// Package outbox публикует события заказов из transactional outbox в брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
)

var (
	outboxPublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_outbox_publish_attempts_total",
		Help: "Total number of outbox publish attempts grouped by result.",
	}, []string{"result"})
	outboxPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_outbox_pending_records",
		Help: "Current number of pending records in transactional outbox.",
	})
	outboxOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending outbox record.",
	})
)

// WorkerOptions задаёт параметры outbox worker.
type WorkerOptions struct {
	Logger         *log.Entry
	DLQPublisher   domain.OutboxPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

func (o *WorkerOptions) normalize() {
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.RetryBaseDelay < 0 {
		o.RetryBaseDelay = 0
	}
	if o.Logger == nil {
		o.Logger = log.WithField("component", "outbox-worker")
	}
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *WorkerOptions) {
		opts.Logger = logger
	}
}

// WithDLQPublisher задаёт publisher для отправки в DLQ после исчерпания retry.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(opts *WorkerOptions) {
		opts.DLQPublisher = publisher
	}
}

// WithPollInterval задаёт частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.PollInterval = interval
	}
}

// WithBatchSize задаёт размер батча из outbox.
func WithBatchSize(batchSize int) Option {
	return func(opts *WorkerOptions) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAttempts задаёт число попыток публикации перед failed/DLQ.
func WithMaxAttempts(maxAttempts int) Option {
	return func(opts *WorkerOptions) {
		opts.MaxAttempts = maxAttempts
	}
}

// WithRetryBaseDelay задаёт базовый delay для exponential backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.RetryBaseDelay = delay
	}
}

// Worker публикует pending-сообщения из outbox в брокер.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	opts      WorkerOptions
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	var opts WorkerOptions
	for _, option := range options {
		option(&opts)
	}
	opts.normalize()

	return &Worker{
		repo:      repo,
		publisher: publisher,
		opts:      opts,
	}
}

// Run запускает периодический polling outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.opts.Logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce вытягивает один батч pending-сообщений и публикует его.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.updateBacklogGauges()

	batch, err := w.repo.PullPending(w.opts.BatchSize)
	if err != nil {
		w.opts.Logger.WithError(err).Warn("failed to pull pending outbox messages")
		return
	}

	for _, msg := range batch {
		if ctx.Err() != nil {
			return
		}
		if err := w.attemptPublish(ctx, msg); err != nil {
			w.handlePublishFailure(msg, err)
			continue
		}
		if err := w.repo.MarkSent(msg.ID); err != nil {
			w.opts.Logger.WithError(err).WithField("outbox_id", msg.ID).Warn("failed to mark outbox as sent")
		}
	}

	if len(batch) > 0 {
		w.updateBacklogGauges()
	}
}

// attemptPublish пытается опубликовать сообщение с exponential backoff.
func (w *Worker) attemptPublish(ctx context.Context, msg domain.OutboxMessage) error {
	var lastErr error

	for attempt := 1; attempt <= w.opts.MaxAttempts; attempt++ {
		if lastErr = w.publisher.Publish(msg); lastErr == nil {
			outboxPublishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		outboxPublishAttempts.WithLabelValues("retry_error").Inc()

		if attempt == w.opts.MaxAttempts {
			break
		}
		if delay := w.backoffDelay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("publish failed after %d attempts: %w", w.opts.MaxAttempts, lastErr)
}

func (w *Worker) handlePublishFailure(msg domain.OutboxMessage, pubErr error) {
	w.opts.Logger.WithError(pubErr).WithFields(log.Fields{
		"outbox_id":  msg.ID,
		"event_type": msg.EventType,
	}).Error("outbox publish failed after retries")
	outboxPublishAttempts.WithLabelValues("failed").Inc()

	if err := w.forwardToDLQ(msg, pubErr); err != nil {
		w.opts.Logger.WithError(err).WithField("outbox_id", msg.ID).Warn("failed to publish to DLQ")
		outboxPublishAttempts.WithLabelValues("dlq_failed").Inc()
	}
	if err := w.repo.MarkFailed(msg.ID); err != nil {
		w.opts.Logger.WithError(err).WithField("outbox_id", msg.ID).Warn("failed to mark outbox as failed")
	}
}

// forwardToDLQ заворачивает сообщение вместе с ошибкой публикации и шлёт в DLQ.
func (w *Worker) forwardToDLQ(msg domain.OutboxMessage, pubErr error) error {
	if w.opts.DLQPublisher == nil {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"outbox_id":        msg.ID,
		"aggregate_type":   msg.AggregateType,
		"aggregate_id":     msg.AggregateID,
		"event_type":       msg.EventType,
		"payload":          json.RawMessage(msg.Payload),
		"publish_error":    pubErr.Error(),
		"dlq_published_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal dlq payload: %w", err)
	}

	dlqMsg := msg
	dlqMsg.Payload = payload
	if err := w.opts.DLQPublisher.Publish(dlqMsg); err != nil {
		return fmt.Errorf("publish to dlq: %w", err)
	}
	return nil
}

func (w *Worker) updateBacklogGauges() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.opts.Logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	outboxPendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		outboxOldestPendingAge.Set(0)
		return
	}
	outboxOldestPendingAge.Set(max(time.Since(stats.OldestPendingAt).Seconds(), 0))
}

// backoffDelay растёт вдвое на каждую неудачную попытку.
func (w *Worker) backoffDelay(attempt int) time.Duration {
	base := w.opts.RetryBaseDelay
	if base <= 0 {
		return 0
	}
	// 1<<(attempt-1) при разумном maxAttempts не переполнится,
	// но от сконфигурированных крайностей защищаемся.
	if attempt > 32 {
		attempt = 32
	}
	return base * time.Duration(1<<(attempt-1))
}
