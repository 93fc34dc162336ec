package auth

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

const (
	defaultCleanupInterval  = 15 * time.Minute
	defaultCleanupBatchSize = 500
)

var (
	sessionCleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_session_cleanup_runs_total",
		Help: "Total number of session cleanup runs grouped by result.",
	}, []string{"result"})
	sessionCleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_session_cleanup_deleted_total",
		Help: "Total number of deleted expired sessions.",
	})
	sessionCleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_session_cleanup_last_deleted",
		Help: "Number of deleted sessions during the last cleanup run.",
	})
)

// CleanupOptions задаёт параметры воркера очистки просроченных сессий.
type CleanupOptions struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

func (o *CleanupOptions) normalize() {
	if o.Interval <= 0 {
		o.Interval = defaultCleanupInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultCleanupBatchSize
	}
	if o.Logger == nil {
		o.Logger = log.WithField("component", "session-cleanup-worker")
	}
}

// CleanupOption настраивает CleanupWorker.
type CleanupOption func(*CleanupOptions)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между cleanup-циклами.
func WithInterval(interval time.Duration) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер batch для одного удаления.
func WithBatchSize(batchSize int) CleanupOption {
	return func(opts *CleanupOptions) {
		opts.BatchSize = batchSize
	}
}

// CleanupWorker периодически удаляет просроченные сессии.
type CleanupWorker struct {
	sessions  domain.SessionRepository
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewCleanupWorker создаёт воркер очистки сессий.
func NewCleanupWorker(sessions domain.SessionRepository, options ...CleanupOption) *CleanupWorker {
	var opts CleanupOptions
	for _, option := range options {
		option(&opts)
	}
	opts.normalize()

	return &CleanupWorker{
		sessions:  sessions,
		logger:    opts.Logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую очистку до отмены ctx.
func (w *CleanupWorker) Run(ctx context.Context) {
	if w.sessions == nil {
		w.logger.Warn("session cleanup worker is disabled: repo is nil")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.cleanup(ctx, time.Now().UTC())

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *CleanupWorker) cleanup(ctx context.Context, before time.Time) {
	deleted, err := w.DeleteExpired(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		sessionCleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("session cleanup run failed")
		return
	}

	sessionCleanupRunsTotal.WithLabelValues("ok").Inc()
	sessionCleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("session cleanup completed")
	}
}

// DeleteExpired удаляет все сессии с ttl <= before порциями batchSize.
func (w *CleanupWorker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return totalDeleted, err
		}

		deleted, err := w.sessions.DeleteExpired(before, w.batchSize)
		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted > 0 {
			sessionCleanupDeletedTotal.Add(float64(deleted))
		}

		if deleted < w.batchSize {
			break
		}
	}

	return totalDeleted, nil
}
