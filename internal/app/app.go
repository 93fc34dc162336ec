package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/Welison92/luestilo-backoffice/internal/health"
	"github.com/Welison92/luestilo-backoffice/internal/httpapi"
	"github.com/Welison92/luestilo-backoffice/internal/messaging/kafka"
	"github.com/Welison92/luestilo-backoffice/internal/service/auth"
	"github.com/Welison92/luestilo-backoffice/internal/service/catalog"
	"github.com/Welison92/luestilo-backoffice/internal/service/clients"
	"github.com/Welison92/luestilo-backoffice/internal/service/orders"
	"github.com/Welison92/luestilo-backoffice/internal/service/outbox"
	"github.com/Welison92/luestilo-backoffice/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает back-office и блокируется до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	repos, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := repos.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	files, err := initFileStore(cfg)
	if err != nil {
		return err
	}

	kafkaProducer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.WithError(err).Warn("kafka is unavailable, continuing without event publishing")
	}
	defer closeKafka(kafkaProducer, logger)

	authSvc := auth.New(
		repos.Users, repos.Clients, repos.Sessions,
		logger.WithField("component", "auth"),
		auth.WithAccessTTL(cfg.SessionAccessTTL),
		auth.WithRefreshTTL(cfg.SessionRefreshTTL),
	)
	reconciler := orders.NewReconciler(
		repos.Orders, repos.Products, repos.Clients, repos.History, repos.Outbox,
		logger.WithField("component", "orders"),
	)
	clientSvc := clients.New(repos.Clients, repos.Users, reconciler, logger.WithField("component", "clients"))
	catalogSvc := catalog.New(repos.Products, files, logger.WithField("component", "catalog"))

	server := httpapi.NewServer(httpapi.Options{
		Auth:       authSvc,
		Clients:    clientSvc,
		ClientRepo: repos.Clients,
		Catalog:    catalogSvc,
		Orders:     reconciler,
		Logger:     logger.WithField("component", "httpapi"),
		StaticDir:  files.Dir(),
	})

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if repos.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewStorageChecker("postgres", repos.Store))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	var workers sync.WaitGroup

	cleanupWorker := auth.NewCleanupWorker(
		repos.Sessions,
		auth.WithLogger(logger.WithField("component", "session-cleanup-worker")),
		auth.WithInterval(cfg.SessionCleanupInterval),
		auth.WithBatchSize(cfg.SessionCleanupBatchSize),
	)
	workers.Add(1)
	go func() {
		defer workers.Done()
		cleanupWorker.Run(ctx)
	}()

	if kafkaProducer != nil {
		outboxWorker := outbox.NewWorker(
			repos.Outbox,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		workers.Add(1)
		go func() {
			defer workers.Done()
			outboxWorker.Run(ctx)
		}()
	}

	apiSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		workers.Wait()
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		workers.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
