package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/messaging/kafka"
)

// initKafkaProducer подключается к Kafka, когда брокеры заданы в конфигурации.
// Пустой список брокеров — штатный режим без публикации событий.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	if len(brokers) == 0 {
		logger.Info("kafka brokers are not configured, outbox publishing is disabled")
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokers)
	if err != nil {
		return nil, err
	}

	logger.WithField("brokers", brokers).Info("kafka producer initialized")
	return producer, nil
}

func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	}
}
