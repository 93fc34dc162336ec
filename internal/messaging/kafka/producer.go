package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const clientID = "luestilo-backoffice"

// Producer — синхронный Kafka producer для событий бэк-офиса.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// NewProducer подключается к брокерам и настраивает идемпотентную публикацию.
func NewProducer(brokers []string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	// Идемпотентность требует не более одного in-flight запроса.
	cfg.Net.MaxOpenRequests = 1

	sp, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect kafka brokers: %w", err)
	}

	return &Producer{
		sync:   sp,
		logger: log.WithField("component", "kafka-producer"),
	}, nil
}

// Publish отправляет готовый payload в topic с ключом партиционирования key.
func (p *Producer) Publish(topic, key string, payload []byte, headers map[string]string) error {
	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: time.Now(),
	}
	for name, value := range headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{
			Key:   []byte(name),
			Value: []byte(value),
		})
	}

	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("kafka publish failed")
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("kafka message published")
	return nil
}

// Close останавливает producer.
func (p *Producer) Close() error {
	return p.sync.Close()
}
