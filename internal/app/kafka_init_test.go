package app

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestInitKafkaProducer(t *testing.T) {
	logger := log.WithField("test", "kafka")

	tests := []struct {
		name    string
		brokers []string
		wantErr bool
	}{
		{name: "no brokers configured", brokers: nil, wantErr: false},
		{name: "unreachable broker", brokers: []string{"invalid-broker:9999"}, wantErr: true},
		{name: "several unreachable brokers", brokers: []string{"b1:9092", "b2:9092"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			producer, err := initKafkaProducer(tt.brokers, logger)

			if tt.wantErr && err == nil {
				t.Error("ожидалась ошибка подключения к брокерам")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("не ожидалась ошибка: %v", err)
			}
			if producer != nil {
				t.Error("producer должен быть nil без доступных брокеров")
			}
		})
	}
}

func TestCloseKafka_NilProducer(t *testing.T) {
	// Не должно паниковать.
	closeKafka(nil, log.WithField("test", "kafka"))
}
