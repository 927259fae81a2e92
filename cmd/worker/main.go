// Command worker consumes attendance events from Kafka and forwards them to
// Grafana Loki for retention and querying.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"rollcall/backend/internal/config"
	"rollcall/backend/internal/events/loki"
	"rollcall/backend/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, "rollcall-worker")
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("KAFKA_BROKERS must be set for the event worker")
	}
	if cfg.LokiURL == "" {
		log.Fatal("LOKI_URL must be set for the event worker")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   cfg.AttendanceKafkaTopic,
		GroupID: cfg.KafkaGroupID,
	})
	defer func() { _ = reader.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("event worker running",
		zap.Strings("brokers", brokers),
		zap.String("topic", cfg.AttendanceKafkaTopic),
		zap.String("group", cfg.KafkaGroupID))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("event worker stopped")
				return
			}
			log.Warn("kafka read failed", zap.Error(err))
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = loki.PushEventJSON(pushCtx, cfg.LokiURL, msg.Value)
		cancel()
		if err != nil {
			// The message is already committed; losing one log line beats
			// wedging the partition behind an unavailable Loki.
			log.Warn("loki push failed",
				zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}
