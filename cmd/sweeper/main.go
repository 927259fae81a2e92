// Command sweeper periodically persists round lifecycle transitions
// (UPCOMING→ACTIVE→CLOSED) on the schedule in SWEEP_SCHEDULE.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"rollcall/backend/internal/config"
	"rollcall/backend/internal/db"
	"rollcall/backend/internal/events"
	"rollcall/backend/internal/platform/logger"
	roundrepo "rollcall/backend/internal/round/repository"
	"rollcall/backend/internal/sweeper"
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
	}, "rollcall-sweeper")
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	producer, err := events.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AttendanceKafkaTopic, log)
	if err != nil {
		log.Fatal("kafka producer failed", zap.Error(err))
	}
	if producer != nil {
		defer func() { _ = producer.Close() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(roundrepo.NewPostgresRepository(database), producer, log)

	c := cron.New()
	_, err = c.AddFunc(cfg.SweepSchedule, func() {
		if err := sw.RunStatusMaintenance(ctx); err != nil {
			log.Warn("status maintenance run had failures", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("invalid SWEEP_SCHEDULE", zap.String("schedule", cfg.SweepSchedule), zap.Error(err))
	}

	// Run once immediately so a freshly deployed sweeper converges without
	// waiting for the first tick.
	if err := sw.RunStatusMaintenance(ctx); err != nil {
		log.Warn("initial maintenance run had failures", zap.Error(err))
	}

	c.Start()
	log.Info("sweeper running", zap.String("schedule", cfg.SweepSchedule))

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("sweeper stopped")
}
