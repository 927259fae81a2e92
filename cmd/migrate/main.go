// Command migrate applies or rolls back the embedded database migrations.
//
// Usage: migrate [up|down]  (default up)
package main

import (
	"os"

	"go.uber.org/zap"

	"rollcall/backend/internal/config"
	"rollcall/backend/internal/db/migrate"
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
	}, "rollcall-migrate")
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		log.Fatal("migration failed", zap.String("direction", direction), zap.Error(err))
	}
	log.Info("migrations applied", zap.String("direction", direction))
}
