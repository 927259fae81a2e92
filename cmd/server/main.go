// Command server runs the rollcall HTTP API: auth, session and round
// management, public check-in, and the live QR token stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	attendancehandler "rollcall/backend/internal/attendance/handler"
	attendancerepo "rollcall/backend/internal/attendance/repository"
	attendanceservice "rollcall/backend/internal/attendance/service"
	"rollcall/backend/internal/config"
	"rollcall/backend/internal/db"
	"rollcall/backend/internal/events"
	"rollcall/backend/internal/live"
	livehandler "rollcall/backend/internal/live/handler"
	organizerhandler "rollcall/backend/internal/organizer/handler"
	organizerrepo "rollcall/backend/internal/organizer/repository"
	organizerservice "rollcall/backend/internal/organizer/service"
	"rollcall/backend/internal/platform/logger"
	"rollcall/backend/internal/platform/rbac"
	"rollcall/backend/internal/qrtoken"
	roundhandler "rollcall/backend/internal/round/handler"
	roundrepo "rollcall/backend/internal/round/repository"
	"rollcall/backend/internal/security"
	"rollcall/backend/internal/server"
	sessionhandler "rollcall/backend/internal/session/handler"
	sessionrepo "rollcall/backend/internal/session/repository"
	"rollcall/backend/internal/telemetry"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, "rollcall-server")
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.NewProviders(ctx, cfg.OTLPEndpoint, "rollcall-server")
	if err != nil {
		log.Fatal("telemetry init failed", zap.Error(err))
	}
	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatal("telemetry instruments failed", zap.Error(err))
	}

	producer, err := events.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AttendanceKafkaTopic, log)
	if err != nil {
		log.Fatal("kafka producer failed", zap.Error(err))
	}
	if producer != nil {
		defer func() { _ = producer.Close() }()
	}

	organizers := organizerrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	rounds := roundrepo.NewPostgresRepository(database)
	attendances := attendancerepo.NewPostgresRepository(database)

	hasher := security.NewHasher(cfg.BcryptCost)
	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTTL())
	issuer := qrtoken.NewIssuer(cfg.TokenWindow())

	auth := organizerservice.NewAuthService(organizers, hasher, tokens)
	checkin := attendanceservice.NewCheckIn(
		rounds, sessions, attendances, issuer, cfg.LateAfter(), producer, metrics, log)
	hub := live.NewHub(
		rounds, rbac.NewChecker(sessions), issuer, cfg.QRBaseURL, cfg.Keepalive(), metrics, log)

	router := server.NewRouter(cfg.Env, database, tokens, server.Handlers{
		Organizers:  organizerhandler.New(auth),
		Sessions:    sessionhandler.New(sessions),
		Rounds:      roundhandler.New(rounds, sessions),
		Attendances: attendancehandler.New(checkin, attendances, rounds, sessions),
		Live:        livehandler.New(hub),
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	// Drain the hub first: closing the subscription channels unblocks the
	// SSE handlers, which srv.Shutdown then waits on.
	if err := hub.Shutdown(graceCtx); err != nil {
		log.Warn("hub shutdown incomplete", zap.Error(err))
	}
	if err := srv.Shutdown(graceCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	if err := providers.Shutdown(graceCtx); err != nil {
		log.Warn("telemetry shutdown incomplete", zap.Error(err))
	}
	log.Info("shutdown complete")
}
