// Command seed loads a demo organizer, session, and rounds for local
// development. Safe to rerun: it skips when the demo organizer exists.
package main

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rollcall/backend/internal/config"
	"rollcall/backend/internal/db"
	"rollcall/backend/internal/geo"
	organizerdomain "rollcall/backend/internal/organizer/domain"
	organizerrepo "rollcall/backend/internal/organizer/repository"
	"rollcall/backend/internal/platform/logger"
	rounddomain "rollcall/backend/internal/round/domain"
	roundrepo "rollcall/backend/internal/round/repository"
	"rollcall/backend/internal/security"
	sessiondomain "rollcall/backend/internal/session/domain"
	sessionrepo "rollcall/backend/internal/session/repository"
)

const (
	demoEmail    = "demo@rollcall.local"
	demoPassword = "demo-password"
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
	}, "rollcall-seed")
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	ctx := context.Background()
	organizers := organizerrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	rounds := roundrepo.NewPostgresRepository(database)

	existing, err := organizers.GetByEmail(ctx, demoEmail)
	if err != nil {
		log.Fatal("organizer lookup failed", zap.Error(err))
	}
	if existing != nil {
		log.Info("demo data already present, nothing to do", zap.String("email", demoEmail))
		return
	}

	hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(demoPassword))
	if err != nil {
		log.Fatal("password hash failed", zap.Error(err))
	}
	organizer := &organizerdomain.Organizer{
		ID:           uuid.New().String(),
		Email:        demoEmail,
		Name:         "Demo Organizer",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := organizers.Create(ctx, organizer); err != nil {
		log.Fatal("organizer create failed", zap.Error(err))
	}

	session := &sessiondomain.Session{
		ID:           uuid.New().String(),
		OrganizerID:  organizer.ID,
		Title:        "Weekly Standup",
		Visibility:   sessiondomain.VisibilityPublic,
		Status:       sessiondomain.StatusOpen,
		RewardPoints: 10,
		Fence: &geo.Fence{
			Center:  geo.Point{Lat: 52.520008, Lng: 13.404954},
			RadiusM: 150,
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := sessions.Create(ctx, session); err != nil {
		log.Fatal("session create failed", zap.Error(err))
	}

	// One round starting now (ACTIVE for 30 minutes) and one tomorrow.
	now := time.Now()
	today := rounddomain.Round{
		SessionID: session.ID,
		Date:      now,
		StartTime: rounddomain.ClockTime{
			Hour: now.Hour(), Minute: now.Minute(), Second: now.Second(),
		},
		AllowedMinutes: 30,
	}
	tomorrow := rounddomain.Round{
		SessionID:      session.ID,
		Date:           now.AddDate(0, 0, 1),
		StartTime:      rounddomain.ClockTime{Hour: 9, Minute: 0},
		AllowedMinutes: 30,
	}
	for _, r := range []rounddomain.Round{today, tomorrow} {
		r.ID = uuid.New().String()
		r.Secret = make([]byte, 32)
		if _, err := rand.Read(r.Secret); err != nil {
			log.Fatal("secret generation failed", zap.Error(err))
		}
		r.Status = r.ComputeStatus(now)
		r.CreatedAt = now.UTC()
		if err := rounds.Create(ctx, &r); err != nil {
			log.Fatal("round create failed", zap.Error(err))
		}
	}

	log.Info("demo data seeded",
		zap.String("email", demoEmail),
		zap.String("session_id", session.ID))
}
