// Package service implements check-in validation: it turns a submitted
// (round, identity, location, time) into an authoritative attendance record.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	attdomain "rollcall/backend/internal/attendance/domain"
	attrepo "rollcall/backend/internal/attendance/repository"
	"rollcall/backend/internal/events"
	"rollcall/backend/internal/geo"
	"rollcall/backend/internal/qrtoken"
	rounddomain "rollcall/backend/internal/round/domain"
	sessiondomain "rollcall/backend/internal/session/domain"
	"rollcall/backend/internal/telemetry"
)

// Sentinel errors for check-in; the handler maps them to structured reasons.
var (
	ErrRoundNotFound      = errors.New("round not found")
	ErrDuplicateCheckIn   = errors.New("already checked in for this round")
	ErrTimeWindowExceeded = errors.New("round is not open for check-in")
	ErrOutOfRange         = errors.New("location is outside the session area")
	ErrTokenInvalid       = errors.New("check-in token is invalid or expired")
	ErrMissingIdentity    = errors.New("participant id or display name required")
)

// RoundGetter is the minimal round lookup needed by check-in.
type RoundGetter interface {
	GetByID(ctx context.Context, id string) (*rounddomain.Round, error)
}

// SessionGetter is the minimal session lookup needed by check-in.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
}

// AttendanceRepo is the minimal attendance repository needed by check-in.
type AttendanceRepo interface {
	Exists(ctx context.Context, roundID, attendeeKey string) (bool, error)
	Create(ctx context.Context, a *attdomain.Attendance) error
}

// Request is one check-in submission. ParticipantID is set for authenticated
// participants; anonymous participants supply DisplayName instead. Token is
// the scanned rolling token; when present it is verified against the current
// window so a stale screenshot fails even inside the round's time window.
type Request struct {
	RoundID       string
	ParticipantID string
	DisplayName   string
	Location      geo.Point
	Token         string
}

// Result is a successful check-in verdict.
type Result struct {
	AttendanceID     string
	Status           attdomain.Status
	AwardedPoints    int
	CheckedAt        time.Time
	RemainingSeconds int64
}

// CheckIn validates submissions and persists attendance records.
type CheckIn struct {
	rounds    RoundGetter
	sessions  SessionGetter
	records   AttendanceRepo
	issuer    *qrtoken.Issuer
	lateAfter time.Duration
	producer  events.Producer
	metrics   *telemetry.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewCheckIn returns a check-in validator. producer and metrics may be nil.
func NewCheckIn(
	rounds RoundGetter,
	sessions SessionGetter,
	records AttendanceRepo,
	issuer *qrtoken.Issuer,
	lateAfter time.Duration,
	producer events.Producer,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *CheckIn {
	return &CheckIn{
		rounds:    rounds,
		sessions:  sessions,
		records:   records,
		issuer:    issuer,
		lateAfter: lateAfter,
		producer:  producer,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Do runs the ordered checks and, on success, persists exactly one attendance
// row. Checks short-circuit: round exists, no prior record, round ACTIVE
// (recomputed from wall-clock time, never the cached status), token current,
// inside the geofence. Lateness only downgrades the verdict, never rejects.
//
// The duplicate pre-check gives fast feedback; the storage uniqueness
// constraint settles concurrent races, so the loser still gets
// ErrDuplicateCheckIn rather than a generic failure.
func (c *CheckIn) Do(ctx context.Context, req Request) (*Result, error) {
	attendeeKey, displayName, err := attendeeIdentity(req)
	if err != nil {
		return nil, err
	}

	round, err := c.rounds.GetByID(ctx, req.RoundID)
	if err != nil {
		return nil, err
	}
	if round == nil {
		c.metrics.RecordCheckIn(ctx, "not_found")
		return nil, ErrRoundNotFound
	}

	exists, err := c.records.Exists(ctx, round.ID, attendeeKey)
	if err != nil {
		return nil, err
	}
	if exists {
		c.metrics.RecordCheckIn(ctx, "duplicate")
		return nil, ErrDuplicateCheckIn
	}

	now := c.now()
	if round.ComputeStatus(now) != rounddomain.StatusActive {
		c.metrics.RecordCheckIn(ctx, "time_window")
		return nil, ErrTimeWindowExceeded
	}

	if req.Token != "" && !c.issuer.Verify(round.ID, round.Secret, req.Token, now) {
		c.metrics.RecordCheckIn(ctx, "token_invalid")
		return nil, ErrTokenInvalid
	}

	session, err := c.sessions.GetByID(ctx, round.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		// Round without a session should not exist (FK), treat as missing round.
		return nil, ErrRoundNotFound
	}
	if !session.Fence.Contains(req.Location) {
		c.metrics.RecordCheckIn(ctx, "out_of_range")
		return nil, ErrOutOfRange
	}

	status := attdomain.StatusPresent
	if now.Sub(round.StartAt()) > c.lateAfter {
		status = attdomain.StatusLate
	}

	record := &attdomain.Attendance{
		ID:          uuid.New().String(),
		RoundID:     round.ID,
		AttendeeKey: attendeeKey,
		DisplayName: displayName,
		Status:      status,
		Points:      session.RewardPoints,
		Location:    req.Location,
		CheckedAt:   now,
	}
	if err := c.records.Create(ctx, record); err != nil {
		if errors.Is(err, attrepo.ErrDuplicate) {
			c.metrics.RecordCheckIn(ctx, "duplicate")
			return nil, ErrDuplicateCheckIn
		}
		return nil, err
	}

	c.metrics.RecordCheckIn(ctx, string(status))
	events.EmitAsync(c.producer, c.log, &events.Event{
		Type:      events.TypeCheckIn,
		SessionID: session.ID,
		RoundID:   round.ID,
		Attendee:  attendeeKey,
		Status:    string(status),
		Points:    session.RewardPoints,
		CreatedAt: now.UTC(),
	})
	c.log.Info("check-in recorded",
		zap.String("round_id", round.ID),
		zap.String("attendee", attendeeKey),
		zap.String("status", string(status)))

	return &Result{
		AttendanceID:     record.ID,
		Status:           status,
		AwardedPoints:    session.RewardPoints,
		CheckedAt:        now,
		RemainingSeconds: round.RemainingSeconds(now),
	}, nil
}

// attendeeIdentity resolves the duplicate-prevention key: the user id for
// authenticated participants, the trimmed display name for anonymous ones.
func attendeeIdentity(req Request) (key, displayName string, err error) {
	if req.ParticipantID != "" {
		return req.ParticipantID, strings.TrimSpace(req.DisplayName), nil
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return "", "", ErrMissingIdentity
	}
	return name, name, nil
}
