// Package sweeper refreshes the persisted round status cache so consumers
// that never subscribe to the live feed still see correct lifecycle states.
package sweeper

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"rollcall/backend/internal/events"
	rounddomain "rollcall/backend/internal/round/domain"
)

// RoundRepo is the minimal round repository needed by the sweeper.
type RoundRepo interface {
	ListUnclosed(ctx context.Context) ([]*rounddomain.Round, error)
	UpdateStatus(ctx context.Context, id string, status rounddomain.Status) error
}

// Sweeper persists UPCOMING→ACTIVE→CLOSED transitions derived from wall-clock
// time. It only refreshes the cache column; decision paths never depend on it.
type Sweeper struct {
	rounds   RoundRepo
	producer events.Producer
	log      *zap.Logger
	now      func() time.Time
}

// New returns a Sweeper. producer may be nil.
func New(rounds RoundRepo, producer events.Producer, log *zap.Logger) *Sweeper {
	return &Sweeper{rounds: rounds, producer: producer, log: log, now: time.Now}
}

// RunStatusMaintenance re-derives every open round's status and persists the
// ones that changed. Idempotent: a second run with the same clock is a no-op.
// One round's failure does not stop the rest; failures are joined and returned.
func (s *Sweeper) RunStatusMaintenance(ctx context.Context) error {
	rounds, err := s.rounds.ListUnclosed(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	var errs []error
	transitions := 0
	for _, r := range rounds {
		derived := r.ComputeStatus(now)
		if derived == r.Status {
			continue
		}
		if err := s.rounds.UpdateStatus(ctx, r.ID, derived); err != nil {
			s.log.Warn("status update failed",
				zap.String("round_id", r.ID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		transitions++
		s.log.Info("round status transition",
			zap.String("round_id", r.ID),
			zap.String("from", string(r.Status)),
			zap.String("to", string(derived)))
		switch derived {
		case rounddomain.StatusActive:
			s.emit(events.TypeRoundActive, r, now)
		case rounddomain.StatusClosed:
			s.emit(events.TypeRoundClosed, r, now)
		}
	}
	if transitions > 0 {
		s.log.Info("status maintenance complete", zap.Int("transitions", transitions))
	}
	return errors.Join(errs...)
}

func (s *Sweeper) emit(eventType string, r *rounddomain.Round, now time.Time) {
	events.EmitAsync(s.producer, s.log, &events.Event{
		Type:      eventType,
		SessionID: r.SessionID,
		RoundID:   r.ID,
		CreatedAt: now.UTC(),
	})
}
