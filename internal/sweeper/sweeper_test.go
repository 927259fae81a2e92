package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	rounddomain "rollcall/backend/internal/round/domain"
)

type fakeRounds struct {
	unclosed  []*rounddomain.Round
	updates   map[string]rounddomain.Status
	updateErr map[string]error
}

func newFakeRounds(rounds ...*rounddomain.Round) *fakeRounds {
	return &fakeRounds{
		unclosed:  rounds,
		updates:   make(map[string]rounddomain.Status),
		updateErr: make(map[string]error),
	}
}

func (f *fakeRounds) ListUnclosed(ctx context.Context) ([]*rounddomain.Round, error) {
	return f.unclosed, nil
}

func (f *fakeRounds) UpdateStatus(ctx context.Context, id string, status rounddomain.Status) error {
	if err := f.updateErr[id]; err != nil {
		return err
	}
	f.updates[id] = status
	return nil
}

func round(id, start string, cached rounddomain.Status) *rounddomain.Round {
	st, err := rounddomain.ParseClockTime(start)
	if err != nil {
		panic(err)
	}
	return &rounddomain.Round{
		ID:             id,
		SessionID:      "session-1",
		Date:           time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		StartTime:      st,
		AllowedMinutes: 30,
		Status:         cached,
	}
}

func sweeperAt(repo RoundRepo, clock string) *Sweeper {
	s := New(repo, nil, zap.NewNop())
	ts, err := time.Parse(time.RFC3339, "2026-03-02T"+clock+"Z")
	if err != nil {
		panic(err)
	}
	s.now = func() time.Time { return ts }
	return s
}

func TestRunStatusMaintenance_Transitions(t *testing.T) {
	repo := newFakeRounds(
		round("stays-upcoming", "14:00:00", rounddomain.StatusUpcoming),
		round("becomes-active", "10:00:00", rounddomain.StatusUpcoming),
		round("becomes-closed", "08:00:00", rounddomain.StatusActive),
	)
	s := sweeperAt(repo, "10:05:00")

	if err := s.RunStatusMaintenance(context.Background()); err != nil {
		t.Fatalf("RunStatusMaintenance: %v", err)
	}

	if _, ok := repo.updates["stays-upcoming"]; ok {
		t.Error("unchanged round should not be written")
	}
	if got := repo.updates["becomes-active"]; got != rounddomain.StatusActive {
		t.Errorf("becomes-active = %s, want ACTIVE", got)
	}
	if got := repo.updates["becomes-closed"]; got != rounddomain.StatusClosed {
		t.Errorf("becomes-closed = %s, want CLOSED", got)
	}
}

func TestRunStatusMaintenance_Idempotent(t *testing.T) {
	repo := newFakeRounds(round("r1", "10:00:00", rounddomain.StatusUpcoming))
	s := sweeperAt(repo, "10:05:00")

	if err := s.RunStatusMaintenance(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Simulate the persisted cache now matching the derived value.
	repo.unclosed[0].Status = rounddomain.StatusActive
	repo.updates = make(map[string]rounddomain.Status)

	if err := s.RunStatusMaintenance(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Errorf("second run wrote %d updates, want 0", len(repo.updates))
	}
}

func TestRunStatusMaintenance_PastDatedRoundCloses(t *testing.T) {
	r := round("old", "10:00:00", rounddomain.StatusUpcoming)
	r.Date = time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	repo := newFakeRounds(r)
	s := sweeperAt(repo, "09:00:00")

	if err := s.RunStatusMaintenance(context.Background()); err != nil {
		t.Fatalf("RunStatusMaintenance: %v", err)
	}
	if got := repo.updates["old"]; got != rounddomain.StatusClosed {
		t.Errorf("past-dated round = %s, want CLOSED", got)
	}
}

func TestRunStatusMaintenance_OneFailureDoesNotStopOthers(t *testing.T) {
	repo := newFakeRounds(
		round("failing", "10:00:00", rounddomain.StatusUpcoming),
		round("fine", "08:00:00", rounddomain.StatusActive),
	)
	repo.updateErr["failing"] = errors.New("db down")
	s := sweeperAt(repo, "10:05:00")

	err := s.RunStatusMaintenance(context.Background())
	if err == nil {
		t.Fatal("expected joined error for the failing round")
	}
	if got := repo.updates["fine"]; got != rounddomain.StatusClosed {
		t.Errorf("fine = %s, want CLOSED despite sibling failure", got)
	}
}
