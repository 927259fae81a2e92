package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	attdomain "rollcall/backend/internal/attendance/domain"
	attrepo "rollcall/backend/internal/attendance/repository"
	"rollcall/backend/internal/geo"
	"rollcall/backend/internal/qrtoken"
	rounddomain "rollcall/backend/internal/round/domain"
	sessiondomain "rollcall/backend/internal/session/domain"
)

type fakeRounds struct {
	rounds map[string]*rounddomain.Round
}

func (f *fakeRounds) GetByID(ctx context.Context, id string) (*rounddomain.Round, error) {
	return f.rounds[id], nil
}

type fakeSessions struct {
	sessions map[string]*sessiondomain.Session
}

func (f *fakeSessions) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	return f.sessions[id], nil
}

// fakeAttendances enforces the (round, attendee) uniqueness the way the
// Postgres constraint does, so race behavior can be tested in-memory.
type fakeAttendances struct {
	mu      sync.Mutex
	records map[string]*attdomain.Attendance // key: roundID + "/" + attendeeKey
}

func newFakeAttendances() *fakeAttendances {
	return &fakeAttendances{records: make(map[string]*attdomain.Attendance)}
}

func (f *fakeAttendances) Exists(ctx context.Context, roundID, attendeeKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[roundID+"/"+attendeeKey]
	return ok, nil
}

func (f *fakeAttendances) Create(ctx context.Context, a *attdomain.Attendance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := a.RoundID + "/" + a.AttendeeKey
	if _, ok := f.records[key]; ok {
		return attrepo.ErrDuplicate
	}
	f.records[key] = a
	return nil
}

const (
	testRoundID   = "round-1"
	testSessionID = "session-1"
)

var fenceCenter = geo.Point{Lat: 37.5665, Lng: 126.9780}

// newValidator builds a CheckIn over one round starting 2026-03-02 10:00:00 UTC,
// allowed 30 minutes, lateness threshold 5 minutes, 100m geofence, 10 points.
func newValidator(t *testing.T) (*CheckIn, *fakeAttendances) {
	t.Helper()
	start, _ := rounddomain.ParseClockTime("10:00:00")
	rounds := &fakeRounds{rounds: map[string]*rounddomain.Round{
		testRoundID: {
			ID:             testRoundID,
			SessionID:      testSessionID,
			Date:           time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			StartTime:      start,
			AllowedMinutes: 30,
			Secret:         []byte("0123456789abcdef0123456789abcdef"),
		},
	}}
	sessions := &fakeSessions{sessions: map[string]*sessiondomain.Session{
		testSessionID: {
			ID:           testSessionID,
			OrganizerID:  "org-1",
			Title:        "Morning standup",
			Visibility:   sessiondomain.VisibilityPublic,
			Status:       sessiondomain.StatusOpen,
			RewardPoints: 10,
			Fence:        &geo.Fence{Center: fenceCenter, RadiusM: 100},
		},
	}}
	records := newFakeAttendances()
	v := NewCheckIn(rounds, sessions, records, qrtoken.NewIssuer(20*time.Second),
		5*time.Minute, nil, nil, zap.NewNop())
	return v, records
}

func withClock(v *CheckIn, clock string) *CheckIn {
	ts, err := time.Parse(time.RFC3339, "2026-03-02T"+clock+"Z")
	if err != nil {
		panic(err)
	}
	v.now = func() time.Time { return ts }
	return v
}

func req(name string) Request {
	return Request{RoundID: testRoundID, DisplayName: name, Location: fenceCenter}
}

func TestCheckIn_PresentWithinThreshold(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")

	res, err := v.Do(context.Background(), req("alice"))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Status != attdomain.StatusPresent {
		t.Errorf("Status = %s, want PRESENT", res.Status)
	}
	if res.AwardedPoints != 10 {
		t.Errorf("AwardedPoints = %d, want 10", res.AwardedPoints)
	}
	if res.RemainingSeconds != 28*60 {
		t.Errorf("RemainingSeconds = %d, want %d", res.RemainingSeconds, 28*60)
	}
}

func TestCheckIn_LateAfterThreshold(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:07:00")

	res, err := v.Do(context.Background(), req("alice"))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if res.Status != attdomain.StatusLate {
		t.Errorf("Status = %s, want LATE", res.Status)
	}
}

func TestCheckIn_RejectedAfterWindow(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:31:00")

	if _, err := v.Do(context.Background(), req("alice")); !errors.Is(err, ErrTimeWindowExceeded) {
		t.Errorf("err = %v, want ErrTimeWindowExceeded", err)
	}
}

func TestCheckIn_RejectedBeforeStart(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "09:59:00")

	if _, err := v.Do(context.Background(), req("alice")); !errors.Is(err, ErrTimeWindowExceeded) {
		t.Errorf("err = %v, want ErrTimeWindowExceeded", err)
	}
}

func TestCheckIn_PastDatedRoundRejected(t *testing.T) {
	v, _ := newValidator(t)
	ts := time.Date(2026, 3, 3, 10, 5, 0, 0, time.UTC) // right time of day, next day
	v.now = func() time.Time { return ts }

	if _, err := v.Do(context.Background(), req("alice")); !errors.Is(err, ErrTimeWindowExceeded) {
		t.Errorf("err = %v, want ErrTimeWindowExceeded for past-dated round", err)
	}
}

func TestCheckIn_Duplicate(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")
	if _, err := v.Do(context.Background(), req("alice")); err != nil {
		t.Fatalf("first Do: %v", err)
	}

	withClock(v, "10:03:00")
	if _, err := v.Do(context.Background(), req("alice")); !errors.Is(err, ErrDuplicateCheckIn) {
		t.Errorf("err = %v, want ErrDuplicateCheckIn", err)
	}
}

func TestCheckIn_ConcurrentDuplicateRace(t *testing.T) {
	v, records := newValidator(t)
	withClock(v, "10:02:00")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = v.Do(context.Background(), req("alice"))
		}(i)
	}
	wg.Wait()

	var wins, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrDuplicateCheckIn):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if duplicates != attempts-1 {
		t.Errorf("duplicates = %d, want %d", duplicates, attempts-1)
	}
	if len(records.records) != 1 {
		t.Errorf("stored records = %d, want 1", len(records.records))
	}
}

func TestCheckIn_OutOfRange(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")

	r := req("alice")
	r.Location = geo.Point{Lat: fenceCenter.Lat + 0.01, Lng: fenceCenter.Lng}
	if _, err := v.Do(context.Background(), r); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}

func TestCheckIn_ExactCenterAccepted(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")

	if _, err := v.Do(context.Background(), req("alice")); err != nil {
		t.Errorf("check-in at exact center should pass, got %v", err)
	}
}

func TestCheckIn_UnknownRound(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")

	r := req("alice")
	r.RoundID = "missing"
	if _, err := v.Do(context.Background(), r); !errors.Is(err, ErrRoundNotFound) {
		t.Errorf("err = %v, want ErrRoundNotFound", err)
	}
}

func TestCheckIn_TokenVerification(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")

	r := req("alice")
	r.Token = "not-the-current-token-aa"
	if _, err := v.Do(context.Background(), r); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}

	// The token for the current window passes.
	now, _ := time.Parse(time.RFC3339, "2026-03-02T10:02:00Z")
	tok := qrtoken.NewIssuer(20*time.Second).Issue(testRoundID, []byte("0123456789abcdef0123456789abcdef"), now)
	r.Token = tok.Value
	if _, err := v.Do(context.Background(), r); err != nil {
		t.Errorf("current-window token should pass, got %v", err)
	}
}

func TestCheckIn_AnonymousKeyedOnDisplayName(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")

	if _, err := v.Do(context.Background(), req("  bob  ")); err != nil {
		t.Fatalf("first Do: %v", err)
	}
	// Same trimmed name is a duplicate; a different name is not.
	if _, err := v.Do(context.Background(), req("bob")); !errors.Is(err, ErrDuplicateCheckIn) {
		t.Errorf("err = %v, want ErrDuplicateCheckIn for same display name", err)
	}
	if _, err := v.Do(context.Background(), req("carol")); err != nil {
		t.Errorf("different display name should pass, got %v", err)
	}
}

func TestCheckIn_MissingIdentity(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")

	r := Request{RoundID: testRoundID, Location: fenceCenter, DisplayName: "   "}
	if _, err := v.Do(context.Background(), r); !errors.Is(err, ErrMissingIdentity) {
		t.Errorf("err = %v, want ErrMissingIdentity", err)
	}
}

func TestCheckIn_NoFenceSkipsLocationCheck(t *testing.T) {
	v, _ := newValidator(t)
	withClock(v, "10:02:00")
	sessions := v.sessions.(*fakeSessions)
	sessions.sessions[testSessionID].Fence = nil

	r := req("alice")
	r.Location = geo.Point{Lat: -80, Lng: 170}
	if _, err := v.Do(context.Background(), r); err != nil {
		t.Errorf("fence-less session should accept any location, got %v", err)
	}
}
