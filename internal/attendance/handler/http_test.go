package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	attdomain "rollcall/backend/internal/attendance/domain"
	attrepo "rollcall/backend/internal/attendance/repository"
	"rollcall/backend/internal/attendance/service"
	"rollcall/backend/internal/geo"
	"rollcall/backend/internal/qrtoken"
	rounddomain "rollcall/backend/internal/round/domain"
	sessiondomain "rollcall/backend/internal/session/domain"
)

type fakeRounds struct {
	round *rounddomain.Round
}

func (f *fakeRounds) GetByID(ctx context.Context, id string) (*rounddomain.Round, error) {
	if f.round != nil && f.round.ID == id {
		return f.round, nil
	}
	return nil, nil
}

type fakeSessions struct {
	session *sessiondomain.Session
}

func (f *fakeSessions) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	if f.session != nil && f.session.ID == id {
		return f.session, nil
	}
	return nil, nil
}

type fakeAttendances struct {
	records map[string]*attdomain.Attendance // keyed by roundID+"/"+attendeeKey
}

func (f *fakeAttendances) Exists(ctx context.Context, roundID, attendeeKey string) (bool, error) {
	_, ok := f.records[roundID+"/"+attendeeKey]
	return ok, nil
}

func (f *fakeAttendances) Create(ctx context.Context, a *attdomain.Attendance) error {
	key := a.RoundID + "/" + a.AttendeeKey
	if _, ok := f.records[key]; ok {
		return attrepo.ErrDuplicate
	}
	f.records[key] = a
	return nil
}

func (f *fakeAttendances) ListByRound(ctx context.Context, roundID string) ([]*attdomain.Attendance, error) {
	var out []*attdomain.Attendance
	for _, a := range f.records {
		if a.RoundID == roundID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttendances) UpdateStatus(ctx context.Context, id string, status attdomain.Status) error {
	for _, a := range f.records {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return nil
}

// activeRound builds a round whose window covers time.Now.
func activeRound() *rounddomain.Round {
	now := time.Now()
	return &rounddomain.Round{
		ID:             "round-1",
		SessionID:      "session-1",
		Date:           now,
		StartTime:      rounddomain.ClockTime{},
		AllowedMinutes: 24 * 60,
		Secret:         []byte("round-secret"),
	}
}

func newCheckInRouter(t *testing.T) (*gin.Engine, *fakeAttendances) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rounds := &fakeRounds{round: activeRound()}
	sessions := &fakeSessions{session: &sessiondomain.Session{
		ID:           "session-1",
		OrganizerID:  "organizer-1",
		Title:        "Standup",
		Visibility:   sessiondomain.VisibilityPublic,
		Status:       sessiondomain.StatusOpen,
		RewardPoints: 10,
	}}
	attendances := &fakeAttendances{records: make(map[string]*attdomain.Attendance)}

	checkin := service.NewCheckIn(
		rounds, sessions, attendances,
		qrtoken.NewIssuer(20*time.Second),
		48*time.Hour, // lateness is not under test here
		nil, nil, zap.NewNop())

	h := &Handler{checkin: checkin, attendances: attendances}
	r := gin.New()
	r.POST("/api/checkin", h.CheckIn)
	return r, attendances
}

func postCheckIn(t *testing.T, r *gin.Engine, body map[string]any) (*httptest.ResponseRecorder, checkInResponse) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/checkin", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var res checkInResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response %q: %v", rec.Body.String(), err)
	}
	return rec, res
}

func TestCheckIn_Accepted(t *testing.T) {
	r, attendances := newCheckInRouter(t)

	rec, res := postCheckIn(t, r, map[string]any{
		"roundId":     "round-1",
		"displayName": "Ada",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if !res.Success || res.Status != string(attdomain.StatusPresent) {
		t.Errorf("verdict = %+v, want success PRESENT", res)
	}
	if res.AwardedPoints != 10 {
		t.Errorf("AwardedPoints = %d, want 10", res.AwardedPoints)
	}
	if attendances.records["round-1/Ada"] == nil {
		t.Error("attendance record not persisted")
	}
}

func TestCheckIn_RejectionMapping(t *testing.T) {
	r, _ := newCheckInRouter(t)

	// Seed one check-in so the duplicate case fires.
	if rec, _ := postCheckIn(t, r, map[string]any{
		"roundId": "round-1", "displayName": "Ada",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed check-in: %d", rec.Code)
	}

	cases := []struct {
		name       string
		body       map[string]any
		wantCode   int
		wantReason string
	}{
		{
			name:       "unknown round",
			body:       map[string]any{"roundId": "nope", "displayName": "Ada"},
			wantCode:   http.StatusNotFound,
			wantReason: "round_not_found",
		},
		{
			name:       "duplicate",
			body:       map[string]any{"roundId": "round-1", "displayName": "Ada"},
			wantCode:   http.StatusConflict,
			wantReason: "duplicate_checkin",
		},
		{
			name:       "missing identity",
			body:       map[string]any{"roundId": "round-1"},
			wantCode:   http.StatusBadRequest,
			wantReason: "missing_identity",
		},
		{
			name:       "stale token",
			body:       map[string]any{"roundId": "round-1", "displayName": "Bob", "token": "bogus"},
			wantCode:   http.StatusUnauthorized,
			wantReason: "token_invalid",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, res := postCheckIn(t, r, tc.body)
			if rec.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if res.Success {
				t.Error("Success = true on a rejection")
			}
			if res.FailureReason != tc.wantReason {
				t.Errorf("FailureReason = %q, want %q", res.FailureReason, tc.wantReason)
			}
		})
	}
}

func TestCheckIn_OutOfRangeUsesFence(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rounds := &fakeRounds{round: activeRound()}
	sessions := &fakeSessions{session: &sessiondomain.Session{
		ID:          "session-1",
		OrganizerID: "organizer-1",
		Title:       "Standup",
		Visibility:  sessiondomain.VisibilityPublic,
		Status:      sessiondomain.StatusOpen,
		Fence: &geo.Fence{
			Center:  geo.Point{Lat: 52.52, Lng: 13.40},
			RadiusM: 100,
		},
	}}
	attendances := &fakeAttendances{records: make(map[string]*attdomain.Attendance)}
	checkin := service.NewCheckIn(
		rounds, sessions, attendances,
		qrtoken.NewIssuer(20*time.Second), 48*time.Hour, nil, nil, zap.NewNop())
	h := &Handler{checkin: checkin, attendances: attendances}
	r := gin.New()
	r.POST("/api/checkin", h.CheckIn)

	rec, res := postCheckIn(t, r, map[string]any{
		"roundId":     "round-1",
		"displayName": "Ada",
		"latitude":    48.8566, // Paris, far outside the Berlin fence
		"longitude":   2.3522,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if res.FailureReason != "out_of_range" {
		t.Errorf("FailureReason = %q, want out_of_range", res.FailureReason)
	}
}
