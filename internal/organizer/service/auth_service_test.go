package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"rollcall/backend/internal/organizer/domain"
	"rollcall/backend/internal/security"
)

type fakeOrganizers struct {
	byEmail map[string]*domain.Organizer
}

func (f *fakeOrganizers) GetByEmail(ctx context.Context, email string) (*domain.Organizer, error) {
	return f.byEmail[email], nil
}

func (f *fakeOrganizers) Create(ctx context.Context, o *domain.Organizer) error {
	f.byEmail[o.Email] = o
	return nil
}

func newAuth() (*AuthService, *fakeOrganizers) {
	repo := &fakeOrganizers{byEmail: make(map[string]*domain.Organizer)}
	hasher := security.NewHasher(4)
	tokens := security.NewTokenProvider([]byte("test-signing-secret-test-signing"), "rollcall-api", time.Hour)
	return NewAuthService(repo, hasher, tokens), repo
}

func TestRegisterAndLogin(t *testing.T) {
	auth, repo := newAuth()
	ctx := context.Background()

	res, err := auth.Register(ctx, "Owner@Example.com ", "hunter22xyz", "Owner")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Token == "" || res.OrganizerID == "" {
		t.Fatalf("Register result incomplete: %+v", res)
	}
	if repo.byEmail["owner@example.com"] == nil {
		t.Fatal("email should be stored lowercased and trimmed")
	}

	login, err := auth.Login(ctx, "owner@example.com", "hunter22xyz")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.OrganizerID != res.OrganizerID {
		t.Errorf("Login organizer = %q, want %q", login.OrganizerID, res.OrganizerID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	auth, _ := newAuth()
	ctx := context.Background()

	if _, err := auth.Register(ctx, "owner@example.com", "hunter22xyz", "Owner"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := auth.Register(ctx, "owner@example.com", "hunter22xyz", "Owner"); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Errorf("err = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	auth, _ := newAuth()
	if _, err := auth.Register(context.Background(), "owner@example.com", "short", "Owner"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("err = %v, want ErrWeakPassword", err)
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	auth, _ := newAuth()
	if _, err := auth.Register(context.Background(), "not-an-email", "hunter22xyz", "Owner"); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Errorf("err = %v, want ErrInvalidEmail", err)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	auth, _ := newAuth()
	ctx := context.Background()
	if _, err := auth.Register(ctx, "owner@example.com", "hunter22xyz", "Owner"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := auth.Login(ctx, "owner@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := auth.Login(ctx, "nobody@example.com", "hunter22xyz"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}
