package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/topupstore/topup-api/internal/domain/user"
	"github.com/topupstore/topup-api/internal/pkg/jwt"
	"github.com/topupstore/topup-api/internal/pkg/password"
)

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *memUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *memUserRepo) UpdateBlocked(_ context.Context, id uuid.UUID, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsBlocked = blocked
	}
	return nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, ip string) error {
	return nil
}

func (r *memUserRepo) List(_ context.Context, limit, offset int) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func seedUser(t *testing.T, repo *memUserRepo, email, pwd string, blocked bool) *user.User {
	t.Helper()
	hash, err := password.Hash(pwd)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleCustomer,
		IsBlocked:    blocked,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	repo.users[u.ID] = u
	return u
}

func newTestService(repo *memUserRepo) *Service {
	jwtSvc := jwt.NewService("test-secret", 15*time.Minute, 7*24*time.Hour)
	return NewService(repo, nil, jwtSvc, nil)
}

func TestLogin(t *testing.T) {
	repo := newMemUserRepo()
	seedUser(t, repo, "player@example.com", "secret123", false)
	svc := newTestService(repo)

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "Player@Example.com",
		Password: "secret123",
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("expected both tokens in response")
	}
	if resp.Tokens.TokenType != "Bearer" {
		t.Fatalf("token type = %q", resp.Tokens.TokenType)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMemUserRepo()
	seedUser(t, repo, "player@example.com", "secret123", false)
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "player@example.com",
		Password: "wrong",
	}, "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestService(newMemUserRepo())

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	}, "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginBlockedUser(t *testing.T) {
	repo := newMemUserRepo()
	seedUser(t, repo, "blocked@example.com", "secret123", true)
	svc := newTestService(repo)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "blocked@example.com",
		Password: "secret123",
	}, "")
	if !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	repo := newMemUserRepo()
	seedUser(t, repo, "player@example.com", "secret123", false)
	svc := newTestService(repo)

	first, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "player@example.com",
		Password: "secret123",
	}, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if second.Tokens.AccessToken == "" || second.Tokens.RefreshToken == "" {
		t.Fatal("expected fresh token pair")
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc := newTestService(newMemUserRepo())

	if _, err := svc.Refresh(context.Background(), "not-a-jwt"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), ""); !errors.Is(err, ErrRefreshTokenRequired) {
		t.Fatalf("expected ErrRefreshTokenRequired, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	repo := newMemUserRepo()
	u := seedUser(t, repo, "player@example.com", "secret123", false)
	svc := newTestService(repo)

	access, err := svc.jwtService.GenerateAccessToken(u.ID, string(u.Role), false)
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), access); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken for access token, got %v", err)
	}
}

func TestRefreshBlockedUser(t *testing.T) {
	repo := newMemUserRepo()
	u := seedUser(t, repo, "player@example.com", "secret123", false)
	svc := newTestService(repo)

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "player@example.com",
		Password: "secret123",
	}, "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	repo.UpdateBlocked(context.Background(), u.ID, true)

	if _, err := svc.Refresh(context.Background(), resp.Tokens.RefreshToken); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	repo := newMemUserRepo()
	u := seedUser(t, repo, "player@example.com", "secret123", false)
	svc := newTestService(repo)

	resp, err := svc.GetCurrentUser(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("get current user failed: %v", err)
	}
	if resp.Email != "player@example.com" {
		t.Fatalf("email = %q", resp.Email)
	}

	if _, err := svc.GetCurrentUser(context.Background(), uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := map[string]string{
		"Player@Example.COM ":  "player@example.com",
		"  white@space.io":     "white@space.io",
		"already@lowercase.io": "already@lowercase.io",
	}
	for in, want := range cases {
		if got := normalizeEmail(in); got != want {
			t.Errorf("normalizeEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
