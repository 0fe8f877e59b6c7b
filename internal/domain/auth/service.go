package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/domain/user"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/pkg/jwt"
	"github.com/topupstore/topup-api/internal/pkg/password"
)

// Service handles authentication business logic
type Service struct {
	userRepo   user.Repository
	wallets    *wallet.Service
	jwtService *jwt.Service
	redis      *redis.Client // nil if Redis disabled
}

// NewService creates auth service
func NewService(userRepo user.Repository, wallets *wallet.Service, jwtService *jwt.Service, redis *redis.Client) *Service {
	return &Service{
		userRepo:   userRepo,
		wallets:    wallets,
		jwtService: jwtService,
		redis:      redis,
	}
}

// Register creates a new customer account with its wallet row.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	existing, _ := s.userRepo.GetByEmail(ctx, req.Email)
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &user.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         user.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	// The wallet row exists from day one so settlement never hits a
	// missing-wallet anomaly for a legitimate user.
	if err := s.wallets.EnsureWallet(ctx, u.ID); err != nil {
		log.Error().Err(err).Str("user_id", u.ID.String()).Msg("failed to create wallet on register")
	}

	return s.generateTokens(ctx, u)
}

// Login authenticates a user by email and password.
func (s *Service) Login(ctx context.Context, req *LoginRequest, ip string) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if u.IsBlocked {
		return nil, ErrUserBlocked
	}

	if err := s.userRepo.UpdateLastLogin(ctx, u.ID, ip); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record last login")
	}

	return s.generateTokens(ctx, u)
}

// Refresh rotates a refresh token and issues a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenRequired
	}

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	// The jti must still be in the allowlist: rotation revokes it, so a
	// replayed refresh token dies here even though its signature holds.
	if err := s.consumeRefreshJTI(ctx, claims.ID); err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if u.IsBlocked {
		return nil, ErrUserBlocked
	}

	return s.generateTokens(ctx, u)
}

// Logout revokes the refresh token's jti.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	return s.deleteRefreshJTI(ctx, claims.ID)
}

// GetCurrentUser returns current user by ID
func (s *Service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	resp := NewUserResponse(u.ID, u.Email, string(u.Role), u.CreatedAt)
	return &resp, nil
}

func (s *Service) generateTokens(ctx context.Context, u *user.User) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(u.ID, string(u.Role), u.IsBlocked)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, expiresAt, err := s.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshJTI(ctx, jti, u.ID, time.Until(expiresAt)); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User: NewUserResponse(u.ID, u.Email, string(u.Role), u.CreatedAt),
		Tokens: TokensResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresIn:    int(s.jwtService.GetAccessTTL().Seconds()),
			TokenType:    "Bearer",
		},
	}, nil
}

// Redis helpers (handle nil redis gracefully)

func (s *Service) storeRefreshJTI(ctx context.Context, jti string, userID uuid.UUID, ttl time.Duration) error {
	if s.redis == nil {
		return nil // token validity falls back to the JWT expiry alone
	}
	return s.redis.Set(ctx, "refresh:"+jti, userID.String(), ttl).Err()
}

func (s *Service) consumeRefreshJTI(ctx context.Context, jti string) error {
	if s.redis == nil {
		return nil
	}
	deleted, err := s.redis.Del(ctx, "refresh:"+jti).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}

func (s *Service) deleteRefreshJTI(ctx context.Context, jti string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, "refresh:"+jti).Err()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
