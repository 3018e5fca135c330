package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

// defaultRefreshTTL bounds the stored refresh token record. Signature validity
// is checked by the token manager.
const defaultRefreshTTL = 30 * 24 * time.Hour

// TokenService issues, rotates and revokes token pairs. Refresh tokens are
// stored hashed and bound to the device they were issued for.
type TokenService struct {
	manager model.TokenManager
	store   model.RefreshTokenStore
	logger  *logger.Logger
	now     func() time.Time
	ttl     time.Duration
}

// NewTokenService creates a token service.
func NewTokenService(manager model.TokenManager, store model.RefreshTokenStore, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, store: store, logger: logger, now: time.Now, ttl: defaultRefreshTTL}
}

// WithRefreshTTL sets the lifetime of stored refresh token records.
func (s *TokenService) WithRefreshTTL(ttl time.Duration) *TokenService {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

// Issue creates a token pair for userID on deviceID.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, deviceID string) (access, refresh string, err error) {
	return s.issue(ctx, userID, deviceID, nil)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued for the same user and device.
func (s *TokenService) Refresh(ctx context.Context, presented string) (userID uuid.UUID, access, refresh string, err error) {
	userID, jti, err := s.manager.ParseRefreshToken(presented)
	if err != nil {
		return uuid.Nil, "", "", err
	}

	stored, err := s.store.GetByJTI(ctx, jti)
	if err != nil {
		return uuid.Nil, "", "", fmt.Errorf("failed to get refresh token: %w", err)
	}

	if err := validateRecord(stored, userID, hashRefresh(presented), s.now()); err != nil {
		s.logger.Warn("Token service: refresh rejected",
			"user_id", userID.String(),
			"jti", jti,
			"error", err.Error())
		return uuid.Nil, "", "", err
	}

	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return uuid.Nil, "", "", fmt.Errorf("failed to revoke rotated refresh token: %w", err)
	}

	access, refresh, err = s.issue(ctx, userID, stored.DeviceID, &stored.JTI)
	if err != nil {
		return uuid.Nil, "", "", err
	}

	return userID, access, refresh, nil
}

// RevokeByToken revokes the presented refresh token.
func (s *TokenService) RevokeByToken(ctx context.Context, presented string) error {
	_, jti, err := s.manager.ParseRefreshToken(presented)
	if err != nil {
		return err
	}
	if err := s.store.RevokeByJTI(ctx, jti); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeDevice revokes the live refresh tokens of userID on deviceID.
func (s *TokenService) RevokeDevice(ctx context.Context, userID uuid.UUID, deviceID string) error {
	n, err := s.store.RevokeByDevice(ctx, userID, deviceID)
	if err != nil {
		return fmt.Errorf("failed to revoke device tokens: %w", err)
	}
	if n > 0 {
		s.logger.Debug("Token service: device tokens revoked",
			"user_id", userID.String(),
			"device_id", deviceID,
			"count", n)
	}
	return nil
}

// GetUserID validates an access token and returns its user.
func (s *TokenService) GetUserID(_ context.Context, token string) (uuid.UUID, error) {
	return s.manager.ParseAccessToken(token)
}

func (s *TokenService) issue(ctx context.Context, userID uuid.UUID, deviceID string, rotatedFrom *string) (string, string, error) {
	access, err := s.manager.GenerateAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, jti, err := s.manager.GenerateRefreshToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue refresh token: %w", err)
	}

	now := s.now()
	err = s.store.Create(ctx, model.RefreshToken{
		ID:             uuid.New(),
		JTI:            jti,
		UserID:         userID,
		DeviceID:       deviceID,
		TokenHash:      hashRefresh(refresh),
		IssuedAt:       now,
		ExpiresAt:      now.Add(s.ttl),
		RotatedFromJTI: rotatedFrom,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to persist refresh token: %w", err)
	}

	return access, refresh, nil
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}

func validateRecord(rt model.RefreshToken, userID uuid.UUID, presentedHash []byte, now time.Time) error {
	switch {
	case rt.RevokedAt != nil:
		return model.ErrTokenRevoked
	case now.After(rt.ExpiresAt):
		return model.ErrTokenExpired
	case rt.UserID != userID, subtle.ConstantTimeCompare(rt.TokenHash, presentedHash) != 1:
		return model.ErrTokenMismatch
	}
	return nil
}
