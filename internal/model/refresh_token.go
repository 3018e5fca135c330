package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenManager generates and validates access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(userID uuid.UUID) (string, error)
	GenerateRefreshToken(userID uuid.UUID) (token string, jti string, err error)
	ParseAccessToken(token string) (uuid.UUID, error)
	ParseRefreshToken(token string) (userID uuid.UUID, jti string, err error)
}

// RefreshTokenStore persists issued refresh tokens for rotation and revocation.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	GetByJTI(ctx context.Context, jti string) (RefreshToken, error)
	RevokeByJTI(ctx context.Context, jti string) error
	RevokeByDevice(ctx context.Context, userID uuid.UUID, deviceID string) (int64, error)
}

// RefreshToken is the stored form of an issued refresh token.
type RefreshToken struct {
	ID             uuid.UUID
	JTI            string
	UserID         uuid.UUID
	DeviceID       string
	TokenHash      []byte
	IssuedAt       time.Time
	ExpiresAt      time.Time
	RevokedAt      *time.Time
	RotatedFromJTI *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Grant is the refresh token issued by an authentication exchange.
type Grant struct {
	UserID       uuid.UUID
	RefreshToken string
}

// PersistedSession is the refresh token kept on this device between runs.
type PersistedSession struct {
	UserID       string
	RefreshToken string
	SavedAt      time.Time
}

// SessionVault persists the session of one device.
type SessionVault interface {
	Save(ctx context.Context, userID, refreshToken string) error
	Load(ctx context.Context) (session PersistedSession, ok bool, err error)
	Clear(ctx context.Context) error
	DeviceID() string
}
