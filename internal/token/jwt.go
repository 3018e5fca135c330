// Package token issues and validates the HMAC-signed session tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/agrogestion/internal/model"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or kind checks.
var ErrInvalidToken = errors.New("invalid token")

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	issuer            = "agrogestion"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Claims are the JWT claims. The user ID is carried in the subject.
type Claims struct {
	jwt.RegisteredClaims
	Kind Kind `json:"typ"`
}

var _ model.TokenManager = (*JWT)(nil)

// JWT implements model.TokenManager with HS256 tokens.
type JWT struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures JWT.
type Option func(*JWT)

// WithTTL overrides token lifetimes.
func WithTTL(access, refresh time.Duration) Option {
	return func(j *JWT) {
		j.accessTTL = access
		j.refreshTTL = refresh
	}
}

// WithClock sets the time source used to issue and validate tokens.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) {
		j.now = now
	}
}

// NewJWT creates a token manager signing with secret.
func NewJWT(secret string, opts ...Option) *JWT {
	j := &JWT{
		secret:     []byte(secret),
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RefreshTTL returns the lifetime of refresh tokens.
func (j *JWT) RefreshTTL() time.Duration {
	return j.refreshTTL
}

// GenerateAccessToken creates a short-lived access token.
func (j *JWT) GenerateAccessToken(userID uuid.UUID) (string, error) {
	token, err := j.sign(userID, KindAccess, "", j.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// GenerateRefreshToken creates a long-lived refresh token and returns its JTI.
func (j *JWT) GenerateRefreshToken(userID uuid.UUID) (string, string, error) {
	jti := uuid.NewString()
	token, err := j.sign(userID, KindRefresh, jti, j.refreshTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return token, jti, nil
}

// ParseAccessToken validates an access token and returns its user ID.
func (j *JWT) ParseAccessToken(token string) (uuid.UUID, error) {
	claims, err := j.parse(token, KindAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return subject(claims)
}

// ParseRefreshToken validates a refresh token and returns its user ID and JTI.
func (j *JWT) ParseRefreshToken(token string) (uuid.UUID, string, error) {
	claims, err := j.parse(token, KindRefresh)
	if err != nil {
		return uuid.Nil, "", err
	}
	if claims.ID == "" {
		return uuid.Nil, "", fmt.Errorf("%w: refresh token without jti", ErrInvalidToken)
	}
	userID, err := subject(claims)
	if err != nil {
		return uuid.Nil, "", err
	}
	return userID, claims.ID, nil
}

func (j *JWT) sign(userID uuid.UUID, kind Kind, jti string, ttl time.Duration) (string, error) {
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind: kind,
	})
	return token.SignedString(j.secret)
}

func (j *JWT) parse(token string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, kind, claims.Kind)
	}
	return claims, nil
}

func subject(claims *Claims) (uuid.UUID, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject: %w", ErrInvalidToken, err)
	}
	return userID, nil
}
