package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
)

var _ model.CredentialBackend = (*Credentials)(nil)

// Credentials is the credential backend of the session gate. Users are
// checked against bcrypt hashes, and the refresh token of this device is kept
// in the session vault so a restart can resume the session.
type Credentials struct {
	users  model.UserStore
	tokens *TokenService
	vault  model.SessionVault
	logger *logger.Logger
	cost   int
}

// NewCredentials creates the credential backend.
func NewCredentials(users model.UserStore, tokens *TokenService, vault model.SessionVault, logger *logger.Logger) *Credentials {
	return &Credentials{
		users:  users,
		tokens: tokens,
		vault:  vault,
		logger: logger,
		cost:   bcrypt.DefaultCost,
	}
}

// CheckPersistedSession resumes the session stored in the vault by rotating
// its refresh token. A rejected token is removed from the vault.
func (c *Credentials) CheckPersistedSession(ctx context.Context) (model.Identity, bool, error) {
	persisted, ok, err := c.vault.Load(ctx)
	if err != nil {
		return model.Identity{}, false, err
	}
	if !ok {
		c.logger.Debug("Credentials: no persisted session", "device_id", c.vault.DeviceID())
		return model.Identity{}, false, nil
	}

	userID, access, refresh, err := c.tokens.Refresh(ctx, persisted.RefreshToken)
	if err != nil {
		if clearErr := c.vault.Clear(ctx); clearErr != nil {
			c.logger.Warn("Credentials: failed to clear rejected session", "error", clearErr.Error())
		}
		return model.Identity{}, false, fmt.Errorf("persisted session rejected: %w", err)
	}

	if err := c.vault.Save(ctx, userID.String(), refresh); err != nil {
		return model.Identity{}, false, err
	}

	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return model.Identity{}, false, fmt.Errorf("failed to get user: %w", err)
	}

	c.logger.Info("Credentials: session resumed", "user_id", user.ID.String(), "device_id", c.vault.DeviceID())

	return user.Identity(access), true, nil
}

// Authenticate checks email and password and issues a new token pair for
// this device. The refresh token is returned as a grant and is not persisted
// until Persist. Unknown users and wrong passwords both fail with
// ErrInvalidCredentials.
func (c *Credentials) Authenticate(ctx context.Context, credentials model.Credentials) (model.Identity, model.Grant, error) {
	if err := credentials.Validate(); err != nil {
		return model.Identity{}, model.Grant{}, err
	}
	email := normalizeEmail(credentials.Email)

	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.logger.Info("Credentials: unknown user", "email", email)
			return model.Identity{}, model.Grant{}, model.ErrInvalidCredentials
		}
		return model.Identity{}, model.Grant{}, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(credentials.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			c.logger.Info("Credentials: wrong password", "user_id", user.ID.String())
			return model.Identity{}, model.Grant{}, model.ErrInvalidCredentials
		}
		return model.Identity{}, model.Grant{}, fmt.Errorf("failed to compare password: %w", err)
	}

	access, refresh, err := c.tokens.Issue(ctx, user.ID, c.vault.DeviceID())
	if err != nil {
		return model.Identity{}, model.Grant{}, err
	}

	return user.Identity(access), model.Grant{UserID: user.ID, RefreshToken: refresh}, nil
}

// Persist stores grant in the vault. The refresh token it replaces is revoked.
func (c *Credentials) Persist(ctx context.Context, grant model.Grant) error {
	prev, ok, err := c.vault.Load(ctx)
	if err != nil {
		return err
	}

	if err := c.vault.Save(ctx, grant.UserID.String(), grant.RefreshToken); err != nil {
		return err
	}

	if ok && prev.RefreshToken != grant.RefreshToken {
		if err := c.tokens.RevokeByToken(ctx, prev.RefreshToken); err != nil {
			c.logger.Warn("Credentials: failed to revoke replaced refresh token",
				"user_id", prev.UserID,
				"error", err.Error())
		}
	}

	return nil
}

// Discard revokes the refresh token of a grant that was never persisted.
func (c *Credentials) Discard(ctx context.Context, grant model.Grant) error {
	return c.tokens.RevokeByToken(ctx, grant.RefreshToken)
}

// EndSession revokes every live refresh token identity holds on this device
// and empties the vault.
func (c *Credentials) EndSession(ctx context.Context, identity model.Identity) error {
	if err := c.tokens.RevokeDevice(ctx, identity.ID, c.vault.DeviceID()); err != nil {
		c.logger.Warn("Credentials: failed to revoke device tokens",
			"user_id", identity.ID.String(),
			"error", err.Error())
	}

	return c.vault.Clear(ctx)
}

// Register creates a user with a bcrypt password hash.
func (c *Credentials) Register(ctx context.Context, credentials model.Credentials, displayName string) (model.User, error) {
	if err := credentials.Validate(); err != nil {
		return model.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credentials.Password), c.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := c.users.Create(ctx, model.User{
		Email:        normalizeEmail(credentials.Email),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
	})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	c.logger.Info("Credentials: user registered", "user_id", user.ID.String())

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
