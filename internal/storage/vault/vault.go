// Package vault keeps the refresh token of this device in object storage.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/dtroode/agrogestion/internal/model"
)

// entry is the stored form of model.PersistedSession.
type entry struct {
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	SavedAt      time.Time `json:"saved_at"`
}

var _ model.SessionVault = (*Vault)(nil)

// Vault stores the session of one device under a key prefix.
type Vault struct {
	storage  model.Storage
	key      string
	deviceID string
	now      func() time.Time
}

// New creates a vault for deviceID.
func New(storage model.Storage, prefix, deviceID string) *Vault {
	return &Vault{
		storage:  storage,
		key:      path.Join(prefix, deviceID+".json"),
		deviceID: deviceID,
		now:      time.Now,
	}
}

// DeviceID returns the device the vault belongs to.
func (v *Vault) DeviceID() string {
	return v.deviceID
}

// Save persists the refresh token of userID, replacing any previous entry.
func (v *Vault) Save(ctx context.Context, userID, refreshToken string) error {
	buf, err := json.Marshal(entry{RefreshToken: refreshToken, UserID: userID, SavedAt: v.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode vault entry: %w", err)
	}
	if err := v.storage.Upload(ctx, v.key, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("failed to save vault entry: %w", err)
	}
	return nil
}

// Load returns the persisted session. ok is false when nothing was saved.
func (v *Vault) Load(ctx context.Context) (model.PersistedSession, bool, error) {
	rc, err := v.storage.Download(ctx, v.key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.PersistedSession{}, false, nil
		}
		return model.PersistedSession{}, false, fmt.Errorf("failed to load vault entry: %w", err)
	}
	defer rc.Close()

	var e entry
	if err := json.NewDecoder(rc).Decode(&e); err != nil {
		return model.PersistedSession{}, false, fmt.Errorf("failed to decode vault entry: %w", err)
	}
	if e.RefreshToken == "" {
		return model.PersistedSession{}, false, fmt.Errorf("vault entry without refresh token")
	}
	return model.PersistedSession{UserID: e.UserID, RefreshToken: e.RefreshToken, SavedAt: e.SavedAt}, true, nil
}

// Clear removes the persisted entry.
func (v *Vault) Clear(ctx context.Context) error {
	if err := v.storage.Delete(ctx, v.key); err != nil {
		return fmt.Errorf("failed to clear vault entry: %w", err)
	}
	return nil
}
