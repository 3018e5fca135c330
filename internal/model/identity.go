package model

import (
	"strings"

	"github.com/google/uuid"
)

// Identity is the authenticated user reference held by a session.
type Identity struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	AccessToken string
}

// Credentials is the input of an authentication exchange.
type Credentials struct {
	Email    string
	Password string
}

// Validate rejects credentials with an empty email or password.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return ErrEmptyCredentials
	}
	return nil
}
