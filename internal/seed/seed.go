// Package seed loads the initial store data of each identity from a YAML file.
package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/store"
)

var _ store.Loader = (*File)(nil)

// Document is the layout of a seed file: fixtures keyed by identity email.
type Document struct {
	Identities map[string]store.Fixture `yaml:"identities"`
}

// File loads fixtures from a YAML file. The file is read on every Load so
// edits are picked up by the next hydration or retry.
type File struct {
	path   string
	logger *logger.Logger
}

// NewFile creates a loader reading path. An empty path loads nothing.
func NewFile(path string, logger *logger.Logger) *File {
	return &File{path: path, logger: logger}
}

// Load returns the fixture of identity. A missing file or identity yields an
// empty fixture.
func (f *File) Load(ctx context.Context, identity model.Identity) (store.Fixture, error) {
	if f.path == "" {
		return store.Fixture{}, nil
	}
	if err := ctx.Err(); err != nil {
		return store.Fixture{}, err
	}

	buf, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Debug("Seed: file not found", "path", f.path)
			return store.Fixture{}, nil
		}
		return store.Fixture{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	doc, err := Unmarshal(buf)
	if err != nil {
		return store.Fixture{}, fmt.Errorf("failed to parse seed file %s: %w", f.path, err)
	}

	fixture, ok := doc.Identities[normalizeEmail(identity.Email)]
	if !ok {
		f.logger.Debug("Seed: no fixture for identity", "email", identity.Email)
	}
	return fixture, nil
}

// Unmarshal parses a seed document. Identity keys are matched case-insensitively.
func Unmarshal(buf []byte) (Document, error) {
	var raw Document
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return Document{}, err
	}

	doc := Document{Identities: make(map[string]store.Fixture, len(raw.Identities))}
	for email, fixture := range raw.Identities {
		key := normalizeEmail(email)
		if _, dup := doc.Identities[key]; dup {
			return Document{}, fmt.Errorf("identity %s declared twice", key)
		}
		doc.Identities[key] = fixture
	}
	return doc, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
