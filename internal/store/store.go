package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrDirty is returned when a save is attempted while reference violations are outstanding.
var ErrDirty = errors.New("unresolved reference violations")

// Store defines the interface for knowledge base persistence.
type Store interface {
	// Load reads every character, unit and history entry. Names are unique per kind
	// in the returned roster.
	Load(ctx context.Context) (*roster.Roster, error)

	// Save writes every entity of r and appends history entries not yet persisted.
	Save(ctx context.Context, r *roster.Roster) error

	// Close cleans up resources.
	Close() error
}

// Get returns the entity of the given kind called name. An empty kind looks up characters
// first, then units.
func Get(r *roster.Roster, kind models.Kind, name string) (models.Entity, models.Kind, error) {
	switch kind {
	case models.KindCharacter:
		if i := r.FindCharacter(name); i >= 0 {
			return &r.Characters[i], kind, nil
		}
	case models.KindUnit:
		if i := r.FindUnit(name); i >= 0 {
			return &r.Units[i], kind, nil
		}
	case "":
		if e, k, ok := r.Lookup(name); ok {
			return e, k, nil
		}
	default:
		return nil, "", fmt.Errorf("unknown kind %q", kind)
	}
	return nil, "", fmt.Errorf("%s %q: %w", kindLabel(kind), name, ErrNotFound)
}

func kindLabel(kind models.Kind) string {
	if kind == "" {
		return "entity"
	}
	return string(kind)
}
