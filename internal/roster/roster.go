// Package roster holds the session state: the character list, the unit list and the
// append-only history log. It is created by a store at load time, mutated in place by
// repair operations and handed back to the store at session end.
package roster

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/troupe/internal/models"
)

// Roster is the session-wide entity set.
type Roster struct {
	Characters []models.Character    `json:"characters"`
	Units      []models.Unit         `json:"units"`
	History    []models.HistoryEntry `json:"history"`

	// now is overridable in tests.
	now func() time.Time
}

// New creates a roster over the given lists.
func New(chars []models.Character, units []models.Unit, history []models.HistoryEntry) *Roster {
	return &Roster{Characters: chars, Units: units, History: history}
}

// FindCharacter returns the index of the named character, or -1.
func (r *Roster) FindCharacter(name string) int {
	for i := range r.Characters {
		if r.Characters[i].Name == name {
			return i
		}
	}
	return -1
}

// FindUnit returns the index of the named unit, or -1.
func (r *Roster) FindUnit(name string) int {
	for i := range r.Units {
		if r.Units[i].Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the entity named name, preferring characters over units.
func (r *Roster) Lookup(name string) (models.Entity, models.Kind, bool) {
	if i := r.FindCharacter(name); i >= 0 {
		return &r.Characters[i], models.KindCharacter, true
	}
	if i := r.FindUnit(name); i >= 0 {
		return &r.Units[i], models.KindUnit, true
	}
	return nil, "", false
}

// CharacterNames returns character names in list order.
func (r *Roster) CharacterNames() []string {
	names := make([]string, len(r.Characters))
	for i := range r.Characters {
		names[i] = r.Characters[i].Name
	}
	return names
}

// UnitNames returns unit names in list order.
func (r *Roster) UnitNames() []string {
	names := make([]string, len(r.Units))
	for i := range r.Units {
		names[i] = r.Units[i].Name
	}
	return names
}

// MembersOf returns the indexes of characters whose member is unit.
func (r *Roster) MembersOf(unit string) []int {
	var idx []int
	for i := range r.Characters {
		if r.Characters[i].Member == unit {
			idx = append(idx, i)
		}
	}
	return idx
}

// Entities returns pointers to every record, characters first.
func (r *Roster) Entities() []models.Entity {
	out := make([]models.Entity, 0, len(r.Characters)+len(r.Units))
	for i := range r.Characters {
		out = append(out, &r.Characters[i])
	}
	for i := range r.Units {
		out = append(out, &r.Units[i])
	}
	return out
}

// Clone returns a deep copy. The history log is copied too.
func (r *Roster) Clone() *Roster {
	out := &Roster{now: r.now}
	out.Characters = CloneCharacters(r.Characters)
	out.Units = CloneUnits(r.Units)
	if r.History != nil {
		out.History = make([]models.HistoryEntry, len(r.History))
		copy(out.History, r.History)
	}
	return out
}

// Log appends a history entry and returns its index.
func (r *Roster) Log(kind models.HistoryKind, entity, note string) int {
	now := time.Now().UTC()
	if r.now != nil {
		now = r.now()
	}
	r.History = append(r.History, models.HistoryEntry{
		ID:     uuid.New().String(),
		Kind:   kind,
		Entity: entity,
		Note:   note,
		At:     now,
	})
	return len(r.History) - 1
}

// Validate checks that names are unique and non-empty within each kind.
func (r *Roster) Validate() error {
	seen := make(map[string]struct{}, len(r.Characters))
	for i := range r.Characters {
		name := r.Characters[i].Name
		if name == "" {
			return fmt.Errorf("character at position %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate character %q", name)
		}
		seen[name] = struct{}{}
	}
	seen = make(map[string]struct{}, len(r.Units))
	for i := range r.Units {
		name := r.Units[i].Name
		if name == "" {
			return fmt.Errorf("unit at position %d has no name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate unit %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// CloneCharacters deep-copies a character list.
func CloneCharacters(in []models.Character) []models.Character {
	if in == nil {
		return nil
	}
	out := make([]models.Character, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// CloneUnits deep-copies a unit list.
func CloneUnits(in []models.Unit) []models.Unit {
	if in == nil {
		return nil
	}
	out := make([]models.Unit, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// NameSet builds a lookup set from names.
func NameSet(names ...[]string) map[string]struct{} {
	n := 0
	for _, ns := range names {
		n += len(ns)
	}
	set := make(map[string]struct{}, n)
	for _, ns := range names {
		for _, name := range ns {
			set[name] = struct{}{}
		}
	}
	return set
}
