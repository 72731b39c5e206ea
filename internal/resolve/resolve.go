// Package resolve repairs dangling references found by the verifier. Each operation either
// updates every referencing entity or returns an error and leaves the roster untouched.
package resolve

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ajitpratap0/troupe/internal/metrics"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/prompt"
	"github.com/ajitpratap0/troupe/internal/roster"
)

var (
	// ErrInapplicable is returned when a repair has nothing to act on. The roster is unchanged.
	ErrInapplicable = errors.New("repair not applicable")

	// ErrNameTaken is returned when a rename would create a duplicate within a kind.
	ErrNameTaken = errors.New("name already taken")

	// ErrInvalidName is returned for blank or reserved target names.
	ErrInvalidName = errors.New("invalid name")
)

// Resolver applies repairs to a roster.
type Resolver struct {
	roster *roster.Roster
	prompt prompt.Prompter
	logger *slog.Logger
}

// NewResolver creates a resolver. p may be nil when only the non-interactive operations are used.
func NewResolver(r *roster.Roster, p prompt.Prompter, logger *slog.Logger) *Resolver {
	return &Resolver{
		roster: r,
		prompt: p,
		logger: logger,
	}
}

// partnerIsCharacter reports whether a relation partner called name resolves to a character.
// Partners resolve to characters first, then units; a dangling partner may be either.
func (res *Resolver) partnerIsCharacter(name string) bool {
	return res.roster.FindCharacter(name) >= 0 || res.roster.FindUnit(name) < 0
}

// partnerIsUnit reports whether a relation partner called name may resolve to a unit.
func (res *Resolver) partnerIsUnit(name string) bool {
	return res.roster.FindCharacter(name) < 0
}

func (res *Resolver) countPartners(name string) int {
	n := 0
	for _, e := range res.roster.Entities() {
		for _, rel := range e.Core().Relations {
			if rel.Partner == name {
				n++
			}
		}
	}
	return n
}

func (res *Resolver) renamePartners(from, to string) int {
	n := 0
	for _, e := range res.roster.Entities() {
		n += e.Core().RenamePartner(from, to)
	}
	return n
}

func (res *Resolver) stripPartners(name string) int {
	n := 0
	for _, e := range res.roster.Entities() {
		n += e.Core().StripPartner(name)
	}
	return n
}

func validTarget(oldName, newName string) (string, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" || newName == models.NoUnit {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, newName)
	}
	if newName == oldName {
		return "", fmt.Errorf("%w: %q is unchanged", ErrInvalidName, newName)
	}
	return newName, nil
}

// RenameCharacter replaces oldName with newName as a character name and as a relation partner.
// It returns the number of references updated, not counting the character's own name.
func (res *Resolver) RenameCharacter(oldName, newName string) (int, error) {
	newName, err := validTarget(oldName, newName)
	if err != nil {
		return 0, err
	}

	r := res.roster
	ci := r.FindCharacter(oldName)
	if ci >= 0 && r.FindCharacter(newName) >= 0 {
		return 0, fmt.Errorf("rename character %q: %w: %q", oldName, ErrNameTaken, newName)
	}

	refs := 0
	if res.partnerIsCharacter(oldName) {
		refs = res.countPartners(oldName)
	}
	if ci < 0 && refs == 0 {
		return 0, fmt.Errorf("rename character %q: %w: not referenced", oldName, ErrInapplicable)
	}
	// Partners resolve to characters first, so relations to a unit called newName would move.
	if r.FindUnit(newName) >= 0 && res.countPartners(newName) > 0 {
		return 0, fmt.Errorf("rename character %q: %w: %q is a unit other records relate to", oldName, ErrNameTaken, newName)
	}

	if refs > 0 {
		res.renamePartners(oldName, newName)
	}
	hi := r.Log(models.HistoryRename, newName, fmt.Sprintf("character %s renamed to %s", oldName, newName))
	if ci >= 0 {
		r.Characters[ci].Name = newName
		r.Characters[ci].HistoryIndex = hi
	}

	metrics.Inc(metrics.RepairsTotal)
	res.logger.Info("renamed character", "from", oldName, "to", newName, "references", refs)
	return refs, nil
}

// RenameUnit replaces oldName with newName as a unit name, as a member value and as a
// relation partner. It returns the number of references updated, not counting the unit's own name.
func (res *Resolver) RenameUnit(oldName, newName string) (int, error) {
	newName, err := validTarget(oldName, newName)
	if err != nil {
		return 0, err
	}

	r := res.roster
	ui := r.FindUnit(oldName)
	if ui >= 0 && r.FindUnit(newName) >= 0 {
		return 0, fmt.Errorf("rename unit %q: %w: %q", oldName, ErrNameTaken, newName)
	}

	members := r.MembersOf(oldName)
	partners := 0
	if res.partnerIsUnit(oldName) {
		partners = res.countPartners(oldName)
	}
	if ui < 0 && len(members) == 0 && partners == 0 {
		return 0, fmt.Errorf("rename unit %q: %w: not referenced", oldName, ErrInapplicable)
	}
	// A character called newName would capture the renamed relation partners.
	if partners > 0 && r.FindCharacter(newName) >= 0 {
		return 0, fmt.Errorf("rename unit %q: %w: %q is a character", oldName, ErrNameTaken, newName)
	}

	for _, i := range members {
		r.Characters[i].Member = newName
	}
	if partners > 0 {
		res.renamePartners(oldName, newName)
	}
	hi := r.Log(models.HistoryRename, newName, fmt.Sprintf("unit %s renamed to %s", oldName, newName))
	if ui >= 0 {
		r.Units[ui].Name = newName
		r.Units[ui].HistoryIndex = hi
	}

	refs := len(members) + partners
	metrics.Inc(metrics.RepairsTotal)
	res.logger.Info("renamed unit", "from", oldName, "to", newName, "references", refs)
	return refs, nil
}

// DeleteCharacter removes the named character, if present, and every relation pointing at it.
func (res *Resolver) DeleteCharacter(name string) error {
	r := res.roster
	ci := r.FindCharacter(name)
	refs := 0
	if res.partnerIsCharacter(name) {
		refs = res.countPartners(name)
	}
	if ci < 0 && refs == 0 {
		return fmt.Errorf("delete character %q: %w: not referenced", name, ErrInapplicable)
	}

	if ci >= 0 {
		r.Characters = slices.Delete(r.Characters, ci, ci+1)
	}
	if refs > 0 {
		res.stripPartners(name)
	}
	r.Log(models.HistoryDelete, name, fmt.Sprintf("character %s deleted", name))

	metrics.Inc(metrics.RepairsTotal)
	res.logger.Info("deleted character", "name", name, "relations_removed", refs)
	return nil
}

// DeleteUnit removes the named unit, if present, resets its members to no unit and removes
// every relation pointing at it.
func (res *Resolver) DeleteUnit(name string) error {
	r := res.roster
	ui := r.FindUnit(name)
	members := r.MembersOf(name)
	refs := 0
	if res.partnerIsUnit(name) {
		refs = res.countPartners(name)
	}
	if ui < 0 && len(members) == 0 && refs == 0 {
		return fmt.Errorf("delete unit %q: %w: not referenced", name, ErrInapplicable)
	}

	for _, i := range members {
		r.Characters[i].Member = models.NoUnit
	}
	if ui >= 0 {
		r.Units = slices.Delete(r.Units, ui, ui+1)
	}
	if refs > 0 {
		res.stripPartners(name)
	}
	r.Log(models.HistoryDelete, name, fmt.Sprintf("unit %s deleted, %d members released", name, len(members)))

	metrics.Inc(metrics.RepairsTotal)
	res.logger.Info("deleted unit", "name", name, "members_released", len(members), "relations_removed", refs)
	return nil
}

// SplitCandidates returns the units the members of unit may be moved to.
func (res *Resolver) SplitCandidates(unit string) []string {
	var out []string
	for i := range res.roster.Units {
		if name := res.roster.Units[i].Name; name != unit {
			out = append(out, name)
		}
	}
	return out
}

// Split moves every member of unit to the existing unit named in assignment (character -> unit).
// When unit itself does not exist, relations naming it are removed too, so the reference is gone.
// The assignment is validated in full before anything changes.
func (res *Resolver) Split(unit string, assignment map[string]string) error {
	r := res.roster
	members := r.MembersOf(unit)
	if len(members) == 0 {
		return fmt.Errorf("split %q: %w: no members", unit, ErrInapplicable)
	}
	candidates := res.SplitCandidates(unit)
	if len(candidates) == 0 {
		return fmt.Errorf("split %q: %w: no other units to move members to", unit, ErrInapplicable)
	}

	for _, i := range members {
		name := r.Characters[i].Name
		target, ok := assignment[name]
		if !ok {
			return fmt.Errorf("split %q: %w: no target for %q", unit, ErrInapplicable, name)
		}
		if !slices.Contains(candidates, target) {
			return fmt.Errorf("split %q: %w: target %q for %q is not an existing unit", unit, ErrInapplicable, target, name)
		}
	}

	for _, i := range members {
		r.Characters[i].Member = assignment[r.Characters[i].Name]
	}
	stripped := 0
	if r.FindUnit(unit) < 0 && res.partnerIsUnit(unit) {
		stripped = res.stripPartners(unit)
	}
	r.Log(models.HistorySplit, unit, fmt.Sprintf("unit %s split across %d members", unit, len(members)))

	metrics.Inc(metrics.RepairsTotal)
	res.logger.Info("split unit", "name", unit, "members", len(members), "relations_removed", stripped)
	return nil
}

// Refactor renames name to newName, or deletes it when newName is empty, in one step.
func (res *Resolver) Refactor(kind models.Kind, name, newName string) error {
	switch kind {
	case models.KindCharacter:
		if newName == "" {
			return res.DeleteCharacter(name)
		}
		_, err := res.RenameCharacter(name, newName)
		return err
	case models.KindUnit:
		if newName == "" {
			return res.DeleteUnit(name)
		}
		_, err := res.RenameUnit(name, newName)
		return err
	default:
		return fmt.Errorf("refactor %q: unknown kind %q", name, kind)
	}
}
