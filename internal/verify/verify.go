// Package verify scans the entity set for dangling references and over-capacity units.
// Every function here is read-only and returns the complete set of violations in one pass.
package verify

import (
	"maps"
	"slices"

	"github.com/ajitpratap0/troupe/internal/metrics"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

// SizeViolation describes a unit holding more members than its rank allows.
type SizeViolation struct {
	Unit     string `json:"unit"`
	Rank     int    `json:"rank"`
	Members  int    `json:"members"`
	Capacity int    `json:"capacity"`
}

// Report is the result of a full verification pass.
type Report struct {
	// MissingUnits holds dangling member values and dangling partners of unit relations.
	MissingUnits []string `json:"missing_units"`
	// MissingCharacters holds dangling partners of character relations.
	MissingCharacters []string        `json:"missing_characters"`
	Oversized         []SizeViolation `json:"oversized,omitempty"`
}

// Clean reports whether the report has no reference violations.
// Capacity violations are advisory and do not count.
func (r Report) Clean() bool {
	return len(r.MissingUnits) == 0 && len(r.MissingCharacters) == 0
}

// Memberships returns the distinct member values that name no existing unit, sorted.
// The sentinel models.NoUnit is never reported.
func Memberships(chars []models.Character, units []models.Unit) []string {
	known := unitSet(units)
	missing := make(map[string]struct{})
	for i := range chars {
		m := chars[i].Member
		if m == "" || m == models.NoUnit {
			continue
		}
		if _, ok := known[m]; !ok {
			missing[m] = struct{}{}
		}
	}
	return sorted(missing)
}

// CharacterRelations returns the relation partners of chars that name neither a character nor a unit.
func CharacterRelations(chars []models.Character, units []models.Unit) []string {
	records := make([]*models.Record, len(chars))
	for i := range chars {
		records[i] = &chars[i].Record
	}
	return danglingPartners(records, chars, units)
}

// UnitRelations returns the relation partners of units that name neither a character nor a unit.
func UnitRelations(chars []models.Character, units []models.Unit) []string {
	records := make([]*models.Record, len(units))
	for i := range units {
		records[i] = &units[i].Record
	}
	return danglingPartners(records, chars, units)
}

func danglingPartners(records []*models.Record, chars []models.Character, units []models.Unit) []string {
	known := characterSet(chars)
	maps.Copy(known, unitSet(units))

	missing := make(map[string]struct{})
	for _, rec := range records {
		for _, rel := range rec.Relations {
			if _, ok := known[rel.Partner]; !ok {
				missing[rel.Partner] = struct{}{}
			}
		}
	}
	return sorted(missing)
}

// Sizes returns every unit whose member count exceeds the capacity of its rank, in unit order.
func Sizes(chars []models.Character, units []models.Unit, policy models.CapacityPolicy) []SizeViolation {
	counts := make(map[string]int, len(units))
	for i := range chars {
		if chars[i].HasUnit() {
			counts[chars[i].Member]++
		}
	}

	var out []SizeViolation
	for i := range units {
		u := &units[i]
		n := counts[u.Name]
		limit := policy.Capacity(u.Rank)
		if n > limit {
			out = append(out, SizeViolation{Unit: u.Name, Rank: u.Rank, Members: n, Capacity: limit})
		}
	}
	return out
}

// Run performs every check over r.
func Run(r *roster.Roster, policy models.CapacityPolicy) Report {
	metrics.Inc(metrics.VerifyTotal)

	units := make(map[string]struct{})
	for _, name := range Memberships(r.Characters, r.Units) {
		units[name] = struct{}{}
	}
	for _, name := range UnitRelations(r.Characters, r.Units) {
		units[name] = struct{}{}
	}

	return Report{
		MissingUnits:      sorted(units),
		MissingCharacters: CharacterRelations(r.Characters, r.Units),
		Oversized:         Sizes(r.Characters, r.Units, policy),
	}
}

// DanglingUnit reports whether name is still reported missing as a unit: no unit carries
// it, and a member field or an unresolvable relation partner references it.
func DanglingUnit(r *roster.Roster, name string) bool {
	if r.FindUnit(name) >= 0 {
		return false
	}
	if len(r.MembersOf(name)) > 0 {
		return true
	}
	return r.FindCharacter(name) < 0 && referencedAsPartner(r, name)
}

// DanglingCharacter reports whether name is a relation partner that names no entity at all.
func DanglingCharacter(r *roster.Roster, name string) bool {
	if _, _, ok := r.Lookup(name); ok {
		return false
	}
	return referencedAsPartner(r, name)
}

func referencedAsPartner(r *roster.Roster, name string) bool {
	for _, e := range r.Entities() {
		if e.Core().RelatesTo(name) {
			return true
		}
	}
	return false
}

func characterSet(chars []models.Character) map[string]struct{} {
	set := make(map[string]struct{}, len(chars))
	for i := range chars {
		set[chars[i].Name] = struct{}{}
	}
	return set
}

func unitSet(units []models.Unit) map[string]struct{} {
	set := make(map[string]struct{}, len(units))
	for i := range units {
		set[units[i].Name] = struct{}{}
	}
	return set
}

func sorted(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
