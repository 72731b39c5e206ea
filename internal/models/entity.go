package models

import (
	"fmt"
	"slices"
	"strings"
)

const (
	// NoUnit is the member value of a character that belongs to no unit.
	NoUnit = "None"

	// NoHistory marks a record without a back-reference into the history log.
	NoHistory = -1
)

// Kind distinguishes the two entity name spaces.
type Kind string

const (
	KindCharacter Kind = "character"
	KindUnit      Kind = "unit"
)

// ValidKinds is the set of all entity kinds.
var ValidKinds = []Kind{KindCharacter, KindUnit}

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	for i := range ValidKinds {
		if k == ValidKinds[i] {
			return true
		}
	}
	return false
}

// Relation is a directed, described edge to another entity of either kind.
// Partner is a lookup key, never an owning reference.
type Relation struct {
	Partner     string   `json:"partner" yaml:"partner"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// HasTag reports whether the relation carries the given tag.
func (r Relation) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// String renders the relation the way it appears in listings.
func (r Relation) String() string {
	var b strings.Builder
	b.WriteString(r.Partner)
	if r.Description != "" {
		fmt.Fprintf(&b, ": %s", r.Description)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(r.Tags, ", "))
	}
	return b.String()
}

// Record is the capability set shared by characters and units.
type Record struct {
	Name         string     `json:"name"`
	Rank         int        `json:"rank"`
	Aspects      []string   `json:"aspects,omitempty"`
	Relations    []Relation `json:"relations,omitempty"`
	HistoryIndex int        `json:"history_index"`

	// Body is the free text that follows the record's front matter on disk.
	Body string `json:"body,omitempty"`
}

// Core returns the shared record. Character and Unit pointers get it by embedding.
func (r *Record) Core() *Record { return r }

// HasAspect reports whether the record lists the aspect.
func (r *Record) HasAspect(aspect string) bool {
	return slices.Contains(r.Aspects, aspect)
}

// HasTag reports whether any relation of the record carries the tag.
func (r *Record) HasTag(tag string) bool {
	for i := range r.Relations {
		if r.Relations[i].HasTag(tag) {
			return true
		}
	}
	return false
}

// RelatesTo reports whether the record holds at least one relation to partner.
func (r *Record) RelatesTo(partner string) bool {
	for i := range r.Relations {
		if r.Relations[i].Partner == partner {
			return true
		}
	}
	return false
}

// AddRelation appends rel with its tags normalized to a set.
func (r *Record) AddRelation(rel Relation) {
	rel.Tags = NormalizeTags(rel.Tags)
	r.Relations = append(r.Relations, rel)
}

// StripPartner removes every relation pointing at partner and returns how many were removed.
func (r *Record) StripPartner(partner string) int {
	before := len(r.Relations)
	r.Relations = slices.DeleteFunc(r.Relations, func(rel Relation) bool {
		return rel.Partner == partner
	})
	return before - len(r.Relations)
}

// RenamePartner rewrites every relation pointing at from so it points at to.
func (r *Record) RenamePartner(from, to string) int {
	n := 0
	for i := range r.Relations {
		if r.Relations[i].Partner == from {
			r.Relations[i].Partner = to
			n++
		}
	}
	return n
}

func (r Record) clone() Record {
	out := r
	out.Aspects = slices.Clone(r.Aspects)
	if r.Relations != nil {
		out.Relations = make([]Relation, len(r.Relations))
		for i, rel := range r.Relations {
			rel.Tags = slices.Clone(rel.Tags)
			out.Relations[i] = rel
		}
	}
	return out
}

// Entity is implemented by *Character and *Unit.
type Entity interface {
	Core() *Record
}

// Character is a person in the knowledge base. Membership is stored here, not on the unit.
type Character struct {
	Record
	Member   string `json:"member"`
	Nickname string `json:"nickname,omitempty"`
}

// NewCharacter returns an unranked character that belongs to no unit.
func NewCharacter(name string) Character {
	return Character{
		Record: Record{Name: name, HistoryIndex: NoHistory},
		Member: NoUnit,
	}
}

// HasUnit reports whether the character belongs to some unit.
func (c *Character) HasUnit() bool {
	return c.Member != "" && c.Member != NoUnit
}

// Clone returns a deep copy.
func (c Character) Clone() Character {
	out := c
	out.Record = c.Record.clone()
	return out
}

// Unit is a group of characters. Its size is the number of characters naming it as member.
type Unit struct {
	Record
}

// NewUnit returns an unranked unit.
func NewUnit(name string) Unit {
	return Unit{Record: Record{Name: name, HistoryIndex: NoHistory}}
}

// Clone returns a deep copy.
func (u Unit) Clone() Unit {
	return Unit{Record: u.Record.clone()}
}

// NormalizeTags trims, drops empties and removes duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
