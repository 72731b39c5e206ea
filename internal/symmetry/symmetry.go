// Package symmetry finds relations declared on one side only and optionally authors the
// missing reverse edge. One-sided relations are allowed; this is an advisory repair.
package symmetry

import (
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/troupe/internal/metrics"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/prompt"
	"github.com/ajitpratap0/troupe/internal/roster"
)

// Edge is a relation From -> To with no relation To -> From.
type Edge struct {
	From     string          `json:"from"`
	FromKind models.Kind     `json:"from_kind"`
	To       string          `json:"to"`
	ToKind   models.Kind     `json:"to_kind"`
	Relation models.Relation `json:"relation"`
}

// String renders the edge as "From -> To".
func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.From, e.To)
}

// Author decides whether to add the reverse of edge. It returns the relation to add to
// edge.To (its Partner is overwritten with edge.From) and false to leave the edge one-sided.
type Author func(edge Edge) (models.Relation, bool, error)

// OneSided returns every relation A -> B where B exists and holds no relation back to A.
// Partners resolve to characters first, then units. Dangling partners are not reported here.
// Each (kind, from, to) triple appears once, in list order, characters first.
func OneSided(chars []models.Character, units []models.Unit) []Edge {
	r := roster.New(chars, units, nil)

	type key struct {
		kind     models.Kind
		from, to string
	}
	seen := make(map[key]struct{})

	var out []Edge
	visit := func(kind models.Kind, rec *models.Record) {
		for _, rel := range rec.Relations {
			k := key{kind, rec.Name, rel.Partner}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}

			partner, partnerKind, ok := r.Lookup(rel.Partner)
			if !ok {
				continue
			}
			if partner.Core().RelatesTo(rec.Name) {
				continue
			}
			out = append(out, Edge{
				From:     rec.Name,
				FromKind: kind,
				To:       rel.Partner,
				ToKind:   partnerKind,
				Relation: rel,
			})
		}
	}
	for i := range chars {
		visit(models.KindCharacter, &chars[i].Record)
	}
	for i := range units {
		visit(models.KindUnit, &units[i].Record)
	}
	return out
}

// Symmetrizer closes one-sided relations on a roster.
type Symmetrizer struct {
	roster *roster.Roster
	logger *slog.Logger
}

// New creates a symmetrizer for r.
func New(r *roster.Roster, logger *slog.Logger) *Symmetrizer {
	return &Symmetrizer{roster: r, logger: logger}
}

// AddMissing offers every one-sided edge to author and appends the accepted reverse
// relations. It returns how many relations were added. Running it again with an author
// that declines everything, or after all edges were closed, changes nothing.
func (s *Symmetrizer) AddMissing(author Author) (int, error) {
	edges := OneSided(s.roster.Characters, s.roster.Units)
	added := 0
	for _, edge := range edges {
		rel, ok, err := author(edge)
		if err != nil {
			return added, fmt.Errorf("authoring reverse of %s: %w", edge, err)
		}
		if !ok {
			continue
		}

		target, _, found := s.roster.Lookup(edge.To)
		if !found {
			continue
		}
		core := target.Core()
		// An earlier edge in this pass may already have closed this pair.
		if core.RelatesTo(edge.From) {
			continue
		}

		rel.Partner = edge.From
		core.AddRelation(rel)
		core.HistoryIndex = s.roster.Log(models.HistoryRelation, edge.To,
			fmt.Sprintf("added relation %s -> %s", edge.To, edge.From))

		added++
		metrics.Inc(metrics.RelationsAdded)
		s.logger.Info("added reverse relation", "from", edge.To, "to", edge.From)
	}
	return added, nil
}

// MirrorAuthor accepts every edge and copies its description and tags.
func MirrorAuthor(edge Edge) (models.Relation, bool, error) {
	return models.Relation{
		Description: edge.Relation.Description,
		Tags:        append([]string(nil), edge.Relation.Tags...),
	}, true, nil
}

// DeclineAuthor leaves every edge one-sided.
func DeclineAuthor(Edge) (models.Relation, bool, error) {
	return models.Relation{}, false, nil
}

// PromptAuthor asks for each edge whether to add the reverse and, if so, for its
// description and comma-separated tags.
func PromptAuthor(p prompt.Prompter) Author {
	return func(edge Edge) (models.Relation, bool, error) {
		question := fmt.Sprintf("%s relates to %s (%s), but not the other way around. Add %s -> %s?",
			edge.From, edge.To, edge.Relation.Description, edge.To, edge.From)
		yes, err := prompt.Confirm(p, question)
		if err != nil || !yes {
			return models.Relation{}, false, err
		}
		desc, err := p.Input(fmt.Sprintf("Describe how %s relates to %s:", edge.To, edge.From))
		if err != nil {
			return models.Relation{}, false, err
		}
		tags, err := prompt.List(p, "Tags (comma separated, empty for none):")
		if err != nil {
			return models.Relation{}, false, err
		}
		return models.Relation{Description: desc, Tags: tags}, true, nil
	}
}
