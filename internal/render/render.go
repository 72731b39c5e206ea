package render

import (
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
	"github.com/ajitpratap0/troupe/internal/symmetry"
	"github.com/ajitpratap0/troupe/internal/verify"
)

// Mode selects one of the print layouts.
type Mode string

const (
	ModeAll  Mode = "all"
	ModeRank Mode = "rank"
	ModeFull Mode = "full"
)

// ValidModes lists the print layouts.
var ValidModes = []Mode{ModeAll, ModeRank, ModeFull}

// IsValid returns true if the mode is recognized.
func (m Mode) IsValid() bool {
	for _, v := range ValidModes {
		if m == v {
			return true
		}
	}
	return false
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func joinRelations(rels []models.Relation) string {
	parts := make([]string, len(rels))
	for i, rel := range rels {
		parts[i] = rel.String()
	}
	return strings.Join(parts, "\n")
}

func characterRows(t table.Writer, chars []models.Character) {
	t.AppendHeader(table.Row{"Name", "Nickname", "Rank", "Unit", "Aspects", "Relations"})
	for i := range chars {
		c := &chars[i]
		t.AppendRow(table.Row{
			c.Name,
			c.Nickname,
			models.RankName(models.CharacterRankings, c.Rank),
			c.Member,
			strings.Join(c.Aspects, ", "),
			joinRelations(c.Relations),
		})
	}
}

func unitRows(t table.Writer, units []models.Unit, chars []models.Character) {
	t.AppendHeader(table.Row{"Name", "Rank", "Members", "Aspects", "Relations"})
	for i := range units {
		u := &units[i]
		t.AppendRow(table.Row{
			u.Name,
			models.RankName(models.UnitRankings, u.Rank),
			strings.Join(memberNames(chars, u.Name), ", "),
			strings.Join(u.Aspects, ", "),
			joinRelations(u.Relations),
		})
	}
}

func memberNames(chars []models.Character, unit string) []string {
	var names []string
	for i := range chars {
		if chars[i].Member == unit {
			names = append(names, chars[i].Name)
		}
	}
	return names
}

func section(w io.Writer, title string, n int) {
	_, _ = fmt.Fprintln(w, sectionStyle.Render(fmt.Sprintf("%s (%d)", title, n)))
}

// All prints every character and then every unit as two tables.
func All(w io.Writer, chars []models.Character, units []models.Unit) {
	section(w, "Characters", len(chars))
	if len(chars) > 0 {
		t := newTable(w)
		characterRows(t, chars)
		t.Render()
	}

	section(w, "Units", len(units))
	if len(units) > 0 {
		t := newTable(w)
		unitRows(t, units, chars)
		t.Render()
	}
}

// ByRank prints characters and units grouped by rank, highest rank first. Empty ranks are omitted.
func ByRank(w io.Writer, chars []models.Character, units []models.Unit) {
	_, _ = fmt.Fprintln(w, titleStyle.Render("Characters by rank"))
	for rank := len(models.CharacterRankings) - 1; rank >= 0; rank-- {
		var group []models.Character
		for i := range chars {
			if clampRank(chars[i].Rank, models.CharacterRankings) == rank {
				group = append(group, chars[i])
			}
		}
		if len(group) == 0 {
			continue
		}
		section(w, models.CharacterRankings[rank], len(group))
		t := newTable(w)
		characterRows(t, group)
		t.Render()
	}

	_, _ = fmt.Fprintln(w, titleStyle.Render("Units by rank"))
	for rank := len(models.UnitRankings) - 1; rank >= 0; rank-- {
		var group []models.Unit
		for i := range units {
			if clampRank(units[i].Rank, models.UnitRankings) == rank {
				group = append(group, units[i])
			}
		}
		if len(group) == 0 {
			continue
		}
		section(w, models.UnitRankings[rank], len(group))
		t := newTable(w)
		unitRows(t, group, chars)
		t.Render()
	}
}

// clampRank places off-ladder ranks in the nearest group.
func clampRank(rank int, ladder []string) int {
	if rank < 0 {
		return 0
	}
	if rank >= len(ladder) {
		return len(ladder) - 1
	}
	return rank
}

// Full prints one character sheet, including the unit it belongs to and that unit's other members.
func Full(w io.Writer, c *models.Character, chars []models.Character, units []models.Unit) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(c.Name))
	field := func(label, value string) {
		if value == "" {
			return
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
	}
	field("Nickname", c.Nickname)
	field("Rank", models.RankName(models.CharacterRankings, c.Rank))
	field("Aspects", strings.Join(c.Aspects, ", "))

	if len(c.Relations) > 0 {
		_, _ = fmt.Fprintln(w, labelStyle.Render("Relations:"))
		for _, rel := range c.Relations {
			_, _ = fmt.Fprintf(w, "  %s\n", rel)
		}
	}

	if !c.HasUnit() {
		field("Unit", models.NoUnit)
	} else {
		r := roster.New(chars, units, nil)
		ui := r.FindUnit(c.Member)
		if ui < 0 {
			field("Unit", c.Member+" "+errorStyle.Render("(missing)"))
		} else {
			u := &units[ui]
			field("Unit", fmt.Sprintf("%s, %s", u.Name, models.RankName(models.UnitRankings, u.Rank)))
			field("Unit aspects", strings.Join(u.Aspects, ", "))
			var others []string
			for _, i := range r.MembersOf(u.Name) {
				if chars[i].Name != c.Name {
					others = append(others, chars[i].Name)
				}
			}
			field("Fellow members", strings.Join(others, ", "))
		}
	}

	if body := strings.TrimSpace(c.Body); body != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, body)
	}
}

// FullUnit prints one unit sheet with a table of its members.
func FullUnit(w io.Writer, u *models.Unit, chars []models.Character) {
	_, _ = fmt.Fprintln(w, titleStyle.Render(u.Name))
	field := func(label, value string) {
		if value == "" {
			return
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label+":"), value)
	}
	field("Rank", models.RankName(models.UnitRankings, u.Rank))
	field("Aspects", strings.Join(u.Aspects, ", "))

	if len(u.Relations) > 0 {
		_, _ = fmt.Fprintln(w, labelStyle.Render("Relations:"))
		for _, rel := range u.Relations {
			_, _ = fmt.Fprintf(w, "  %s\n", rel)
		}
	}

	var members []models.Character
	for i := range chars {
		if chars[i].Member == u.Name {
			members = append(members, chars[i])
		}
	}
	section(w, "Members", len(members))
	if len(members) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Name", "Nickname", "Rank", "Aspects"})
		for i := range members {
			c := &members[i]
			t.AppendRow(table.Row{
				c.Name,
				c.Nickname,
				models.RankName(models.CharacterRankings, c.Rank),
				strings.Join(c.Aspects, ", "),
			})
		}
		t.Render()
	}

	if body := strings.TrimSpace(u.Body); body != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, body)
	}
}

// RandomUnits prints up to n distinct units chosen with rng as full sheets.
// It returns how many were printed.
func RandomUnits(w io.Writer, rng *rand.Rand, n int, chars []models.Character, units []models.Unit) int {
	if n > len(units) {
		n = len(units)
	}
	for k, i := range rng.Perm(len(units))[:n] {
		if k > 0 {
			_, _ = fmt.Fprintln(w)
		}
		FullUnit(w, &units[i], chars)
	}
	return n
}

// Random prints up to n distinct characters chosen with rng as full sheets.
// It returns how many were printed.
func Random(w io.Writer, rng *rand.Rand, n int, chars []models.Character, units []models.Unit) int {
	if n > len(chars) {
		n = len(chars)
	}
	for k, i := range rng.Perm(len(chars))[:n] {
		if k > 0 {
			_, _ = fmt.Fprintln(w)
		}
		Full(w, &chars[i], chars, units)
	}
	return n
}

// Print renders chars and units in the given mode. Full mode prints one random character.
func Print(w io.Writer, mode Mode, rng *rand.Rand, chars []models.Character, units []models.Unit) error {
	switch mode {
	case ModeAll:
		All(w, chars, units)
	case ModeRank:
		ByRank(w, chars, units)
	case ModeFull:
		if Random(w, rng, 1, chars, units) == 0 {
			_, _ = fmt.Fprintln(w, "(no characters)")
		}
	default:
		return fmt.Errorf("unknown print mode %q", mode)
	}
	return nil
}

// Report prints the reference violations of a verifier report.
func Report(w io.Writer, rep verify.Report) {
	if rep.Clean() {
		_, _ = fmt.Fprintln(w, okStyle.Render("No missing units or characters."))
		return
	}
	list := func(title string, names []string) {
		if len(names) == 0 {
			return
		}
		_, _ = fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%s (%d)", title, len(names))))
		for _, n := range names {
			_, _ = fmt.Fprintf(w, "  %s\n", n)
		}
	}
	list("Missing units", rep.MissingUnits)
	list("Missing characters", rep.MissingCharacters)
}

// Sizes prints units holding more members than their rank allows.
func Sizes(w io.Writer, violations []verify.SizeViolation) {
	if len(violations) == 0 {
		_, _ = fmt.Fprintln(w, okStyle.Render("All units are within capacity."))
		return
	}
	_, _ = fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Units over capacity (%d)", len(violations))))
	t := newTable(w)
	t.AppendHeader(table.Row{"Unit", "Rank", "Members", "Capacity"})
	for _, v := range violations {
		t.AppendRow(table.Row{v.Unit, models.RankName(models.UnitRankings, v.Rank), v.Members, v.Capacity})
	}
	t.Render()
}

// Edges prints one-sided relations.
func Edges(w io.Writer, edges []symmetry.Edge) {
	if len(edges) == 0 {
		_, _ = fmt.Fprintln(w, okStyle.Render("Every relation has a reverse."))
		return
	}
	_, _ = fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("One-sided relations (%d)", len(edges))))
	t := newTable(w)
	t.AppendHeader(table.Row{"From", "Kind", "To", "Kind", "Relation"})
	for _, e := range edges {
		t.AppendRow(table.Row{e.From, e.FromKind, e.To, e.ToKind, e.Relation.Description})
	}
	t.Render()
}
