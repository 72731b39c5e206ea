package render

import (
	"bytes"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/symmetry"
	"github.com/ajitpratap0/troupe/internal/verify"
)

func world() ([]models.Character, []models.Unit) {
	ava := models.NewCharacter("Ava")
	ava.Member = "Alpha"
	ava.Rank = 7
	ava.Nickname = "Ace"
	ava.Aspects = []string{"brave", "loud"}
	ava.Relations = []models.Relation{{Partner: "Ken", Description: "spars with", Tags: []string{"rival"}}}
	ava.Body = "Grew up on the docks.\n"

	ken := models.NewCharacter("Ken")
	ken.Member = "Alpha"
	ken.Rank = 2

	mira := models.NewCharacter("Mira")
	mira.Member = "Ghost Company"

	alpha := models.NewUnit("Alpha")
	alpha.Rank = 2
	alpha.Aspects = []string{"naval"}

	return []models.Character{ava, ken, mira}, []models.Unit{alpha, models.NewUnit("Bravo")}
}

func TestAll(t *testing.T) {
	chars, units := world()
	var buf bytes.Buffer
	All(&buf, chars, units)

	out := buf.String()
	assert.Contains(t, out, "Characters (3)")
	assert.Contains(t, out, "Units (2)")
	assert.Contains(t, out, "Myth")
	assert.Contains(t, out, "Ken: spars with [rival]")
	assert.Contains(t, out, "brave, loud")
	assert.Contains(t, out, "Ava, Ken", "units list their members")
}

func TestAll_Empty(t *testing.T) {
	var buf bytes.Buffer
	All(&buf, nil, nil)
	assert.Contains(t, buf.String(), "Characters (0)")
	assert.Contains(t, buf.String(), "Units (0)")
}

func TestByRank_HighestFirst(t *testing.T) {
	chars, units := world()
	var buf bytes.Buffer
	ByRank(&buf, chars, units)

	out := buf.String()
	myth := strings.Index(out, "Myth (1)")
	novice := strings.Index(out, "Novice (1)")
	unassigned := strings.Index(out, "Unassigned (1)")
	require.True(t, myth >= 0 && novice >= 0 && unassigned >= 0, out)
	assert.Less(t, myth, novice)
	assert.Less(t, novice, unassigned)
	assert.NotContains(t, out, "Legend (")
	assert.Contains(t, out, "Squad (1)")
}

func TestFull(t *testing.T) {
	chars, units := world()
	var buf bytes.Buffer
	Full(&buf, &chars[0], chars, units)

	out := buf.String()
	assert.Contains(t, out, "Ava")
	assert.Contains(t, out, "Ace")
	assert.Contains(t, out, "Alpha, Squad")
	assert.Contains(t, out, "naval")
	assert.Contains(t, out, "Ken")
	assert.Contains(t, out, "Grew up on the docks.")
}

func TestFull_MissingUnit(t *testing.T) {
	chars, units := world()
	var buf bytes.Buffer
	Full(&buf, &chars[2], chars, units)
	assert.Contains(t, buf.String(), "Ghost Company")
	assert.Contains(t, buf.String(), "(missing)")
}

func TestRandom(t *testing.T) {
	chars, units := world()
	var buf bytes.Buffer
	n := Random(&buf, rand.New(rand.NewPCG(1, 2)), 10, chars, units)
	assert.Equal(t, 3, n)
	for _, c := range chars {
		assert.Contains(t, buf.String(), c.Name)
	}

	buf.Reset()
	assert.Equal(t, 0, Random(&buf, rand.New(rand.NewPCG(1, 2)), 1, nil, units))
}

func TestFullUnit(t *testing.T) {
	chars, units := world()
	units[0].Body = "Harbour patrol.\n"
	var buf bytes.Buffer
	FullUnit(&buf, &units[0], chars)

	out := buf.String()
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Squad")
	assert.Contains(t, out, "naval")
	assert.Contains(t, out, "Members (2)")
	assert.Contains(t, out, "Ace")
	assert.Contains(t, out, "Myth")
	assert.NotContains(t, out, "Mira")
	assert.Contains(t, out, "Harbour patrol.")

	buf.Reset()
	FullUnit(&buf, &units[1], chars)
	assert.Contains(t, buf.String(), "Members (0)")
}

func TestRandomUnits(t *testing.T) {
	chars, units := world()
	var buf bytes.Buffer
	assert.Equal(t, 2, RandomUnits(&buf, rand.New(rand.NewPCG(1, 2)), 5, chars, units))
	assert.Contains(t, buf.String(), "Alpha")
	assert.Contains(t, buf.String(), "Bravo")

	buf.Reset()
	assert.Equal(t, 1, RandomUnits(&buf, rand.New(rand.NewPCG(1, 2)), 1, chars, units))
	assert.Equal(t, 0, RandomUnits(&buf, rand.New(rand.NewPCG(1, 2)), 1, chars, nil))
}

func TestPrint_UnknownMode(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Print(&buf, Mode("sideways"), nil, nil, nil))
	assert.False(t, Mode("sideways").IsValid())
	assert.True(t, ModeRank.IsValid())
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, verify.Report{})
	assert.Contains(t, buf.String(), "No missing")

	buf.Reset()
	Report(&buf, verify.Report{MissingUnits: []string{"Alpa"}, MissingCharacters: []string{"Kenn"}})
	assert.Contains(t, buf.String(), "Missing units (1)")
	assert.Contains(t, buf.String(), "Alpa")
	assert.Contains(t, buf.String(), "Kenn")
}

func TestSizesAndEdges(t *testing.T) {
	var buf bytes.Buffer
	Sizes(&buf, []verify.SizeViolation{{Unit: "Bravo", Rank: 1, Members: 3, Capacity: 2}})
	assert.Contains(t, buf.String(), "Bravo")
	assert.Contains(t, buf.String(), "Crew")

	buf.Reset()
	Edges(&buf, []symmetry.Edge{{From: "Ken", FromKind: models.KindCharacter, To: "Mira", ToKind: models.KindCharacter, Relation: models.Relation{Partner: "Mira", Description: "admires"}}})
	assert.Contains(t, buf.String(), "One-sided relations (1)")
	assert.Contains(t, buf.String(), "admires")
}
