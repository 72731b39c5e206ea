package verify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

func character(name, member string, partners ...string) models.Character {
	c := models.NewCharacter(name)
	c.Member = member
	for _, p := range partners {
		c.Relations = append(c.Relations, models.Relation{Partner: p})
	}
	return c
}

func unit(name string, rank int, partners ...string) models.Unit {
	u := models.NewUnit(name)
	u.Rank = rank
	for _, p := range partners {
		u.Relations = append(u.Relations, models.Relation{Partner: p})
	}
	return u
}

func TestMemberships_ScenarioMissingUnit(t *testing.T) {
	chars := []models.Character{character("Ava", "Alpha")}
	assert.Equal(t, []string{"Alpha"}, Memberships(chars, nil))
}

func TestMemberships_ExcludesSentinelAndExisting(t *testing.T) {
	chars := []models.Character{
		character("Ava", "Alpha"),
		character("Ken", models.NoUnit),
		character("Mira", "Ghost"),
		character("Ola", "Ghost"),
		character("Pim", ""),
	}
	units := []models.Unit{unit("Alpha", 1)}

	assert.Equal(t, []string{"Ghost"}, Memberships(chars, units))
}

func TestMemberships_EmptyWhenConsistent(t *testing.T) {
	chars := []models.Character{character("Ava", "Alpha")}
	units := []models.Unit{unit("Alpha", 1)}
	assert.Empty(t, Memberships(chars, units))
}

func TestRelations_ChecksBothNameSpaces(t *testing.T) {
	chars := []models.Character{
		character("Ava", models.NoUnit, "Ken", "Alpha", "Ghost"),
		character("Ken", models.NoUnit, "Phantom", "Ghost"),
	}
	units := []models.Unit{
		unit("Alpha", 1, "Ava", "Lost Legion"),
	}

	assert.Equal(t, []string{"Ghost", "Phantom"}, CharacterRelations(chars, units))
	assert.Equal(t, []string{"Lost Legion"}, UnitRelations(chars, units))
}

func TestRelations_DoesNotMutateInputs(t *testing.T) {
	chars := []models.Character{character("Ava", "Ghost", "Nobody")}
	units := []models.Unit{unit("Alpha", 0, "Nobody")}
	before := roster.New(roster.CloneCharacters(chars), roster.CloneUnits(units), nil)

	_ = CharacterRelations(chars, units)
	_ = UnitRelations(chars, units)
	_ = Memberships(chars, units)
	_ = Sizes(chars, units, models.DefaultCapacity)

	if diff := cmp.Diff(before.Characters, chars); diff != "" {
		t.Fatalf("characters mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before.Units, units); diff != "" {
		t.Fatalf("units mutated (-want +got):\n%s", diff)
	}
}

func TestSizes_ScenarioBravoOverCapacity(t *testing.T) {
	chars := []models.Character{
		character("A", "Bravo"),
		character("B", "Bravo"),
		character("C", "Bravo"),
		character("D", "Alpha"),
	}
	units := []models.Unit{unit("Alpha", 1), unit("Bravo", 1)}

	got := Sizes(chars, units, models.DefaultCapacity)
	require.Len(t, got, 1)
	assert.Equal(t, SizeViolation{Unit: "Bravo", Rank: 1, Members: 3, Capacity: 2}, got[0])
}

func TestSizes_HigherRankHoldsMore(t *testing.T) {
	chars := []models.Character{
		character("A", "Bravo"),
		character("B", "Bravo"),
		character("C", "Bravo"),
	}
	units := []models.Unit{unit("Bravo", 2)}
	assert.Empty(t, Sizes(chars, units, models.DefaultCapacity))
}

func TestRun_GroupsLikeStartupFlow(t *testing.T) {
	r := roster.New(
		[]models.Character{
			character("Ava", "Alpha", "Ken"),
			character("Ken", "Bravo", "Mira"),
			character("Ola", "Bravo"),
			character("Pim", "Bravo"),
		},
		[]models.Unit{unit("Bravo", 1, "Legion")},
		nil,
	)

	rep := Run(r, models.DefaultCapacity)
	assert.Equal(t, []string{"Alpha", "Legion"}, rep.MissingUnits)
	assert.Equal(t, []string{"Mira"}, rep.MissingCharacters)
	require.Len(t, rep.Oversized, 1)
	assert.Equal(t, "Bravo", rep.Oversized[0].Unit)
	assert.False(t, rep.Clean())
}

func TestReport_CleanIgnoresCapacity(t *testing.T) {
	rep := Report{Oversized: []SizeViolation{{Unit: "Bravo"}}}
	assert.True(t, rep.Clean())
}

func TestDangling(t *testing.T) {
	r := roster.New(
		[]models.Character{
			character("Ava", "Alpha", "Ken", "Ghost"),
			character("Ken", models.NoUnit),
		},
		[]models.Unit{unit("Bravo", 1, "Ken")},
		nil,
	)

	assert.True(t, DanglingUnit(r, "Alpha"))
	assert.False(t, DanglingUnit(r, "Bravo"))
	assert.False(t, DanglingUnit(r, "Ken"), "Ken is a character partner, not a missing unit")
	assert.True(t, DanglingCharacter(r, "Ghost"))
	assert.False(t, DanglingCharacter(r, "Ken"))
	assert.False(t, DanglingCharacter(r, "Unreferenced"))
}
