package graphsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

type fakeTx struct {
	ran    []string
	failAt int
}

func (f *fakeTx) Run(_ context.Context, cypher string, _ map[string]any) (neo4j.ResultWithContext, error) {
	if f.failAt > 0 && len(f.ran) == f.failAt {
		return nil, errors.New("boom")
	}
	f.ran = append(f.ran, cypher)
	return nil, nil
}

func world() *roster.Roster {
	ava := models.NewCharacter("Ava")
	ava.Member = "Alpha"
	ava.Rank = 3
	ava.Relations = []models.Relation{
		{Partner: "Ken", Description: "spars with", Tags: []string{"rival"}},
		{Partner: "Alpha", Description: "leads"},
		{Partner: "Ghost", Description: "haunted by"},
	}
	ken := models.NewCharacter("Ken")
	ken.Member = "Missing"

	return roster.New([]models.Character{ava, ken}, []models.Unit{models.NewUnit("Alpha")}, nil)
}

func TestStatements(t *testing.T) {
	stmts := Statements(world())

	// clear, 2 characters, 1 unit, 1 membership, 2 relations
	require.Len(t, stmts, 7)
	assert.Equal(t, clearCypher, stmts[0].Cypher)

	assert.Equal(t, "Ava", stmts[1].Params["name"])
	assert.Equal(t, int64(3), stmts[1].Params["rank"])
	assert.Equal(t, "Apprentice", stmts[1].Params["rankName"])
	assert.Equal(t, []string{}, stmts[1].Params["aspects"])

	assert.Equal(t, "Alpha", stmts[3].Params["name"])
	assert.Equal(t, "Unassigned", stmts[3].Params["rankName"])

	assert.Equal(t, memberCypher, stmts[4].Cypher)
	assert.Equal(t, map[string]any{"character": "Ava", "unit": "Alpha"}, stmts[4].Params)

	assert.Contains(t, stmts[5].Cypher, "(a:Character {name: $from}), (b:Character {name: $to})")
	assert.Equal(t, []string{"rival"}, stmts[5].Params["tags"])
	assert.Contains(t, stmts[6].Cypher, "(b:Unit {name: $to})")
	assert.Equal(t, "leads", stmts[6].Params["description"])
}

func TestStatements_Empty(t *testing.T) {
	stmts := Statements(roster.New(nil, nil, nil))
	require.Len(t, stmts, 1)
	assert.True(t, strings.HasPrefix(stmts[0].Cypher, "MATCH"))
}

func TestApply(t *testing.T) {
	stmts := Statements(world())

	tx := &fakeTx{}
	require.NoError(t, apply(context.Background(), tx, stmts))
	assert.Len(t, tx.ran, len(stmts))

	tx = &fakeTx{failAt: 2}
	err := apply(context.Background(), tx, stmts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2")
	assert.Len(t, tx.ran, 2)
}
