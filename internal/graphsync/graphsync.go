// Package graphsync mirrors the knowledge base into Neo4j: one node per entity,
// MEMBER_OF edges for memberships and RELATES_TO edges for relations.
// Every sync replaces the previous graph.
package graphsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ajitpratap0/troupe/internal/metrics"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/roster"
)

// Config holds Neo4j connection settings.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Statement is one parameterized Cypher statement.
type Statement struct {
	Cypher string
	Params map[string]any
}

const clearCypher = `MATCH (n) WHERE n:Character OR n:Unit DETACH DELETE n`

const characterCypher = `
	MERGE (c:Character {name: $name})
	SET c.rank = $rank, c.rank_name = $rankName, c.nickname = $nickname, c.aspects = $aspects`

const unitCypher = `
	MERGE (u:Unit {name: $name})
	SET u.rank = $rank, u.rank_name = $rankName, u.aspects = $aspects`

const memberCypher = `
	MATCH (c:Character {name: $character}), (u:Unit {name: $unit})
	MERGE (c)-[:MEMBER_OF]->(u)`

func label(kind models.Kind) string {
	if kind == models.KindUnit {
		return "Unit"
	}
	return "Character"
}

func relationCypher(from, to models.Kind) string {
	return fmt.Sprintf(`
	MATCH (a:%s {name: $from}), (b:%s {name: $to})
	CREATE (a)-[:RELATES_TO {description: $description, tags: $tags}]->(b)`, label(from), label(to))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Statements builds the statements that replace the graph with r. Dangling memberships
// and relations are left out.
func Statements(r *roster.Roster) []Statement {
	out := []Statement{{Cypher: clearCypher}}

	for i := range r.Characters {
		c := &r.Characters[i]
		out = append(out, Statement{Cypher: characterCypher, Params: map[string]any{
			"name":     c.Name,
			"rank":     int64(c.Rank),
			"rankName": models.RankName(models.CharacterRankings, c.Rank),
			"nickname": c.Nickname,
			"aspects":  nonNil(c.Aspects),
		}})
	}
	for i := range r.Units {
		u := &r.Units[i]
		out = append(out, Statement{Cypher: unitCypher, Params: map[string]any{
			"name":     u.Name,
			"rank":     int64(u.Rank),
			"rankName": models.RankName(models.UnitRankings, u.Rank),
			"aspects":  nonNil(u.Aspects),
		}})
	}

	for i := range r.Characters {
		c := &r.Characters[i]
		if !c.HasUnit() || r.FindUnit(c.Member) < 0 {
			continue
		}
		out = append(out, Statement{Cypher: memberCypher, Params: map[string]any{
			"character": c.Name,
			"unit":      c.Member,
		}})
	}

	relations := func(kind models.Kind, rec *models.Record) {
		for _, rel := range rec.Relations {
			_, partnerKind, ok := r.Lookup(rel.Partner)
			if !ok {
				continue
			}
			out = append(out, Statement{Cypher: relationCypher(kind, partnerKind), Params: map[string]any{
				"from":        rec.Name,
				"to":          rel.Partner,
				"description": rel.Description,
				"tags":        nonNil(rel.Tags),
			}})
		}
	}
	for i := range r.Characters {
		relations(models.KindCharacter, &r.Characters[i].Record)
	}
	for i := range r.Units {
		relations(models.KindUnit, &r.Units[i].Record)
	}
	return out
}

// runner is satisfied by neo4j.ManagedTransaction.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
}

// apply runs every statement in order and stops at the first failure.
func apply(ctx context.Context, tx runner, stmts []Statement) error {
	for i, st := range stmts {
		if _, err := tx.Run(ctx, st.Cypher, st.Params); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

// Syncer writes rosters to Neo4j.
type Syncer struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// NewSyncer connects to Neo4j and verifies the connection.
func NewSyncer(ctx context.Context, cfg Config, logger *slog.Logger) (*Syncer, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", cfg.URI, err)
	}
	return &Syncer{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Sync replaces the graph with r in a single write transaction and returns the number of
// statements executed.
func (s *Syncer) Sync(ctx context.Context, r *roster.Roster) (int, error) {
	stmts := Statements(r)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, apply(ctx, tx, stmts)
	})
	if err != nil {
		return 0, fmt.Errorf("syncing graph: %w", err)
	}

	metrics.Inc(metrics.GraphSynced)
	s.logger.Info("graph synced",
		"characters", len(r.Characters), "units", len(r.Units), "statements", len(stmts))
	return len(stmts), nil
}

// Close releases the driver.
func (s *Syncer) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
