package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/graphsync"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replace the Neo4j graph with the current knowledge base",
		Long: `Writes one node per character and unit, MEMBER_OF edges for memberships and RELATES_TO
edges for relations. Missing units and partners are left out. Connection settings come from
the neo4j section of the config; the password may also be given as NEO4J_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st := newStore(logger)
			defer func() { _ = st.Close() }()

			r, err := st.Load(ctx)
			if err != nil {
				return fmt.Errorf("sync: loading: %w", err)
			}

			logger.Debug("sync: connecting", "neo4j", cfg.Neo4j.String())
			syncer, err := graphsync.NewSyncer(ctx, graphsync.Config{
				URI:      cfg.Neo4j.URI,
				Username: cfg.Neo4j.Username,
				Password: cfg.Neo4j.Password,
				Database: cfg.Neo4j.Database,
			}, logger)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			defer func() { _ = syncer.Close(ctx) }()

			n, err := syncer.Sync(ctx, r)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Synced %d characters and %d units (%d statements).\n",
				len(r.Characters), len(r.Units), n)
			return nil
		},
	}
}
