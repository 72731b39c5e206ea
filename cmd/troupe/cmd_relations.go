package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/render"
	"github.com/ajitpratap0/troupe/internal/store"
	"github.com/ajitpratap0/troupe/internal/symmetry"
)

func relationsCmd() *cobra.Command {
	var (
		add    bool
		mirror bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List relations that have no reverse",
		Long: `Lists every relation A -> B where B exists but holds no relation back to A.
One-sided relations are allowed; this is a report, not an error.

With --add, you are asked for each one whether to write the reverse and how to describe it.
With --mirror, every reverse is written with the same description and tags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if add && mirror {
				return fmt.Errorf("relations: --add and --mirror are mutually exclusive")
			}
			logger := newLogger()
			ctx := cmd.Context()

			st := newStore(logger)
			defer func() { _ = st.Close() }()

			var author symmetry.Author
			switch {
			case mirror:
				author = symmetry.MirrorAuthor
			case add:
				p, err := newPrompter()
				if err != nil {
					return fmt.Errorf("relations: opening prompt: %w", err)
				}
				defer func() { _ = p.Close() }()
				author = symmetry.PromptAuthor(p)
			}
			return runRelations(ctx, cmd.OutOrStdout(), st, author, logger, capacity(), force)
		},
	}

	cmd.Flags().BoolVar(&add, "add", false, "ask for the reverse of each one-sided relation, then save")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "write every missing reverse as a copy of the forward relation, then save")
	cmd.Flags().BoolVar(&force, "force", false, "save even if missing units or characters remain")
	return cmd
}

// runRelations lists one-sided relations and, when author is non-nil, closes them and saves.
func runRelations(ctx context.Context, w io.Writer, st store.Store, author symmetry.Author,
	logger *slog.Logger, policy models.CapacityPolicy, force bool) error {
	r, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("relations: loading: %w", err)
	}

	render.Edges(w, symmetry.OneSided(r.Characters, r.Units))
	if author == nil {
		return nil
	}

	added, err := symmetry.New(r, logger).AddMissing(author)
	if err != nil {
		return fmt.Errorf("relations: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Added %d reverse relations.\n", added)
	if added == 0 {
		return nil
	}
	if err := save(ctx, st, r, policy, force); err != nil {
		return fmt.Errorf("relations: saving: %w", err)
	}
	return nil
}
