package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/filter"
	"github.com/ajitpratap0/troupe/internal/render"
	"github.com/ajitpratap0/troupe/internal/store"
)

func randomCmd() *cobra.Command {
	var (
		count     int
		rules     []string
		seed      uint64
		pullUnits bool
	)

	cmd := &cobra.Command{
		Use:   "random",
		Short: "Print full sheets of randomly chosen characters or units",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			logger := newLogger()
			st := newStore(logger)
			defer func() { _ = st.Close() }()
			return runRandom(cmd.Context(), cmd.OutOrStdout(), st, count, pullUnits, rules, newRand(seed))
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of entities to pull")
	cmd.Flags().BoolVar(&pullUnits, "units", false, "pull units, each with its members, instead of characters")
	cmd.Flags().StringArrayVar(&rules, "rule", nil, "filter rule applied before pulling, repeatable")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}

func runRandom(ctx context.Context, w io.Writer, st store.Store, count int, pullUnits bool,
	rules []string, rng *rand.Rand) error {
	r, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("random: loading: %w", err)
	}
	chars, units, err := filter.Rules(rules, r.Characters, r.Units)
	if err != nil {
		return fmt.Errorf("random: %w", err)
	}
	if pullUnits {
		if render.RandomUnits(w, rng, count, chars, units) == 0 {
			_, _ = fmt.Fprintln(w, "(no units)")
		}
		return nil
	}
	if render.Random(w, rng, count, chars, units) == 0 {
		_, _ = fmt.Fprintln(w, "(no characters)")
	}
	return nil
}
