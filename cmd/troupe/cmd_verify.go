package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/prompt"
	"github.com/ajitpratap0/troupe/internal/render"
	"github.com/ajitpratap0/troupe/internal/resolve"
	"github.com/ajitpratap0/troupe/internal/store"
	"github.com/ajitpratap0/troupe/internal/verify"
)

func verifyCmd() *cobra.Command {
	var (
		resolveFlag bool
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report missing units and characters",
		Long: `Checks every character membership and every relation partner against the loaded
characters and units, and reports units holding more members than their rank allows.

With --resolve, each missing name is offered for repair (rename, delete, split or skip)
and the knowledge base is saved afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st := newStore(logger)
			defer func() { _ = st.Close() }()

			if !resolveFlag {
				return runVerify(ctx, cmd.OutOrStdout(), st, capacity())
			}

			p, err := newPrompter()
			if err != nil {
				return fmt.Errorf("verify: opening prompt: %w", err)
			}
			defer func() { _ = p.Close() }()
			return runResolve(ctx, cmd.OutOrStdout(), st, p, logger, capacity(), force)
		},
	}

	cmd.Flags().BoolVar(&resolveFlag, "resolve", false, "interactively repair every missing name, then save")
	cmd.Flags().BoolVar(&force, "force", false, "save even if violations remain")
	return cmd
}

func runVerify(ctx context.Context, w io.Writer, st store.Store, policy models.CapacityPolicy) error {
	r, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("verify: loading: %w", err)
	}
	rep := verify.Run(r, policy)
	render.Report(w, rep)
	render.Sizes(w, rep.Oversized)
	return nil
}

func runResolve(ctx context.Context, w io.Writer, st store.Store, p prompt.Prompter,
	logger *slog.Logger, policy models.CapacityPolicy, force bool) error {
	r, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("verify: loading: %w", err)
	}

	rep := verify.Run(r, policy)
	render.Report(w, rep)
	if rep.Clean() {
		return nil
	}

	sum, err := resolve.NewResolver(r, p, logger).ResolveAll(rep)
	if err != nil {
		return fmt.Errorf("verify: resolving: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Renamed %d, deleted %d, split %d, skipped %d.\n",
		sum.Renamed, sum.Deleted, sum.Split, sum.Skipped)

	render.Report(w, verify.Run(r, policy))
	if err := save(ctx, st, r, policy, force); err != nil {
		return fmt.Errorf("verify: saving: %w", err)
	}
	return nil
}
