package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/filter"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/prompt"
	"github.com/ajitpratap0/troupe/internal/render"
	"github.com/ajitpratap0/troupe/internal/resolve"
	"github.com/ajitpratap0/troupe/internal/roster"
	"github.com/ajitpratap0/troupe/internal/store"
	"github.com/ajitpratap0/troupe/internal/symmetry"
	"github.com/ajitpratap0/troupe/internal/verify"
)

var shellMenu = []string{
	"Done",
	"Verify Unit Size",
	"Add Missing Relations",
	"Print",
	"Random Pull",
	"Write to File",
}

var printMenu = []string{
	"Back",
	"[All] Print",
	"[All] Print By Rank",
	"[All] Random Full",
	"[Filter] Print",
	"[Filter] Print By Rank",
	"[Filter] Random Full",
}

func shellCmd() *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive session over the knowledge base",
		Long: `Loads the knowledge base, reports missing units and characters and offers to repair them,
then loops over a menu until Done. Nothing is written until "Write to File" is chosen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st := newStore(logger)
			defer func() { _ = st.Close() }()

			p, err := newPrompter()
			if err != nil {
				return fmt.Errorf("shell: opening prompt: %w", err)
			}
			defer func() { _ = p.Close() }()

			return runShell(cmd.Context(), cmd.OutOrStdout(), st, p, logger, capacity(), newRand(seed))
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed for random pulls (0 picks one)")
	return cmd
}

type shell struct {
	w      io.Writer
	st     store.Store
	p      prompt.Prompter
	logger *slog.Logger
	policy models.CapacityPolicy
	rng    *rand.Rand

	roster *roster.Roster
	dirty  bool
}

func runShell(ctx context.Context, w io.Writer, st store.Store, p prompt.Prompter, logger *slog.Logger,
	policy models.CapacityPolicy, rng *rand.Rand) error {
	r, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("shell: loading: %w", err)
	}
	sh := &shell{w: w, st: st, p: p, logger: logger, policy: policy, rng: rng, roster: r}

	if err := sh.startup(); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		choice, err := p.Choose("What next?", shellMenu)
		if err != nil {
			return fmt.Errorf("shell: %w", err)
		}

		switch choice {
		case 0:
			if !sh.dirty {
				return nil
			}
			leave, err := prompt.Confirm(p, "There are unsaved changes. Quit anyway?")
			if err != nil {
				return fmt.Errorf("shell: %w", err)
			}
			if leave {
				logger.Warn("shell: unsaved changes discarded")
				return nil
			}
		case 1:
			render.Sizes(w, verify.Sizes(r.Characters, r.Units, policy))
		case 2:
			err = sh.addRelations()
		case 3:
			err = sh.print()
		case 4:
			err = sh.randomPull()
		case 5:
			sh.write(ctx)
		}
		if err != nil {
			return fmt.Errorf("shell: %w", err)
		}
	}
}

// startup reports reference violations and offers to repair them.
func (sh *shell) startup() error {
	rep := verify.Run(sh.roster, sh.policy)
	render.Report(sh.w, rep)
	render.Sizes(sh.w, rep.Oversized)
	if rep.Clean() {
		return nil
	}

	ok, err := prompt.Confirm(sh.p, "Resolve missing names now?")
	if err != nil || !ok {
		return err
	}
	sum, err := resolve.NewResolver(sh.roster, sh.p, sh.logger).ResolveAll(rep)
	if err != nil {
		return fmt.Errorf("resolving: %w", err)
	}
	_, _ = fmt.Fprintf(sh.w, "Renamed %d, deleted %d, split %d, skipped %d.\n",
		sum.Renamed, sum.Deleted, sum.Split, sum.Skipped)
	if sum.Renamed+sum.Deleted+sum.Split > 0 {
		sh.dirty = true
	}
	return nil
}

func (sh *shell) addRelations() error {
	render.Edges(sh.w, symmetry.OneSided(sh.roster.Characters, sh.roster.Units))
	added, err := symmetry.New(sh.roster, sh.logger).AddMissing(symmetry.PromptAuthor(sh.p))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(sh.w, "Added %d reverse relations.\n", added)
	if added > 0 {
		sh.dirty = true
	}
	return nil
}

// print runs the print submenu. Rules only ever narrow copies of the session lists.
func (sh *shell) print() error {
	choice, err := sh.p.Choose("Print what?", printMenu)
	if err != nil || choice == 0 {
		return err
	}

	var rules []string
	if choice >= 4 {
		rules, err = filter.GenRules(sh.p, sh.roster.UnitNames(), sh.logger)
		if err != nil {
			return err
		}
		choice -= 3
	}

	chars, units, err := filter.Rules(rules, sh.roster.Characters, sh.roster.Units)
	if err != nil {
		_, _ = fmt.Fprintf(sh.w, "Filter failed: %v\n", err)
		return nil
	}
	mode := []render.Mode{render.ModeAll, render.ModeRank, render.ModeFull}[choice-1]
	return render.Print(sh.w, mode, sh.rng, chars, units)
}

func (sh *shell) randomPull() error {
	kind, err := sh.p.Choose("Pull what?", []string{"Characters", "Units"})
	if err != nil {
		return err
	}
	answer, err := sh.p.Input("How many?")
	if err != nil {
		return err
	}
	n, convErr := strconv.Atoi(answer)
	if convErr != nil || n < 1 {
		_, _ = fmt.Fprintf(sh.w, "%q is not a positive number.\n", answer)
		return nil
	}
	if kind == 1 {
		if render.RandomUnits(sh.w, sh.rng, n, sh.roster.Characters, sh.roster.Units) == 0 {
			_, _ = fmt.Fprintln(sh.w, "(no units)")
		}
		return nil
	}
	if render.Random(sh.w, sh.rng, n, sh.roster.Characters, sh.roster.Units) == 0 {
		_, _ = fmt.Fprintln(sh.w, "(no characters)")
	}
	return nil
}

// write saves the session. A refused or failed write is reported and the session continues.
func (sh *shell) write(ctx context.Context) {
	if err := save(ctx, sh.st, sh.roster, sh.policy, false); err != nil {
		if !errors.Is(err, store.ErrDirty) {
			sh.logger.Error("shell: write failed", "error", err)
		}
		_, _ = fmt.Fprintf(sh.w, "Not written: %v\n", err)
		return
	}
	sh.dirty = false
	_, _ = fmt.Fprintln(sh.w, "Written.")
}
