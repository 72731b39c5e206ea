package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/resolve"
	"github.com/ajitpratap0/troupe/internal/store"
)

func parseKind(s string) (models.Kind, error) {
	k := models.Kind(strings.ToLower(s))
	if !k.IsValid() {
		return "", fmt.Errorf("invalid kind %q: must be character or unit", s)
	}
	return k, nil
}

// repair loads the knowledge base, applies fn and saves the result.
func repair(ctx context.Context, st store.Store, logger *slog.Logger, policy models.CapacityPolicy,
	force bool, fn func(res *resolve.Resolver) error) error {
	r, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading: %w", err)
	}
	if err := fn(resolve.NewResolver(r, nil, logger)); err != nil {
		return err
	}
	if err := save(ctx, st, r, policy, force); err != nil {
		return fmt.Errorf("saving: %w", err)
	}
	return nil
}

func renameCmd() *cobra.Command {
	var (
		kind  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a character or unit everywhere it is referenced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			logger := newLogger()
			st := newStore(logger)
			defer func() { _ = st.Close() }()
			return runRename(cmd.Context(), cmd.OutOrStdout(), st, logger, capacity(), k, args[0], args[1], force)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(models.KindCharacter), "character or unit")
	cmd.Flags().BoolVar(&force, "force", false, "save even if other missing names remain")
	return cmd
}

func runRename(ctx context.Context, w io.Writer, st store.Store, logger *slog.Logger,
	policy models.CapacityPolicy, kind models.Kind, oldName, newName string, force bool) error {
	return repair(ctx, st, logger, policy, force, func(res *resolve.Resolver) error {
		var (
			refs int
			err  error
		)
		if kind == models.KindUnit {
			refs, err = res.RenameUnit(oldName, newName)
		} else {
			refs, err = res.RenameCharacter(oldName, newName)
		}
		if err != nil {
			return fmt.Errorf("rename: %w", err)
		}
		_, _ = fmt.Fprintf(w, "Renamed %s %s to %s (%d references updated).\n", kind, oldName, newName, refs)
		return nil
	})
}

func deleteCmd() *cobra.Command {
	var (
		kind  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a character or unit and every reference to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			logger := newLogger()
			st := newStore(logger)
			defer func() { _ = st.Close() }()
			return repair(cmd.Context(), st, logger, capacity(), force, func(res *resolve.Resolver) error {
				if err := res.Refactor(k, args[0], ""); err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s.\n", k, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", string(models.KindCharacter), "character or unit")
	cmd.Flags().BoolVar(&force, "force", false, "save even if other missing names remain")
	return cmd
}

// parseAssignments turns "character=unit" pairs into a map.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		char, unit, ok := strings.Cut(p, "=")
		char, unit = strings.TrimSpace(char), strings.TrimSpace(unit)
		if !ok || char == "" || unit == "" {
			return nil, fmt.Errorf("invalid assignment %q: want character=unit", p)
		}
		out[char] = unit
	}
	return out, nil
}

func splitCmd() *cobra.Command {
	var (
		assign []string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "split <unit>",
		Short: "Move every member of a unit into other existing units",
		Long: `Moves each member of <unit> to the unit named by --assign character=unit.
Every member must be assigned. When <unit> itself does not exist, relations naming it are removed too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assignment, err := parseAssignments(assign)
			if err != nil {
				return err
			}
			logger := newLogger()
			st := newStore(logger)
			defer func() { _ = st.Close() }()
			return repair(cmd.Context(), st, logger, capacity(), force, func(res *resolve.Resolver) error {
				if err := res.Split(args[0], assignment); err != nil {
					return fmt.Errorf("split: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Split %s across %d members.\n", args[0], len(assignment))
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&assign, "assign", nil, "character=unit, repeat for every member")
	cmd.Flags().BoolVar(&force, "force", false, "save even if other missing names remain")
	return cmd
}
