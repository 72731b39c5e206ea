package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/render"
	"github.com/ajitpratap0/troupe/internal/verify"
)

func sizesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "Show units holding more members than their rank allows",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st := newStore(logger)
			defer func() { _ = st.Close() }()

			r, err := st.Load(ctx)
			if err != nil {
				return fmt.Errorf("sizes: loading: %w", err)
			}
			render.Sizes(cmd.OutOrStdout(), verify.Sizes(r.Characters, r.Units, capacity()))
			return nil
		},
	}
}
