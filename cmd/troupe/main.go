package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/troupe/internal/config"
	"github.com/ajitpratap0/troupe/internal/models"
	"github.com/ajitpratap0/troupe/internal/prompt"
	"github.com/ajitpratap0/troupe/internal/roster"
	"github.com/ajitpratap0/troupe/internal/store"
	"github.com/ajitpratap0/troupe/internal/verify"
)

var (
	cfg        *config.Config
	configFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "troupe",
		Short: "troupe keeps a cast of characters and units consistent",
		Long: "troupe loads a knowledge base of characters and the units they belong to, finds dangling " +
			"memberships and relations, repairs them, and prints filtered views of the cast.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml or ~/.troupe/config.yaml)")

	rootCmd.AddCommand(
		verifyCmd(),
		sizesCmd(),
		relationsCmd(),
		renameCmd(),
		deleteCmd(),
		splitCmd(),
		printCmd(),
		randomCmd(),
		shellCmd(),
		syncCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newStore(logger *slog.Logger) store.Store {
	return store.NewFileStore(store.FileConfig{
		Root:          cfg.Data.Root,
		CharactersDir: cfg.Data.CharactersDir,
		UnitsDir:      cfg.Data.UnitsDir,
		HistoryFile:   cfg.Data.HistoryFile,
	}, logger)
}

func newPrompter() (*prompt.Readline, error) {
	return prompt.NewReadline(cfg.Shell.HistoryFile)
}

func capacity() models.CapacityPolicy {
	return cfg.Ranks.Capacity()
}

// save writes r unless reference violations remain. force skips the check.
func save(ctx context.Context, st store.Store, r *roster.Roster, policy models.CapacityPolicy, force bool) error {
	if !force {
		if rep := verify.Run(r, policy); !rep.Clean() {
			return fmt.Errorf("%w: %d missing units, %d missing characters; resolve them first or pass --force",
				store.ErrDirty, len(rep.MissingUnits), len(rep.MissingCharacters))
		}
	}
	return st.Save(ctx, r)
}
