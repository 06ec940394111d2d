package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"library-lending/library"
	"library-lending/logging"
)

const (
	defaultDBFile      = "library.db"
	defaultJournalFile = library.DefaultJournalPath
)

// config holds the persistent flags shared by every subcommand.
type config struct {
	dbPath      string
	journalPath string
	logLevel    string
	today       string
	asJSON      bool
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Track library items and who has borrowed them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.dbPath, "db", getEnv("LIBRARY_DB", defaultDBFile), "SQLite database file")
	flags.StringVar(&cfg.journalPath, "journal", getEnv("LIBRARY_JOURNAL", defaultJournalFile), "lending log file (empty disables it)")
	flags.StringVar(&cfg.logLevel, "log-level", getEnv("LOG_LEVEL", "info"), "debug, info, warn or error")
	flags.StringVar(&cfg.today, "today", "", "pretend the current date is YYYY-MM-DD")
	flags.BoolVar(&cfg.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newCatalogCmd(cfg),
		newSearchCmd(cfg),
		newBorrowCmd(cfg),
		newReturnCmd(cfg),
		newOverdueCmd(cfg),
		newHistoryCmd(cfg),
		newEventsCmd(cfg),
		newWatchCmd(cfg),
		newShellCmd(cfg),
	)
	return root
}

// openManager sets up logging and opens the library described by cfg.
func openManager(cfg *config, extra ...library.Option) (*library.LibraryManager, *slog.Logger, error) {
	logger := logging.SetupWithLevel(logging.ParseLevel(cfg.logLevel))

	opts := []library.Option{library.WithLogger(logger)}
	if cfg.today != "" {
		date, err := library.ParseDate(cfg.today)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, library.WithClock(&library.FixedClock{Date: date}))
	}
	if cfg.journalPath != "" {
		opts = append(opts, library.WithJournal(cfg.journalPath))
	}
	opts = append(opts, extra...)

	mgr, err := library.NewLibraryManager(cfg.dbPath, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open library %s: %w", cfg.dbPath, err)
	}
	return mgr, logger, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
