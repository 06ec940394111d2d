package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"library-lending/library"
)

func newCatalogCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List every item and its availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()
			return printCatalog(cmd.OutOrStdout(), mgr, cfg.asJSON)
		},
	}
}

func newSearchCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "search [keyword]",
		Short: "Find items whose title contains keyword (case-insensitive)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			keyword := ""
			if len(args) == 1 {
				keyword = args[0]
			}
			items := viewItems(mgr, mgr.SearchByTitle(keyword))
			if cfg.asJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}
			printItems(cmd.OutOrStdout(), items)
			return nil
		},
	}
}

func newBorrowCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "borrow <item-id> <member-id>",
		Short: "Lend an item to a member for 14 days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			rec, err := mgr.Borrow(cmd.Context(), args[0], args[1])
			return reportLending(cmd.OutOrStdout(), mgr, rec, err, cfg.asJSON)
		},
	}
}

func newReturnCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "return <item-id> <member-id>",
		Short: "Take an item back from a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			rec, err := mgr.ReturnItem(cmd.Context(), args[0], args[1])
			return reportLending(cmd.OutOrStdout(), mgr, rec, err, cfg.asJSON)
		},
	}
}

// reportLending prints the outcome of a borrow or return. A *StoreError still
// carries a committed record, so the record is printed before the error is
// passed on.
func reportLending(w io.Writer, mgr *library.LibraryManager, rec library.BorrowRecord, err error, asJSON bool) error {
	var storeErr *library.StoreError
	if err != nil && !errors.As(err, &storeErr) {
		return err
	}

	if asJSON {
		if jsonErr := writeJSON(w, viewRecord(mgr, rec)); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	title := rec.ItemID
	if item, ok := mgr.GetItem(rec.ItemID); ok {
		title = item.Title
	}
	if rec.Returned() {
		fmt.Fprintf(w, "'%s' returned by %s on %s.\n", title, rec.MemberID, rec.ReturnDate.Format(library.DateLayout))
	} else {
		fmt.Fprintf(w, "'%s' lent to %s until %s.\n", title, rec.MemberID, rec.DueDate.Format(library.DateLayout))
	}
	return err
}

func newOverdueCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "List loans past their due date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()
			return printRecords(cmd.OutOrStdout(), viewRecords(mgr, mgr.Overdue()), cfg.asJSON)
		},
	}
}

func newHistoryCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List every loan, returned or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()
			return printRecords(cmd.OutOrStdout(), viewRecords(mgr, mgr.History()), cfg.asJSON)
		},
	}
}

func newEventsCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "events [item-id]",
		Short: "Show the stored lending event log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()

			itemID := ""
			if len(args) == 1 {
				itemID = args[0]
			}
			events, err := mgr.Events(cmd.Context(), itemID)
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events, cfg.asJSON)
		},
	}
}

func newWatchCmd(cfg *config) *cobra.Command {
	var (
		schedule string
		addr     string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sweep for overdue loans on a schedule and serve Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := prometheus.NewRegistry()
			metrics, err := library.NewMetrics(reg)
			if err != nil {
				return err
			}
			mgr, logger, err := openManager(cfg, library.WithMetrics(metrics))
			if err != nil {
				return err
			}
			defer mgr.Close()

			watcher, err := library.NewOverdueWatcher(mgr, schedule, logger)
			if err != nil {
				return err
			}
			watcher.Start()
			defer watcher.Stop()

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("metrics server starting", "address", addr, "schedule", schedule)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", library.DefaultSweepSchedule, "cron schedule for the overdue sweep")
	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address for /metrics")
	return cmd
}

func newShellCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt over the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr, _, err := openManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()
			runShell(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), mgr)
			return nil
		},
	}
}
