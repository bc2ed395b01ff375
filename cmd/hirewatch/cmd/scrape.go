package cmd

import (
	"database/sql"
	"log/slog"
	"path/filepath"
	"time"

	"hirewatch-backend/lib/jobtable"
	"hirewatch-backend/lib/runlog"
	"hirewatch-backend/lib/scrapers/greenhouse"
	"hirewatch-backend/lib/snapstore"
	"hirewatch-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

var rawOnly *bool

func init() {
	rawOnly = scrapeCmd.Flags().Bool("raw-only", false, "Skip flattening; only write the raw snapshot.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--raw-only]",
	Short: "Scrapes the configured job board and appends raw and cleaned snapshot parts.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		slog.Info("scraping board", "board", cfg.Board.Board)
		scraper := greenhouse.NewScraper(cfg.Board)

		t1 := time.Now()
		records, err := scraper.Scrape(ctx)
		if err != nil {
			serviceutil.Fatal("failed to scrape board", err)
		}
		if len(records) == 0 {
			slog.Warn("nothing scraped, no snapshot written")
			return
		}

		rawStore := snapstore.NewRawStore(cfg.RawRoot)
		rawPath, err := rawStore.WriteSnapshot(ctx, records)
		if err != nil {
			serviceutil.Fatal("failed to write raw snapshot", err)
		}

		if !*rawOnly {
			cleanStore := snapstore.NewCleanStore(cfg.CleanRoot)
			_, err = cleanStore.WriteSnapshot(ctx, jobtable.Flatten(records))
			if err != nil {
				serviceutil.Fatal("failed to write cleaned snapshot", err)
			}
		}
		t2 := time.Now()

		appendRunEntry(cmd, cfg, runlog.Run{
			Board:        cfg.Board.Board,
			SnapshotDate: jobtable.FormatValue(records[0][jobtable.DateColumn]),
			PartPath:     rawPath,
			RecordCount:  int64(len(records)),
			StartedAt:    t1,
			Duration:     t2.Sub(t1),
		})

		slog.Info("scraping time", "seconds", t2.Sub(t1).Seconds())
	},
}

// the ledger is bookkeeping; a failure to record a run never discards
// the snapshot that was already written.
func appendRunEntry(cmd *cobra.Command, cfg Config, run runlog.Run) {
	sqlite, err := sql.Open("sqlite", filepath.Clean(cfg.RunLog))
	if err != nil {
		slog.Warn("failed to open run ledger", "path", cfg.RunLog, "err", err)
		return
	}
	defer sqlite.Close()

	log, err := runlog.NewLog(sqlite)
	if err != nil {
		slog.Warn("failed to initialize run ledger", "path", cfg.RunLog, "err", err)
		return
	}
	if err := log.Append(cmd.Context(), run); err != nil {
		slog.Warn("failed to record run", "path", cfg.RunLog, "err", err)
	}
}
