package cmd

import (
	"database/sql"
	"os"
	"time"

	"hirewatch-backend/lib/runlog"
	"hirewatch-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func init() {
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists recorded scrape runs, newest first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		sqlite, err := sql.Open("sqlite", cfg.RunLog)
		if err != nil {
			serviceutil.Fatal("failed to open run ledger", err)
		}
		defer sqlite.Close()

		log, err := runlog.NewLog(sqlite)
		if err != nil {
			serviceutil.Fatal("failed to initialize run ledger", err)
		}
		runs, err := log.List(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Started", "Board", "Snapshot Date", "Records", "Duration", "Part"})
		for _, run := range runs {
			t.AppendRow(table.Row{
				run.StartedAt.Format(time.DateTime),
				run.Board,
				run.SnapshotDate,
				run.RecordCount,
				run.Duration.Round(time.Millisecond).String(),
				run.PartPath,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
