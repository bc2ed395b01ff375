package cmd

import (
	"os"
	"sort"

	"hirewatch-backend/lib/jobtable"
	"hirewatch-backend/lib/snapstore"
	"hirewatch-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var reportRaw *bool

func init() {
	reportRaw = reportCmd.Flags().Bool("raw", false, "Report on the raw store instead of the cleaned one.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--raw]",
	Short: "Consolidates every snapshot and prints job counts per snapshot date.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		store := snapstore.NewCleanStore(cfg.CleanRoot)
		if *reportRaw {
			store = snapstore.NewRawStore(cfg.RawRoot)
		}

		tbl, err := store.Load(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to load snapshots", err)
		}

		counts := map[string]int{}
		for _, rec := range tbl.Rows {
			counts[jobtable.FormatValue(rec[jobtable.DateColumn])]++
		}
		dates := make([]string, 0, len(counts))
		for date := range counts {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Snapshot Date", "Jobs"})
		for _, date := range dates {
			t.AppendRow(table.Row{date, counts[date]})
		}
		t.AppendFooter(table.Row{"Total", len(tbl.Rows)})
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
