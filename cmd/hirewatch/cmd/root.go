package cmd

import (
	"context"
	"fmt"
	"os"

	"hirewatch-backend/lib/configutil"
	"hirewatch-backend/lib/scrapers/greenhouse"

	"github.com/spf13/cobra"
)

type Config struct {
	Board     greenhouse.Config `json:"board"`
	RawRoot   string            `json:"raw_root"`
	CleanRoot string            `json:"clean_root"`
	RunLog    string            `json:"run_log"`
}

// readConfig loads config.json5 from the working directory and fills in
// defaults; a missing file just means an all-defaults run.
func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if cfg.Board.Board == "" {
		cfg.Board.Board = "upstart"
	}
	if cfg.RawRoot == "" {
		cfg.RawRoot = "data/raw"
	}
	if cfg.CleanRoot == "" {
		cfg.CleanRoot = "data/clean"
	}
	if cfg.RunLog == "" {
		cfg.RunLog = "data/runs.db"
	}
	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "hirewatch",
	Short: "hirewatch scrapes job boards into date-partitioned parquet snapshots.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
