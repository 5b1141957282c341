package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var universeBroad bool

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Build and print the ticker universe",
	RunE:  runUniverse,
}

func init() {
	universeCmd.Flags().BoolVar(&universeBroad, "broad", false, "include the S&P 400 and S&P 600")
	rootCmd.AddCommand(universeCmd)
}

func runUniverse(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := openArchive(cfg)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	includeBroad := cfg.Universe.IncludeBroad
	if cmd.Flags().Changed("broad") {
		includeBroad = universeBroad
	}

	tickers, err := newUniverse(cfg, store, log).Build(cmd.Context(), includeBroad)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, t := range tickers {
		fmt.Fprintln(out, t)
	}
	log.Info("universe built", zap.Int("tickers", len(tickers)), zap.Bool("broad", includeBroad))
	return nil
}
