package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "volscreen",
	Short: "volscreen - daily US equity volume spike screener",
	Long: `volscreen builds the S&P 500 / Nasdaq-100 (optionally S&P 400 and 600)
universe, flags tickers trading at a multiple of their trailing average
volume and posts the ranked list to Telegram.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
