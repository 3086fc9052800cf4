package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagCategory string
	flagSearch   string
	flagLang     string
)

var rootCmd = &cobra.Command{
	Use:   "wikiscroll",
	Short: "TUI for endlessly scrolling Wikipedia",
	Long:  "wikiscroll streams random Wikipedia articles into a continuously scrolling terminal feed, with categories, search, saved articles and interest-weighted discovery.",
	RunE:  runTUI,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.Flags().StringVar(&flagCategory, "category", "", "start in a category feed (e.g., Physics)")
	rootCmd.Flags().StringVar(&flagSearch, "search", "", "start with search results for a term")
	rootCmd.Flags().StringVar(&flagLang, "lang", "", "Wikipedia language edition (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(interestsCmd)
	rootCmd.AddCommand(statsCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wikiscroll %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
