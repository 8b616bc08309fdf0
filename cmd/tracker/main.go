// Package main is the entry point for the cgv-tracker CLI.
//
// Usage:
//
//	cgv-tracker                  # same as "watch"
//	cgv-tracker watch            # poll until schedules open, then notify
//	cgv-tracker check            # a single poll cycle
//	cgv-tracker sign --path ...  # print a request signature
//	cgv-tracker version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cgv-tracker",
	Short: "Notify on Telegram when CGV showtimes open",
	Long: `cgv-tracker polls the CGV schedule API for one movie, theater and date
and sends a Telegram message as soon as showtimes become bookable.

Configuration is read from the environment (and an optional .env file):
  TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, CGV_SECRET_KEY   required
  TARGET_DATE (YYYYMMDD), MOVIE_NO, SITE_NO              what to watch
  CHECK_INTERVAL (seconds, default 60) or POLL_SCHEDULE  how often

Running without a subcommand starts "watch".`,
	SilenceUsage: true,
	RunE:         runWatch,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "cgv-tracker %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
