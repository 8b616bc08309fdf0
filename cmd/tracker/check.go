package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single poll cycle",
	Long: `Query the CGV schedule API once. When showtimes are found the Telegram
message is sent, exactly as "watch" would.

Prints "found", "empty" or "failed: <reason>" and exits 0 in all three cases;
only a configuration error exits 1.`,
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	tracker, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := tracker.RunOnce(ctx)
	switch {
	case out.Found():
		fmt.Fprintf(cmd.OutOrStdout(), "found: %d schedules\n", len(out.Result.Entries))
	case out.Err != nil:
		fmt.Fprintf(cmd.OutOrStdout(), "failed: %s: %v\n", out.Failure, out.Err)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), "empty")
	}
	return nil
}
