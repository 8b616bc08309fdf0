package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"cgv_schedule_tracker/internal/infra/cgv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Print the x-signature for a request",
	Long: `Compute the CGV request signature for a path, timestamp and body using
CGV_SECRET_KEY. Useful when checking a 401 against a browser capture.

Example:
  cgv-tracker sign --path /cnm/atkt/searchSchByMov --timestamp 1700000000`,
	SilenceUsage: true,
	RunE:         runSign,
}

func init() {
	rootCmd.AddCommand(signCmd)

	signCmd.Flags().String("path", "/cnm/atkt/searchSchByMov", "request path without query string")
	signCmd.Flags().String("timestamp", "", "unix seconds (default now)")
	signCmd.Flags().String("body", "", "request body, empty for GET")
}

func runSign(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	secret := os.Getenv("CGV_SECRET_KEY")
	if secret == "" {
		return fmt.Errorf("CGV_SECRET_KEY is not set")
	}

	path, _ := cmd.Flags().GetString("path")
	body, _ := cmd.Flags().GetString("body")
	timestamp, _ := cmd.Flags().GetString("timestamp")
	if timestamp == "" {
		timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	} else if _, err := strconv.ParseInt(timestamp, 10, 64); err != nil {
		return fmt.Errorf("invalid --timestamp: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "x-timestamp: %s\n", timestamp)
	fmt.Fprintf(out, "x-signature: %s\n", cgv.NewSigner(secret).Sign(path, timestamp, body))
	return nil
}
