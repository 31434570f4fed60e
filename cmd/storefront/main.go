package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront real-time event hub and low-stock alerting",
	Long: `storefront runs the real-time event hub that fans domain events out to
connected shoppers and admins, and the low-stock alert lifecycle that feeds it.

Use "serve" to run the service and "watch" to follow a hub as a client.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("storefront version %s\nCommit: %s\n", Version, Commit))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}
