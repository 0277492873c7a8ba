package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "keylinectl",
	Short: "Keyline licensing server CLI",
	Long: `keylinectl manages the Keyline licensing server.

Use it to run the API server, manage accounts, run database migrations,
seed the webhook event catalog, and run the webhook delivery worker.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
