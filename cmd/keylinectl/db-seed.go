package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keylinehq/keyline/pkg/db"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// dbSeedCmd represents the db seed command
var dbSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the webhook event catalog",
	Long: `Seed the webhook event catalog.

Inserts any missing event types into the event_types table. Existing rows
are left untouched, so the command is safe to run repeatedly. The server
also seeds the catalog on startup.

Example:
  keylinectl db seed`,
	Run: func(cmd *cobra.Command, args []string) {
		database, err := db.Connect(db.Config{})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		if err := webhook.Seed(database); err != nil {
			fmt.Fprintln(os.Stderr, "Seed failed:", err)
			os.Exit(1)
		}

		fmt.Printf("Seeded %d event types\n", len(webhook.EventTypes))
	},
}

func init() {
	dbCmd.AddCommand(dbSeedCmd)
}
