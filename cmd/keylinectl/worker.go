package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/keylinehq/keyline/pkg/config"
	"github.com/keylinehq/keyline/pkg/db"
	"github.com/keylinehq/keyline/pkg/webhook"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the webhook delivery worker",
	Long: `Run the webhook delivery worker as a standalone process.

The worker claims pending webhook events from the database and posts them
to matching endpoints. Run it standalone when the server was started with
--no-worker, or to scale delivery independently of the API.

Example:
  keylinectl worker`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		database, err := db.Connect(db.Config{})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		worker := webhook.NewWorker(
			webhook.NewGormStore(database),
			webhook.NewDispatcher(),
			log.Default(),
			webhook.WithMaxAttempts(cfg.WebhookDeliveryAttempts),
			webhook.WithPollInterval(cfg.WebhookPollInterval()),
			webhook.WithConcurrency(cfg.WebhookConcurrency),
		)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		log.Println("Running webhook delivery worker...")
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			fmt.Fprintln(os.Stderr, "Worker stopped:", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
