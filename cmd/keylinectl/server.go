package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/keylinehq/keyline/pkg/config"
	"github.com/keylinehq/keyline/pkg/db"
	"github.com/keylinehq/keyline/pkg/server"
	"github.com/keylinehq/keyline/pkg/server/endpoints"
	"github.com/keylinehq/keyline/pkg/webhook"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the Keyline application server",
	Long: `Run the Keyline application server.

Requires the DATABASE_URL environment variable. User sessions are signed
with KEYLINE_JWT_SECRET.

By default, database migrations are run on startup. Use --no-migrate to skip.
The webhook delivery worker runs in-process; use --no-worker to run it
separately with 'keylinectl worker'.`,
	Run: func(cmd *cobra.Command, args []string) {
		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		// Run migrations unless --no-migrate is set
		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
			os.Exit(1)
		}

		database, err := db.Connect(db.Config{})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		// The event catalog must exist before any mutation records an event.
		if err := webhook.Seed(database); err != nil {
			fmt.Fprintln(os.Stderr, "Unable to seed event catalog:", err)
			os.Exit(1)
		}
		if err := webhook.ValidateCatalog(webhook.NewGormStore(database), endpoints.EmittedEvents...); err != nil {
			fmt.Fprintln(os.Stderr, "Event catalog validation failed:", err)
			os.Exit(1)
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(database, cfg, host, port)

		endpoints.RegisterAll(s)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		// SIGHUP reloads the config file without a restart.
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				log.Println("Reloading configuration...")
				if err := config.Reload(); err != nil {
					log.Printf("Configuration reload failed: %v", err)
				}
			}
		}()

		go watchConfigFile(ctx, cfg.ConfigFilePath())

		noWorker, _ := cmd.Flags().GetBool("no-worker")
		if !noWorker {
			worker := webhook.NewWorker(
				webhook.NewGormStore(database),
				s.Dispatcher,
				log.Default(),
				webhook.WithMaxAttempts(cfg.WebhookDeliveryAttempts),
				webhook.WithPollInterval(cfg.WebhookPollInterval()),
				webhook.WithConcurrency(cfg.WebhookConcurrency),
			)
			go func() {
				if err := worker.Run(ctx); err != nil {
					log.Printf("Webhook worker stopped: %v", err)
				}
			}()
		}

		log.Printf("Running server at http://%s:%s...\n", host, port)
		log.Fatal(s.Start())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
	serverCmd.Flags().Bool("no-worker", false, "do not run the webhook delivery worker in-process")
}

// watchConfigFile reloads the configuration when the config file changes.
// Missing config files are fine; the watch is simply skipped.
func watchConfigFile(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Unable to watch config file: %v", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		log.Printf("Unable to watch %s: %v", path, err)
		return
	}

	log.Printf("Watching %s for configuration changes", path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				log.Printf("[%s] Config file modified, reloading...", time.Now().Format(time.RFC3339))
				if err := config.Reload(); err != nil {
					log.Printf("Configuration reload failed: %v", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}
