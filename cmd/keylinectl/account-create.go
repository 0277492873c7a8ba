package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/keylinehq/keyline/pkg/db"
	storegorm "github.com/keylinehq/keyline/pkg/server/store/gorm"
	"github.com/keylinehq/keyline/pkg/token"
)

var accountSlugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// accountCreateCmd represents the account create command
var accountCreateCmd = &cobra.Command{
	Use:   "create [slug]",
	Short: "Create a tenant account",
	Long: `Create a tenant account together with its admin user.

The admin user's generated password is output to STDOUT. It is shown
exactly once; only a bcrypt digest is stored.

Example:
  keylinectl account create acme --email admin@acme.example
  keylinectl account create acme --name "Acme Corp" --email admin@acme.example`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slug := args[0]
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")

		password, err := createAccount(name, slug, email)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create account: %v\n", err)
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "Created new account '%s'\n", slug)
		fmt.Printf("Admin email: %s\n", email)
		fmt.Printf("Admin password: %s\n", password)
	},
}

func init() {
	accountCmd.AddCommand(accountCreateCmd)
	accountCreateCmd.Flags().StringP("name", "n", "", "Account display name (default: the slug)")
	accountCreateCmd.Flags().StringP("email", "e", "", "Admin user email (required)")
	_ = accountCreateCmd.MarkFlagRequired("email")
}

func createAccount(name, slug, email string) (password string, err error) {
	if !accountSlugPattern.MatchString(slug) {
		return "", fmt.Errorf("slug must be lowercase letters, digits and hyphens")
	}
	if !strings.Contains(email, "@") {
		return "", fmt.Errorf("invalid admin email %q", email)
	}
	if name == "" {
		name = slug
	}

	database, err := db.Connect(db.Config{})
	if err != nil {
		return "", err
	}

	stores := storegorm.NewBundle(database).Stores()

	if stores.Accounts.AccountExists(slug) {
		return "", fmt.Errorf("account '%s' already exists", slug)
	}

	password, err = token.Random()
	if err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin password: %w", err)
	}

	if _, err := stores.Accounts.CreateAccount(name, slug, email, string(digest)); err != nil {
		return "", err
	}

	return password, nil
}
