// seed-admin creates or updates an admin user.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//   go run ./cmd/seed-admin -email owner@example.com -password '...'
//
// ADMIN_PASSWORD may be used instead of -password to keep it out of shell history.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/models"
)

func main() {
	email := flag.String("email", "", "Required: admin email")
	name := flag.String("name", "Costbook Admin", "Optional: display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "Required: admin password (min 6 chars)")
	flag.Parse()

	if strings.TrimSpace(*email) == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "--email and --password are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if !config.SkipMigrations() {
		models.MigrateTable()
	}

	user, created, err := models.UpsertAdmin(context.Background(), *email, *name, *password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin user: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Created admin user: email=%q id=%s\n", user.Email, user.ID)
		return
	}
	fmt.Printf("Updated admin user: email=%q id=%s\n", user.Email, user.ID)
}
