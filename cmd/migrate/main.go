// migrate applies the PostgreSQL schema from embedded SQL; use with go run ./cmd/migrate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/campusops/gradebook/config"
	"github.com/campusops/gradebook/repositories/postgres"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.New(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		fmt.Fprintln(os.Stderr, "migrations apply to the postgres backend; sqlite creates its schema on open")
		os.Exit(1)
	}

	if err := postgres.RunMigrations(cfg.Database.URL(), *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
