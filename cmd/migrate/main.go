// Command migrate applies, rolls back and reports the embedded SQL migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"campusfeed/internal/bootstrap"
	"campusfeed/internal/config"
	"campusfeed/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|down|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.AutoMigrate = false

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	runner := database.NewRunner(rt.DB, database.GetMigrations())

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := runner.Up(ctx); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Println("sql migrations applied")
	case "down":
		rolledBack, err := runner.Down(ctx)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		if !rolledBack {
			log.Println("nothing to roll back")
			return nil
		}
		log.Println("rolled back latest migration")
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status failed: %w", err)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			log.Printf("%s: %s", state, s.Migration.String())
		}
	default:
		return usage()
	}

	return nil
}
