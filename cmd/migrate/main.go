package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"

	"github.com/samirrijal/footpath/internal/adapters/postgres"
	"github.com/samirrijal/footpath/internal/adapters/storage"
	"github.com/samirrijal/footpath/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up> [dir]")
	}
	_ = godotenv.Load()

	cfg, err := config.Load("footpath-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, storage.PostgresOptions(cfg.Database, "footpath-migrate"))
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		runMigrations(ctx, db, dir)
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// runMigrations applies every *.sql file in dir in lexical order. The
// scripts are idempotent (CREATE ... IF NOT EXISTS).
func runMigrations(ctx context.Context, db *postgres.DB, dir string) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no migrations in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		if _, err := db.Pool.Exec(ctx, string(data)); err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}
