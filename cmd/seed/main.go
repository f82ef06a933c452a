// Command seed inserts three sample reports into an empty database so the
// list and detail views have something to show.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/config"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/database"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/logging"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/store"
)

func main() {
	owner := flag.String("owner", "", "user id to own the sample reports (empty for unscoped)")
	flag.Parse()

	logging.Setup()
	cfg := config.Load()

	if !cfg.UsesDatabase() {
		slog.Error("seeding needs a database: set DB_DRIVER=postgres or DB_DRIVER=sqlite")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	var ownerID *string
	if *owner != "" {
		ownerID = owner
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := store.Seed(ctx, store.NewGormStore(db), ownerID)
	if err != nil {
		slog.Error("seeding failed", "inserted", n, "error", err)
		os.Exit(1)
	}
	if n == 0 {
		slog.Info("database already seeded")
		return
	}
	slog.Info("seeding complete", "inserted", n)
}
