package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"fooddelivery/internal/config"
	"fooddelivery/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// usage: migrate <up|down|version>
func main() {
	config.LoadDotEnv(".env", "../.env")

	zl, err := logger.New(os.Getenv("GO_ENV"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		zl.Fatal("usage: migrate <up|down|version>")
	}

	dsn := config.DatabaseURLFromEnv()
	if dsn == "" {
		zl.Fatal("DATABASE_URL or POSTGRES_* is required")
	}

	path := os.Getenv("MIGRATIONS_PATH")
	if path == "" {
		path = "file://migrations"
	}

	m, err := migrate.New(path, dsn)
	if err != nil {
		zl.Fatal("failed to create migrate instance", zap.Error(err))
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			zl.Info("no pending migrations")
			return
		}
		if err != nil {
			zl.Fatal("migration up failed", zap.Error(err))
		}
		zl.Info("migrations applied")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			zl.Info("no migrations to roll back")
			return
		}
		if err != nil {
			zl.Fatal("migration down failed", zap.Error(err))
		}
		zl.Info("migration rolled back")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			zl.Info("no migrations applied yet")
			return
		}
		if err != nil {
			zl.Fatal("failed to get version", zap.Error(err))
		}
		zl.Info("current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	default:
		zl.Fatal("unknown command", zap.String("command", args[0]))
	}
}
