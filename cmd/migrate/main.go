package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/rentals/backend/internal/infrastructure/config"
	"github.com/rentals/backend/internal/infrastructure/logger"
	"github.com/rentals/backend/internal/infrastructure/migration"
	"github.com/rentals/backend/migrations"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	migrationsPath := flags.String("path", "", "read migrations from this directory instead of the embedded set")
	logLevel := flags.String("log-level", "info", "log level: debug, info, warn, error")
	confirm := flags.Bool("confirm", false, "required for destructive commands (down)")
	flags.Usage = func() { printUsage(flags) }

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	args := flags.Args()
	if len(args) == 0 {
		printUsage(flags)
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	var m *migration.Migrator
	if *migrationsPath != "" {
		m, err = migration.NewFromDir(db, *migrationsPath, log)
	} else {
		m, err = migration.New(db, migrations.FS, log)
	}
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("source", sourceName(*migrationsPath)),
	)

	switch command {
	case "up":
		err = m.Up()

	case "down":
		if !*confirm {
			log.Fatal("Refusing to roll back every migration without --confirm")
		}
		err = m.Down()

	case "step":
		n, convErr := intArg(args, "step count")
		if convErr != nil {
			log.Fatal("Invalid arguments", zap.Error(convErr))
		}
		err = m.Steps(n)

	case "version":
		version, dirty, verErr := m.Version()
		if verErr != nil {
			log.Fatal("Failed to get version", zap.Error(verErr))
		}
		if version == 0 {
			log.Info("No migrations applied")
			return
		}
		log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	case "force":
		version, convErr := intArg(args, "version")
		if convErr != nil {
			log.Fatal("Invalid arguments", zap.Error(convErr))
		}
		err = m.Force(version)

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage(flags)
		os.Exit(1)
	}

	if err != nil {
		log.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
}

func intArg(args []string, name string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s required", name)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, args[1])
	}
	return n, nil
}

func sourceName(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Rental database migration tool

Usage:
  migrate [flags] <command> [argument]

Commands:
  up               Apply all pending migrations
  down --confirm   Roll back every migration
  step <n>         Apply n migrations (negative rolls back)
  version          Show the applied version
  force <version>  Mark version as applied without running it

Flags:
%s
Connection settings come from config.toml and RENTAL_DATABASE_* variables.
`, flags.FlagUsages())
}
