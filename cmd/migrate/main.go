package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-reservation/internal/config"
	"ms-reservation/internal/database/migrations"
	"ms-reservation/internal/logger"
)

const usage = `usage: migrate [-dir migrations] [-seed] <command>

commands:
  up          apply every pending migration
  down        roll back every migration
  to N        migrate up or down to version N
  version     print the applied version
  auto        schema migrations, plus seed data with -seed`

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	dir := flag.String("dir", cfg.Database.MigrationsDir, "directory holding the migration files")
	seed := flag.Bool("seed", cfg.Database.SeedData, "include sample data migrations with auto")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.NewLogger()
	defer log.Close()

	sqldb, err := sql.Open("postgres", cfg.Database.PostgresDSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: *dir,
		SeedData:      *seed,
	}, log)
	defer runner.Close()

	if err := run(runner, flag.Args()); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
}

func run(runner *migrations.Runner, args []string) error {
	switch args[0] {
	case "up":
		return runner.MigrateUp()
	case "down":
		return runner.MigrateDown()
	case "to":
		if len(args) < 2 {
			return fmt.Errorf("to requires a version")
		}
		version, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return runner.MigrateTo(uint(version))
	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	case "auto":
		return runner.RunMigrations()
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}
