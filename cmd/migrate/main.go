package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/logger"
)

var errUsage = errors.New("usage")

func main() {
	var migrationDir string
	var anyDriver bool
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.BoolVar(&anyDriver, "any-driver", false, "Run even when STORAGE_DRIVER is not postgres")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		printUsage(os.Stdout)
		if !errors.Is(err, errUsage) {
			log.Fatal().Err(err).Msg("Invalid command")
		}
		return
	}

	if err := checkDriver(cfg, anyDriver); err != nil {
		log.Fatal().Err(err).Msg("Refusing to migrate")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationDir), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed to initialize")
	}
	defer m.Close()

	if err := cmd.run(m, log); err != nil {
		log.Fatal().Err(err).Str("command", cmd.name).Msg("Migration failed")
	}
}

type command struct {
	name    string
	version int
}

// parseCommand validates the arguments before any database connection is made.
func parseCommand(args []string) (command, error) {
	if len(args) < 1 {
		return command{}, errUsage
	}
	switch args[0] {
	case "up", "down", "version":
		return command{name: args[0]}, nil
	case "force":
		if len(args) < 2 {
			return command{}, errors.New("force requires version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		return command{name: "force", version: v}, nil
	}
	return command{}, fmt.Errorf("unknown command %q", args[0])
}

// checkDriver keeps the tool from touching a database the player does not
// read progress from.
func checkDriver(cfg *config.Config, anyDriver bool) error {
	if cfg.StorageDriver == config.StoragePostgres || anyDriver {
		return nil
	}
	return fmt.Errorf("STORAGE_DRIVER is %q; the quiz_progress table is only used with %q (pass -any-driver to override)",
		cfg.StorageDriver, config.StoragePostgres)
}

func (c command) run(m *migrate.Migrate, log zerolog.Logger) error {
	switch c.name {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info().Msg("Migrated up")
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info().Msg("Migrated down")
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info().Msg("No migration applied yet")
			return nil
		}
		if err != nil {
			return err
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Schema version")
	case "force":
		if err := m.Force(c.version); err != nil {
			return err
		}
		log.Info().Int("version", c.version).Msg("Forced schema version")
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: migrate [flags] <command>")
	fmt.Fprintln(w, "Manages the quiz_progress snapshot table used by STORAGE_DRIVER=postgres.")
	fmt.Fprintln(w, "Commands: up, down, version, force <version>")
	fmt.Fprintln(w, "Flags:")
	flag.CommandLine.SetOutput(w)
	flag.PrintDefaults()
}
