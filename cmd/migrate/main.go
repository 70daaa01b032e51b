package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/rentmarket-backend/pkg/config"
	"github.com/angelmondragon/rentmarket-backend/pkg/db"
	"github.com/angelmondragon/rentmarket-backend/pkg/logger"
	"github.com/angelmondragon/rentmarket-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

type command struct {
	needsDB bool
	run     func(ctx context.Context, m *migrate.Migrator, opts options) error
}

var commands = map[string]command{
	"up": {needsDB: true, run: func(ctx context.Context, m *migrate.Migrator, _ options) error {
		applied, err := m.Up(ctx)
		printApplied(applied)
		return err
	}},
	"down": {needsDB: true, run: func(ctx context.Context, m *migrate.Migrator, _ options) error {
		applied, err := m.Down(ctx)
		printApplied(applied)
		return err
	}},
	"status": {needsDB: true, run: func(ctx context.Context, m *migrate.Migrator, _ options) error {
		lines, err := m.Status(ctx)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(lines, "\n"))
		return nil
	}},
	"version": {needsDB: true, run: func(ctx context.Context, m *migrate.Migrator, opts options) error {
		if opts.version == "" {
			v, err := m.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Println("schema version:", v)
			return nil
		}
		applied, err := m.MigrateTo(ctx, opts.version)
		printApplied(applied)
		return err
	}},
	"create": {run: func(_ context.Context, _ *migrate.Migrator, opts options) error {
		if opts.name == "" {
			return errors.New("missing -name")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	}},
	"validate": {run: func(_ context.Context, _ *migrate.Migrator, opts options) error {
		validate := func() error { return migrate.ValidateDir(opts.dir) }
		if opts.dir == "" {
			validate = migrate.ValidateEmbedded
		}
		if err := validate(); err != nil {
			return err
		}
		fmt.Println("migrations valid")
		return nil
	}},
}

func printApplied(applied []migrate.Applied) {
	if len(applied) == 0 {
		fmt.Println("no migrations to run")
		return
	}
	for _, a := range applied {
		fmt.Printf("%-4s %s\n", a.Direction, a.Name)
	}
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func main() {
	var opts options
	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version; empty prints the current one")
	flag.Parse()

	if err := run(*cmdName, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmdName, err)
		os.Exit(1)
	}
}

func run(cmdName string, opts options) error {
	cmd, ok := commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command, want one of %s", commandNames())
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	if !cmd.needsDB {
		return cmd.run(context.Background(), nil, opts)
	}
	if opts.dir == migrate.DefaultDir {
		// deployed binaries carry no source tree
		if _, err := os.Stat(opts.dir); err != nil {
			opts.dir = ""
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": cmdName,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	migrator, err := migrate.New(sqlDB, opts.dir)
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrations.start")
	return cmd.run(ctx, migrator, opts)
}
