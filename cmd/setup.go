package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ifbsync/internal/shared"
	"github.com/desertthunder/ifbsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration into the program directory.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := resolvePath(cmd.String("dir"), cmd.String("config"))

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("%s\n", ui.Field("Config", path))
}

// SetupDatabase initializes the run journal and runs migrations.
//
// A missing config file falls back to the defaults of the example config.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, dir, err := r.loadConfig(cmd)
	if errors.Is(err, shared.ErrMissingConfig) {
		r.logger.Warn("config file not found, using defaults", "error", err)
		config, err = shared.DefaultConfig(), nil
	}
	if err != nil {
		return err
	}

	dbConfig := config.Database
	if dbConfig.Path == "" {
		return fmt.Errorf("%w: [database] path is empty, the run journal is disabled", shared.ErrInvalidConfig)
	}
	dbConfig.Path = resolvePath(dir, dbConfig.Path)

	if cmd.Bool("rollback") {
		return r.rollback(dbConfig)
	}

	r.logger.Info("initializing database", "path", dbConfig.Path)
	db, err := shared.OpenJournal(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", dbConfig.Path)
	return r.writePlain("%s\n", ui.Field("Database", dbConfig.Path))
}

func (r *Runner) rollback(cfg shared.DatabaseConfig) error {
	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	r.logger.Info("rolled back latest migration", "path", cfg.Path)
	return nil
}
