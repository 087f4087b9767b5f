package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/repositories"
	"github.com/desertthunder/ifbsync/internal/shared"
	"github.com/desertthunder/ifbsync/internal/ui"
	"github.com/urfave/cli/v3"
)

type historyEntry struct {
	ID       string `json:"id"`
	Sequence int    `json:"sequence"`
	*models.SyncRun
}

// History lists the most recent journaled runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, dir, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	kind := models.RunKind(cmd.String("kind"))
	switch kind {
	case "", models.RunKindForm, models.RunKindList:
	default:
		return fmt.Errorf("%w: --kind must be %q or %q", shared.ErrInvalidArgument, models.RunKindForm, models.RunKindList)
	}

	dbConfig := config.Database
	if dbConfig.Path == "" {
		return fmt.Errorf("%w: [database] path is empty, the run journal is disabled", shared.ErrInvalidConfig)
	}
	dbConfig.Path = resolvePath(dir, dbConfig.Path)

	db, err := shared.OpenJournal(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to open run journal: %w", err)
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(map[string]any{
		"kind":  kind,
		"limit": int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, 0, len(runs))
		for _, run := range runs {
			entries = append(entries, historyEntry{ID: run.ID(), Sequence: run.Sequence(), SyncRun: run})
		}
		return r.writeJSON(entries, true)
	}
	return r.writePlain("%s", ui.History(runs))
}
