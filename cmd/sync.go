package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/ifbsync/internal/formatter"
	"github.com/desertthunder/ifbsync/internal/metrics"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/repositories"
	"github.com/desertthunder/ifbsync/internal/shared"
	"github.com/desertthunder/ifbsync/internal/tasks"
	"github.com/desertthunder/ifbsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// FormSync converges a page's records on the configured CSV.
func (r *Runner) FormSync(ctx context.Context, cmd *cli.Command) error {
	config, dir, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	settings, err := config.FormSettings(dir)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	client, err := r.newClient(ctx, settings.API)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	dryRun := cmd.Bool("dry-run")
	run := models.NewSyncRun(models.RunKindForm, settings.FormName, settings.API.ProfileID, dryRun)
	finish := r.startRun(ctx, config, dir, run)

	progress, wait := r.watch()
	result, runErr := tasks.NewFormSyncer(client, tasks.SyncOpts{DryRun: dryRun, Logger: r.logger}).
		Run(ctx, settings, progress)
	wait()

	if runErr == nil && dryRun && result.Plan != nil {
		if err := r.exportPlans([]*models.Plan{result.Plan}, format, cmd.String("output")); err != nil {
			r.logger.Error("failed to export plan", "error", err)
		}
	}

	outErr := errors.Join(
		r.writePlain("%s", ui.FormSummary(result, runErr)),
		r.writePlain("%s\n", ui.Calls(result.Calls)),
	)
	finish(result.Counts(), runErr)
	return errors.Join(runErr, outErr)
}

// ListSync converges option lists on the configured CSV, one list per name group.
func (r *Runner) ListSync(ctx context.Context, cmd *cli.Command) error {
	config, dir, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	settings, err := config.ListSettings(dir)
	if err != nil {
		return err
	}
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	client, err := r.newClient(ctx, settings.API)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	dryRun := cmd.Bool("dry-run")
	run := models.NewSyncRun(models.RunKindList, settings.CSVPath, settings.API.ProfileID, dryRun)
	finish := r.startRun(ctx, config, dir, run)

	progress, wait := r.watch()
	result, runErr := tasks.NewListSyncer(client, tasks.SyncOpts{DryRun: dryRun, Logger: r.logger}).
		Run(ctx, settings, progress)
	wait()

	if runErr == nil && dryRun {
		if err := r.exportPlans(result.Plans(), format, cmd.String("output")); err != nil {
			r.logger.Error("failed to export plan", "error", err)
		}
	}

	outErr := errors.Join(
		r.writePlain("%s", ui.ListSummary(result, runErr)),
		r.writePlain("%s\n", ui.Calls(result.Calls)),
	)
	finish(result.Counts(), runErr)
	return errors.Join(runErr, outErr)
}

// watch starts the progress printer. The returned func closes the channel and waits
// until every update has been written.
func (r *Runner) watch() (chan<- tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progress {
			if err := r.writePlain("%s\n", ui.Progress(update)); err != nil {
				r.logger.Warn("failed to print progress", "error", err)
			}
		}
	}()

	return progress, func() {
		close(progress)
		<-done
	}
}

func (r *Runner) exportPlans(plans []*models.Plan, format formatter.Format, output string) error {
	if output != "" {
		path, err := formatter.WritePlanExport(plans, format, output)
		if err != nil {
			return err
		}
		r.logger.Info("wrote plan", "path", path, "format", format)
		return nil
	}

	data, err := formatter.Export(plans, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// startRun journals run as running and returns the func that records its outcome.
//
// The journal and metrics are auxiliary: their failures are logged and never fail the sync.
func (r *Runner) startRun(ctx context.Context, config *shared.Config, dir string, run *models.SyncRun) func(models.RunCounts, error) {
	reporter := metrics.NewReporter(config.Metrics)
	logger := shared.WithLogger(r.logger, "kind", string(run.Kind))

	dbConfig := config.Database
	dbConfig.Path = resolvePath(dir, dbConfig.Path)

	db, err := shared.OpenJournal(dbConfig)
	if err != nil {
		logger.Warn("run journal unavailable", "path", dbConfig.Path, "error", err)
	}

	var repo *repositories.RunRepository
	if db != nil {
		repo = repositories.NewRunRepository(db)
		if err := repo.Create(run); err != nil {
			logger.Warn("failed to journal run", "error", err)
			repo = nil
		}
	}

	return func(counts models.RunCounts, runErr error) {
		run.Complete(counts, runErr)

		if repo != nil {
			if err := repo.Update(run); err != nil {
				logger.Warn("failed to update journaled run", "id", run.ID(), "error", err)
			}
		}
		if db != nil {
			db.Close()
		}
		if err := reporter.Report(ctx, run); err != nil {
			logger.Warn("failed to submit metrics", "error", err)
		}
	}
}
