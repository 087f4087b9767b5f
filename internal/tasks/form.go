package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ifbsync/internal/dataset"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/services"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// SyncOpts configures a [FormSyncer] or [ListSyncer].
type SyncOpts struct {
	DryRun bool
	Logger *log.Logger
}

// FormResult reports what a page sync did, or on a dry run what it would do.
//
// It is returned alongside any error so partial work can be reported.
type FormResult struct {
	Rows       int          `json:"rows"`
	Resolution *Resolution  `json:"resolution,omitempty"`
	Plan       *models.Plan `json:"plan,omitempty"`
	Stats      ApplyStats   `json:"stats"`
	Warnings   []string     `json:"warnings,omitempty"`
	Calls      int          `json:"calls"`
	DryRun     bool         `json:"dry_run"`
}

// Counts summarizes the result for the run journal. Dry runs count planned operations.
func (r *FormResult) Counts() models.RunCounts {
	c := models.RunCounts{Warnings: len(r.Warnings), Calls: r.Calls}
	if r.DryRun && r.Plan != nil {
		c.Creates, c.Updates, c.Deletes = len(r.Plan.Creates), len(r.Plan.Updates), len(r.Plan.Deletes)
		return c
	}
	c.Creates, c.Updates, c.Deletes = r.Stats.Created, r.Stats.Updated, r.Stats.Deleted
	return c
}

// FormSyncer loads a CSV and converges the records of one page on it.
type FormSyncer struct {
	client services.Platform
	dryRun bool
	logger *log.Logger
}

// NewFormSyncer creates a [FormSyncer] writing through client.
func NewFormSyncer(client services.Platform, opts SyncOpts) *FormSyncer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &FormSyncer{client: client, dryRun: opts.DryRun, logger: logger}
}

// Run executes a page sync.
//
// Dataset and key problems are reported before any remote call. A failure while applying stops the run;
// operations already applied stay applied.
func (s *FormSyncer) Run(ctx context.Context, settings shared.FormSettings, progress chan<- ProgressUpdate) (result *FormResult, err error) {
	result = &FormResult{DryRun: s.dryRun}
	logger := shared.WithLogger(s.logger, "page", settings.FormName)
	defer func() { result.Calls = s.client.Calls() }()

	warn := func(msg string) {
		result.Warnings = append(result.Warnings, msg)
		sendProgress(progress, warningUpdate(msg))
	}
	for _, msg := range settings.Warnings {
		logger.Warn(msg)
		warn(msg)
	}

	sendProgress(progress, loadDatasetUpdate(settings.CSVPath))
	ds, err := dataset.LoadForm(settings.CSVPath, settings.FieldLength)
	if err != nil {
		return result, err
	}
	result.Rows = ds.Len()
	sendProgress(progress, loadedDatasetUpdate(ds.Len(), len(ds.Columns)))
	logger.Info("loaded dataset", "rows", ds.Len(), "columns", len(ds.Columns))

	if settings.Keyed() {
		if err := ValidateKey(ds, settings.UIDCol); err != nil {
			return result, err
		}
	}

	resolver := NewResolver(s.dryRun, logger, progress)
	res, err := resolver.ResolvePage(ctx, s.client, ds, PageSpec{
		Name:        settings.FormName,
		Label:       settings.FormLabel,
		FieldLength: settings.FieldLength,
		Keyed:       settings.Keyed(),
	})
	if err != nil {
		return result, err
	}
	result.Resolution = res

	if res.Cleared {
		warn(fmt.Sprintf("no unique ID column provided, all records in page %s will be overwritten", settings.FormName))
	}
	if len(res.Missing) > 0 {
		warn(fmt.Sprintf("input columns %v have no match in page %s and will not be loaded", res.Missing, settings.FormName))
	}

	if settings.Keyed() && !slices.Contains(res.Columns, settings.UIDCol) {
		return result, fmt.Errorf("%w: unique ID column %s is missing from page %s", shared.ErrKeyNotInSchema, settings.UIDCol, settings.FormName)
	}

	var remote []models.Record
	if settings.Keyed() && !res.Created {
		sendProgress(progress, fetchRemoteUpdate(settings.FormName))
		remote, err = s.client.ListRecords(ctx, res.Container.ID, res.Columns)
		if err != nil {
			return result, fmt.Errorf("failed to list records of page %s: %w", settings.FormName, err)
		}
		logger.Debug("fetched remote records", "count", len(remote))
	}

	plan := PlanRecords(ds, remote, RecordPlanOptions{
		Key:     settings.UIDCol,
		Columns: res.Columns,
		Update:  settings.Update,
		Delete:  settings.Delete,
	})
	plan.Target = settings.FormName
	result.Plan = plan
	sendProgress(progress, reconcileUpdate(1, 1, plan))
	logger.Info("planned changes", "creates", len(plan.Creates), "updates", len(plan.Updates), "deletes", len(plan.Deletes))

	if s.dryRun {
		return result, nil
	}

	applier := NewApplier(settings.BatchSize, logger, progress)
	result.Stats, err = applier.ApplyRecords(ctx, s.client, res.Container.ID, plan)
	if err != nil {
		return result, fmt.Errorf("failed to sync page %s: %w", settings.FormName, err)
	}
	return result, nil
}
