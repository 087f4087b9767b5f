package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ifbsync/internal/dataset"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/services"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// GroupResult reports the outcome of one option list.
type GroupResult struct {
	Name       string       `json:"name"`
	Resolution *Resolution  `json:"resolution,omitempty"`
	Plan       *models.Plan `json:"plan,omitempty"`
	Stats      ApplyStats   `json:"stats"`
	Skipped    bool         `json:"skipped"`
	Reason     string       `json:"reason,omitempty"`
}

// ListResult reports what an option list sync did, or on a dry run what it would do.
type ListResult struct {
	Rows     int           `json:"rows"`
	Groups   []GroupResult `json:"groups"`
	Stats    ApplyStats    `json:"stats"`
	Warnings []string      `json:"warnings,omitempty"`
	Calls    int           `json:"calls"`
	DryRun   bool          `json:"dry_run"`
}

// Plans returns the plans of every group that was not skipped.
func (r *ListResult) Plans() []*models.Plan {
	var plans []*models.Plan
	for _, g := range r.Groups {
		if g.Plan != nil {
			plans = append(plans, g.Plan)
		}
	}
	return plans
}

// Skipped returns the groups left untouched because they failed validation.
func (r *ListResult) Skipped() []GroupResult {
	var skipped []GroupResult
	for _, g := range r.Groups {
		if g.Skipped {
			skipped = append(skipped, g)
		}
	}
	return skipped
}

// Counts summarizes the result for the run journal. Dry runs count planned operations.
func (r *ListResult) Counts() models.RunCounts {
	c := models.RunCounts{Skipped: len(r.Skipped()), Warnings: len(r.Warnings), Calls: r.Calls}
	if !r.DryRun {
		c.Creates, c.Updates = r.Stats.Created, r.Stats.Updated
		return c
	}
	for _, p := range r.Plans() {
		c.Creates += len(p.Creates)
		c.Updates += len(p.Updates)
	}
	return c
}

// ListSyncer loads a CSV of options and converges every option list it names.
type ListSyncer struct {
	client services.Platform
	dryRun bool
	logger *log.Logger
}

// NewListSyncer creates a [ListSyncer] writing through client.
func NewListSyncer(client services.Platform, opts SyncOpts) *ListSyncer {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &ListSyncer{client: client, dryRun: opts.DryRun, logger: logger}
}

// Run executes an option list sync.
//
// Groups are processed one at a time in name order. A group with missing or duplicate key values or
// duplicate sort orders is skipped and the others proceed. Remote failures stop the run.
func (s *ListSyncer) Run(ctx context.Context, settings shared.ListSettings, progress chan<- ProgressUpdate) (result *ListResult, err error) {
	result = &ListResult{DryRun: s.dryRun}
	defer func() { result.Calls = s.client.Calls() }()

	warn := func(msg string) {
		result.Warnings = append(result.Warnings, msg)
		sendProgress(progress, warningUpdate(msg))
		s.logger.Warn(msg)
	}

	sendProgress(progress, loadDatasetUpdate(settings.CSVPath))
	ds, warnings, err := dataset.LoadOptions(settings.CSVPath)
	if err != nil {
		return result, err
	}
	for _, w := range warnings {
		warn(w)
	}
	result.Rows = ds.Len()
	sendProgress(progress, loadedDatasetUpdate(ds.Len(), len(ds.Columns)))
	s.logger.Info("loaded dataset", "rows", ds.Len(), "columns", len(ds.Columns))

	existing, err := s.client.ListOptionLists(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list option lists: %w", err)
	}

	resolver := NewResolver(s.dryRun, s.logger, progress)
	applier := NewApplier(settings.BatchSize, s.logger, progress)

	groups := GroupOptions(ds)
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		gr := GroupResult{Name: g.Name}
		logger := shared.WithLogger(s.logger, "list", g.Name)

		if err := ValidateGroup(g); err != nil {
			gr.Skipped, gr.Reason = true, err.Error()
			result.Groups = append(result.Groups, gr)
			sendProgress(progress, skipGroupUpdate(i+1, len(groups), g.Name, err))
			logger.Warn("skipping option list", "err", err)
			continue
		}

		sendProgress(progress, resolveUpdate(i+1, len(groups), "option list", g.Name))
		res, err := resolver.ResolveOptionList(ctx, s.client, g.Name, &existing)
		if err != nil {
			result.Groups = append(result.Groups, gr)
			return result, err
		}
		gr.Resolution = res

		var remote []models.Option
		if !res.Created {
			sendProgress(progress, fetchRemoteUpdate(g.Name))
			remote, err = s.client.ListOptions(ctx, res.Container.ID)
			if err != nil {
				result.Groups = append(result.Groups, gr)
				return result, fmt.Errorf("failed to list options of %s: %w", g.Name, err)
			}
		}

		gr.Plan = PlanOptions(g, remote, settings.Update)
		sendProgress(progress, reconcileUpdate(i+1, len(groups), gr.Plan))
		logger.Info("planned changes", "creates", len(gr.Plan.Creates), "updates", len(gr.Plan.Updates))

		if !s.dryRun {
			gr.Stats, err = applier.ApplyOptions(ctx, s.client, res.Container.ID, gr.Plan)
			result.Stats.Add(gr.Stats)
			if err != nil {
				result.Groups = append(result.Groups, gr)
				return result, fmt.Errorf("failed to sync option list %s: %w", g.Name, err)
			}
		}

		result.Groups = append(result.Groups, gr)
	}

	return result, nil
}
