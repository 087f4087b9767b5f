package tasks

import (
	"context"
	"fmt"
	"iter"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/services"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// Batches yields consecutive slices of items holding at most size elements each.
// A non-positive size falls back to [shared.DefaultBatchSize].
func Batches[T any](items []T, size int) iter.Seq[[]T] {
	if size <= 0 {
		size = shared.DefaultBatchSize
	}
	return func(yield func([]T) bool) {
		for start := 0; start < len(items); start += size {
			end := min(start+size, len(items))
			if !yield(items[start:end:end]) {
				return
			}
		}
	}
}

// ApplyStats counts what an [Applier] did.
type ApplyStats struct {
	Calls   int `json:"calls"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Add accumulates other into s.
func (s *ApplyStats) Add(other ApplyStats) {
	s.Calls += other.Calls
	s.Created += other.Created
	s.Updated += other.Updated
	s.Deleted += other.Deleted
}

// Applier executes a plan against the remote platform: creates, then updates, in batches,
// then deletes one call each. Calls are sequential and the first failure stops the run.
// Nothing already applied is rolled back.
type Applier struct {
	batchSize int
	progress  chan<- ProgressUpdate
	logger    *log.Logger
}

// NewApplier creates an [Applier] sending at most batchSize records or options per call.
func NewApplier(batchSize int, logger *log.Logger, progress chan<- ProgressUpdate) *Applier {
	if batchSize <= 0 || batchSize > shared.MaxBatchSize {
		batchSize = shared.DefaultBatchSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Applier{batchSize: batchSize, progress: progress, logger: logger}
}

// ApplyRecords writes plan to a page.
func (a *Applier) ApplyRecords(ctx context.Context, client services.PageClient, pageID int64, plan *models.Plan) (ApplyStats, error) {
	var stats ApplyStats

	err := a.batched(ctx, plan.Target, ApplyCreates, plan.Creates, &stats, func(batch []models.Operation) error {
		rows := make([]models.Row, len(batch))
		for i, op := range batch {
			rows[i] = op.Values
		}
		return client.CreateRecords(ctx, pageID, plan.Columns, rows)
	})
	if err != nil {
		return stats, err
	}

	err = a.batched(ctx, plan.Target, ApplyUpdates, plan.Updates, &stats, func(batch []models.Operation) error {
		records := make([]models.Record, len(batch))
		for i, op := range batch {
			records[i] = models.Record{ID: op.ID, Values: op.Values}
		}
		return client.UpdateRecords(ctx, pageID, plan.Columns, records)
	})
	if err != nil {
		return stats, err
	}

	total := len(plan.Deletes)
	for i, op := range plan.Deletes {
		sendProgress(a.progress, applyUpdate(ApplyDeletes, plan.Target, i+1, i+1, total))
		stats.Calls++
		if err := client.DeleteRecord(ctx, pageID, op.ID); err != nil {
			return stats, fmt.Errorf("failed to delete record %d (%s): %w", op.ID, op.Key, err)
		}
		stats.Deleted++
	}

	return stats, nil
}

// ApplyOptions writes plan to an option list.
func (a *Applier) ApplyOptions(ctx context.Context, client services.OptionListClient, listID int64, plan *models.Plan) (ApplyStats, error) {
	var stats ApplyStats

	toOptions := func(batch []models.Operation) []models.Option {
		options := make([]models.Option, len(batch))
		for i, op := range batch {
			options[i] = optionOf(op)
		}
		return options
	}

	err := a.batched(ctx, plan.Target, ApplyCreates, plan.Creates, &stats, func(batch []models.Operation) error {
		return client.CreateOptions(ctx, listID, toOptions(batch))
	})
	if err != nil {
		return stats, err
	}

	err = a.batched(ctx, plan.Target, ApplyUpdates, plan.Updates, &stats, func(batch []models.Operation) error {
		return client.UpdateOptions(ctx, listID, toOptions(batch))
	})
	return stats, err
}

// batched sends ops in bounded batches through send, counting calls and applied operations.
func (a *Applier) batched(
	ctx context.Context,
	target string,
	phase Phase,
	ops []models.Operation,
	stats *ApplyStats,
	send func([]models.Operation) error,
) error {
	total := len(ops)
	done := 0
	for batch := range Batches(ops, a.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		from, to := done+1, done+len(batch)
		sendProgress(a.progress, applyUpdate(phase, target, from, to, total))
		a.logger.Debug("sending batch", "target", target, "phase", phase, "from", from, "to", to)

		stats.Calls++
		if err := send(batch); err != nil {
			return fmt.Errorf("%s %d to %d of %d failed: %w", phase, from, to, total, err)
		}

		done = to
		switch phase {
		case ApplyCreates:
			stats.Created += len(batch)
		case ApplyUpdates:
			stats.Updated += len(batch)
		}
	}
	return nil
}
