package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ifbsync/internal/models"
	tu "github.com/desertthunder/ifbsync/internal/testing"
)

func TestBatches(t *testing.T) {
	tests := []struct {
		name  string
		items int
		size  int
		want  []int
	}{
		{"empty", 0, 999, nil},
		{"single partial batch", 10, 999, []int{10}},
		{"exact multiple", 1998, 999, []int{999, 999}},
		{"remainder", 2500, 999, []int{999, 999, 502}},
		{"invalid size falls back", 1000, 0, []int{999, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.items)
			for i := range items {
				items[i] = i
			}

			var sizes []int
			next := 0
			for batch := range Batches(items, tt.size) {
				sizes = append(sizes, len(batch))
				if len(batch) > 0 && batch[0] != next {
					t.Errorf("expected batch to start at %d, got %d", next, batch[0])
				}
				next += len(batch)
			}

			if fmt.Sprint(sizes) != fmt.Sprint(tt.want) {
				t.Errorf("expected sizes %v, got %v", tt.want, sizes)
			}
		})
	}

	t.Run("stops when consumer breaks", func(t *testing.T) {
		n := 0
		for range Batches(make([]int, 50), 10) {
			n++
			if n == 2 {
				break
			}
		}
		if n != 2 {
			t.Errorf("expected 2 batches, got %d", n)
		}
	})
}

func createPlan(n int) *models.Plan {
	plan := &models.Plan{Target: "lookup", Columns: []string{"id"}}
	for i := range n {
		plan.Creates = append(plan.Creates, models.Operation{Kind: models.OpCreate, Key: fmt.Sprint(i), Values: models.Row{"id": fmt.Sprint(i)}})
	}
	return plan
}

func TestApplier(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard)

	t.Run("2500 creates take 3 calls", func(t *testing.T) {
		platform := tu.NewFakePlatform()
		pageID := platform.AddPage("lookup", "id")

		stats, err := NewApplier(999, logger, nil).ApplyRecords(ctx, platform, pageID, createPlan(2500))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		calls := platform.CallsTo("CreateRecords")
		if len(calls) != 3 {
			t.Fatalf("expected 3 calls, got %d", len(calls))
		}
		if calls[0].Size != 999 || calls[1].Size != 999 || calls[2].Size != 502 {
			t.Errorf("expected batch sizes 999, 999, 502, got %+v", calls)
		}
		if stats.Calls != 3 || stats.Created != 2500 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if got := len(platform.Records[pageID]); got != 2500 {
			t.Errorf("expected 2500 records, got %d", got)
		}
	})

	t.Run("creates, updates then deletes", func(t *testing.T) {
		platform := tu.NewFakePlatform()
		pageID := platform.AddPage("lookup", "id", "name")
		platform.AddRecords(pageID, models.Row{"id": "A", "name": "a"}, models.Row{"id": "B", "name": "b"})
		existing := platform.Records[pageID]

		plan := &models.Plan{
			Target:  "lookup",
			Columns: []string{"id", "name"},
			Creates: []models.Operation{{Kind: models.OpCreate, Key: "C", Values: models.Row{"id": "C", "name": "c"}}},
			Updates: []models.Operation{{Kind: models.OpUpdate, ID: existing[0].ID, Key: "A", Values: models.Row{"id": "A", "name": "a2"}}},
			Deletes: []models.Operation{{Kind: models.OpDelete, ID: existing[1].ID, Key: "B"}},
		}

		progress := make(chan ProgressUpdate, 10)
		stats, err := NewApplier(999, logger, progress).ApplyRecords(ctx, platform, pageID, plan)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(progress)

		var methods []string
		for _, c := range platform.Log {
			methods = append(methods, c.Method)
		}
		if fmt.Sprint(methods) != "[CreateRecords UpdateRecords DeleteRecord]" {
			t.Errorf("unexpected call order %v", methods)
		}
		if stats != (ApplyStats{Calls: 3, Created: 1, Updated: 1, Deleted: 1}) {
			t.Errorf("unexpected stats %+v", stats)
		}

		var phases []Phase
		for u := range progress {
			phases = append(phases, u.Phase)
		}
		if fmt.Sprint(phases) != fmt.Sprint([]Phase{ApplyCreates, ApplyUpdates, ApplyDeletes}) {
			t.Errorf("unexpected phases %v", phases)
		}
	})

	t.Run("first failure stops the run", func(t *testing.T) {
		platform := tu.NewFakePlatform()
		pageID := platform.AddPage("lookup", "id")
		platform.Errors["CreateRecords"] = errors.New("boom")

		plan := createPlan(20)
		plan.Deletes = []models.Operation{{Kind: models.OpDelete, ID: 1}}

		stats, err := NewApplier(10, logger, nil).ApplyRecords(ctx, platform, pageID, plan)
		if err == nil {
			t.Fatal("expected error")
		}
		if stats.Calls != 1 || stats.Created != 0 {
			t.Errorf("expected a single failed call, got %+v", stats)
		}
		if len(platform.CallsTo("DeleteRecord")) != 0 {
			t.Error("expected no deletes after a failed create")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		platform := tu.NewFakePlatform()
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := NewApplier(999, logger, nil).ApplyRecords(cctx, platform, 1, createPlan(5))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if platform.Calls() != 0 {
			t.Errorf("expected no calls, got %d", platform.Calls())
		}
	})

	t.Run("options", func(t *testing.T) {
		platform := tu.NewFakePlatform()
		listID := platform.AddList("colors", models.Option{KeyValue: "red", Label: "Red", SortOrder: "1"})
		redID := platform.Options[listID][0].ID

		plan := &models.Plan{
			Target:  "colors",
			Creates: []models.Operation{{Kind: models.OpCreate, Key: "blue", Values: models.Option{KeyValue: "blue", Label: "Blue", SortOrder: "2"}.Row()}},
			Updates: []models.Operation{{Kind: models.OpUpdate, ID: redID, Key: "red", Values: models.Option{KeyValue: "red", Label: "Crimson", SortOrder: "1"}.Row()}},
		}

		stats, err := NewApplier(999, logger, nil).ApplyOptions(ctx, platform, listID, plan)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Created != 1 || stats.Updated != 1 || stats.Calls != 2 {
			t.Errorf("unexpected stats %+v", stats)
		}

		options := platform.Options[listID]
		if len(options) != 2 || options[0].Label != "Crimson" || options[1].KeyValue != "blue" {
			t.Errorf("unexpected options %+v", options)
		}
	})
}

func TestNewApplier(t *testing.T) {
	for _, size := range []int{-1, 0, 1001} {
		if a := NewApplier(size, nil, nil); a.batchSize != 999 {
			t.Errorf("size %d: expected fallback to 999, got %d", size, a.batchSize)
		}
	}
	if a := NewApplier(50, nil, nil); a.batchSize != 50 {
		t.Errorf("expected 50, got %d", a.batchSize)
	}
}
