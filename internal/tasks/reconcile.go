package tasks

import (
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// RecordPlanOptions controls how a dataset is reconciled against page records.
type RecordPlanOptions struct {
	Key     string   // correlation column; empty selects no-key mode
	Columns []string // columns written remotely, in dataset order
	Update  bool
	Delete  bool
}

// ValidateKey checks that key is a dataset column whose values are present and unique.
func ValidateKey(ds *models.Dataset, key string) error {
	if !ds.HasColumn(key) {
		return fmt.Errorf("%w: %s is missing from input data", shared.ErrMissingKey, key)
	}

	var empty []string
	seen := make(map[string]int, ds.Len())
	var dupes []string
	for i, v := range ds.Values(key) {
		if v == "" {
			empty = append(empty, fmt.Sprintf("%d", i+2))
			continue
		}
		if seen[v]++; seen[v] == 2 {
			dupes = append(dupes, v)
		}
	}

	if len(empty) > 0 {
		return fmt.Errorf("%w: %s is empty on rows %s", shared.ErrMissingKeyValue, key, abbreviate(empty))
	}
	if len(dupes) > 0 {
		return fmt.Errorf("%w: %s contains duplicate values %s", shared.ErrDuplicateKey, key, abbreviate(dupes))
	}
	return nil
}

// PlanRecords computes the operations that converge remote page records on ds.
//
// Without a key every row is created. With a key, rows whose key is absent remotely are created;
// rows whose key is present produce an update per remote record holding that key whose values differ
// on any written column; remote records whose key is absent from ds are deleted.
func PlanRecords(ds *models.Dataset, remote []models.Record, opts RecordPlanOptions) *models.Plan {
	plan := &models.Plan{Columns: opts.Columns}

	if opts.Key == "" {
		for _, row := range ds.Rows {
			plan.Creates = append(plan.Creates, models.Operation{Kind: models.OpCreate, Values: row.Project(opts.Columns)})
		}
		return plan
	}

	byKey := make(map[string][]models.Record, len(remote))
	for _, r := range remote {
		k := r.Values[opts.Key]
		byKey[k] = append(byKey[k], r)
	}

	for _, row := range ds.Rows {
		k := row[opts.Key]
		matches, found := byKey[k]
		if !found {
			plan.Creates = append(plan.Creates, models.Operation{Kind: models.OpCreate, Key: k, Values: row.Project(opts.Columns)})
			continue
		}
		if !opts.Update {
			continue
		}
		for _, m := range matches {
			if row.Equal(m.Values, opts.Columns) {
				continue
			}
			plan.Updates = append(plan.Updates, models.Operation{Kind: models.OpUpdate, ID: m.ID, Key: k, Values: row.Project(opts.Columns)})
		}
	}

	if opts.Delete {
		local := make(map[string]struct{}, ds.Len())
		for _, v := range ds.Values(opts.Key) {
			local[v] = struct{}{}
		}
		for _, r := range remote {
			k := r.Values[opts.Key]
			if _, ok := local[k]; !ok {
				plan.Deletes = append(plan.Deletes, models.Operation{Kind: models.OpDelete, ID: r.ID, Key: k})
			}
		}
	}

	return plan
}

// OptionGroup holds the options of one list, in dataset order.
type OptionGroup struct {
	Name    string
	Options []models.Option
}

// GroupOptions splits an option dataset by list name. Groups are sorted by name.
func GroupOptions(ds *models.Dataset) []OptionGroup {
	index := make(map[string]int)
	var groups []OptionGroup
	for _, row := range ds.Rows {
		o := models.OptionFromRow(row)
		i, ok := index[o.ListName]
		if !ok {
			i = len(groups)
			index[o.ListName] = i
			groups = append(groups, OptionGroup{Name: o.ListName})
		}
		groups[i].Options = append(groups[i].Options, o)
	}

	slices.SortFunc(groups, func(a, b OptionGroup) int { return strings.Compare(a.Name, b.Name) })
	return groups
}

// ValidateGroup checks that key values are present and unique and that sort orders are unique.
func ValidateGroup(g OptionGroup) error {
	keys := make(map[string]int, len(g.Options))
	sorts := make(map[string]int, len(g.Options))
	var missing, dupeKeys, dupeSorts []string

	for i, o := range g.Options {
		if o.KeyValue == "" {
			missing = append(missing, fmt.Sprintf("%d", i+1))
		} else if keys[o.KeyValue]++; keys[o.KeyValue] == 2 {
			dupeKeys = append(dupeKeys, o.KeyValue)
		}
		if sorts[o.SortOrder]++; sorts[o.SortOrder] == 2 {
			dupeSorts = append(dupeSorts, o.SortOrder)
		}
	}

	switch {
	case len(missing) > 0:
		return fmt.Errorf("%w: option list %s has options without key_value (entries %s)", shared.ErrMissingKeyValue, g.Name, abbreviate(missing))
	case len(dupeKeys) > 0:
		return fmt.Errorf("%w: option list %s contains duplicate key values %s", shared.ErrDuplicateKey, g.Name, abbreviate(dupeKeys))
	case len(dupeSorts) > 0:
		return fmt.Errorf("%w: option list %s contains duplicate sort order values %s", shared.ErrDuplicateSortOrder, g.Name, abbreviate(dupeSorts))
	}
	return nil
}

// optionColumns are the option fields written remotely.
var optionColumns = []string{models.OptionKeyValue, models.OptionLabel, models.OptionSortOrder, models.OptionConditionValue}

// PlanOptions computes the operations that converge a remote option list on g.
// Options are never deleted.
func PlanOptions(g OptionGroup, remote []models.Option, update bool) *models.Plan {
	plan := &models.Plan{Target: g.Name, Columns: optionColumns}

	byKey := make(map[string][]models.Option, len(remote))
	for _, r := range remote {
		byKey[r.KeyValue] = append(byKey[r.KeyValue], r)
	}

	for _, o := range g.Options {
		matches, found := byKey[o.KeyValue]
		if !found {
			plan.Creates = append(plan.Creates, models.Operation{Kind: models.OpCreate, Key: o.KeyValue, Values: o.Row()})
			continue
		}
		if !update {
			continue
		}
		for _, m := range matches {
			if o.Label == m.Label && o.SortOrder == m.SortOrder && o.ConditionValue == m.ConditionValue {
				continue
			}
			plan.Updates = append(plan.Updates, models.Operation{Kind: models.OpUpdate, ID: m.ID, Key: o.KeyValue, Values: o.Row()})
		}
	}

	return plan
}

// optionOf turns a planned operation back into the option sent to the API.
func optionOf(op models.Operation) models.Option {
	return models.Option{
		ID:             op.ID,
		KeyValue:       op.Values[models.OptionKeyValue],
		Label:          op.Values[models.OptionLabel],
		SortOrder:      op.Values[models.OptionSortOrder],
		ConditionValue: op.Values[models.OptionConditionValue],
	}
}

// abbreviate joins values for an error message, keeping the first ten.
func abbreviate(values []string) string {
	const limit = 10
	if len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(values[:limit], ", "), len(values)-limit)
}
