package tasks

import (
	"fmt"

	"github.com/desertthunder/ifbsync/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	LoadDataset Phase = iota
	ResolveContainer
	ClearRecords
	FetchRemote
	Reconcile
	ApplyCreates
	ApplyUpdates
	ApplyDeletes
	SkipGroup
	Warning
)

func (p Phase) String() string {
	switch p {
	case LoadDataset:
		return "load_dataset"
	case ResolveContainer:
		return "resolve_container"
	case ClearRecords:
		return "clear_records"
	case FetchRemote:
		return "fetch_remote"
	case Reconcile:
		return "reconcile"
	case ApplyCreates:
		return "apply_creates"
	case ApplyUpdates:
		return "apply_updates"
	case ApplyDeletes:
		return "apply_deletes"
	case SkipGroup:
		return "skip_group"
	case Warning:
		return "warning"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func loadDatasetUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadDataset,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loading CSV file %s...", path),
	}
}

func loadedDatasetUpdate(rows, columns int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadDataset,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d rows with %d columns", rows, columns),
	}
}

func resolveUpdate(step, total int, kind, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveContainer,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Resolving %s %s...", kind, name),
	}
}

func createdContainerUpdate(kind string, res *Resolution) ProgressUpdate {
	msg := fmt.Sprintf("Created new %s %s (ID: %d)", kind, res.Container.Name, res.Container.ID)
	if res.Container.ID == 0 {
		msg = fmt.Sprintf("Would create new %s %s", kind, res.Container.Name)
	}
	return ProgressUpdate{
		Phase:   ResolveContainer,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    res,
	}
}

func clearRecordsUpdate(name string, dryRun bool) ProgressUpdate {
	msg := fmt.Sprintf("No unique ID column provided, all records in page %s will be overwritten", name)
	if dryRun {
		msg += " (dry run, nothing deleted)"
	}
	return ProgressUpdate{
		Phase:   ClearRecords,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func fetchRemoteUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching current contents of %s...", name),
	}
}

func reconcileUpdate(step, total int, plan *models.Plan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Reconcile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s: %d to create, %d to update, %d to delete", plan.Target, len(plan.Creates), len(plan.Updates), len(plan.Deletes)),
		Data:    plan,
	}
}

func applyUpdate(phase Phase, target string, from, to, total int) ProgressUpdate {
	verb := map[Phase]string{ApplyCreates: "Appending", ApplyUpdates: "Updating", ApplyDeletes: "Deleting"}[phase]
	return ProgressUpdate{
		Phase:   phase,
		Step:    to,
		Total:   total,
		Message: fmt.Sprintf("%s %s %d to %d of %d...", verb, target, from, to, total),
	}
}

func skipGroupUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SkipGroup,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Option list %s skipped: %v", name, err),
	}
}

func warningUpdate(msg string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Warning,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}
