package tasks

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/services"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// Resolution describes the remote container a dataset will be written to.
type Resolution struct {
	Container models.Container `json:"container"`
	Created   bool             `json:"created"`           // created during this run (id 0 on a dry run)
	Cleared   bool             `json:"cleared"`           // every record was deleted before writing
	Columns   []string         `json:"columns,omitempty"` // dataset columns present remotely
	Missing   []string         `json:"missing,omitempty"` // dataset columns absent remotely, never written
}

// Resolver looks up or creates remote containers. On a dry run it makes read calls only.
type Resolver struct {
	dryRun   bool
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewResolver creates a [Resolver].
func NewResolver(dryRun bool, logger *log.Logger, progress chan<- ProgressUpdate) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{dryRun: dryRun, logger: logger, progress: progress}
}

// PageSpec names the page a dataset is synced to.
type PageSpec struct {
	Name        string
	Label       string
	FieldLength int
	Keyed       bool
}

// ResolvePage finds the page named spec.Name or creates it with one text element per dataset column.
//
// An existing page is cleared when no key is configured. Its elements are compared with the dataset
// columns; columns without an element are reported in [Resolution.Missing] and dropped from writes.
func (r *Resolver) ResolvePage(ctx context.Context, client services.PageClient, ds *models.Dataset, spec PageSpec) (*Resolution, error) {
	sendProgress(r.progress, resolveUpdate(1, 1, "page", spec.Name))

	pages, err := client.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	idx := slices.IndexFunc(pages, func(p models.Container) bool { return p.Name == spec.Name })
	if idx < 0 {
		return r.createPage(ctx, client, ds, spec)
	}

	res := &Resolution{Container: pages[idx]}
	logger := r.logger.With("page", spec.Name, "id", res.Container.ID)

	if !spec.Keyed {
		logger.Warn("no unique ID column provided, all records in page will be overwritten")
		sendProgress(r.progress, clearRecordsUpdate(spec.Name, r.dryRun))
		if !r.dryRun {
			if err := client.DeleteAllRecords(ctx, res.Container.ID); err != nil {
				return nil, fmt.Errorf("failed to clear page %s: %w", spec.Name, err)
			}
		}
		res.Cleared = true
	}

	elements, err := client.ListElements(ctx, res.Container.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list elements of page %s: %w", spec.Name, err)
	}

	remote := make(map[string]struct{}, len(elements))
	for _, e := range elements {
		remote[e.Name] = struct{}{}
	}
	for _, c := range ds.Columns {
		if _, ok := remote[c]; ok {
			res.Columns = append(res.Columns, c)
		} else {
			res.Missing = append(res.Missing, c)
		}
	}

	if len(res.Missing) > 0 {
		logger.Warn("input columns have no match in the destination page and will not be loaded", "columns", res.Missing)
	}
	return res, nil
}

func (r *Resolver) createPage(ctx context.Context, client services.PageClient, ds *models.Dataset, spec PageSpec) (*Resolution, error) {
	res := &Resolution{
		Container: models.Container{Name: spec.Name},
		Created:   true,
		Columns:   slices.Clone(ds.Columns),
	}

	if r.dryRun {
		sendProgress(r.progress, createdContainerUpdate("page", res))
		return res, nil
	}

	id, err := client.CreatePage(ctx, spec.Name, spec.Label)
	if err != nil {
		return nil, fmt.Errorf("failed to create page %s: %w", spec.Name, err)
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: creating page %s returned id %d", shared.ErrInvalidContainer, spec.Name, id)
	}
	res.Container.ID = id
	r.logger.Info("created new page", "page", spec.Name, "id", id)

	elements := make([]models.Element, len(ds.Columns))
	for i, c := range ds.Columns {
		elements[i] = models.Element{Name: c, Label: c, DataType: models.TextElementType, DataSize: spec.FieldLength}
	}
	if err := client.CreateElements(ctx, id, elements); err != nil {
		return nil, fmt.Errorf("failed to create elements of page %s: %w", spec.Name, err)
	}

	sendProgress(r.progress, createdContainerUpdate("page", res))
	return res, nil
}

// ResolveOptionList finds the option list named name among existing or creates it.
// A created list is appended to existing so later lookups see it.
func (r *Resolver) ResolveOptionList(ctx context.Context, client services.OptionListClient, name string, existing *[]models.Container) (*Resolution, error) {
	if idx := slices.IndexFunc(*existing, func(c models.Container) bool { return c.Name == name }); idx >= 0 {
		return &Resolution{Container: (*existing)[idx]}, nil
	}

	res := &Resolution{Container: models.Container{Name: name}, Created: true}
	if r.dryRun {
		sendProgress(r.progress, createdContainerUpdate("option list", res))
		return res, nil
	}

	id, err := client.CreateOptionList(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create option list %s: %w", name, err)
	}
	if id <= 0 {
		return nil, fmt.Errorf("%w: creating option list %s returned id %d", shared.ErrInvalidContainer, name, id)
	}
	res.Container.ID = id
	*existing = append(*existing, res.Container)

	r.logger.Info("created new option list", "list", name, "id", id)
	sendProgress(r.progress, createdContainerUpdate("option list", res))
	return res, nil
}
