package testing

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/ifbsync/internal/models"
)

// Call records one request made to a [FakePlatform].
type Call struct {
	Method string
	ID     int64 // page or option list id, 0 for profile level calls
	Size   int   // records, elements or options sent
}

// FakePlatform is an in-memory [services.Platform].
//
// Set Errors[method] to make that method fail. CreatedID, when set, is returned by CreatePage and
// CreateOptionList instead of a fresh id.
type FakePlatform struct {
	mu sync.Mutex

	Pages    []models.Container
	Elements map[int64][]models.Element
	Records  map[int64][]models.Record
	Lists    []models.Container
	Options  map[int64][]models.Option

	Errors    map[string]error
	CreatedID *int64
	Log       []Call

	nextID int64
}

// NewFakePlatform creates an empty [FakePlatform].
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Elements: make(map[int64][]models.Element),
		Records:  make(map[int64][]models.Record),
		Options:  make(map[int64][]models.Option),
		Errors:   make(map[string]error),
		nextID:   1000,
	}
}

// AddPage registers a page with one element per column and returns its id.
func (f *FakePlatform) AddPage(name string, columns ...string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.id()
	f.Pages = append(f.Pages, models.Container{ID: id, Name: name})
	for _, c := range columns {
		f.Elements[id] = append(f.Elements[id], models.Element{Name: c, Label: c, DataType: models.TextElementType})
	}
	return id
}

// AddRecords stores rows as records of a page.
func (f *FakePlatform) AddRecords(pageID int64, rows ...models.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.Records[pageID] = append(f.Records[pageID], models.Record{ID: f.id(), Values: r})
	}
}

// AddList registers an option list holding options and returns its id.
func (f *FakePlatform) AddList(name string, options ...models.Option) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.id()
	f.Lists = append(f.Lists, models.Container{ID: id, Name: name})
	for _, o := range options {
		o.ID = f.id()
		f.Options[id] = append(f.Options[id], o)
	}
	return id
}

// PageID returns the id of the page named name, or 0.
func (f *FakePlatform) PageID(name string) int64 {
	return find(f, f.Pages, name)
}

// ListID returns the id of the option list named name, or 0.
func (f *FakePlatform) ListID(name string) int64 {
	return find(f, f.Lists, name)
}

// CallsTo returns the calls made to method, in order.
func (f *FakePlatform) CallsTo(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var calls []Call
	for _, c := range f.Log {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// Mutations returns the number of calls that change remote state.
func (f *FakePlatform) Mutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Log {
		switch c.Method {
		case "ListPages", "ListElements", "ListRecords", "ListOptionLists", "ListOptions":
		default:
			n++
		}
	}
	return n
}

func (f *FakePlatform) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Log)
}

func (f *FakePlatform) ListPages(ctx context.Context) ([]models.Container, error) {
	if err := f.record("ListPages", 0, 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Pages), nil
}

func (f *FakePlatform) CreatePage(ctx context.Context, name, label string) (int64, error) {
	if err := f.record("CreatePage", 0, 1); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.created()
	if id > 0 {
		f.Pages = append(f.Pages, models.Container{ID: id, Name: name})
	}
	return id, nil
}

func (f *FakePlatform) ListElements(ctx context.Context, pageID int64) ([]models.Element, error) {
	if err := f.record("ListElements", pageID, 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Elements[pageID]), nil
}

func (f *FakePlatform) CreateElements(ctx context.Context, pageID int64, elements []models.Element) error {
	if err := f.record("CreateElements", pageID, len(elements)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Elements[pageID] = append(f.Elements[pageID], elements...)
	return nil
}

func (f *FakePlatform) ListRecords(ctx context.Context, pageID int64, fields []string) ([]models.Record, error) {
	if err := f.record("ListRecords", pageID, 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	records := make([]models.Record, len(f.Records[pageID]))
	for i, r := range f.Records[pageID] {
		records[i] = models.Record{ID: r.ID, Values: r.Values.Project(fields)}
	}
	return records, nil
}

func (f *FakePlatform) CreateRecords(ctx context.Context, pageID int64, columns []string, rows []models.Row) error {
	if err := f.record("CreateRecords", pageID, len(rows)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.Records[pageID] = append(f.Records[pageID], models.Record{ID: f.id(), Values: r.Project(columns)})
	}
	return nil
}

func (f *FakePlatform) UpdateRecords(ctx context.Context, pageID int64, columns []string, records []models.Record) error {
	if err := f.record("UpdateRecords", pageID, len(records)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range records {
		i := slices.IndexFunc(f.Records[pageID], func(r models.Record) bool { return r.ID == u.ID })
		if i < 0 {
			return fmt.Errorf("record %d not found", u.ID)
		}
		for _, c := range columns {
			f.Records[pageID][i].Values[c] = u.Values[c]
		}
	}
	return nil
}

func (f *FakePlatform) DeleteRecord(ctx context.Context, pageID, recordID int64) error {
	if err := f.record("DeleteRecord", pageID, 1); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Records[pageID] = slices.DeleteFunc(f.Records[pageID], func(r models.Record) bool { return r.ID == recordID })
	return nil
}

func (f *FakePlatform) DeleteAllRecords(ctx context.Context, pageID int64) error {
	if err := f.record("DeleteAllRecords", pageID, 0); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Records, pageID)
	return nil
}

func (f *FakePlatform) ListOptionLists(ctx context.Context) ([]models.Container, error) {
	if err := f.record("ListOptionLists", 0, 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Lists), nil
}

func (f *FakePlatform) CreateOptionList(ctx context.Context, name string) (int64, error) {
	if err := f.record("CreateOptionList", 0, 1); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.created()
	if id > 0 {
		f.Lists = append(f.Lists, models.Container{ID: id, Name: name})
	}
	return id, nil
}

func (f *FakePlatform) ListOptions(ctx context.Context, listID int64) ([]models.Option, error) {
	if err := f.record("ListOptions", listID, 0); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.Options[listID]), nil
}

func (f *FakePlatform) CreateOptions(ctx context.Context, listID int64, options []models.Option) error {
	if err := f.record("CreateOptions", listID, len(options)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range options {
		o.ID = f.id()
		f.Options[listID] = append(f.Options[listID], o)
	}
	return nil
}

func (f *FakePlatform) UpdateOptions(ctx context.Context, listID int64, options []models.Option) error {
	if err := f.record("UpdateOptions", listID, len(options)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range options {
		i := slices.IndexFunc(f.Options[listID], func(o models.Option) bool { return o.ID == u.ID })
		if i < 0 {
			return fmt.Errorf("option %d not found", u.ID)
		}
		f.Options[listID][i] = u
	}
	return nil
}

// record logs a call and returns the injected error for method, if any.
func (f *FakePlatform) record(method string, id int64, size int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Log = append(f.Log, Call{Method: method, ID: id, Size: size})
	return f.Errors[method]
}

func (f *FakePlatform) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *FakePlatform) created() int64 {
	if f.CreatedID != nil {
		return *f.CreatedID
	}
	return f.id()
}

func find(f *FakePlatform, containers []models.Container, name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range containers {
		if c.Name == name {
			return c.ID
		}
	}
	return 0
}
