// package services defines the remote capabilities the syncers need and implements them for iFormBuilder
package services

import (
	"context"

	"github.com/desertthunder/ifbsync/internal/models"
)

// PageClient covers the page (form) operations used by form sync.
type PageClient interface {
	// ListPages returns every page in the profile.
	ListPages(ctx context.Context) ([]models.Container, error)

	// CreatePage creates a page and returns its id. The platform reports failure with a non-positive id.
	CreatePage(ctx context.Context, name, label string) (int64, error)

	// ListElements returns the page's fields.
	ListElements(ctx context.Context, pageID int64) ([]models.Element, error)

	// CreateElements adds fields to a page.
	CreateElements(ctx context.Context, pageID int64, elements []models.Element) error

	// ListRecords returns every record of the page projected to fields, plus its id.
	ListRecords(ctx context.Context, pageID int64, fields []string) ([]models.Record, error)

	// CreateRecords inserts one record per row, sending the given columns in order.
	CreateRecords(ctx context.Context, pageID int64, columns []string, rows []models.Row) error

	// UpdateRecords overwrites the given columns of existing records.
	UpdateRecords(ctx context.Context, pageID int64, columns []string, records []models.Record) error

	// DeleteRecord removes a single record.
	DeleteRecord(ctx context.Context, pageID, recordID int64) error

	// DeleteAllRecords removes every record of the page.
	DeleteAllRecords(ctx context.Context, pageID int64) error
}

// OptionListClient covers the option list operations used by list sync.
type OptionListClient interface {
	ListOptionLists(ctx context.Context) ([]models.Container, error)
	CreateOptionList(ctx context.Context, name string) (int64, error)
	ListOptions(ctx context.Context, listID int64) ([]models.Option, error)
	CreateOptions(ctx context.Context, listID int64, options []models.Option) error
	UpdateOptions(ctx context.Context, listID int64, options []models.Option) error
}

// Platform is the full remote capability set.
type Platform interface {
	PageClient
	OptionListClient

	// Calls returns the number of HTTP requests issued so far.
	Calls() int
}
