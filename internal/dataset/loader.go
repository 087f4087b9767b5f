package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// LoadForm reads the CSV at path as page records.
func LoadForm(path string, fieldLength int) (*models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrReadDataset, err)
	}
	defer f.Close()
	return ReadForm(f, fieldLength)
}

// ReadForm parses page records: column names are sanitized, every cell is truncated to
// fieldLength runes, and reserved column names are rejected.
func ReadForm(r io.Reader, fieldLength int) (*models.Dataset, error) {
	ds, err := read(r)
	if err != nil {
		return nil, err
	}

	if err := CheckReserved(ds.Columns); err != nil {
		return nil, err
	}

	for _, row := range ds.Rows {
		for col, v := range row {
			row[col] = Truncate(v, fieldLength)
		}
	}
	return ds, nil
}

// LoadOptions reads the CSV at path as option list entries.
func LoadOptions(path string) (*models.Dataset, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrReadDataset, err)
	}
	defer f.Close()
	return ReadOptions(f)
}

// ReadOptions parses option list entries. It requires every column of [models.OptionColumns],
// normalizes list names and key values, and drops rows whose list name is empty.
// Dropped rows are reported as warnings.
func ReadOptions(r io.Reader) (*models.Dataset, []string, error) {
	ds, err := read(r)
	if err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, c := range models.OptionColumns {
		if !ds.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrMissingColumns, strings.Join(missing, ", "))
	}

	var warnings []string
	rows := ds.Rows[:0]
	for i, row := range ds.Rows {
		row[models.OptionName] = NormalizeListName(row[models.OptionName])
		row[models.OptionKeyValue] = NormalizeKeyValue(row[models.OptionKeyValue])
		if row[models.OptionName] == "" {
			warnings = append(warnings, fmt.Sprintf("row %d has no option list name, skipping", i+2))
			continue
		}
		rows = append(rows, row)
	}
	ds.Rows = rows

	return ds, warnings, nil
}

// read parses a CSV with a header row into a dataset of string cells.
//
// Short rows are padded with empty cells and extra cells are dropped.
func read(r io.Reader) (*models.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", shared.ErrReadDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", shared.ErrReadDataset, err)
	}

	columns, err := sanitizeHeader(header)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{Columns: columns}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrReadDataset, err)
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

func sanitizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]int, len(header))
	var dupes []string

	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		name := shared.SanitizeColumn(h)
		if name == "" {
			return nil, fmt.Errorf("%w: column %d has no usable name (%q)", shared.ErrReadDataset, i+1, h)
		}
		if seen[name]++; seen[name] == 2 {
			dupes = append(dupes, name)
		}
		columns[i] = name
	}

	if len(dupes) > 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrDuplicateColumn, strings.Join(dupes, ", "))
	}
	return columns, nil
}
