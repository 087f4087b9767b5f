package models

import "slices"

// Row maps column names to string cells.
type Row map[string]string

// Project returns a copy of r holding only the given columns. Missing columns become "".
func (r Row) Project(columns []string) Row {
	out := make(Row, len(columns))
	for _, c := range columns {
		out[c] = r[c]
	}
	return out
}

// Equal reports whether r and other hold the same value for every given column.
func (r Row) Equal(other Row, columns []string) bool {
	for _, c := range columns {
		if r[c] != other[c] {
			return false
		}
	}
	return true
}

// Dataset is a loaded CSV: an ordered list of rows that all carry every column.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// HasColumn reports whether name is one of the dataset's columns.
func (d *Dataset) HasColumn(name string) bool {
	return slices.Contains(d.Columns, name)
}

// Values returns the cells of column in row order.
func (d *Dataset) Values(column string) []string {
	values := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		values[i] = row[column]
	}
	return values
}

// Container is a remote page or option list.
type Container struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Element is one field of a remote page.
type Element struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	DataType int    `json:"data_type"`
	DataSize int    `json:"data_size"`
}

// TextElementType is the element data type used for every column of a page created from a CSV.
const TextElementType = 1

// Record is one remote page record.
type Record struct {
	ID     int64
	Values Row
}

// Option is one entry of an option list.
type Option struct {
	ID             int64  `json:"id,omitempty"`
	ListName       string `json:"-"`
	KeyValue       string `json:"key_value"`
	Label          string `json:"label"`
	SortOrder      string `json:"sort_order"`
	ConditionValue string `json:"condition_value"`
}

// Option column names. Every option list CSV must carry all of them.
const (
	OptionName           = "name"
	OptionKeyValue       = "key_value"
	OptionLabel          = "label"
	OptionSortOrder      = "sort_order"
	OptionConditionValue = "condition_value"
)

// OptionColumns lists the required option list CSV columns in canonical order.
var OptionColumns = []string{OptionName, OptionKeyValue, OptionLabel, OptionSortOrder, OptionConditionValue}

// OptionFromRow builds an [Option] from a loaded option list row.
func OptionFromRow(r Row) Option {
	return Option{
		ListName:       r[OptionName],
		KeyValue:       r[OptionKeyValue],
		Label:          r[OptionLabel],
		SortOrder:      r[OptionSortOrder],
		ConditionValue: r[OptionConditionValue],
	}
}

// Row returns the option's comparable fields as a [Row].
func (o Option) Row() Row {
	return Row{
		OptionKeyValue:       o.KeyValue,
		OptionLabel:          o.Label,
		OptionSortOrder:      o.SortOrder,
		OptionConditionValue: o.ConditionValue,
	}
}
