// package formatter renders sync plans as plain text, JSON, YAML or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
	"github.com/goccy/go-yaml"
)

// Format names a plan output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatCSV}

// ParseFormat validates a format name. "yml" is accepted for YAML.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "yml" {
		f = FormatYAML
	}
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: unknown format %q, expected one of %v", shared.ErrInvalidArgument, name, Formats)
	}
	return f, nil
}

// Extension returns the file extension used for f.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Export renders plans in format f.
func Export(plans []*models.Plan, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return ExportToText(plans)
	case FormatJSON:
		return ExportToJSON(plans)
	case FormatYAML:
		return ExportToYAML(plans)
	case FormatCSV:
		return ExportToCSV(plans)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToText lists every planned operation under its target, with a count line per target.
func ExportToText(plans []*models.Plan) ([]byte, error) {
	var buf bytes.Buffer

	for i, p := range plans {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "%s: %d to create, %d to update, %d to delete\n", p.Target, len(p.Creates), len(p.Updates), len(p.Deletes))

		for _, op := range p.Operations() {
			fmt.Fprintf(&buf, "  %-6s %s\n", op.Kind, describe(op, p.Columns))
		}
	}

	return buf.Bytes(), nil
}

func describe(op models.Operation, columns []string) string {
	var parts []string
	if op.ID != 0 {
		parts = append(parts, "#"+strconv.FormatInt(op.ID, 10))
	}
	if op.Key != "" {
		parts = append(parts, op.Key)
	}
	if len(op.Values) > 0 {
		values := make([]string, 0, len(columns))
		for _, c := range columns {
			values = append(values, c+"="+op.Values[c])
		}
		parts = append(parts, strings.Join(values, " "))
	}
	return strings.Join(parts, " ")
}

// ExportToJSON renders plans as an indented JSON array.
func ExportToJSON(plans []*models.Plan) ([]byte, error) {
	data, err := json.MarshalIndent(nonNil(plans), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plans: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToYAML renders plans as a YAML sequence.
func ExportToYAML(plans []*models.Plan) ([]byte, error) {
	data, err := yaml.MarshalWithOptions(nonNil(plans), yaml.Indent(2), yaml.IndentSequence(false))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plans: %w", err)
	}
	return data, nil
}

// ExportToCSV writes one row per operation with columns target, kind, id, key followed by every
// value column in first-seen order.
func ExportToCSV(plans []*models.Plan) ([]byte, error) {
	var columns []string
	for _, p := range plans {
		for _, c := range p.Columns {
			if !slices.Contains(columns, c) {
				columns = append(columns, c)
			}
		}
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := append([]string{"target", "kind", "id", "key"}, columns...)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range plans {
		for _, op := range p.Operations() {
			id := ""
			if op.ID != 0 {
				id = strconv.FormatInt(op.ID, 10)
			}
			record := []string{p.Target, op.Kind.String(), id, op.Key}
			for _, c := range columns {
				record = append(record, op.Values[c])
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WritePlanExport renders plans in format f and writes them to path.
//
// Defaults to plan.{ext} as the filename.
func WritePlanExport(plans []*models.Plan, f Format, path string) (string, error) {
	if path == "" {
		path = "plan." + f.Extension()
	}

	data, err := Export(plans, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write plan file: %w", err)
	}
	return path, nil
}

func nonNil(plans []*models.Plan) []*models.Plan {
	if plans == nil {
		return []*models.Plan{}
	}
	return plans
}
