package formatter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
	th "github.com/desertthunder/ifbsync/internal/testing"
	"github.com/goccy/go-yaml"
)

func testPlans() []*models.Plan {
	return []*models.Plan{
		{
			Target:  "lookup",
			Columns: []string{"code", "name"},
			Creates: []models.Operation{{Kind: models.OpCreate, Key: "B", Values: models.Row{"code": "B", "name": "beta"}}},
			Updates: []models.Operation{{Kind: models.OpUpdate, ID: 12, Key: "C", Values: models.Row{"code": "C", "name": "gamma"}}},
			Deletes: []models.Operation{{Kind: models.OpDelete, ID: 14, Key: "D"}},
		},
		{
			Target:  "colors",
			Columns: []string{"key_value", "label"},
			Creates: []models.Operation{{Kind: models.OpCreate, Key: "red", Values: models.Row{"key_value": "red", "label": "Red"}}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"text", FormatText},
		{"JSON", FormatJSON},
		{"yml", FormatYAML},
		{" csv ", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testPlans())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"lookup: 1 to create, 1 to update, 1 to delete",
			"create B code=B name=beta",
			"update #12 C code=C name=gamma",
			"delete #14 D",
			"colors: 1 to create, 0 to update, 0 to delete",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("text missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(testPlans())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0]["target"] != "lookup" {
			t.Errorf("unexpected JSON %s", data)
		}
		if !strings.Contains(string(data), `"kind": "update"`) {
			t.Errorf("expected kinds as names, got %s", data)
		}
	})

	t.Run("ExportToJSON empty", func(t *testing.T) {
		data, err := ExportToJSON(nil)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}
		if strings.TrimSpace(string(data)) != "[]" {
			t.Errorf("expected empty array, got %s", data)
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		data, err := ExportToYAML(testPlans())
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}

		var decoded []map[string]any
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid YAML: %v", err)
		}
		if len(decoded) != 2 || decoded[1]["target"] != "colors" {
			t.Errorf("unexpected YAML:\n%s", data)
		}
		if !strings.Contains(string(data), "kind: delete") {
			t.Errorf("expected kinds as names, got:\n%s", data)
		}
	})

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testPlans())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if strings.Join(records[0], ",") != "target,kind,id,key,code,name,key_value,label" {
			t.Errorf("unexpected header %v", records[0])
		}
		if len(records) != 5 {
			t.Fatalf("expected 4 operations and a header, got %d rows", len(records))
		}
		if strings.Join(records[2], ",") != "lookup,update,12,C,C,gamma,," {
			t.Errorf("unexpected update row %v", records[2])
		}
		if strings.Join(records[4], ",") != "colors,create,,red,,,red,Red" {
			t.Errorf("unexpected option row %v", records[4])
		}
	})
}

func TestWritePlanExport(t *testing.T) {
	dir := t.TempDir()

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			path, err := WritePlanExport(testPlans(), f, filepath.Join(dir, "plan."+f.Extension()))
			if err != nil {
				t.Fatalf("WritePlanExport failed: %v", err)
			}
			th.AssertFileExists(t, path)
			if content := th.MustReadFile(t, path); !strings.Contains(content, "lookup") {
				t.Errorf("expected plan content, got %s", content)
			}
		})
	}

	t.Run("default filename", func(t *testing.T) {
		wd := th.MustGetwd(t)
		th.MustChdir(t, dir)
		defer th.MustChdir(t, wd)

		path, err := WritePlanExport(testPlans(), FormatText, "")
		if err != nil {
			t.Fatalf("WritePlanExport failed: %v", err)
		}
		if path != "plan.txt" {
			t.Errorf("expected plan.txt, got %s", path)
		}
		th.AssertFileExists(t, filepath.Join(dir, "plan.txt"))
	})
}
