package handlers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// The pattern and accuracy services bind these columns as float64 on
// both the insert and scan sides, so the installed schema must declare
// them numeric.
func TestPostgresSchemaFloatColumns(t *testing.T) {
	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "postgres", "001_initial_schema.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}

	columns := []string{
		"prediction_impact",
		"confidence",
		"strength",
		"historical_accuracy",
		"base_confidence_boost",
		"accuracy_rate",
	}
	for _, col := range columns {
		found := false
		for _, line := range strings.Split(string(schema), "\n") {
			trimmed := strings.TrimSpace(line)
			if !strings.HasPrefix(trimmed, col+" ") {
				continue
			}
			found = true
			if !strings.Contains(trimmed, "DOUBLE PRECISION") {
				t.Errorf("column %s must be DOUBLE PRECISION, got: %s", col, trimmed)
			}
		}
		if !found {
			t.Errorf("column %s not declared in schema", col)
		}
	}
}
