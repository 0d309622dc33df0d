package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTablesPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	content := "vendors:\n  - contoso\n  - fabrikam\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tables, err := LoadTables(path)
	if err != nil {
		t.Fatalf("LoadTables: %v", err)
	}

	if len(tables.Vendors) != 2 || tables.Vendors[0] != "contoso" {
		t.Errorf("vendors not overridden: %v", tables.Vendors)
	}
	defaults := DefaultTables()
	if len(tables.Browsers) != len(defaults.Browsers) {
		t.Errorf("browsers should keep defaults, got %v", tables.Browsers)
	}
	if len(tables.TrustedDomains) != len(defaults.TrustedDomains) {
		t.Errorf("trusted domains should keep defaults, got %v", tables.TrustedDomains)
	}
}

func TestLoadTablesMissingFile(t *testing.T) {
	if _, err := LoadTables(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing rule table file")
	}
}

func TestLoadTablesBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yaml")
	if err := os.WriteFile(path, []byte("vendors: {not: [a, list"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTables(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
