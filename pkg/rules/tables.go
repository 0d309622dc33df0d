// Package rules provides the whitelist override and false-positive
// post-filter engines. All rules are named, pure predicates over raw record
// fields, evaluated uniformly so each decision can record which rule fired.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tables holds the substring lists the rule predicates match against.
// Matching is case-insensitive everywhere.
type Tables struct {
	// Vendors are benign vendor markers for OS update services and CDN/cloud
	// providers, matched against user-agent and URL.
	Vendors []string `yaml:"vendors"`

	// Browsers identify common browser families in user-agent strings.
	Browsers []string `yaml:"browsers"`

	// TrustedDomains whitelist a URL outright when present as a substring.
	TrustedDomains []string `yaml:"trusted_domains"`
}

// DefaultTables returns the compiled-in rule tables.
func DefaultTables() Tables {
	return Tables{
		Vendors: []string{
			"microsoft", "windows", "cryptoapi", "ncsi",
			"akamai", "cloudflare", "cloudfront", "googleapis", "azure",
		},
		Browsers: []string{
			"mozilla", "chrome", "firefox", "safari", "edge", "opera",
		},
		TrustedDomains: []string{
			"windowsupdate.com", "microsoft.com", "msftconnecttest.com",
			"google.com", "gstatic.com", "office.com", "apple.com", "ubuntu.com",
		},
	}
}

// LoadTables reads rule tables from a YAML file. Lists left empty in the file
// keep their compiled-in defaults, so an override file only needs to name the
// lists it changes.
func LoadTables(path string) (Tables, error) {
	t := DefaultTables()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read rule tables: %w", err)
	}

	var override Tables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return t, fmt.Errorf("parse rule tables %s: %w", path, err)
	}

	if len(override.Vendors) > 0 {
		t.Vendors = override.Vendors
	}
	if len(override.Browsers) > 0 {
		t.Browsers = override.Browsers
	}
	if len(override.TrustedDomains) > 0 {
		t.TrustedDomains = override.TrustedDomains
	}
	return t, nil
}
