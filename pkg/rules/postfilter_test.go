package rules

import (
	"testing"

	"github.com/seclab-th/rampart/pkg/flow"
)

func TestApplyPostFilters(t *testing.T) {
	chain := DefaultPostFilters(DefaultTables(), 0.55)

	testCases := []struct {
		name     string
		record   flow.Record
		prob     float64
		wantRule string
		wantOK   bool
	}{
		{
			name: "browser tls success",
			record: flow.Record{
				Protocol:   "https",
				StatusCode: "200",
				UserAgent:  "Mozilla/5.0 Chrome/120.0",
			},
			prob:     0.90,
			wantRule: "browser-tls-success",
			wantOK:   true,
		},
		{
			name: "same country",
			record: flow.Record{
				Protocol:   "http",
				StatusCode: "404",
				SrcCountry: "US",
				DstCountry: "us",
			},
			prob:     0.90,
			wantRule: "same-country",
			wantOK:   true,
		},
		{
			name:     "low confidence",
			record:   flow.Record{SrcCountry: "TH", DstCountry: "US"},
			prob:     0.549,
			wantRule: "low-confidence",
			wantOK:   true,
		},
		{
			name:   "floor boundary keeps alert",
			record: flow.Record{SrcCountry: "TH", DstCountry: "US"},
			prob:   0.55,
			wantOK: false,
		},
		{
			name: "confident cross country attack survives",
			record: flow.Record{
				Protocol:   "http",
				StatusCode: "200",
				UserAgent:  "python-requests/2.31",
				SrcCountry: "TH",
				DstCountry: "RU",
			},
			prob:   0.97,
			wantOK: false,
		},
		{
			name:   "unknown countries never match same-country",
			record: flow.Record{SrcCountry: "", DstCountry: ""},
			prob:   0.90,
			wantOK: false,
		},
		{
			name:   "dash country sentinel never matches",
			record: flow.Record{SrcCountry: "-", DstCountry: "-"},
			prob:   0.90,
			wantOK: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rule, ok := ApplyPostFilters(chain, tc.record, tc.prob)
			if ok != tc.wantOK {
				t.Fatalf("suppressed = %t, want %t (rule %q)", ok, tc.wantOK, rule)
			}
			if ok && rule != tc.wantRule {
				t.Errorf("suppressing rule = %q, want %q", rule, tc.wantRule)
			}
		})
	}
}

func TestPostFilterOrderFirstMatchWins(t *testing.T) {
	chain := DefaultPostFilters(DefaultTables(), 0.55)

	// Record matches all three rules; the first in the chain must be reported.
	r := flow.Record{
		Protocol:   "https",
		StatusCode: "200",
		UserAgent:  "Mozilla/5.0",
		SrcCountry: "US",
		DstCountry: "US",
	}
	rule, ok := ApplyPostFilters(chain, r, 0.40)
	if !ok || rule != "browser-tls-success" {
		t.Errorf("got (%q, %t), want first chain rule to win", rule, ok)
	}
}

func TestPostFilterBrowserTLSRequiresAllThree(t *testing.T) {
	chain := DefaultPostFilters(DefaultTables(), 0.0)

	testCases := []struct {
		name   string
		record flow.Record
	}{
		{"plain http", flow.Record{Protocol: "http", StatusCode: "200", UserAgent: "Mozilla/5.0"}},
		{"failed status", flow.Record{Protocol: "https", StatusCode: "500", UserAgent: "Mozilla/5.0"}},
		{"non-browser ua", flow.Record{Protocol: "https", StatusCode: "200", UserAgent: "curl/8.0"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if rule, ok := ApplyPostFilters(chain, tc.record, 0.90); ok {
				t.Errorf("unexpected suppression by %q", rule)
			}
		})
	}
}
