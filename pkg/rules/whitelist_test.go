package rules

import (
	"testing"

	"github.com/seclab-th/rampart/pkg/flow"
)

func TestWhitelistEvaluate(t *testing.T) {
	engine := NewWhitelistEngine(DefaultTables())

	testCases := []struct {
		name     string
		record   flow.Record
		wantRule string
		wantOK   bool
	}{
		{
			name: "vendor ua with 2xx",
			record: flow.Record{
				UserAgent:  "Microsoft-CryptoAPI/10.0",
				SourceIP:   "203.0.113.9",
				StatusCode: "200",
			},
			wantRule: "vendor-traffic",
			wantOK:   true,
		},
		{
			name: "vendor ua private source without status",
			record: flow.Record{
				UserAgent: "Windows-Update-Agent",
				SourceIP:  "10.1.2.3",
			},
			wantRule: "vendor-traffic",
			wantOK:   true,
		},
		{
			name: "vendor in url with scheme marker",
			record: flow.Record{
				URL:      "http://dl.cloudfront.net/pkg",
				SourceIP: "203.0.113.9",
			},
			wantRule: "vendor-traffic",
			wantOK:   true,
		},
		{
			name: "vendor ua public source failed request",
			record: flow.Record{
				UserAgent:  "Microsoft-Delivery-Optimization",
				SourceIP:   "203.0.113.9",
				StatusCode: "500",
				URL:        "/payload",
			},
			wantOK: false,
		},
		{
			name: "browser intranet flow",
			record: flow.Record{
				UserAgent: "Mozilla/5.0 Chrome/120.0",
				SourceIP:  "192.168.1.5",
				DestIP:    "10.0.0.7",
			},
			wantRule: "browser-intranet",
			wantOK:   true,
		},
		{
			name: "browser private source public destination",
			record: flow.Record{
				UserAgent: "Mozilla/5.0 Chrome/120.0",
				SourceIP:  "192.168.1.5",
				DestIP:    "8.8.8.8",
			},
			wantOK: false,
		},
		{
			name: "browser from public source",
			record: flow.Record{
				UserAgent: "Mozilla/5.0 Chrome/120.0",
				SourceIP:  "203.0.113.9",
			},
			wantOK: false,
		},
		{
			name: "browser with vendor os token is not vendor traffic",
			record: flow.Record{
				UserAgent:  "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0",
				SourceIP:   "192.168.1.5",
				DestIP:     "8.8.8.8",
				StatusCode: "200",
				URL:        "/search",
			},
			wantOK: false,
		},
		{
			name: "trusted domain unconditional",
			record: flow.Record{
				URL:        "https://ctldl.windowsupdate.com/msdownload",
				SourceIP:   "203.0.113.9",
				StatusCode: "403",
			},
			wantRule: "trusted-domain",
			wantOK:   true,
		},
		{
			name: "trusted domain case insensitive",
			record: flow.Record{
				URL: "HTTPS://WWW.GOOGLE.COM/generate_204",
			},
			wantRule: "trusted-domain",
			wantOK:   true,
		},
		{
			name:   "no rule matches",
			record: flow.Record{URL: "/wp-admin/shell.php", UserAgent: "python-requests", SourceIP: "203.0.113.9"},
			wantOK: false,
		},
		{
			name:   "empty record",
			record: flow.Record{},
			wantOK: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rule, ok := engine.Evaluate(tc.record)
			if ok != tc.wantOK {
				t.Fatalf("Evaluate ok = %t, want %t (rule %q)", ok, tc.wantOK, rule)
			}
			if ok && rule != tc.wantRule {
				t.Errorf("matched rule = %q, want %q", rule, tc.wantRule)
			}
		})
	}
}

func TestWhitelistIsPureOverRecords(t *testing.T) {
	engine := NewWhitelistEngine(DefaultTables())
	r := flow.Record{UserAgent: "Mozilla/5.0", SourceIP: "10.0.0.1", DestIP: "10.0.0.2"}

	for i := 0; i < 3; i++ {
		if _, ok := engine.Evaluate(r); !ok {
			t.Fatalf("evaluation %d: expected stable match", i)
		}
	}
}

func TestStatusIs2xx(t *testing.T) {
	testCases := []struct {
		status string
		want   bool
	}{
		{"200", true},
		{"204", true},
		{"299", true},
		{"300", false},
		{"199", false},
		{"", false},
		{"ok", false},
		{" 201 ", true},
	}
	for _, tc := range testCases {
		if got := statusIs2xx(tc.status); got != tc.want {
			t.Errorf("statusIs2xx(%q) = %t, want %t", tc.status, got, tc.want)
		}
	}
}
