package rules

import (
	"strconv"
	"strings"

	"github.com/seclab-th/rampart/pkg/features"
	"github.com/seclab-th/rampart/pkg/flow"
)

// WhitelistRule is a pure predicate over one record. A record matching any
// rule is exempt from being labeled malicious regardless of classifier score.
type WhitelistRule struct {
	Name  string
	Match func(flow.Record) bool
}

// WhitelistEngine evaluates the whitelist rule set as a logical OR. Rules are
// independent and order-insensitive; the first match is reported for audit.
type WhitelistEngine struct {
	rules []WhitelistRule
}

// NewWhitelistEngine builds the engine from rule tables. The outcome is a
// logical OR, but the most specific rule is listed first so the audit trail
// names it when several would match.
func NewWhitelistEngine(t Tables) *WhitelistEngine {
	return &WhitelistEngine{rules: []WhitelistRule{
		{
			// Unconditional: a trusted domain in the URL clears the record
			// regardless of IP classification.
			Name: "trusted-domain",
			Match: func(r flow.Record) bool {
				return containsAny(strings.ToLower(r.URL), t.TrustedDomains)
			},
		},
		{
			// Dedicated OS update and CDN/cloud agents, corroborated by a
			// private source, a successful response, or an http scheme marker.
			// A browser reporting a vendor OS token in its user-agent does not
			// count; browser traffic is the post-filter's job.
			Name: "vendor-traffic",
			Match: func(r flow.Record) bool {
				ua := strings.ToLower(r.UserAgent)
				url := strings.ToLower(r.URL)
				uaVendor := containsAny(ua, t.Vendors) && !containsAny(ua, t.Browsers)
				if !uaVendor && !containsAny(url, t.Vendors) {
					return false
				}
				return features.IsPrivateIP(r.SourceIP) ||
					statusIs2xx(r.StatusCode) ||
					strings.Contains(url, "http")
			},
		},
		{
			// Browsing that never leaves the private network. Browser flows to
			// public destinations stay eligible for alerting and are handled
			// by the post-filter instead.
			Name: "browser-intranet",
			Match: func(r flow.Record) bool {
				return containsAny(strings.ToLower(r.UserAgent), t.Browsers) &&
					features.IsPrivateIP(r.SourceIP) &&
					features.IsPrivateIP(r.DestIP)
			},
		},
	}}
}

// Evaluate reports whether the record is whitelisted and which rule matched.
func (e *WhitelistEngine) Evaluate(r flow.Record) (rule string, ok bool) {
	for _, wr := range e.rules {
		if wr.Match(r) {
			return wr.Name, true
		}
	}
	return "", false
}

// Rules exposes the rule set for introspection and tests.
func (e *WhitelistEngine) Rules() []WhitelistRule { return e.rules }

func statusIs2xx(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n >= 200 && n < 300
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
