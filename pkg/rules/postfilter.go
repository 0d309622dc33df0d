package rules

import (
	"strings"

	"github.com/seclab-th/rampart/pkg/flow"
)

// PostFilterRule downgrades a provisionally-malicious record to benign when
// corroborating evidence suggests a false positive. Rules only ever suppress;
// they never escalate a benign record.
type PostFilterRule struct {
	Name     string
	Suppress func(r flow.Record, prob float64) bool
}

// DefaultPostFilters returns the ordered suppression rule chain. Order is
// fixed: the first matching rule suppresses and short-circuits the rest.
func DefaultPostFilters(t Tables, confidenceFloor float64) []PostFilterRule {
	return []PostFilterRule{
		{
			// TLS browser traffic that completed successfully is the most
			// common benign combination flagged by the model.
			Name: "browser-tls-success",
			Suppress: func(r flow.Record, _ float64) bool {
				return strings.Contains(strings.ToLower(r.Protocol), "https") &&
					statusIs2xx(r.StatusCode) &&
					containsAny(strings.ToLower(r.UserAgent), t.Browsers)
			},
		},
		{
			Name: "same-country",
			Suppress: func(r flow.Record, _ float64) bool {
				return sameCountry(r.SrcCountry, r.DstCountry)
			},
		},
		{
			// Scores between the alert threshold and this floor are too close
			// to the boundary to page on.
			Name: "low-confidence",
			Suppress: func(_ flow.Record, prob float64) bool {
				return prob < confidenceFloor
			},
		},
	}
}

// ApplyPostFilters evaluates the chain in order and reports the first
// suppressing rule, if any.
func ApplyPostFilters(chain []PostFilterRule, r flow.Record, prob float64) (rule string, suppressed bool) {
	for _, pf := range chain {
		if pf.Suppress(r, prob) {
			return pf.Name, true
		}
	}
	return "", false
}

func sameCountry(src, dst string) bool {
	s := strings.ToUpper(strings.TrimSpace(src))
	d := strings.ToUpper(strings.TrimSpace(dst))
	if s == "" || s == "-" || s == "NONE" {
		return false
	}
	return s == d
}
