// Package flow models raw network-flow log records as exported from the
// upstream log store (Zeek HTTP events flattened to ECS-style columns).
package flow

import "strings"

// Column names of the upstream export. The loader fills any of these that are
// missing from an input file with empty values so downstream code can rely on
// the full set being addressable.
const (
	ColTimestamp   = "@timestamp"
	ColSourceIP    = "source.ip"
	ColDestIP      = "destination.ip"
	ColURL         = "url.original"
	ColStatusCode  = "http.response.status_code"
	ColDestPort    = "destination.port"
	ColProtocol    = "network.protocol"
	ColUserAgent   = "user_agent.original"
	ColMethod      = "http.request.method"
	ColReferrer    = "http.request.referrer"
	ColSrcCountry  = "source.geoip.country_code2"
	ColDstCountry  = "destination.geoip.country_code2"
	ColGroundTruth = "ioc.dest_ip_misp_is_alert"
)

// KeepFields is the canonical column set consumed by the pipeline, in the
// order they appear in training exports.
var KeepFields = []string{
	ColTimestamp,
	ColSourceIP,
	ColDestIP,
	ColURL,
	ColStatusCode,
	ColDestPort,
	ColProtocol,
	ColUserAgent,
	ColMethod,
	ColReferrer,
	ColSrcCountry,
	ColDstCountry,
}

// Record is one observed network event. Fields are kept as raw strings;
// normalization happens in feature extraction and rule evaluation, which must
// tolerate arbitrary malformed values. Records are immutable once loaded.
type Record struct {
	Timestamp  string
	SourceIP   string
	DestIP     string
	URL        string
	StatusCode string
	DestPort   string
	Protocol   string
	UserAgent  string
	Method     string
	Referrer   string
	SrcCountry string
	DstCountry string

	// GroundTruth holds the optional alert flag from the IOC enrichment.
	// HasTruth distinguishes "0" from "column absent or empty".
	GroundTruth string
	HasTruth    bool
}

// TruthLabel returns the ground-truth label as 0/1. Any value other than an
// integer >= 1 counts as benign.
func (r Record) TruthLabel() int {
	switch strings.TrimSpace(r.GroundTruth) {
	case "1", "1.0", "true", "True", "TRUE":
		return 1
	default:
		return 0
	}
}
