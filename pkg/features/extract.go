// Package features turns raw flow records into the fixed-schema numeric
// vectors the classifier was trained on. Extraction is total: malformed IPs,
// timestamps and status codes degrade to sentinel values, never to errors.
// The same code path serves training and inference, parameterized only by
// Mode, so the two can never drift apart.
package features

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seclab-th/rampart/pkg/flow"
)

// Mode controls label handling during extraction.
type Mode int

const (
	// ModeAuto picks ModeTrain when ground truth is present, else ModePredict.
	ModeAuto Mode = iota
	// ModeTrain requires ground truth and emits it as the trailing label column.
	ModeTrain
	// ModePredict drops ground truth even if the input carries it.
	ModePredict
)

func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModePredict:
		return "predict"
	default:
		return "auto"
	}
}

// LabelColumn is the trailing column emitted in train mode.
const LabelColumn = "label"

// baseColumns is the fixed, order-stable feature schema ahead of the TF-IDF
// block. Training and inference must both produce exactly this order.
var baseColumns = []string{
	"source_ip_oct1", "source_ip_oct2", "source_ip_oct3", "source_ip_oct4",
	"destination_ip_oct1", "destination_ip_oct2", "destination_ip_oct3", "destination_ip_oct4",
	"status_code", "hour", "weekday",
	"is_error", "url_length", "num_special_chars", "contains_suspicious_keyword", "is_night",
	"src_is_private_ip", "dst_is_public_ip", "ip_match_local",
	"is_common_port", "protocol_is_http", "ua_is_bot", "ua_is_windows_update",
	"url_has_file_ext", "req_method_is_post", "is_referrer_missing", "same_country",
	"risk_score",
}

// Columns returns the output schema for a resolved mode (train or predict).
func Columns(withLabel bool) []string {
	cols := make([]string, 0, len(baseColumns)+len(URLVocabulary)+1)
	cols = append(cols, baseColumns...)
	cols = append(cols, URLVocabulary...)
	if withLabel {
		cols = append(cols, LabelColumn)
	}
	return cols
}

// FeatureSet is the derived representation of a record batch: one row per
// input record, columns fixed and order-stable.
type FeatureSet struct {
	Columns []string
	Rows    [][]float64

	// HasLabel reports whether the trailing column is the ground-truth label.
	HasLabel bool
}

// NumFeatures returns the feature column count, excluding the label.
func (fs *FeatureSet) NumFeatures() int {
	if fs.HasLabel {
		return len(fs.Columns) - 1
	}
	return len(fs.Columns)
}

// FeatureRow returns row i without the label column.
func (fs *FeatureSet) FeatureRow(i int) []float64 {
	return fs.Rows[i][:fs.NumFeatures()]
}

// Extractor derives feature vectors from records. A zero-value Extractor fits
// TF-IDF statistics independently per batch (the reference behavior); set
// Vectorizer to a fitted instance to reuse training-time IDF statistics.
type Extractor struct {
	Vectorizer *Vectorizer
}

// Extract converts a record batch into a FeatureSet. ModeTrain fails when no
// ground truth is present; an empty batch yields an empty but schema-correct
// set. Given identical records and mode, output is identical byte for byte.
func (e *Extractor) Extract(records []flow.Record, mode Mode) (*FeatureSet, error) {
	withLabel, err := resolveMode(records, mode)
	if err != nil {
		return nil, err
	}

	urls := make([]string, len(records))
	for i, r := range records {
		urls[i] = r.URL
	}

	var tfidf [][]float64
	if e.Vectorizer != nil {
		tfidf = e.Vectorizer.Transform(urls)
	} else {
		tfidf = NewVectorizer().FitTransform(urls)
	}

	fs := &FeatureSet{
		Columns:  Columns(withLabel),
		Rows:     make([][]float64, len(records)),
		HasLabel: withLabel,
	}
	for i, r := range records {
		row := make([]float64, 0, len(fs.Columns))
		row = append(row, baseFeatures(r)...)
		row = append(row, tfidf[i]...)
		if withLabel {
			row = append(row, float64(r.TruthLabel()))
		}
		fs.Rows[i] = row
	}
	return fs, nil
}

func resolveMode(records []flow.Record, mode Mode) (withLabel bool, err error) {
	truthPresent := false
	for _, r := range records {
		if r.HasTruth {
			truthPresent = true
			break
		}
	}

	switch mode {
	case ModeTrain:
		if !truthPresent {
			return false, fmt.Errorf("train mode requires the %s column with values", flow.ColGroundTruth)
		}
		return true, nil
	case ModePredict:
		return false, nil
	default:
		return truthPresent, nil
	}
}

// baseFeatures computes the non-lexical feature block for one record. Each
// derived value comes from a pure per-feature function over the record alone.
func baseFeatures(r flow.Record) []float64 {
	src := IPToOctets(r.SourceIP)
	dst := IPToOctets(r.DestIP)
	status := parseStatusCode(r.StatusCode)
	hour, weekday := timeFeatures(r.Timestamp)

	isError := boolFeature(status >= 400)
	urlLength := float64(len(r.URL))
	specials := float64(countSpecialChars(r.URL))
	suspicious := boolFeature(containsSuspiciousKeyword(r.URL))
	night := boolFeature(hour <= 5 || hour >= 22)
	srcPrivate := boolFeature(IsPrivateIP(r.SourceIP))
	dstPublic := boolFeature(!IsPrivateIP(r.DestIP))
	ipMatchLocal := boolFeature(sameFirstOctet(r.SourceIP, r.DestIP))
	commonPort := boolFeature(isCommonPort(r.DestPort))
	protoHTTP := boolFeature(strings.Contains(strings.ToLower(r.Protocol), "http"))
	uaBot := boolFeature(containsAny(strings.ToLower(r.UserAgent), botAgents))
	uaWindows := boolFeature(containsAny(strings.ToLower(r.UserAgent), windowsAgents))
	fileExt := boolFeature(containsAny(strings.ToLower(r.URL), riskyExtensions))
	isPost := boolFeature(strings.EqualFold(strings.TrimSpace(r.Method), "POST"))
	refMissing := boolFeature(referrerMissing(r.Referrer))
	sameCountry := boolFeature(isSameCountry(r.SrcCountry, r.DstCountry))

	risk := isError + suspicious + night + uaBot + fileExt + isPost + refMissing +
		boolFeature(status == 0) + boolFeature(specials > 5) +
		boolFeature(dstPublic == 1 && sameCountry == 0)

	return []float64{
		float64(src[0]), float64(src[1]), float64(src[2]), float64(src[3]),
		float64(dst[0]), float64(dst[1]), float64(dst[2]), float64(dst[3]),
		float64(status), float64(hour), float64(weekday),
		isError, urlLength, specials, suspicious, night,
		srcPrivate, dstPublic, ipMatchLocal,
		commonPort, protoHTTP, uaBot, uaWindows,
		fileExt, isPost, refMissing, sameCountry,
		risk,
	}
}

var (
	suspiciousWords = []string{"login", "admin", "cmd", "token", "download", "shell"}
	botAgents       = []string{"bot", "crawler", "curl", "python"}
	windowsAgents   = []string{"microsoft", "windows"}
	riskyExtensions = []string{".exe", ".zip", ".bat", ".php", ".js"}
	commonPorts     = []string{"80", "443", "8080"}
)

// kibanaTimeLayout matches the exporter's timestamp rendering, e.g.
// "Nov 3, 2025 @ 14:22:01.123". Fractional seconds are accepted implicitly.
const kibanaTimeLayout = "Jan 2, 2006 @ 15:04:05"

// IPToOctets splits a dotted-quad string into four octet values. Any parse
// failure, including a single bad segment, yields the whole [0,0,0,0]
// sentinel; it never fails.
func IPToOctets(ip string) [4]int {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return [4]int{}
	}
	var octets [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return [4]int{}
		}
		octets[i] = n
	}
	return octets
}

// IsPrivateIP mirrors the prefix classification the model was trained on.
// The loose "172." prefix is intentional for schema compatibility.
func IsPrivateIP(ip string) bool {
	return strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "172.")
}

func parseStatusCode(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// timeFeatures extracts hour-of-day and weekday (Monday=0) from the exporter
// timestamp. Malformed or missing timestamps yield (0, 0).
func timeFeatures(ts string) (hour, weekday int) {
	t, err := time.Parse(kibanaTimeLayout, strings.TrimSpace(ts))
	if err != nil {
		return 0, 0
	}
	return t.Hour(), (int(t.Weekday()) + 6) % 7
}

func countSpecialChars(url string) int {
	return strings.Count(url, "?") + strings.Count(url, "=") +
		strings.Count(url, "&") + strings.Count(url, "%")
}

func containsSuspiciousKeyword(url string) bool {
	return containsAny(strings.ToLower(url), suspiciousWords)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func sameFirstOctet(src, dst string) bool {
	s := strings.Split(src, ".")
	d := strings.Split(dst, ".")
	return len(s) == 4 && len(d) == 4 && s[0] == d[0]
}

func isCommonPort(port string) bool {
	p := strings.TrimSpace(port)
	for _, c := range commonPorts {
		if p == c {
			return true
		}
	}
	return false
}

func referrerMissing(ref string) bool {
	v := strings.TrimSpace(ref)
	return v == "" || v == "-" || strings.EqualFold(v, "none")
}

func isSameCountry(src, dst string) bool {
	s := strings.ToUpper(strings.TrimSpace(src))
	d := strings.ToUpper(strings.TrimSpace(dst))
	if s == "" || s == "-" || s == "NONE" {
		return false
	}
	return s == d
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
