// Package fetch pulls recent Zeek HTTP events from the upstream
// Elasticsearch cluster and lands them as CSV batches in the pipeline input
// folder. This is a thin acquisition wrapper; the decision pipeline itself
// never talks to the cluster.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"

	"github.com/seclab-th/rampart/pkg/config"
	"github.com/seclab-th/rampart/pkg/flow"
	"github.com/seclab-th/rampart/pkg/httputil"
)

// Fetcher queries the cluster for recent zeek.http events.
type Fetcher struct {
	cfg *config.Config
	log zerolog.Logger
}

// New creates a Fetcher from pipeline configuration.
func New(cfg *config.Config, log zerolog.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, log: log.With().Str("component", "fetch").Logger()}
}

// CheckConnection verifies the cluster is reachable before querying.
func (f *Fetcher) CheckConnection(ctx context.Context) error {
	url := strings.TrimRight(f.cfg.ElasticURL, "/") + "/_cluster/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	req.SetBasicAuth(f.cfg.ElasticUser, f.cfg.ElasticPass)

	resp, err := httputil.Client(httputil.TierFast, f.cfg.InsecureSkipTLS).Do(req)
	if err != nil {
		return fmt.Errorf("cluster health check: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := httputil.ReadErrorBody(resp.Body)
		return fmt.Errorf("cluster health check: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// searchQuery builds the _search body: zeek.http events in the lookback
// window, limited to the columns the pipeline consumes.
func (f *Fetcher) searchQuery() ([]byte, error) {
	window := fmt.Sprintf("now-%dm", int(f.cfg.FetchWindow.Minutes()))
	q := map[string]any{
		"size":    f.cfg.FetchSize,
		"_source": append(append([]string{}, flow.KeepFields...), flow.ColGroundTruth),
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"event.dataset.keyword": "zeek.http"}},
					map[string]any{"range": map[string]any{
						flow.ColTimestamp: map[string]any{"gte": window, "lt": "now"},
					}},
				},
			},
		},
	}
	return json.Marshal(q)
}

// Fetch runs one search and writes the hits as a timestamped CSV in the input
// folder. Returns the written file path; an empty window returns "" with no
// file written.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	body, err := f.searchQuery()
	if err != nil {
		return "", fmt.Errorf("build search query: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", strings.TrimRight(f.cfg.ElasticURL, "/"), f.cfg.IndexPattern)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.SetBasicAuth(f.cfg.ElasticUser, f.cfg.ElasticPass)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.Client(httputil.TierSlow, f.cfg.InsecureSkipTLS).Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := httputil.ReadErrorBody(resp.Body)
		return "", fmt.Errorf("search request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	raw, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}

	table, err := ParseSearchResponse(raw)
	if err != nil {
		return "", err
	}
	if table.Len() == 0 {
		f.log.Warn().Dur("window", f.cfg.FetchWindow).Msg("no logs found in lookback window")
		return "", nil
	}

	out := fmt.Sprintf("%s/fetched_logs_%s.csv", strings.TrimRight(f.cfg.InputDir, "/"),
		time.Now().Format("20060102_150405"))
	if err := table.WriteCSV(out); err != nil {
		return "", fmt.Errorf("write fetched logs: %w", err)
	}

	f.log.Info().Int("rows", table.Len()).Str("file", out).Msg("fetched logs written")
	return out, nil
}

// ParseSearchResponse extracts hits[]._source into a flow.Table with the
// canonical column set. Hits with unexpected shapes are skipped.
func ParseSearchResponse(raw []byte) (*flow.Table, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	header := append(append([]string{}, flow.KeepFields...), flow.ColGroundTruth)
	var rows [][]string

	for _, hit := range v.GetArray("hits", "hits") {
		src := hit.Get("_source")
		if src == nil {
			continue
		}
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = scalarString(src.Get(col))
		}
		rows = append(rows, row)
	}

	return flow.NewTable(header, rows), nil
}

// scalarString renders a JSON scalar as the CSV cell value. Objects and
// arrays degrade to empty, matching the exporter's flat schema.
func scalarString(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		f, _ := v.Float64()
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	case fastjson.TypeTrue:
		return "true"
	case fastjson.TypeFalse:
		return "false"
	default:
		return ""
	}
}
