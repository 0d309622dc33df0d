// Package artifact pushes run outputs (reports, prediction files) to an
// external object store. Uploads are a best-effort side effect: failures are
// surfaced as warnings, never as pipeline errors.
package artifact

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/seclab-th/rampart/pkg/httputil"
)

// Sink accepts named byte blobs. Implementations must be safe for reuse
// across runs.
type Sink interface {
	Upload(ctx context.Context, path string, data []byte) error
}

// NopSink discards everything. Used when no upload target is configured.
type NopSink struct{}

func (NopSink) Upload(context.Context, string, []byte) error { return nil }

// HTTPSink PUTs blobs under a base URL with bounded retries.
type HTTPSink struct {
	BaseURL string
	Retries int

	insecureTLS bool
}

// NewHTTPSink creates a sink for the given base URL.
func NewHTTPSink(baseURL string, retries int, insecureTLS bool) *HTTPSink {
	return &HTTPSink{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Retries:     retries,
		insecureTLS: insecureTLS,
	}
}

// Upload PUTs the blob to <base>/<path>, retrying transient failures with a
// short linear backoff. The context bounds the whole attempt sequence.
func (s *HTTPSink) Upload(ctx context.Context, path string, data []byte) error {
	url := s.BaseURL + "/" + strings.TrimLeft(path, "/")
	client := httputil.Client(httputil.TierMedium, s.insecureTLS)

	var lastErr error
	for attempt := 0; attempt <= s.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("build upload request: %w", err)
		}
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			httputil.DrainAndClose(resp.Body)
			return nil
		}

		body, _ := httputil.ReadErrorBody(resp.Body)
		httputil.DrainAndClose(resp.Body)
		lastErr = fmt.Errorf("upload %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))

		// Client errors will not heal on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			break
		}
	}
	return fmt.Errorf("upload %s after %d attempts: %w", path, s.Retries+1, lastErr)
}
