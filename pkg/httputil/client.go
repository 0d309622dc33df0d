// Package httputil provides shared HTTP utilities with connection pooling
// and safe response handling for the log fetcher and the artifact sink.
package httputil

import (
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default maximum size for reading HTTP response
// bodies. A runaway search response must not OOM the pipeline host.
const MaxResponseSize = 64 * 1024 * 1024 // 64MB; search responses can be large

// Shared transport with connection pooling, reused across requests.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// insecureTransport skips certificate verification. Internal log clusters
// commonly run on self-signed certificates.
var insecureTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSClientConfig:       &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opt-in for self-signed clusters
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

// TimeoutTier defines standard timeout categories for different operation types.
type TimeoutTier int

const (
	// TierFast for quick operations like cluster health checks (10s)
	TierFast TimeoutTier = iota
	// TierMedium for standard calls like artifact uploads (30s)
	TierMedium
	// TierSlow for large search requests (60s)
	TierSlow
)

var timeoutDurations = map[TimeoutTier]time.Duration{
	TierFast:   10 * time.Second,
	TierMedium: 30 * time.Second,
	TierSlow:   60 * time.Second,
}

var (
	clients         map[TimeoutTier]*http.Client
	insecureClients map[TimeoutTier]*http.Client
	clientOnce      sync.Once
)

func initClients() {
	clients = make(map[TimeoutTier]*http.Client, len(timeoutDurations))
	insecureClients = make(map[TimeoutTier]*http.Client, len(timeoutDurations))
	for tier, d := range timeoutDurations {
		clients[tier] = &http.Client{Timeout: d, Transport: sharedTransport}
		insecureClients[tier] = &http.Client{Timeout: d, Transport: insecureTransport}
	}
}

// Client returns a shared HTTP client for the given timeout tier. These
// clients share a connection pool and should be used instead of creating new
// http.Client instances per request.
func Client(tier TimeoutTier, insecureTLS bool) *http.Client {
	clientOnce.Do(initClients)
	pool := clients
	if insecureTLS {
		pool = insecureClients
	}
	if c, ok := pool[tier]; ok {
		return c
	}
	return pool[TierMedium]
}

// ReadResponseBody safely reads an HTTP response body with a size limit.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadErrorBody reads the response body for error messages with a small limit.
func ReadErrorBody(r io.Reader) ([]byte, error) {
	const maxErrorSize = 1 * 1024 * 1024
	return io.ReadAll(io.LimitReader(r, maxErrorSize))
}

// DrainAndClose properly drains and closes an HTTP response body so the
// underlying connection can be reused by the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
