package httputil

import (
	"strings"
	"testing"
	"time"
)

func TestClientTiers(t *testing.T) {
	testCases := []struct {
		name string
		tier TimeoutTier
		want time.Duration
	}{
		{"fast", TierFast, 10 * time.Second},
		{"medium", TierMedium, 30 * time.Second},
		{"slow", TierSlow, 60 * time.Second},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Client(tc.tier, false)
			if c.Timeout != tc.want {
				t.Errorf("timeout = %v, want %v", c.Timeout, tc.want)
			}
		})
	}
}

func TestClientReuse(t *testing.T) {
	if Client(TierFast, false) != Client(TierFast, false) {
		t.Error("clients of the same tier should share one instance")
	}
	if Client(TierFast, false) == Client(TierFast, true) {
		t.Error("secure and insecure clients must not share TLS configuration")
	}
}

func TestClientUnknownTier(t *testing.T) {
	c := Client(TimeoutTier(99), false)
	if c.Timeout != 30*time.Second {
		t.Errorf("unknown tier timeout = %v, want the medium fallback", c.Timeout)
	}
}

func TestReadResponseBodyLimit(t *testing.T) {
	body, err := ReadResponseBody(strings.NewReader("0123456789"), 4)
	if err != nil {
		t.Fatalf("ReadResponseBody: %v", err)
	}
	if string(body) != "0123" {
		t.Errorf("body = %q, want truncated to the limit", body)
	}
}
