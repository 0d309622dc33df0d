// Package config holds global settings for the Rampart pipeline.
// All settings can be configured via environment variables or programmatically.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds global settings for the Rampart alert pipeline.
type Config struct {
	// === Core paths ===
	ModelPath string // Path to the trained XGBoost model file (default: "data/output/xgboost-model.bin")
	InputDir  string // Folder polled for new log CSVs (default: "data/newdata")
	OutputDir string // Folder for predictions, audit files and the archive log (default: "data/output")

	// === Decision thresholds (0.0 - 1.0) ===
	// Tune these to balance alert volume vs. missed detections.
	AlertThreshold  float64 // Probability at or above this = provisional alert (default: 0.65)
	ConfidenceFloor float64 // Provisional alerts below this are suppressed as low-confidence (default: 0.55)

	// === Rule tables ===
	RuleTablesPath string // Optional YAML file overriding whitelist/post-filter substring tables
	TFIDFStatsPath string // Optional JSON file with persisted training-time TF-IDF stats

	// === Elasticsearch fetcher ===
	ElasticURL      string        // Base URL of the cluster (e.g. "https://es.internal:9200")
	ElasticUser     string        // Basic auth username
	ElasticPass     string        // Basic auth password
	IndexPattern    string        // Index pattern to search (default: "rtarf-events-beat-*")
	FetchSize       int           // Max hits per fetch (default: 1000)
	FetchWindow     time.Duration // Lookback window for the fetch query (default: 15m)
	InsecureSkipTLS bool          // Skip TLS verification for self-signed clusters

	// === Artifact sink ===
	UploadBaseURL string // Base URL for best-effort artifact upload; empty disables upload
	UploadRetries int    // Bounded retry count for uploads (default: 3)

	// === Runtime ===
	Workers int  // Worker goroutines for per-record rule evaluation (default: NumCPU)
	Debug   bool // Verbose logging, including per-row recovery counts
}

// EnvFile is loaded before the config is built, matching the original
// deployment which kept cluster credentials in secret.env.
const EnvFile = "secret.env"

// New creates a Config from the environment with documented defaults.
// A secret.env file in the working directory is loaded first if present.
func New() *Config {
	// Missing env file is the normal case outside the collector host.
	_ = godotenv.Load(EnvFile)

	return &Config{
		ModelPath: GetEnv("RAMPART_MODEL", "data/output/xgboost-model.bin"),
		InputDir:  GetEnv("RAMPART_INPUT_DIR", "data/newdata"),
		OutputDir: GetEnv("RAMPART_OUTPUT_DIR", "data/output"),

		AlertThreshold:  GetEnvFloat("RAMPART_ALERT_THRESHOLD", 0.65),
		ConfidenceFloor: GetEnvFloat("RAMPART_CONFIDENCE_FLOOR", 0.55),

		RuleTablesPath: GetEnv("RAMPART_RULE_TABLES", ""),
		TFIDFStatsPath: GetEnv("RAMPART_TFIDF_STATS", ""),

		ElasticURL:      GetEnv("RAMPART_ES_URL", os.Getenv("KIBANA_URL")),
		ElasticUser:     GetEnv("RAMPART_ES_USER", os.Getenv("KIBANA_USER")),
		ElasticPass:     GetEnv("RAMPART_ES_PASS", os.Getenv("KIBANA_PASS")),
		IndexPattern:    GetEnv("RAMPART_ES_INDEX", GetEnv("INDEX_PATTERN", "rtarf-events-beat-*")),
		FetchSize:       GetEnvInt("RAMPART_FETCH_SIZE", GetEnvInt("FETCH_SIZE", 1000)),
		FetchWindow:     time.Duration(GetEnvInt("RAMPART_FETCH_WINDOW_MIN", 15)) * time.Minute,
		InsecureSkipTLS: GetEnvBool("RAMPART_ES_INSECURE", true),

		UploadBaseURL: GetEnv("RAMPART_UPLOAD_URL", ""),
		UploadRetries: clampInt(GetEnvInt("RAMPART_UPLOAD_RETRIES", 3), 0, 10),

		Workers: clampInt(GetEnvInt("RAMPART_WORKERS", runtime.NumCPU()), 1, 256),
		Debug:   GetEnvBool("RAMPART_DEBUG", false),
	}
}

// Validate checks settings that would otherwise fail mid-run.
func (c *Config) Validate() error {
	var problems []string

	if c.AlertThreshold < 0 || c.AlertThreshold > 1 {
		problems = append(problems, "RAMPART_ALERT_THRESHOLD must be in [0,1]")
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		problems = append(problems, "RAMPART_CONFIDENCE_FLOOR must be in [0,1]")
	}
	if c.ModelPath == "" {
		problems = append(problems, "RAMPART_MODEL must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// These are exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
