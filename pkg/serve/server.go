// Package serve exposes the decision pipeline as an HTTP API for online
// scoring of individual records, alongside the batch pipeline.
package serve

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/seclab-th/rampart/pkg/classifier"
	"github.com/seclab-th/rampart/pkg/config"
	"github.com/seclab-th/rampart/pkg/decision"
	"github.com/seclab-th/rampart/pkg/features"
	"github.com/seclab-th/rampart/pkg/flow"
	"github.com/seclab-th/rampart/pkg/rules"
)

// labelNames maps final labels to the readable form used by callers.
var labelNames = map[int]string{0: "Normal", 1: "Malicious"}

// Server scores records pushed over HTTP.
type Server struct {
	cfg       *config.Config
	log       zerolog.Logger
	clf       classifier.Classifier
	extractor *features.Extractor
	engine    *decision.Engine
}

// NewServer builds the scoring server. Rule tables and TF-IDF statistics
// follow the same configuration as the batch pipeline so online and batch
// decisions cannot drift apart.
func NewServer(cfg *config.Config, log zerolog.Logger, clf classifier.Classifier) (*Server, error) {
	tables := rules.DefaultTables()
	if cfg.RuleTablesPath != "" {
		var err error
		tables, err = rules.LoadTables(cfg.RuleTablesPath)
		if err != nil {
			return nil, err
		}
	}

	extractor := &features.Extractor{}
	if cfg.TFIDFStatsPath != "" {
		vec, err := features.LoadStats(cfg.TFIDFStatsPath)
		if err != nil {
			return nil, err
		}
		extractor.Vectorizer = vec
	}

	return &Server{
		cfg:       cfg,
		log:       log.With().Str("component", "serve").Logger(),
		clf:       clf,
		extractor: extractor,
		engine:    decision.New(cfg.AlertThreshold, cfg.ConfidenceFloor, tables, cfg.Workers),
	}, nil
}

// App builds the fiber application with all routes registered.
func (s *Server) App() *fiber.App {
	app := fiber.New()

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Post("/predict", s.handlePredict)

	return app
}

// predictResponse is the per-batch scoring result. Single-record requests
// additionally get a scalar "label" convenience field.
type predictResponse struct {
	Prediction  []int     `json:"prediction"`
	Probability []float64 `json:"prob_1"`
	IsWhitelist []bool    `json:"is_whitelist"`
	Labels      []string  `json:"labels"`
	Label       string    `json:"label,omitempty"`
}

func (s *Server) handlePredict(c fiber.Ctx) error {
	records, err := decodeRecords(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	resp, err := s.Score(c.Context(), records)
	if err != nil {
		s.log.Error().Err(err).Msg("scoring failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(resp)
}

// Score runs extract -> classify -> decide over the pushed records.
func (s *Server) Score(ctx context.Context, records []flow.Record) (*predictResponse, error) {
	fs, err := s.extractor.Extract(records, features.ModePredict)
	if err != nil {
		return nil, err
	}

	probs, err := s.clf.PredictProba(ctx, fs)
	if err != nil {
		return nil, err
	}

	decisions, err := s.engine.Decide(ctx, records, probs)
	if err != nil {
		return nil, err
	}

	resp := &predictResponse{
		Prediction:  make([]int, len(decisions)),
		Probability: make([]float64, len(decisions)),
		IsWhitelist: make([]bool, len(decisions)),
		Labels:      make([]string, len(decisions)),
	}
	for i, d := range decisions {
		resp.Prediction[i] = d.Final
		resp.Probability[i] = d.Probability
		resp.IsWhitelist[i] = d.Whitelisted
		resp.Labels[i] = labelNames[d.Final]
	}
	if len(decisions) == 1 {
		resp.Label = resp.Labels[0]
	}
	return resp, nil
}

// decodeRecords accepts a single JSON object or an array of objects keyed by
// the upstream column names.
func decodeRecords(body []byte) ([]flow.Record, error) {
	var batch []map[string]any
	if err := json.Unmarshal(body, &batch); err != nil {
		var single map[string]any
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("invalid input format (must be JSON object or array)")
		}
		batch = []map[string]any{single}
	}

	header := append(append([]string{}, flow.KeepFields...), flow.ColGroundTruth)
	rows := make([][]string, len(batch))
	for i, obj := range batch {
		row := make([]string, len(header))
		for j, col := range header {
			row[j] = scalarField(obj[col])
		}
		rows[i] = row
	}
	return flow.NewTable(header, rows).Records(), nil
}

func scalarField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		return ""
	}
}
