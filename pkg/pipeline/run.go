// Package pipeline orchestrates one batch run: load the newest input file,
// extract features, score, decide, write outputs, archive the input and log
// provenance. One run per invocation; no state survives between runs except
// the append-only archive log and the archived inputs.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seclab-th/rampart/pkg/artifact"
	"github.com/seclab-th/rampart/pkg/classifier"
	"github.com/seclab-th/rampart/pkg/config"
	"github.com/seclab-th/rampart/pkg/decision"
	"github.com/seclab-th/rampart/pkg/features"
	"github.com/seclab-th/rampart/pkg/flow"
	"github.com/seclab-th/rampart/pkg/provenance"
	"github.com/seclab-th/rampart/pkg/rules"
)

// Output file names under the configured output directory.
const (
	PredictionsFile    = "predict_result.csv"
	WhitelistAuditFile = "whitelist_audit.csv"
	ReportFile         = "predict_report.html"
	ArchiveLogFile     = "archive_log.txt"
)

// Summary describes one completed run.
type Summary struct {
	RunID       uuid.UUID
	Input       string // basename of the consumed input file
	Rows        int
	SkippedRows int
	Alerts      int
	Whitelisted int
	Suppressed  int
	Accuracy    string // "97.23%" or "N/A"
	Duration    time.Duration
}

// Runner wires the pipeline stages together.
type Runner struct {
	cfg       *config.Config
	log       zerolog.Logger
	clf       classifier.Classifier
	extractor *features.Extractor
	engine    *decision.Engine
	sink      artifact.Sink
	prov      *provenance.Logger
}

// NewRunner builds a Runner around a classifier. Rule tables and TF-IDF
// statistics are loaded according to configuration; a misconfigured rule
// table file is fatal rather than silently falling back to defaults.
func NewRunner(cfg *config.Config, log zerolog.Logger, clf classifier.Classifier) (*Runner, error) {
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

	var sink artifact.Sink = artifact.NopSink{}
	if cfg.UploadBaseURL != "" {
		sink = artifact.NewHTTPSink(cfg.UploadBaseURL, cfg.UploadRetries, cfg.InsecureSkipTLS)
	}

	return &Runner{
		cfg:       cfg,
		log:       log.With().Str("component", "pipeline").Logger(),
		clf:       clf,
		extractor: extractor,
		engine:    decision.New(cfg.AlertThreshold, cfg.ConfidenceFloor, tables, cfg.Workers),
		sink:      sink,
		prov:      provenance.NewLogger(filepath.Join(cfg.OutputDir, ArchiveLogFile)),
	}, nil
}

// LatestCSV returns the most recently modified CSV in the folder. No CSV
// files is a fatal condition: there is nothing to predict.
func LatestCSV(folder string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(folder, "*.csv"))
	if err != nil {
		return "", fmt.Errorf("scan input folder: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no CSV files found in input folder %s", folder)
	}

	latest := matches[0]
	var latestMod time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.ModTime().After(latestMod) {
			latest = m
			latestMod = info.ModTime()
		}
	}
	return latest, nil
}

// Run consumes the newest input file from the configured input folder.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	input, err := LatestCSV(r.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	return r.RunFile(ctx, input)
}

// RunFile executes the full pipeline over one input file. Fatal errors
// (missing input, classifier failure) occur before any output is written; a
// partially-scored batch never reaches disk. Upload and archival move are
// best-effort and only warn.
func (r *Runner) RunFile(ctx context.Context, input string) (*Summary, error) {
	runID := uuid.New()
	log := r.log.With().Stringer("run_id", runID).Str("input", filepath.Base(input)).Logger()

	table, err := flow.LoadCSV(input)
	if err != nil {
		return nil, err
	}
	if table.SkippedRows > 0 {
		log.Debug().Int("skipped_rows", table.SkippedRows).Msg("malformed input rows skipped")
	}
	records := table.Records()
	log.Info().Int("rows", len(records)).Msg("input loaded")

	start := time.Now()

	// Predict mode drops any ground-truth column; accuracy is computed from
	// the raw records afterwards so the label can never leak into scoring.
	fs, err := r.extractor.Extract(records, features.ModePredict)
	if err != nil {
		return nil, err
	}

	probs, err := r.clf.PredictProba(ctx, fs)
	if err != nil {
		return nil, fmt.Errorf("classifier failed, no predictions written: %w", err)
	}

	decisions, err := r.engine.Decide(ctx, records, probs)
	if err != nil {
		return nil, err
	}

	duration := time.Since(start)

	summary := &Summary{
		RunID:       runID,
		Input:       filepath.Base(input),
		Rows:        len(records),
		SkippedRows: table.SkippedRows,
		Duration:    duration,
	}
	for _, d := range decisions {
		if d.Final == 1 {
			summary.Alerts++
		}
		if d.Whitelisted {
			summary.Whitelisted++
		}
		if d.SuppressedBy != "" {
			summary.Suppressed++
		}
	}
	summary.Accuracy = accuracy(records, decisions)

	if err := r.writeOutputs(table, decisions); err != nil {
		return nil, err
	}

	// Side effects below are best-effort: the predictions on disk are the
	// product of this run and must survive any of these failing.
	r.uploadArtifacts(ctx, log, summary)

	if err := archiveInput(input); err != nil {
		log.Warn().Err(err).Msg("failed to archive input file")
	}

	if err := r.prov.Append(provenance.Entry{
		Timestamp: time.Now(),
		Source:    summary.Input,
		Accuracy:  summary.Accuracy,
		Rows:      summary.Rows,
		Duration:  duration.Seconds(),
	}); err != nil {
		log.Warn().Err(err).Msg("failed to append archive log")
	}

	log.Info().
		Int("alerts", summary.Alerts).
		Int("whitelisted", summary.Whitelisted).
		Int("suppressed", summary.Suppressed).
		Str("accuracy", summary.Accuracy).
		Dur("duration", duration).
		Msg("run complete")
	return summary, nil
}

// writeOutputs writes the predictions file (full replacement) and the
// whitelist audit subset.
func (r *Runner) writeOutputs(table *flow.Table, decisions []decision.Decision) error {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output folder: %w", err)
	}

	prediction := make([]string, len(decisions))
	prob := make([]string, len(decisions))
	isWhitelist := make([]string, len(decisions))
	whitelisted := make([]bool, len(decisions))
	for i, d := range decisions {
		prediction[i] = strconv.Itoa(d.Final)
		prob[i] = strconv.FormatFloat(d.Probability, 'f', 6, 64)
		isWhitelist[i] = strconv.FormatBool(d.Whitelisted)
		whitelisted[i] = d.Whitelisted
	}

	out, err := table.AppendColumns(
		[]string{"prediction", "prob_1", "is_whitelist"},
		prediction, prob, isWhitelist,
	)
	if err != nil {
		return err
	}

	if err := out.WriteCSV(filepath.Join(r.cfg.OutputDir, PredictionsFile)); err != nil {
		return err
	}
	return out.Select(whitelisted).WriteCSV(filepath.Join(r.cfg.OutputDir, WhitelistAuditFile))
}

// uploadArtifacts renders the run report and pushes it plus the predictions
// file through the sink. Failures are logged and surfaced as warnings only.
func (r *Runner) uploadArtifacts(ctx context.Context, log zerolog.Logger, summary *Summary) {
	report, err := RenderReport(summary)
	if err != nil {
		log.Warn().Err(err).Msg("failed to render run report")
	} else {
		reportPath := filepath.Join(r.cfg.OutputDir, ReportFile)
		if err := os.WriteFile(reportPath, report, 0o644); err != nil {
			log.Warn().Err(err).Msg("failed to write run report")
		}
		if err := r.sink.Upload(ctx, ReportFile, report); err != nil {
			log.Warn().Err(err).Msg("report upload failed")
		}
	}

	preds, err := os.ReadFile(filepath.Join(r.cfg.OutputDir, PredictionsFile))
	if err == nil {
		if err := r.sink.Upload(ctx, PredictionsFile, preds); err != nil {
			log.Warn().Err(err).Msg("predictions upload failed")
		}
	}
}

// accuracy compares final labels against ground truth where present.
func accuracy(records []flow.Record, decisions []decision.Decision) string {
	labeled, correct := 0, 0
	for i, rec := range records {
		if !rec.HasTruth {
			continue
		}
		labeled++
		if decisions[i].Final == rec.TruthLabel() {
			correct++
		}
	}
	if labeled == 0 {
		return provenance.AccuracyNA
	}
	return fmt.Sprintf("%.2f%%", float64(correct)/float64(labeled)*100)
}

// archiveInput moves the consumed file into an archive subfolder of its
// source folder so it is processed at most once.
func archiveInput(input string) error {
	archiveDir := filepath.Join(filepath.Dir(input), "archive")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("create archive folder: %w", err)
	}
	return os.Rename(input, filepath.Join(archiveDir, filepath.Base(input)))
}

// History returns the last n provenance entries for this pipeline's output
// folder.
func (r *Runner) History(n int) ([]provenance.Entry, error) {
	return r.prov.Read(n)
}
