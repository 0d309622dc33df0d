// Command rampart runs the flow-log alert pipeline.
//
// Subcommands:
//
//	predict   score the newest CSV in the input folder and write outputs
//	fetch     pull recent zeek.http events from Elasticsearch into the input folder
//	serve     HTTP API for online scoring
//	history   print the most recent pipeline runs from the archive log
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/seclab-th/rampart/pkg/classifier"
	"github.com/seclab-th/rampart/pkg/config"
	"github.com/seclab-th/rampart/pkg/fetch"
	"github.com/seclab-th/rampart/pkg/pipeline"
	"github.com/seclab-th/rampart/pkg/provenance"
	"github.com/seclab-th/rampart/pkg/serve"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.New()
	log := newLogger(cfg)

	var err error
	switch os.Args[1] {
	case "predict":
		err = runPredict(cfg, log, os.Args[2:])
	case "fetch":
		err = runFetch(cfg, log)
	case "serve":
		err = runServe(cfg, log, os.Args[2:])
	case "history":
		err = runHistory(cfg, os.Args[2:])
	case "version":
		fmt.Println("rampart", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Msg("fatal")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `rampart - flow-log alert pipeline

Usage:
  rampart predict [-input DIR] [-model PATH] [-output DIR]
  rampart fetch
  rampart serve [-port PORT]
  rampart history [-n N]
  rampart version
`)
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
}

func runPredict(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	fs.StringVar(&cfg.InputDir, "input", cfg.InputDir, "input folder with log CSVs")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "trained model file")
	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "output folder")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	clf, err := classifier.LoadXGBoost(cfg.ModelPath, cfg.Workers)
	if err != nil {
		return err
	}
	log.Info().Str("model", cfg.ModelPath).Int("features", clf.NumFeatures()).Msg("model loaded")

	runner, err := pipeline.NewRunner(cfg, log, clf)
	if err != nil {
		return err
	}

	summary, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Predicted %s: %d rows, %d alerts, accuracy %s in %.2f sec\n",
		summary.Input, summary.Rows, summary.Alerts, summary.Accuracy, summary.Duration.Seconds())
	return nil
}

func runFetch(cfg *config.Config, log zerolog.Logger) error {
	if cfg.ElasticURL == "" {
		return fmt.Errorf("RAMPART_ES_URL is not set; cannot fetch logs")
	}
	if err := os.MkdirAll(cfg.InputDir, 0o755); err != nil {
		return fmt.Errorf("create input folder: %w", err)
	}

	f := fetch.New(cfg, log)
	ctx := context.Background()
	if err := f.CheckConnection(ctx); err != nil {
		return err
	}
	log.Info().Str("url", cfg.ElasticURL).Msg("connected to cluster")

	out, err := f.Fetch(ctx)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println("No logs found in the lookback window.")
		return nil
	}
	fmt.Println("Saved logs to", out)
	return nil
}

func runServe(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.String("port", config.GetEnv("RAMPART_PORT", "8000"), "listen port")
	fs.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "trained model file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	clf, err := classifier.LoadXGBoost(cfg.ModelPath, cfg.Workers)
	if err != nil {
		return err
	}

	srv, err := serve.NewServer(cfg, log, clf)
	if err != nil {
		return err
	}

	log.Info().Str("port", *port).Msg("scoring API listening")
	return srv.App().Listen(":" + *port)
}

func runHistory(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	n := fs.Int("n", 10, "number of runs to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := provenance.NewLogger(fmt.Sprintf("%s/%s", cfg.OutputDir, pipeline.ArchiveLogFile))
	entries, err := logger.Read(*n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Println(provenance.FormatLine(e))
	}
	return nil
}
