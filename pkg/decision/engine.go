// Package decision converts classifier probabilities into final alert labels.
// Each record passes once through a fixed sequence: threshold, whitelist
// override, post-filter suppression. The result is terminal; re-running the
// engine on the same inputs yields the same decisions.
package decision

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/seclab-th/rampart/pkg/flow"
	"github.com/seclab-th/rampart/pkg/rules"
)

// Decision is the per-record output of the engine. Created once per record
// per run and never mutated afterwards.
type Decision struct {
	// Probability is the classifier score for the malicious class. Whitelist
	// and post-filter steps never alter it.
	Probability float64

	// Provisional is the raw threshold label before any override.
	Provisional int

	// Whitelisted marks a forced-benign exemption; WhitelistRule names the
	// rule that granted it.
	Whitelisted   bool
	WhitelistRule string

	// SuppressedBy names the post-filter rule that downgraded a provisional
	// alert, if any.
	SuppressedBy string

	// Final is the label after override and suppression.
	Final int
}

// Engine applies the threshold and rule stages. Safe for concurrent use:
// all state is read-only after construction.
type Engine struct {
	Threshold   float64
	Whitelist   *rules.WhitelistEngine
	PostFilters []rules.PostFilterRule

	// Workers bounds the goroutines used per batch. Zero means serial.
	Workers int
}

// New builds an engine with the default rule set.
func New(threshold, confidenceFloor float64, tables rules.Tables, workers int) *Engine {
	return &Engine{
		Threshold:   threshold,
		Whitelist:   rules.NewWhitelistEngine(tables),
		PostFilters: rules.DefaultPostFilters(tables, confidenceFloor),
		Workers:     workers,
	}
}

// DecideOne runs the full per-record state machine:
// Scored -> ThresholdApplied -> WhitelistChecked -> PostFiltered -> Final.
func (e *Engine) DecideOne(r flow.Record, prob float64) Decision {
	d := Decision{Probability: prob}

	// Threshold: >= is deliberate so a score exactly at the threshold alerts.
	if prob >= e.Threshold {
		d.Provisional = 1
	}
	d.Final = d.Provisional

	if rule, ok := e.Whitelist.Evaluate(r); ok {
		d.Whitelisted = true
		d.WhitelistRule = rule
		d.Final = 0
	}

	// Post-filter only ever acts on records still provisionally malicious.
	if d.Final == 1 {
		if rule, ok := rules.ApplyPostFilters(e.PostFilters, r, prob); ok {
			d.SuppressedBy = rule
			d.Final = 0
		}
	}

	return d
}

// Decide evaluates a batch. Records are independent, so evaluation fans out
// across workers in index chunks; output order always matches input order.
func (e *Engine) Decide(ctx context.Context, records []flow.Record, probs []float64) ([]Decision, error) {
	if len(records) != len(probs) {
		return nil, fmt.Errorf("decide: %d records but %d probabilities", len(records), len(probs))
	}

	out := make([]Decision, len(records))

	workers := e.Workers
	if workers <= 1 || len(records) < 2*workers {
		for i, r := range records {
			out[i] = e.DecideOne(r, probs[i])
		}
		return out, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	chunk := (len(records) + workers - 1) / workers
	for start := 0; start < len(records); start += chunk {
		start := start
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				out[i] = e.DecideOne(records[i], probs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
