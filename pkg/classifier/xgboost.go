package classifier

import (
	"context"
	"fmt"

	"github.com/dmitryikh/leaves"

	"github.com/seclab-th/rampart/pkg/features"
)

// XGBoost scores feature batches with a gradient-boosted tree ensemble
// exported by the training side. Inference only; training stays external.
type XGBoost struct {
	ensemble *leaves.Ensemble
	threads  int
}

// LoadXGBoost reads a trained XGBoost model from disk. The logistic
// transformation is loaded with the ensemble so raw margins come back as
// probabilities.
func LoadXGBoost(path string, threads int) (*XGBoost, error) {
	ensemble, err := leaves.XGEnsembleFromFile(path, true)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	if threads < 1 {
		threads = 1
	}
	return &XGBoost{ensemble: ensemble, threads: threads}, nil
}

// NumFeatures returns the feature count the model was trained with.
func (x *XGBoost) NumFeatures() int {
	return x.ensemble.NFeatures()
}

// PredictProba scores the whole batch in one call. The ensemble manages its
// own internal parallelism; callers must not shard the batch themselves.
func (x *XGBoost) PredictProba(ctx context.Context, fs *features.FeatureSet) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ncols := fs.NumFeatures()
	if ncols != x.ensemble.NFeatures() {
		return nil, fmt.Errorf("%w: batch has %d features, model expects %d",
			ErrSchemaMismatch, ncols, x.ensemble.NFeatures())
	}

	nrows := len(fs.Rows)
	if nrows == 0 {
		return []float64{}, nil
	}

	flat := make([]float64, 0, nrows*ncols)
	for i := range fs.Rows {
		flat = append(flat, fs.FeatureRow(i)...)
	}

	probs := make([]float64, nrows)
	if err := x.ensemble.PredictDense(flat, nrows, ncols, probs, 0, x.threads); err != nil {
		return nil, fmt.Errorf("predict batch of %d rows: %w", nrows, err)
	}
	return probs, nil
}
