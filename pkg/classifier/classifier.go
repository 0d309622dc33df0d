// Package classifier wraps the externally trained model behind a single
// capability: probability-of-malicious per feature row. The decision engine
// depends only on this contract so any binary classifier accepting the fixed
// feature schema can be substituted.
package classifier

import (
	"context"
	"errors"

	"github.com/seclab-th/rampart/pkg/features"
)

// ErrSchemaMismatch is returned when the feature set width does not match
// what the loaded model expects. A mismatch fails the whole batch; partial
// scores are worse than no scores.
var ErrSchemaMismatch = errors.New("feature schema does not match model")

// Classifier scores a feature batch. Implementations must return one
// probability in [0,1] per row, for the positive (malicious) class, in row
// order, and must treat the batch as a single operation: either every row is
// scored or an error is returned.
type Classifier interface {
	PredictProba(ctx context.Context, fs *features.FeatureSet) ([]float64, error)
}

// Func adapts a plain function to the Classifier interface. Used in tests
// and for stubbing the model boundary.
type Func func(ctx context.Context, fs *features.FeatureSet) ([]float64, error)

func (f Func) PredictProba(ctx context.Context, fs *features.FeatureSet) ([]float64, error) {
	return f(ctx, fs)
}
