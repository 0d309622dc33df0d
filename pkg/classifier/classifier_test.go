package classifier

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/seclab-th/rampart/pkg/features"
)

func TestFuncAdapter(t *testing.T) {
	want := []float64{0.1, 0.9}
	clf := Func(func(_ context.Context, fs *features.FeatureSet) ([]float64, error) {
		if len(fs.Rows) != 2 {
			t.Errorf("got %d rows", len(fs.Rows))
		}
		return want, nil
	})

	fs := &features.FeatureSet{Rows: [][]float64{{1}, {2}}}
	got, err := clf.PredictProba(context.Background(), fs)
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	if len(got) != 2 || got[1] != 0.9 {
		t.Errorf("probs = %v, want %v", got, want)
	}
}

func TestLoadXGBoostMissingFile(t *testing.T) {
	if _, err := LoadXGBoost(filepath.Join(t.TempDir(), "nope.bin"), 1); err == nil {
		t.Error("expected error for missing model file")
	}
}
