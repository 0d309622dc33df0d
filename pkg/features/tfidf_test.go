package features

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestVectorizerRowOrderAndNorm(t *testing.T) {
	docs := []string{
		"http://x/admin/login.php",
		"http://x/static/image.png",
		"",
	}
	v := NewVectorizer()
	rows := v.FitTransform(docs)

	if len(rows) != len(docs) {
		t.Fatalf("got %d rows, want %d", len(rows), len(docs))
	}
	for i, row := range rows {
		if len(row) != len(URLVocabulary) {
			t.Fatalf("row %d has %d columns, want %d", i, len(row), len(URLVocabulary))
		}
	}

	// First doc hits admin, login and php; everything else stays zero.
	hit := map[string]bool{"admin": true, "login": true, "php": true}
	for i, tok := range URLVocabulary {
		if hit[tok] && rows[0][i] <= 0 {
			t.Errorf("token %q expected positive weight, got %v", tok, rows[0][i])
		}
		if !hit[tok] && rows[0][i] != 0 {
			t.Errorf("token %q expected zero weight, got %v", tok, rows[0][i])
		}
	}

	// Non-zero rows are L2-normalized over the vocabulary columns.
	var norm float64
	for _, w := range rows[0] {
		norm += w * w
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("row 0 squared norm = %v, want 1", norm)
	}

	// Docs with no vocabulary tokens stay all-zero, not NaN.
	for i, w := range rows[1] {
		if w != 0 {
			t.Errorf("no-hit doc column %d = %v, want 0", i, w)
		}
	}
	for i, w := range rows[2] {
		if w != 0 || math.IsNaN(w) {
			t.Errorf("empty doc column %d = %v, want 0", i, w)
		}
	}
}

func TestVectorizerSmoothIDF(t *testing.T) {
	// "admin" appears in 1 of 2 docs: idf = ln(3/2)+1. "login" in none: ln(3/1)+1.
	v := NewVectorizer()
	v.Fit([]string{"/admin", "/other"})

	idx := func(tok string) int {
		for i, c := range v.Vocabulary {
			if c == tok {
				return i
			}
		}
		t.Fatalf("token %q not in vocabulary", tok)
		return -1
	}

	wantAdmin := math.Log(3.0/2.0) + 1
	if got := v.IDF[idx("admin")]; math.Abs(got-wantAdmin) > 1e-12 {
		t.Errorf("idf(admin) = %v, want %v", got, wantAdmin)
	}
	wantLogin := math.Log(3.0/1.0) + 1
	if got := v.IDF[idx("login")]; math.Abs(got-wantLogin) > 1e-12 {
		t.Errorf("idf(login) = %v, want %v", got, wantLogin)
	}
}

func TestVectorizerTokenPattern(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
		tok  string
		want int
	}{
		{"short runs ignored", "/ad/min", "admin", 0},
		{"case folded", "/ADMIN/Login", "admin", 1},
		{"digits break runs", "ad4min", "admin", 0},
		{"repeat counted", "/admin/admin", "admin", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tokenCounts(tc.doc)[tc.tok]; got != tc.want {
				t.Errorf("count of %q in %q = %d, want %d", tc.tok, tc.doc, got, tc.want)
			}
		})
	}
}

func TestVectorizerEmptyFit(t *testing.T) {
	v := NewVectorizer()
	v.Fit(nil)
	for i, idf := range v.IDF {
		if idf != 1 {
			t.Errorf("idf[%d] = %v after empty fit, want 1", i, idf)
		}
	}
}

func TestStatsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tfidf_stats.json")

	fitted := NewVectorizer()
	fitted.Fit([]string{"/admin/login", "/download/update.php", "/plain"})
	if err := fitted.SaveStats(path); err != nil {
		t.Fatalf("SaveStats: %v", err)
	}

	loaded, err := LoadStats(path)
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	if loaded.NDocs != fitted.NDocs {
		t.Errorf("NDocs = %d, want %d", loaded.NDocs, fitted.NDocs)
	}
	for i := range fitted.IDF {
		if math.Abs(loaded.IDF[i]-fitted.IDF[i]) > 1e-12 {
			t.Errorf("idf[%d] = %v, want %v", i, loaded.IDF[i], fitted.IDF[i])
		}
	}

	// Scores through the restored vectorizer match the fitted one exactly.
	docs := []string{"/admin/token/reset"}
	a := fitted.Transform(docs)
	b := loaded.Transform(docs)
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Errorf("column %d: fitted %v != loaded %v", i, a[0][i], b[0][i])
		}
	}
}

func TestSaveStatsUnfitted(t *testing.T) {
	v := NewVectorizer()
	if err := v.SaveStats(filepath.Join(t.TempDir(), "x.json")); err == nil {
		t.Error("expected error saving an unfitted vectorizer")
	}
}

func TestLoadStatsRejectsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"vocabulary":["login","admin"],"idf":[1.0],"n_docs":5}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadStats(path); err == nil {
		t.Error("expected error for vocabulary/idf length mismatch")
	}
}
