package features

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// URLVocabulary is the closed set of risk tokens scored over url.original.
// Column order in the feature schema follows this slice exactly.
var URLVocabulary = []string{
	"login", "admin", "update", "download", "upload",
	"passwd", "config", "reset", "token", "php",
}

// Tokens are alphabetic runs of three or more characters, lowercased.
var tokenPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)

// Vectorizer computes TF-IDF scores over a fixed vocabulary. It mirrors the
// smooth-IDF, L2-normalized formulation used when the model was trained:
//
//	idf(t)  = ln((1+n) / (1+df(t))) + 1
//	w(t,d)  = count(t,d) * idf(t), rows L2-normalized over the vocabulary
//
// The vocabulary is closed, so normalization only spans vocabulary columns.
type Vectorizer struct {
	Vocabulary []string
	IDF        []float64
	NDocs      int
}

// NewVectorizer returns an unfitted vectorizer over the default vocabulary.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{Vocabulary: URLVocabulary}
}

// Fit computes document frequencies over the batch. Fitting an empty batch is
// valid and yields idf=1 for every token.
func (v *Vectorizer) Fit(docs []string) {
	df := make([]int, len(v.Vocabulary))
	for _, doc := range docs {
		seen := tokenSet(doc)
		for i, tok := range v.Vocabulary {
			if seen[tok] {
				df[i]++
			}
		}
	}

	n := len(docs)
	v.NDocs = n
	v.IDF = make([]float64, len(v.Vocabulary))
	for i := range v.Vocabulary {
		v.IDF[i] = math.Log(float64(1+n)/float64(1+df[i])) + 1
	}
}

// Transform scores each document against the fitted vocabulary. The result
// has one row per document and one column per vocabulary token, in
// vocabulary order.
func (v *Vectorizer) Transform(docs []string) [][]float64 {
	if v.IDF == nil {
		// Unfitted transform behaves as if fitted on an empty corpus.
		v.Fit(nil)
	}

	out := make([][]float64, len(docs))
	for d, doc := range docs {
		row := make([]float64, len(v.Vocabulary))
		counts := tokenCounts(doc)
		var norm float64
		for i, tok := range v.Vocabulary {
			w := float64(counts[tok]) * v.IDF[i]
			row[i] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range row {
				row[i] /= norm
			}
		}
		out[d] = row
	}
	return out
}

// FitTransform fits on the batch and transforms it in one pass. This is the
// reference per-batch behavior; use SaveStats/LoadStats to pin training-time
// IDF statistics instead when score comparability across batches matters.
func (v *Vectorizer) FitTransform(docs []string) [][]float64 {
	v.Fit(docs)
	return v.Transform(docs)
}

// vectorizerStats is the persisted form of a fitted vectorizer.
type vectorizerStats struct {
	Vocabulary []string  `json:"vocabulary"`
	IDF        []float64 `json:"idf"`
	NDocs      int       `json:"n_docs"`
}

// SaveStats writes the fitted IDF statistics to a JSON file.
func (v *Vectorizer) SaveStats(path string) error {
	if v.IDF == nil {
		return fmt.Errorf("save tfidf stats: vectorizer is not fitted")
	}
	data, err := json.MarshalIndent(vectorizerStats{v.Vocabulary, v.IDF, v.NDocs}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tfidf stats: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadStats restores a vectorizer from persisted IDF statistics.
func LoadStats(path string) (*Vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tfidf stats: %w", err)
	}
	var s vectorizerStats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode tfidf stats %s: %w", path, err)
	}
	if len(s.Vocabulary) == 0 || len(s.IDF) != len(s.Vocabulary) {
		return nil, fmt.Errorf("tfidf stats %s: vocabulary/idf length mismatch", path)
	}
	return &Vectorizer{Vocabulary: s.Vocabulary, IDF: s.IDF, NDocs: s.NDocs}, nil
}

func tokenCounts(doc string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range tokenPattern.FindAllString(doc, -1) {
		counts[strings.ToLower(tok)]++
	}
	return counts
}

func tokenSet(doc string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenPattern.FindAllString(doc, -1) {
		set[strings.ToLower(tok)] = true
	}
	return set
}
