package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

// OllamaEmbedder uses Ollama's embedding API.
type OllamaEmbedder struct {
	url    string
	model  string
	dims   int
	client *http.Client
}

// NewOllamaEmbedder creates an embedder using Ollama's API.
func NewOllamaEmbedder(url, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		url:    strings.TrimRight(url, "/"),
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *OllamaEmbedder) Model() string  { return "ollama:" + o.model }
func (o *OllamaEmbedder) Dimensions() int { return o.dims }

// Embed sends text to Ollama's embed endpoint and returns the embedding vector.
func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"input": text,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama embed api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama embed status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}

	o.dims = len(result.Embeddings[0])
	return result.Embeddings[0], nil
}

// ProbeOllama checks if Ollama is reachable and the embedding model is available.
func ProbeOllama(ctx context.Context, url, model string) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	reqBody, _ := json.Marshal(map[string]any{
		"model": model,
		"input": "test",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(url, "/")+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// TFIDFEmbedder generates TF-IDF bag-of-words embeddings. It must be fitted
// on a corpus (or restored from a saved vocabulary) before use; vectors from
// different fits are not comparable.
type TFIDFEmbedder struct {
	maxTerms int
	vocab    []string           // ordered vocabulary (top terms by doc frequency)
	idf      map[string]float64 // inverse document frequency per term
}

// TFIDFVocabulary is the persisted state of a fitted TFIDFEmbedder.
type TFIDFVocabulary struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// NewTFIDFEmbedder creates an unfitted embedder keeping at most maxTerms terms.
func NewTFIDFEmbedder(maxTerms int) *TFIDFEmbedder {
	if maxTerms <= 0 {
		maxTerms = 512
	}
	return &TFIDFEmbedder{maxTerms: maxTerms, vocab: []string{""}, idf: map[string]float64{}}
}

// Fit builds the vocabulary from docs, replacing any previous fit.
func (t *TFIDFEmbedder) Fit(docs []string) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range tokenize(doc) {
			if !seen[term] {
				df[term]++
				seen[term] = true
			}
		}
	}

	type termFreq struct {
		term string
		freq int
	}
	terms := make([]termFreq, 0, len(df))
	for term, f := range df {
		terms = append(terms, termFreq{term, f})
	}
	// Ties broken by term so a fit is reproducible.
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].freq != terms[j].freq {
			return terms[i].freq > terms[j].freq
		}
		return terms[i].term < terms[j].term
	})
	if len(terms) > t.maxTerms {
		terms = terms[:t.maxTerms]
	}

	numDocs := float64(len(docs))
	if numDocs == 0 {
		numDocs = 1
	}

	t.vocab = make([]string, 0, len(terms))
	t.idf = make(map[string]float64, len(terms))
	for _, tf := range terms {
		t.vocab = append(t.vocab, tf.term)
		// IDF = log(N / df) + 1 (smoothed)
		t.idf[tf.term] = math.Log(numDocs/float64(tf.freq)) + 1.0
	}
	if len(t.vocab) == 0 {
		t.vocab = []string{""} // minimum dimension to avoid zero-length vectors
	}
}

// Vocabulary returns the fitted state for persistence.
func (t *TFIDFEmbedder) Vocabulary() TFIDFVocabulary {
	v := TFIDFVocabulary{Terms: t.vocab, IDF: make([]float64, len(t.vocab))}
	for i, term := range t.vocab {
		v.IDF[i] = t.idf[term]
	}
	return v
}

// Restore loads a previously saved vocabulary.
func (t *TFIDFEmbedder) Restore(v TFIDFVocabulary) error {
	if len(v.Terms) == 0 || len(v.Terms) != len(v.IDF) {
		return fmt.Errorf("tfidf vocabulary: %d terms, %d idf values", len(v.Terms), len(v.IDF))
	}
	t.vocab = v.Terms
	t.idf = make(map[string]float64, len(v.Terms))
	for i, term := range v.Terms {
		t.idf[term] = v.IDF[i]
	}
	return nil
}

func (t *TFIDFEmbedder) Model() string  { return "tfidf" }
func (t *TFIDFEmbedder) Dimensions() int { return len(t.vocab) }

// Embed generates a normalized TF-IDF vector for the given text.
func (t *TFIDFEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, len(t.vocab))
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	tf := make(map[string]int)
	maxTF := 0
	for _, tok := range tokens {
		tf[tok]++
		if tf[tok] > maxTF {
			maxTF = tf[tok]
		}
	}

	for i, term := range t.vocab {
		count := tf[term]
		if count == 0 {
			continue
		}
		// Augmented TF to prevent bias towards longer documents
		augTF := 0.5 + 0.5*float64(count)/float64(maxTF)
		vec[i] = augTF * t.idf[term]
	}

	normalize(vec)
	return vec, nil
}

// tokenize splits text into lowercase tokens, stripping punctuation.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	var tokens []string
	var current strings.Builder
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 1 { // skip single-char tokens
				tokens = append(tokens, current.String())
			}
			current.Reset()
		}
	}
	if current.Len() > 1 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// normalize performs in-place L2 normalization.
func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}

// InnerProduct returns the dot product of a and b, or 0 when their
// dimensions differ. On L2-normalized vectors this is cosine similarity.
func InnerProduct(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
