package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/prospector/internal/store"
)

// MaxIndexRunes bounds the text embedded per event.
const MaxIndexRunes = 500

// ErrModelMismatch is returned when a query embedder differs from the one
// that built the index.
var ErrModelMismatch = errors.New("embedder does not match index model")

// indexText is the text embedded for an event, or "" when it has none.
func indexText(e *store.Event) string {
	text := e.Text()
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if r := []rune(text); len(r) > MaxIndexRunes {
		text = string(r[:MaxIndexRunes])
	}
	return text
}

// RebuildIndex embeds every event with text and swaps the stored index for the
// result. With no indexable events the existing index is left untouched.
// Returns the number of events indexed.
func (e *Engine) RebuildIndex(ctx context.Context) (int, error) {
	events, err := e.DB.ListEvents()
	if err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	var texts []string
	var records []store.EvidenceRecord
	for i := range events {
		text := indexText(&events[i])
		if text == "" {
			continue
		}
		texts = append(texts, text)
		records = append(records, store.EvidenceRecord{
			EventID:   events[i].ID,
			CompanyID: events[i].CompanyID,
			URL:       events[i].URL,
			Title:     events[i].Title,
		})
	}
	if len(records) == 0 {
		e.Log.Info("no events to index")
		return 0, nil
	}

	emb, err := e.Embedder(ctx)
	if err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	meta := map[string]string{}
	if tf, ok := emb.(*TFIDFEmbedder); ok {
		tf.Fit(texts)
		vocab, err := json.Marshal(tf.Vocabulary())
		if err != nil {
			return 0, fmt.Errorf("marshal vocabulary: %w", err)
		}
		meta[store.MetaVocabulary] = string(vocab)
	}

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		vec, err := emb.Embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("embed event %s: %w", records[i].EventID, err)
		}
		normalize(vec)
		records[i].Embedding = vec
	}

	meta[store.MetaModel] = emb.Model()
	meta[store.MetaDimensions] = strconv.Itoa(len(records[0].Embedding))
	meta[store.MetaBuiltAt] = time.Now().UTC().Format(time.RFC3339)

	if err := e.DB.ReplaceEvidenceIndex(records, meta); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	e.Log.Info("indexed events", "count", len(records), "model", emb.Model())
	return len(records), nil
}

// queryEmbedder returns an embedder compatible with the stored index. A
// TF-IDF index is queried with its saved vocabulary regardless of the
// configured provider.
func (e *Engine) queryEmbedder(ctx context.Context) (Embedder, error) {
	model, err := e.DB.IndexMeta(store.MetaModel)
	if err != nil {
		return nil, err
	}

	if model == "tfidf" {
		raw, err := e.DB.IndexMeta(store.MetaVocabulary)
		if err != nil {
			return nil, err
		}
		var vocab TFIDFVocabulary
		if err := json.Unmarshal([]byte(raw), &vocab); err != nil {
			return nil, fmt.Errorf("decode tfidf vocabulary: %w", err)
		}
		tf := NewTFIDFEmbedder(len(vocab.Terms))
		if err := tf.Restore(vocab); err != nil {
			return nil, err
		}
		return tf, nil
	}

	emb, err := e.Embedder(ctx)
	if err != nil {
		return nil, err
	}
	if model != "" && emb.Model() != model {
		return nil, fmt.Errorf("%w: index %q, embedder %q", ErrModelMismatch, model, emb.Model())
	}
	return emb, nil
}
