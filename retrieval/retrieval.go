// Package retrieval provides best-effort similarity search over the indexed
// knowledge base. Retrieval never aborts an advisory: every failure surfaces
// as an empty result and a logged warning.
package retrieval

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/sashabaranov/go-openai"

	"agrorain/kb"
	"agrorain/types"
)

// Embedder turns text into a vector. Implemented by the OpenAI client and by
// test fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder embeds text through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	keyFunc func() string
	model   openai.EmbeddingModel
}

// NewOpenAIEmbedder reads the API key through keyFunc on every call, so a key
// set or cleared at runtime changes capability without a restart.
func NewOpenAIEmbedder(keyFunc func() string) *OpenAIEmbedder {
	return &OpenAIEmbedder{keyFunc: keyFunc, model: openai.SmallEmbedding3}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.keyFunc()
	if key == "" {
		return nil, fmt.Errorf("no OpenAI API key configured")
	}

	client := openai.NewClient(key)
	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embedding data")
	}
	return resp.Data[0].Embedding, nil
}

type entry struct {
	doc    kb.Document
	vector []float32
}

// Retriever holds the in-memory vector index. Index order is insertion order,
// which also breaks score ties, so repeated queries against the same index
// state return the same ranking.
type Retriever struct {
	embedder Embedder

	mu      sync.RWMutex
	entries []entry
}

func New(embedder Embedder) *Retriever {
	return &Retriever{embedder: embedder}
}

// Available reports whether semantic retrieval can be attempted at all.
func (r *Retriever) Available() bool {
	return r != nil && r.embedder != nil
}

// IndexDocuments embeds and indexes the given documents, in order. Documents
// that fail to embed are skipped with a warning so one bad document does not
// lose the rest of the index.
func (r *Retriever) IndexDocuments(ctx context.Context, docs []kb.Document) error {
	if !r.Available() {
		return fmt.Errorf("retriever has no embedder configured")
	}

	indexed := 0
	for _, doc := range docs {
		vec, err := r.embedder.Embed(ctx, doc.Text)
		if err != nil {
			log.Printf("Warning: failed to embed knowledge document %s: %v", doc.ID, err)
			continue
		}
		r.mu.Lock()
		r.entries = append(r.entries, entry{doc: doc, vector: vec})
		r.mu.Unlock()
		indexed++
	}

	if indexed == 0 && len(docs) > 0 {
		return fmt.Errorf("none of %d knowledge documents could be indexed", len(docs))
	}
	log.Printf("Indexed %d/%d knowledge documents", indexed, len(docs))
	return nil
}

// GetContext returns up to limit snippets ordered by descending similarity to
// the query, ties kept in index order. Any failure yields an empty result.
func (r *Retriever) GetContext(ctx context.Context, query string, limit int) []types.Snippet {
	if !r.Available() || limit <= 0 {
		return nil
	}

	qvec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("Warning: context retrieval failed, continuing without context: %v", err)
		return nil
	}

	r.mu.RLock()
	scored := make([]types.Snippet, 0, len(r.entries))
	for _, e := range r.entries {
		scored = append(scored, types.Snippet{
			Text:   e.doc.Text,
			Score:  cosine(qvec, e.vector),
			Source: e.doc.Title,
		})
	}
	r.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
