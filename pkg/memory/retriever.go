// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/nabd/pkg/errors"
	"github.com/jllopis/nabd/pkg/telemetry"
)

// Retrieval defaults.
const (
	DefaultTopK     = 3
	DefaultMinScore = 0.08
)

// RetrievedContext is a knowledge snippet selected for a query.
type RetrievedContext struct {
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithMinScore drops results scoring below score.
func WithMinScore(score float32) RetrieverOption {
	return func(r *Retriever) { r.minScore = score }
}

// WithBackendName labels spans with the vector store backend.
func WithBackendName(name string) RetrieverOption {
	return func(r *Retriever) { r.backend = name }
}

// WithRetrieverLogger overrides the default logger.
func WithRetrieverLogger(logger *slog.Logger) RetrieverOption {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRetrieverMetrics records hit counts.
func WithRetrieverMetrics(m *telemetry.PipelineMetrics) RetrieverOption {
	return func(r *Retriever) { r.metrics = m }
}

// Retriever keeps the knowledge documents, their index and their persisted
// copy in step.
type Retriever struct {
	store    VectorStore
	embedder Embedder
	files    *FileStore
	minScore float32
	backend  string
	logger   *slog.Logger
	metrics  *telemetry.PipelineMetrics
	tracer   trace.Tracer

	mu    sync.RWMutex
	order []string
	docs  map[string]Document
}

// NewRetriever creates a retriever. files may be nil to disable persistence.
func NewRetriever(store VectorStore, embedder Embedder, files *FileStore, opts ...RetrieverOption) *Retriever {
	if files == nil {
		files = NewFileStore("")
	}
	r := &Retriever{
		store:    store,
		embedder: embedder,
		files:    files,
		minScore: DefaultMinScore,
		backend:  "memory",
		logger:   slog.Default(),
		tracer:   otel.Tracer("nabd/orchestrator"),
		docs:     make(map[string]Document),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bootstrap indexes the seed documents merged with the persisted ones, the
// persisted copy winning on equal ids. With nothing persisted the seed set
// is written out.
func (r *Retriever) Bootstrap(ctx context.Context) error {
	persisted, err := r.files.Load(ctx)
	if err != nil {
		r.logger.Warn("rag.store.load_failed", slog.String("path", r.files.Path()), slog.String("error", err.Error()))
		persisted = nil
	}

	merged := SeedDocuments()
	index := make(map[string]int, len(merged))
	for i, d := range merged {
		index[d.ID] = i
	}
	for _, d := range persisted {
		if i, ok := index[d.ID]; ok {
			merged[i] = d
			continue
		}
		index[d.ID] = len(merged)
		merged = append(merged, d)
	}

	points, err := r.embed(ctx, merged)
	if err != nil {
		return err
	}
	if err := r.store.Replace(ctx, points); err != nil {
		return errors.New(errors.CodeMemoryError, "index knowledge documents", err)
	}

	r.mu.Lock()
	r.order = r.order[:0]
	r.docs = make(map[string]Document, len(merged))
	for _, d := range merged {
		r.order = append(r.order, d.ID)
		r.docs[d.ID] = d
	}
	r.mu.Unlock()

	r.logger.Info("rag.store.ready",
		slog.Int("documents", len(merged)),
		slog.Int("persisted", len(persisted)),
		slog.String("backend", r.backend),
	)
	if len(persisted) == 0 {
		r.persist(ctx)
	}
	return nil
}

// Retrieve returns up to topK documents scoring at least the minimum score.
// Failures are logged and yield no context.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) []RetrievedContext {
	if topK <= 0 {
		topK = DefaultTopK
	}
	ctx, span := r.tracer.Start(ctx, "Retriever.Search")
	defer span.End()

	contexts, err := r.search(ctx, query, topK)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("rag.search.failed", slog.String("error", err.Error()))
		return nil
	}
	span.SetAttributes(telemetry.RAGAttributes(r.backend, topK, len(contexts))...)
	r.metrics.RecordRAGHits(ctx, len(contexts))
	return contexts
}

func (r *Retriever) search(ctx context.Context, query string, topK int) ([]RetrievedContext, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := r.store.Search(ctx, vector, topK+2)
	if err != nil {
		return nil, err
	}

	contexts := make([]RetrievedContext, 0, topK)
	for _, res := range results {
		if res.Score < r.minScore {
			continue
		}
		contexts = append(contexts, RetrievedContext{
			Title:   res.Title,
			Source:  res.Source,
			Content: res.Content,
			Score:   res.Score,
		})
		if len(contexts) == topK {
			break
		}
	}
	return contexts, nil
}

// Upsert validates docs, indexes them and persists the merged set. No
// document is stored when any of them is invalid.
func (r *Retriever) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return errors.New(errors.CodeInvalidInput, "لا توجد مستندات للإضافة", nil).WithContext("field", "documents")
	}
	cleaned := make([]Document, 0, len(docs))
	for i, d := range docs {
		d = trimDocument(d)
		if d.ID == "" || d.Title == "" || d.Source == "" || d.Content == "" {
			return errors.New(errors.CodeInvalidInput,
				fmt.Sprintf("المستند رقم %d يجب أن يحتوي id وtitle وsource وcontent", i+1), nil).
				WithContext("field", fmt.Sprintf("documents[%d]", i))
		}
		cleaned = append(cleaned, d)
	}

	points, err := r.embed(ctx, cleaned)
	if err != nil {
		return err
	}
	if err := r.store.Upsert(ctx, points); err != nil {
		return errors.New(errors.CodeMemoryError, "index knowledge documents", err)
	}

	r.mu.Lock()
	for _, d := range cleaned {
		if _, ok := r.docs[d.ID]; !ok {
			r.order = append(r.order, d.ID)
		}
		r.docs[d.ID] = d
	}
	r.mu.Unlock()

	r.logger.Info("rag.documents.upserted", slog.Int("count", len(cleaned)))
	r.persist(ctx)
	return nil
}

// List returns the indexed documents in insertion order.
func (r *Retriever) List(_ context.Context) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]Document, 0, len(r.order))
	for _, id := range r.order {
		docs = append(docs, r.docs[id])
	}
	return docs
}

func (r *Retriever) embed(ctx context.Context, docs []Document) ([]Point, error) {
	points := make([]Point, 0, len(docs))
	for _, d := range docs {
		vector, err := r.embedder.Embed(ctx, d.Title+"\n"+d.Content)
		if err != nil {
			return nil, errors.New(errors.CodeMemoryError, "embed document", err).WithContext("id", d.ID)
		}
		points = append(points, Point{ID: d.ID, Vector: vector, Document: d})
	}
	return points, nil
}

// persist writes the current documents. Failures only log: the index stays
// usable.
func (r *Retriever) persist(ctx context.Context) {
	if err := r.files.Save(ctx, r.List(ctx)); err != nil {
		r.logger.Warn("rag.store.persist_failed", slog.String("path", r.files.Path()), slog.String("error", err.Error()))
	}
}

// FormatContexts renders contexts as prompt text, one numbered entry per document.
func FormatContexts(contexts []RetrievedContext) string {
	parts := make([]string, 0, len(contexts))
	for i, c := range contexts {
		parts = append(parts, fmt.Sprintf("%d. [%s] (%s)\n%s", i+1, c.Title, c.Source, c.Content))
	}
	return strings.Join(parts, "\n\n")
}
