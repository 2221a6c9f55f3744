// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package traces

import (
	"context"
	"log/slog"
	"sync"
)

// Default capacities and query limit.
const (
	DefaultPerConversation = 30
	DefaultGlobal          = 80
	DefaultHistoryLimit    = 10
)

// Sink receives every recorded trace, e.g. for persistence.
type Sink interface {
	Write(ctx context.Context, trace OrchestrationTrace) error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSink forwards recorded traces to sink. Sink failures are logged.
func WithSink(sink Sink) StoreOption {
	return func(s *Store) { s.sink = sink }
}

// WithStoreLogger overrides the default logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store keeps the most recent traces per conversation and globally. Older
// entries are evicted first.
type Store struct {
	perConversation int
	global          int
	sink            Sink
	logger          *slog.Logger

	mu             sync.RWMutex
	byConversation map[string][]OrchestrationTrace
	all            []OrchestrationTrace
}

// NewStore creates a store. Non-positive capacities take the defaults.
func NewStore(perConversation, global int, opts ...StoreOption) *Store {
	if perConversation <= 0 {
		perConversation = DefaultPerConversation
	}
	if global <= 0 {
		global = DefaultGlobal
	}
	s := &Store{
		perConversation: perConversation,
		global:          global,
		logger:          slog.Default(),
		byConversation:  make(map[string][]OrchestrationTrace),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends trace to its conversation history and the global one.
func (s *Store) Record(ctx context.Context, trace OrchestrationTrace) {
	s.append(trace)
	if s.sink == nil {
		return
	}
	if err := s.sink.Write(ctx, trace); err != nil {
		s.logger.Warn("traces.sink.error",
			slog.String("run_id", trace.RunID),
			slog.String("error", err.Error()),
		)
	}
}

// Warm loads traces, oldest first, without forwarding them to the sink.
func (s *Store) Warm(traces []OrchestrationTrace) {
	for _, t := range traces {
		s.append(t)
	}
}

func (s *Store) append(trace OrchestrationTrace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := trace.ConversationID; id != "" {
		s.byConversation[id] = trim(append(s.byConversation[id], trace), s.perConversation)
	}
	s.all = trim(append(s.all, trace), s.global)
}

// trim keeps the last capacity items.
func trim(items []OrchestrationTrace, capacity int) []OrchestrationTrace {
	if len(items) <= capacity {
		return items
	}
	kept := make([]OrchestrationTrace, capacity)
	copy(kept, items[len(items)-capacity:])
	return kept
}

// Latest returns the newest trace of a conversation, or the newest overall
// when conversationID is empty.
func (s *Store) Latest(conversationID string) (OrchestrationTrace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.source(conversationID)
	if len(items) == 0 {
		return OrchestrationTrace{}, false
	}
	return items[len(items)-1], true
}

// History returns up to limit of the newest traces, oldest first. limit
// defaults to DefaultHistoryLimit.
func (s *Store) History(conversationID string, limit int) []OrchestrationTrace {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.source(conversationID)
	start := max(0, len(items)-limit)
	out := make([]OrchestrationTrace, len(items)-start)
	copy(out, items[start:])
	return out
}

func (s *Store) source(conversationID string) []OrchestrationTrace {
	if conversationID == "" {
		return s.all
	}
	return s.byConversation[conversationID]
}
