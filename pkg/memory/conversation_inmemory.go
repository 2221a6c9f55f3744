// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryConversation implements ConversationMemory with in-memory storage.
// Data is lost on restart.
type InMemoryConversation struct {
	mu            sync.RWMutex
	conversations map[string][]ConversationMessage
	now           func() time.Time
}

// NewInMemoryConversation creates a new in-memory conversation store.
func NewInMemoryConversation() *InMemoryConversation {
	return &InMemoryConversation{
		conversations: make(map[string][]ConversationMessage),
		now:           time.Now,
	}
}

// AddMessage implements ConversationMemory.
func (m *InMemoryConversation) AddMessage(_ context.Context, conversationID string, msg ConversationMessage) (ConversationMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg = stamp(conversationID, msg, m.now())
	m.conversations[conversationID] = append(m.conversations[conversationID], msg)
	return msg, nil
}

// GetMessages implements ConversationMemory.
func (m *InMemoryConversation) GetMessages(_ context.Context, conversationID string) ([]ConversationMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]ConversationMessage, len(m.conversations[conversationID]))
	copy(messages, m.conversations[conversationID])
	return messages, nil
}

// GetRecentMessages implements ConversationMemory.
func (m *InMemoryConversation) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]ConversationMessage, error) {
	messages, err := m.GetMessages(ctx, conversationID)
	return lastN(messages, limit), err
}

// Clear implements ConversationMemory.
func (m *InMemoryConversation) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conversations, conversationID)
	return nil
}

// ListConversations returns the ids of all stored conversations.
func (m *InMemoryConversation) ListConversations() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.conversations))
	for id := range m.conversations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
