// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileConversation implements ConversationMemory with one JSON file per
// conversation.
type FileConversation struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileConversation creates a new file-based conversation store.
func NewFileConversation(baseDir string) (*FileConversation, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversation directory: %w", err)
	}
	return &FileConversation{baseDir: baseDir, now: time.Now}, nil
}

func (f *FileConversation) conversationFile(conversationID string) string {
	// Base() keeps ids from escaping baseDir.
	safe := filepath.Base(conversationID)
	return filepath.Join(f.baseDir, safe+".json")
}

// AddMessage implements ConversationMemory.
func (f *FileConversation) AddMessage(_ context.Context, conversationID string, msg ConversationMessage) (ConversationMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	messages, err := f.loadMessages(conversationID)
	if err != nil {
		return ConversationMessage{}, fmt.Errorf("failed to load messages: %w", err)
	}
	msg = stamp(conversationID, msg, f.now())
	if err := f.saveMessages(conversationID, append(messages, msg)); err != nil {
		return ConversationMessage{}, err
	}
	return msg, nil
}

// GetMessages implements ConversationMemory.
func (f *FileConversation) GetMessages(_ context.Context, conversationID string) ([]ConversationMessage, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.loadMessages(conversationID)
}

// GetRecentMessages implements ConversationMemory.
func (f *FileConversation) GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]ConversationMessage, error) {
	messages, err := f.GetMessages(ctx, conversationID)
	return lastN(messages, limit), err
}

// Clear implements ConversationMemory.
func (f *FileConversation) Clear(_ context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.conversationFile(conversationID))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// loadMessages returns no messages for a conversation without a file.
func (f *FileConversation) loadMessages(conversationID string) ([]ConversationMessage, error) {
	data, err := os.ReadFile(f.conversationFile(conversationID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var messages []ConversationMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse conversation file: %w", err)
	}
	return messages, nil
}

func (f *FileConversation) saveMessages(conversationID string, messages []ConversationMessage) error {
	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}
	return os.WriteFile(f.conversationFile(conversationID), data, 0o644)
}

// ListConversations returns all conversation ids with stored messages.
func (f *FileConversation) ListConversations() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), ".json"); ok {
			ids = append(ids, name)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
