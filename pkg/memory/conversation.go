// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConversationMessage represents a single message in a conversation history.
type ConversationMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"` // system, user, assistant
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationMemory stores ordered message sequences per conversation.
type ConversationMemory interface {
	// AddMessage appends msg and returns it with its id and timestamp set.
	AddMessage(ctx context.Context, conversationID string, msg ConversationMessage) (ConversationMessage, error)

	// GetMessages retrieves all messages of a conversation, oldest first.
	GetMessages(ctx context.Context, conversationID string) ([]ConversationMessage, error)

	// GetRecentMessages retrieves the last limit messages.
	GetRecentMessages(ctx context.Context, conversationID string, limit int) ([]ConversationMessage, error)

	// Clear removes all messages of a conversation.
	Clear(ctx context.Context, conversationID string) error
}

// Turns converts stored messages to history turns.
func Turns(messages []ConversationMessage) []Turn {
	turns := make([]Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func stamp(conversationID string, msg ConversationMessage, now time.Time) ConversationMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ConversationID = conversationID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.Role = strings.TrimSpace(msg.Role)
	return msg
}

func lastN(messages []ConversationMessage, limit int) []ConversationMessage {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}
