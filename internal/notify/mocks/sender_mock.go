// Package mocks provides a recording Telegram sender for tests.
package mocks

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MessageSender defines the Telegram operation notifications need.
// It lives here so the notify package and its tests share one definition.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// SentMessage captures a message sent via MockSender.
type SentMessage struct {
	ChatID    any
	Text      string
	ParseMode models.ParseMode
}

var _ MessageSender = (*MockSender)(nil)

// MockSender records sent messages.
type MockSender struct {
	mu sync.RWMutex

	SentMessages []SentMessage
	// SendMessageError allows simulating SendMessage failures.
	SendMessageError error
	// NextMessageID is auto-incremented for each sent message.
	NextMessageID int
}

// NewMockSender creates a new MockSender.
func NewMockSender() *MockSender {
	return &MockSender{NextMessageID: 1000}
}

// SendMessage simulates sending a message.
func (m *MockSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}
	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID:    params.ChatID,
		Text:      params.Text,
		ParseMode: params.ParseMode,
	})

	msgID := m.NextMessageID
	m.NextMessageID++
	chatID, _ := params.ChatID.(int64)
	return &models.Message{ID: msgID, Chat: models.Chat{ID: chatID}, Text: params.Text}, nil
}

// SentMessageCount returns the number of messages sent.
func (m *MockSender) SentMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentMessages)
}

// LastSentMessage returns the most recent message, or nil.
func (m *MockSender) LastSentMessage() *SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.SentMessages) == 0 {
		return nil
	}
	msg := m.SentMessages[len(m.SentMessages)-1]
	return &msg
}
