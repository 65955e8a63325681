package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"hostal/internal/domain/shared/events"
)

const (
	// MaxContentRunes bounds message content length.
	MaxContentRunes = 1000
	// PreviewRunes bounds the denormalized conversation preview.
	PreviewRunes = 200
)

var (
	ErrMessageNotFound = errors.New("chat: message not found")
	ErrNotAParticipant = errors.New("chat: sender is not a conversation participant")
	ErrEmptyContent    = errors.New("chat: message content is required")
	ErrContentTooLong  = errors.New("chat: message content exceeds limit")
)

type MessageID string

// Message is a single timestamped unit of content owned by one conversation.
// Everything except the read state is immutable after append.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       string
	SenderName     string
	Content        string
	SentAt         time.Time
	Read           bool
	ReadAt         time.Time

	events.EventRecorder
}

// Order selects retrieval direction for message listings.
type Order int

const (
	OrderAscending Order = iota
	OrderDescending
)

// MessageLog is the message store port. Messages are totally ordered by
// (SentAt, ID ascending) and every listing operation observes that order.
type MessageLog interface {
	ByID(ctx context.Context, id MessageID) (*Message, error)
	Append(ctx context.Context, message *Message) error
	ListByConversation(ctx context.Context, conversationID ConversationID, page Page, order Order) ([]*Message, error)
	// Latest returns the most recently appended message of the conversation
	// or ErrMessageNotFound when it has none.
	Latest(ctx context.Context, conversationID ConversationID) (*Message, error)
	// MarkRead flips the read flag once; repeated calls return the stored
	// message unchanged.
	MarkRead(ctx context.Context, id MessageID, at time.Time) (*Message, error)
	MarkAllReadExcludingSender(ctx context.Context, conversationID ConversationID, excludedSenderID string, at time.Time) (int64, error)
	ListUnreadExcludingSender(ctx context.Context, conversationID ConversationID, excludedSenderID string) ([]*Message, error)
	CountUnreadExcludingSender(ctx context.Context, conversationID ConversationID, excludedSenderID string) (int64, error)
	Delete(ctx context.Context, id MessageID) error
}

type MessageParams struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       string
	SenderName     string
	Content        string
	SentAt         time.Time
}

func NewMessage(params MessageParams) (*Message, error) {
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len([]rune(content)) > MaxContentRunes {
		return nil, ErrContentTooLong
	}
	sentAt := params.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}
	sentAt = sentAt.UTC()

	message := &Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		SenderID:       strings.TrimSpace(params.SenderID),
		SenderName:     strings.TrimSpace(params.SenderName),
		Content:        content,
		SentAt:         sentAt,
	}
	message.Record(MessageSent{
		MessageID:      message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		At:             sentAt,
	})
	return message, nil
}

// MarkRead flips the read flag, recording the first transition time. The flag
// is monotonic: once read, later calls keep the original ReadAt.
func (m *Message) MarkRead(at time.Time) {
	if m.Read {
		return
	}
	if at.IsZero() {
		at = time.Now()
	}
	m.Read = true
	m.ReadAt = at.UTC()
}

// Preview derives the denormalized conversation snippet from content.
func Preview(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= PreviewRunes {
		return string(runes)
	}
	return string(runes[:PreviewRunes])
}

// Before reports whether m sorts ahead of other in the canonical message
// order: SentAt ascending, ties broken by id ascending.
func (m *Message) Before(other *Message) bool {
	if !m.SentAt.Equal(other.SentAt) {
		return m.SentAt.Before(other.SentAt)
	}
	return m.ID < other.ID
}
