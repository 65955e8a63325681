package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainchat "hostal/internal/domain/chat"
	"hostal/internal/domain/shared/events"
)

// ConversationRepository keeps conversations in memory. The repository mutex
// doubles as the uniqueness guard: check-then-insert runs under one lock, so
// concurrent creates for the same pair key behave like a store-level unique
// index.
type ConversationRepository struct {
	mu    sync.RWMutex
	items map[domainchat.ConversationID]*domainchat.Conversation
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		items: make(map[domainchat.ConversationID]*domainchat.Conversation),
	}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conversation, ok := r.items[id]; ok {
		return cloneConversation(conversation), nil
	}
	return nil, domainchat.ErrConversationNotFound
}

func (r *ConversationRepository) ActiveBetween(ctx context.Context, participant1, participant2, listingID string) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conversation := r.findActiveLocked(participant1, participant2, listingID); conversation != nil {
		return cloneConversation(conversation), nil
	}
	return nil, domainchat.ErrConversationNotFound
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *domainchat.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing := r.findActiveLocked(conversation.Participant1, conversation.Participant2, conversation.ListingID); existing != nil {
		return domainchat.ErrDuplicateConversation
	}
	r.items[conversation.ID] = cloneConversation(conversation)
	return nil
}

func (r *ConversationRepository) TouchActivity(ctx context.Context, id domainchat.ConversationID, preview string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.items[id]
	if !ok {
		return domainchat.ErrConversationNotFound
	}
	if conversation.LastMessageAt.After(at) {
		return nil
	}
	conversation.LastMessagePreview = preview
	conversation.LastMessageAt = at.UTC()
	return nil
}

func (r *ConversationRepository) Deactivate(ctx context.Context, id domainchat.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conversation, ok := r.items[id]
	if !ok {
		return domainchat.ErrConversationNotFound
	}
	conversation.Active = false
	return nil
}

func (r *ConversationRepository) ListForParticipant(ctx context.Context, participantID string, page domainchat.Page) ([]*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainchat.Conversation, 0)
	for _, conversation := range r.items {
		if conversation.Active && conversation.HasParticipant(participantID) {
			matches = append(matches, conversation)
		}
	}
	sortByActivity(matches)
	return clonePage(matches, page), nil
}

func (r *ConversationRepository) ListActive(ctx context.Context, page domainchat.Page) ([]*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainchat.Conversation, 0, len(r.items))
	for _, conversation := range r.items {
		if conversation.Active {
			matches = append(matches, conversation)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return clonePage(matches, page), nil
}

func (r *ConversationRepository) findActiveLocked(participant1, participant2, listingID string) *domainchat.Conversation {
	key := domainchat.PairKey(participant1, participant2)
	for _, conversation := range r.items {
		if !conversation.Active || conversation.ListingID != listingID {
			continue
		}
		if domainchat.PairKey(conversation.Participant1, conversation.Participant2) == key {
			return conversation
		}
	}
	return nil
}

// Most recent activity first, conversations without messages last, creation
// date as tie-break. Mirrors the store query ORDER BY last_message_at DESC
// NULLS LAST, created_at DESC.
func sortByActivity(items []*domainchat.Conversation) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.LastMessageAt.IsZero() != b.LastMessageAt.IsZero() {
			return !a.LastMessageAt.IsZero()
		}
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func clonePage(items []*domainchat.Conversation, page domainchat.Page) []*domainchat.Conversation {
	norm := page.Normalized()
	start := norm.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + norm.Size
	if end > len(items) {
		end = len(items)
	}
	out := make([]*domainchat.Conversation, 0, end-start)
	for _, conversation := range items[start:end] {
		out = append(out, cloneConversation(conversation))
	}
	return out
}

func cloneConversation(c *domainchat.Conversation) *domainchat.Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}

// MessageLog keeps messages in memory with the canonical (SentAt, ID) order.
type MessageLog struct {
	mu    sync.RWMutex
	items map[domainchat.MessageID]*domainchat.Message
}

func NewMessageLog() *MessageLog {
	return &MessageLog{items: make(map[domainchat.MessageID]*domainchat.Message)}
}

func (l *MessageLog) ByID(ctx context.Context, id domainchat.MessageID) (*domainchat.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if message, ok := l.items[id]; ok {
		return cloneMessage(message), nil
	}
	return nil, domainchat.ErrMessageNotFound
}

func (l *MessageLog) Append(ctx context.Context, message *domainchat.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[message.ID] = cloneMessage(message)
	return nil
}

func (l *MessageLog) ListByConversation(ctx context.Context, conversationID domainchat.ConversationID, page domainchat.Page, order domainchat.Order) ([]*domainchat.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	matches := l.conversationMessagesLocked(conversationID)
	if order == domainchat.OrderDescending {
		reverseMessages(matches)
	}
	return cloneMessagePage(matches, page), nil
}

func (l *MessageLog) Latest(ctx context.Context, conversationID domainchat.ConversationID) (*domainchat.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	matches := l.conversationMessagesLocked(conversationID)
	if len(matches) == 0 {
		return nil, domainchat.ErrMessageNotFound
	}
	return cloneMessage(matches[len(matches)-1]), nil
}

func (l *MessageLog) MarkRead(ctx context.Context, id domainchat.MessageID, at time.Time) (*domainchat.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	message, ok := l.items[id]
	if !ok {
		return nil, domainchat.ErrMessageNotFound
	}
	message.MarkRead(at)
	return cloneMessage(message), nil
}

func (l *MessageLog) MarkAllReadExcludingSender(ctx context.Context, conversationID domainchat.ConversationID, excludedSenderID string, at time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var count int64
	for _, message := range l.items {
		if message.ConversationID != conversationID || message.SenderID == excludedSenderID || message.Read {
			continue
		}
		message.MarkRead(at)
		count++
	}
	return count, nil
}

func (l *MessageLog) ListUnreadExcludingSender(ctx context.Context, conversationID domainchat.ConversationID, excludedSenderID string) ([]*domainchat.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	matches := make([]*domainchat.Message, 0)
	for _, message := range l.conversationMessagesLocked(conversationID) {
		if !message.Read && message.SenderID != excludedSenderID {
			matches = append(matches, cloneMessage(message))
		}
	}
	return matches, nil
}

func (l *MessageLog) CountUnreadExcludingSender(ctx context.Context, conversationID domainchat.ConversationID, excludedSenderID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var count int64
	for _, message := range l.items {
		if message.ConversationID == conversationID && !message.Read && message.SenderID != excludedSenderID {
			count++
		}
	}
	return count, nil
}

func (l *MessageLog) Delete(ctx context.Context, id domainchat.MessageID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.items[id]; !ok {
		return domainchat.ErrMessageNotFound
	}
	delete(l.items, id)
	return nil
}

// conversationMessagesLocked returns live pointers sorted ascending.
func (l *MessageLog) conversationMessagesLocked(conversationID domainchat.ConversationID) []*domainchat.Message {
	matches := make([]*domainchat.Message, 0)
	for _, message := range l.items {
		if message.ConversationID == conversationID {
			matches = append(matches, message)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Before(matches[j]) })
	return matches
}

func reverseMessages(items []*domainchat.Message) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

func cloneMessagePage(items []*domainchat.Message, page domainchat.Page) []*domainchat.Message {
	norm := page.Normalized()
	start := norm.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + norm.Size
	if end > len(items) {
		end = len(items)
	}
	out := make([]*domainchat.Message, 0, end-start)
	for _, message := range items[start:end] {
		out = append(out, cloneMessage(message))
	}
	return out
}

func cloneMessage(m *domainchat.Message) *domainchat.Message {
	if m == nil {
		return nil
	}
	clone := *m
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}

var (
	_ domainchat.ConversationRepository = (*ConversationRepository)(nil)
	_ domainchat.MessageLog             = (*MessageLog)(nil)
)
