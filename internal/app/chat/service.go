package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "hostal/internal/app/outbox"
	"hostal/internal/app/uow"
	domainchat "hostal/internal/domain/chat"
	domainlistings "hostal/internal/domain/listings"
	"hostal/internal/domain/shared/events"
)

// Resolution is the participant directory answer for a single id.
type Resolution struct {
	Exists      bool
	Active      bool
	DisplayName string
}

// Directory resolves participant identity. The chat service never mutates
// users; it only snapshots display names and gates on active state.
type Directory interface {
	Resolve(ctx context.Context, id string) (Resolution, error)
}

var ErrDirectoryMissing = errors.New("chat: participant directory not configured")

// Service orchestrates the conversation store and the message log. It is the
// only place with chat business rules; repositories stay mechanical.
type Service struct {
	UoW       uow.Factory
	Directory Directory
	Listings  domainlistings.Repository
	Encoder   appoutbox.EventEncoder
	Logger    *slog.Logger

	// Now supplies the service clock; tests inject a deterministic one.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// GetOrCreateConversation returns the active conversation for the unordered
// participant pair and listing scope, creating it when absent. Repeated and
// concurrent calls converge on one conversation: a create that loses the
// uniqueness race re-reads and returns the winner.
func (s *Service) GetOrCreateConversation(ctx context.Context, participant1, participant2, listingID string) (*domainchat.Conversation, error) {
	p1 := strings.TrimSpace(participant1)
	p2 := strings.TrimSpace(participant2)
	if p1 == "" || p2 == "" {
		return nil, domainchat.ErrInvalidParticipant
	}
	if p1 == p2 {
		return nil, domainchat.ErrSameParticipant
	}
	listingID = strings.TrimSpace(listingID)

	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = unit.Context(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	existing, err := unit.Conversations().ActiveBetween(ctx, p1, p2, listingID)
	if err == nil {
		committed = true
		if commitErr := unit.Commit(ctx); commitErr != nil {
			return nil, commitErr
		}
		return existing, nil
	}
	if !errors.Is(err, domainchat.ErrConversationNotFound) {
		return nil, err
	}

	name1, err := s.resolveParticipant(ctx, p1)
	if err != nil {
		return nil, err
	}
	name2, err := s.resolveParticipant(ctx, p2)
	if err != nil {
		return nil, err
	}
	if listingID != "" && s.Listings != nil {
		if _, err := s.Listings.ByID(ctx, domainlistings.ListingID(listingID)); err != nil {
			return nil, err
		}
	}

	conversation, err := domainchat.NewConversation(domainchat.ConversationParams{
		ID:               domainchat.ConversationID(uuid.NewString()),
		Participant1:     p1,
		Participant1Name: name1,
		Participant2:     p2,
		Participant2Name: name2,
		ListingID:        listingID,
		CreatedAt:        s.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Conversations().Create(ctx, conversation); err != nil {
		if errors.Is(err, domainchat.ErrDuplicateConversation) {
			// Lost the check-then-create race; the winner's row is the
			// conversation both callers should observe.
			_ = unit.Rollback(ctx)
			committed = true
			return s.lookupActive(ctx, p1, p2, listingID)
		}
		return nil, err
	}
	if err := appoutbox.RecordDomainEvents(ctx, unit.Outbox(), s.Encoder, conversation.PendingEvents()); err != nil {
		return nil, err
	}
	conversation.ClearEvents()

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true

	if s.Logger != nil {
		s.Logger.Info("conversation started", "conversation_id", conversation.ID, "listing_id", listingID)
	}
	return conversation, nil
}

func (s *Service) lookupActive(ctx context.Context, p1, p2, listingID string) (*domainchat.Conversation, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	return unit.Conversations().ActiveBetween(unit.Context(ctx), p1, p2, listingID)
}

func (s *Service) resolveParticipant(ctx context.Context, id string) (string, error) {
	if s.Directory == nil {
		return "", ErrDirectoryMissing
	}
	entry, err := s.Directory.Resolve(ctx, id)
	if err != nil {
		return "", err
	}
	if !entry.Exists || !entry.Active {
		return "", domainchat.ErrInvalidParticipant
	}
	return entry.DisplayName, nil
}

// SendMessage appends a message and refreshes the conversation's last-message
// cache in the same transaction, keeping the cache consistent with the log.
func (s *Service) SendMessage(ctx context.Context, conversationID domainchat.ConversationID, senderID, content string) (*domainchat.Message, error) {
	senderID = strings.TrimSpace(senderID)

	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = unit.Context(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	conversation, err := unit.Conversations().ByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(senderID) {
		return nil, domainchat.ErrNotAParticipant
	}

	senderName, err := s.senderName(ctx, conversation, senderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	message, err := domainchat.NewMessage(domainchat.MessageParams{
		ID:             domainchat.MessageID(uuid.NewString()),
		ConversationID: conversation.ID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        content,
		SentAt:         now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Messages().Append(ctx, message); err != nil {
		return nil, err
	}
	if err := unit.Conversations().TouchActivity(ctx, conversation.ID, domainchat.Preview(message.Content), message.SentAt); err != nil {
		return nil, err
	}
	if err := appoutbox.RecordDomainEvents(ctx, unit.Outbox(), s.Encoder, message.PendingEvents()); err != nil {
		return nil, err
	}
	message.ClearEvents()

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	return message, nil
}

// senderName snapshots the sender's display name, falling back to the name
// already denormalized on the conversation when the directory is unavailable.
func (s *Service) senderName(ctx context.Context, conversation *domainchat.Conversation, senderID string) (string, error) {
	if s.Directory != nil {
		entry, err := s.Directory.Resolve(ctx, senderID)
		if err != nil {
			return "", err
		}
		if !entry.Exists {
			return "", domainchat.ErrInvalidParticipant
		}
		return entry.DisplayName, nil
	}
	if conversation.Participant1 == senderID {
		return conversation.Participant1Name, nil
	}
	return conversation.Participant2Name, nil
}

// GetConversation loads a conversation by id.
func (s *Service) GetConversation(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	return unit.Conversations().ByID(unit.Context(ctx), id)
}

// ListConversations returns the participant's active conversations, most
// recently active first.
func (s *Service) ListConversations(ctx context.Context, participantID string, page domainchat.Page) ([]*domainchat.Conversation, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	return unit.Conversations().ListForParticipant(unit.Context(ctx), strings.TrimSpace(participantID), page)
}

// ListMessages returns one page of a conversation's messages. Unknown
// conversations yield an empty page, matching the transport contract.
func (s *Service) ListMessages(ctx context.Context, conversationID domainchat.ConversationID, page domainchat.Page, order domainchat.Order) ([]*domainchat.Message, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	return unit.Messages().ListByConversation(unit.Context(ctx), conversationID, page, order)
}

// MarkMessageRead marks one message read. Idempotent; the conversation's
// cached summary is untouched.
func (s *Service) MarkMessageRead(ctx context.Context, id domainchat.MessageID) (*domainchat.Message, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = unit.Context(ctx)
	message, err := unit.Messages().MarkRead(ctx, id, s.now())
	if err != nil {
		_ = unit.Rollback(ctx)
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	return message, nil
}

// MarkConversationRead bulk-marks the counterpart's messages read on behalf
// of readerID. The reader's own messages are never flipped.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID domainchat.ConversationID, readerID string) (int64, error) {
	readerID = strings.TrimSpace(readerID)

	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return 0, err
	}
	ctx = unit.Context(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	conversation, err := unit.Conversations().ByID(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if !conversation.HasParticipant(readerID) {
		return 0, domainchat.ErrNotAParticipant
	}
	count, err := unit.Messages().MarkAllReadExcludingSender(ctx, conversationID, readerID, s.now())
	if err != nil {
		return 0, err
	}
	if err := unit.Commit(ctx); err != nil {
		return 0, err
	}
	committed = true
	return count, nil
}

// UnreadMessagesFor returns the ordered unread messages not authored by
// readerID. Read-only; nothing is marked.
func (s *Service) UnreadMessagesFor(ctx context.Context, conversationID domainchat.ConversationID, readerID string) ([]*domainchat.Message, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer unit.Rollback(ctx)
	return unit.Messages().ListUnreadExcludingSender(unit.Context(ctx), conversationID, strings.TrimSpace(readerID))
}

// CountUnread counts unread messages not authored by readerID.
func (s *Service) CountUnread(ctx context.Context, conversationID domainchat.ConversationID, readerID string) (int64, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return 0, err
	}
	defer unit.Rollback(ctx)
	return unit.Messages().CountUnreadExcludingSender(unit.Context(ctx), conversationID, strings.TrimSpace(readerID))
}

// DeleteMessage hard-deletes a message. The conversation's last-message cache
// is deliberately not recomputed here; the reconciler only repairs forward.
func (s *Service) DeleteMessage(ctx context.Context, id domainchat.MessageID) error {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	ctx = unit.Context(ctx)
	if err := unit.Messages().Delete(ctx, id); err != nil {
		_ = unit.Rollback(ctx)
		return err
	}
	return unit.Commit(ctx)
}

// CancelConversation soft-deactivates a conversation. Idempotent; a second
// call on an inactive conversation is a no-op.
func (s *Service) CancelConversation(ctx context.Context, id domainchat.ConversationID) error {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return err
	}
	ctx = unit.Context(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	conversation, err := unit.Conversations().ByID(ctx, id)
	if err != nil {
		return err
	}
	if !conversation.Active {
		committed = true
		return unit.Commit(ctx)
	}
	if err := unit.Conversations().Deactivate(ctx, id); err != nil {
		return err
	}
	closed := domainchat.ConversationClosed{ConversationID: id, At: s.now()}
	if err := appoutbox.RecordDomainEvents(ctx, unit.Outbox(), s.Encoder, []events.DomainEvent{closed}); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// RefreshActivity bumps the conversation's last-activity timestamp to now,
// leaving the preview untouched.
func (s *Service) RefreshActivity(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	ctx = unit.Context(ctx)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(ctx)
		}
	}()

	conversation, err := unit.Conversations().ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := unit.Conversations().TouchActivity(ctx, id, conversation.LastMessagePreview, now); err != nil {
		return nil, err
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}
	committed = true
	conversation.LastMessageAt = now
	return conversation, nil
}
