package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"hostal/internal/domain/shared/events"
)

var (
	ErrConversationNotFound  = errors.New("chat: conversation not found")
	ErrDuplicateConversation = errors.New("chat: active conversation already exists for pair")
	ErrInvalidParticipant    = errors.New("chat: participant unknown or inactive")
	ErrSameParticipant       = errors.New("chat: conversation requires two distinct participants")
)

type ConversationID string

// Conversation is a two-party chat thread, optionally scoped to a listing.
// Participant slots are storage positions only; the pair is unordered.
type Conversation struct {
	ID               ConversationID
	Participant1     string
	Participant2     string
	ListingID        string
	Participant1Name string
	Participant2Name string
	CreatedAt        time.Time
	Active           bool

	// Cache of the most recently appended message. Zero LastMessageAt means
	// no message has ever been appended.
	LastMessagePreview string
	LastMessageAt      time.Time

	events.EventRecorder
}

// ConversationRepository is the conversation store port. Implementations must
// enforce at most one active conversation per unordered pair and listing scope
// at the storage level; Create reports a losing race as
// ErrDuplicateConversation.
type ConversationRepository interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	ActiveBetween(ctx context.Context, participant1, participant2, listingID string) (*Conversation, error)
	Create(ctx context.Context, conversation *Conversation) error
	// TouchActivity refreshes the last-message cache. Updates carrying a
	// timestamp older than the stored one are skipped so interleaved
	// commits cannot regress the cache.
	TouchActivity(ctx context.Context, id ConversationID, preview string, at time.Time) error
	Deactivate(ctx context.Context, id ConversationID) error
	ListForParticipant(ctx context.Context, participantID string, page Page) ([]*Conversation, error)
	ListActive(ctx context.Context, page Page) ([]*Conversation, error)
}

type ConversationParams struct {
	ID               ConversationID
	Participant1     string
	Participant1Name string
	Participant2     string
	Participant2Name string
	ListingID        string
	CreatedAt        time.Time
}

func NewConversation(params ConversationParams) (*Conversation, error) {
	p1 := strings.TrimSpace(params.Participant1)
	p2 := strings.TrimSpace(params.Participant2)
	if p1 == "" || p2 == "" {
		return nil, ErrInvalidParticipant
	}
	if p1 == p2 {
		return nil, ErrSameParticipant
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	conversation := &Conversation{
		ID:               params.ID,
		Participant1:     p1,
		Participant2:     p2,
		ListingID:        strings.TrimSpace(params.ListingID),
		Participant1Name: strings.TrimSpace(params.Participant1Name),
		Participant2Name: strings.TrimSpace(params.Participant2Name),
		CreatedAt:        now,
		Active:           true,
	}
	conversation.Record(ConversationStarted{
		ConversationID: conversation.ID,
		Participants:   []string{p1, p2},
		ListingID:      conversation.ListingID,
		At:             now,
	})
	return conversation, nil
}

// HasParticipant reports whether id occupies either slot.
func (c *Conversation) HasParticipant(id string) bool {
	return id != "" && (c.Participant1 == id || c.Participant2 == id)
}

// Counterpart returns the other participant's id, or "" when id is not a
// participant.
func (c *Conversation) Counterpart(id string) string {
	switch id {
	case c.Participant1:
		return c.Participant2
	case c.Participant2:
		return c.Participant1
	default:
		return ""
	}
}

// PairKey returns the canonical key for an unordered participant pair: both
// ids sorted lexicographically and joined. Conversation stores index the key
// together with the listing scope to enforce pair uniqueness.
func PairKey(participant1, participant2 string) string {
	ids := []string{strings.TrimSpace(participant1), strings.TrimSpace(participant2)}
	sort.Strings(ids)
	return ids[0] + "|" + ids[1]
}

// Page describes offset pagination. Number is zero-based.
type Page struct {
	Number int
	Size   int
}

// Normalized clamps the page to sane bounds.
func (p Page) Normalized() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Size > 200 {
		p.Size = 200
	}
	return p
}

// Offset returns the number of records to skip.
func (p Page) Offset() int {
	n := p.Normalized()
	return n.Number * n.Size
}
