package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_NewMessage_Trims_And_Validates_Content(t *testing.T) {
	req := require.New(t)

	_, err := NewMessage(MessageParams{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "   "})
	req.ErrorIs(err, ErrEmptyContent)

	_, err = NewMessage(MessageParams{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: strings.Repeat("x", MaxContentRunes+1)})
	req.ErrorIs(err, ErrContentTooLong)

	m, err := NewMessage(MessageParams{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "  hola  "})
	req.NoError(err)
	req.Equal("hola", m.Content)
	req.False(m.Read)
	req.True(m.ReadAt.IsZero())
}

func Test_NewMessage_Accepts_Exact_Limit(t *testing.T) {
	req := require.New(t)
	m, err := NewMessage(MessageParams{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: strings.Repeat("á", MaxContentRunes)})
	req.NoError(err)
	req.Len([]rune(m.Content), MaxContentRunes)
}

func Test_MarkRead_Keeps_First_Timestamp(t *testing.T) {
	req := require.New(t)
	m, err := NewMessage(MessageParams{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hola"})
	req.NoError(err)

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	m.MarkRead(first)
	req.True(m.Read)
	req.Equal(first, m.ReadAt)

	m.MarkRead(first.Add(time.Hour))
	req.Equal(first, m.ReadAt)
}

func Test_Preview_Truncates_By_Runes(t *testing.T) {
	req := require.New(t)
	req.Equal("hola", Preview("  hola  "))

	long := strings.Repeat("ñ", PreviewRunes+50)
	preview := Preview(long)
	req.Len([]rune(preview), PreviewRunes)
}

func Test_Message_Order_Breaks_Ties_By_ID(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	a := &Message{ID: "a", SentAt: at}
	b := &Message{ID: "b", SentAt: at}
	later := &Message{ID: "0", SentAt: at.Add(time.Second)}

	req.True(a.Before(b))
	req.False(b.Before(a))
	req.True(a.Before(later))
	req.False(later.Before(a))
}

func Test_PairKey_Is_Symmetric(t *testing.T) {
	req := require.New(t)
	req.Equal(PairKey("u1", "u2"), PairKey("u2", "u1"))
	req.Equal(PairKey(" u1 ", "u2"), PairKey("u1", "u2"))
	req.NotEqual(PairKey("u1", "u2"), PairKey("u1", "u3"))
}

func Test_NewConversation_Rejects_Bad_Participants(t *testing.T) {
	req := require.New(t)

	_, err := NewConversation(ConversationParams{ID: "c1", Participant1: "", Participant2: "u2"})
	req.ErrorIs(err, ErrInvalidParticipant)

	_, err = NewConversation(ConversationParams{ID: "c1", Participant1: "u1", Participant2: "u1"})
	req.ErrorIs(err, ErrSameParticipant)
}

func Test_NewConversation_Starts_Active_With_Event(t *testing.T) {
	req := require.New(t)
	c, err := NewConversation(ConversationParams{ID: "c1", Participant1: "u1", Participant2: "u2", ListingID: "l1"})
	req.NoError(err)
	req.True(c.Active)
	req.True(c.LastMessageAt.IsZero())

	evs := c.PendingEvents()
	req.Len(evs, 1)
	req.Equal("chat.conversation_started", evs[0].EventName())
}

func Test_Counterpart(t *testing.T) {
	req := require.New(t)
	c := &Conversation{Participant1: "u1", Participant2: "u2"}
	req.Equal("u2", c.Counterpart("u1"))
	req.Equal("u1", c.Counterpart("u2"))
	req.Empty(c.Counterpart("u3"))
	req.True(c.HasParticipant("u1"))
	req.False(c.HasParticipant(""))
}

func Test_Page_Normalized_Clamps(t *testing.T) {
	req := require.New(t)
	p := Page{Number: -1, Size: 0}.Normalized()
	req.Equal(0, p.Number)
	req.Equal(20, p.Size)

	p = Page{Number: 2, Size: 1000}.Normalized()
	req.Equal(200, p.Size)
	req.Equal(400, p.Offset())
}
