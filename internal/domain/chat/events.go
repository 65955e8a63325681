package chat

import "time"

type ConversationStarted struct {
	ConversationID ConversationID
	Participants   []string
	ListingID      string
	At             time.Time
}

func (e ConversationStarted) EventName() string     { return "chat.conversation_started" }
func (e ConversationStarted) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationStarted) OccurredAt() time.Time { return e.At }

type MessageSent struct {
	MessageID      MessageID
	ConversationID ConversationID
	SenderID       string
	At             time.Time
}

func (e MessageSent) EventName() string     { return "chat.message_sent" }
func (e MessageSent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSent) OccurredAt() time.Time { return e.At }

type ConversationClosed struct {
	ConversationID ConversationID
	At             time.Time
}

func (e ConversationClosed) EventName() string     { return "chat.conversation_closed" }
func (e ConversationClosed) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationClosed) OccurredAt() time.Time { return e.At }
