package dto

import (
	"time"

	domainchat "hostal/internal/domain/chat"
)

// Conversation mirrors the wire format the mobile clients already consume,
// hence the Spanish field names.
type Conversation struct {
	ID                 string     `json:"id"`
	Usuario1ID         string     `json:"usuario1Id"`
	Usuario2ID         string     `json:"usuario2Id"`
	ProductoID         string     `json:"productoId,omitempty"`
	NombreUsuario1     string     `json:"nombreUsuario1,omitempty"`
	NombreUsuario2     string     `json:"nombreUsuario2,omitempty"`
	UltimoMensaje      string     `json:"ultimoMensaje,omitempty"`
	FechaUltimoMensaje *time.Time `json:"fechaUltimoMensaje,omitempty"`
	FechaCreacion      time.Time  `json:"fechaCreacion"`
	Activo             bool       `json:"activo"`
}

// Message is a single chat message payload.
type Message struct {
	ID              string     `json:"id"`
	ChatID          string     `json:"chatId"`
	RemitenteID     string     `json:"remitenteId"`
	NombreRemitente string     `json:"nombreRemitente,omitempty"`
	Contenido       string     `json:"contenido"`
	FechaEnvio      time.Time  `json:"fechaEnvio"`
	Leido           bool       `json:"leido"`
	FechaLeido      *time.Time `json:"fechaLeido,omitempty"`
}

// MessagePage is a paginated message listing.
type MessagePage struct {
	Items []Message `json:"items"`
	Page  int       `json:"page"`
	Size  int       `json:"size"`
}

func MapConversation(c *domainchat.Conversation) Conversation {
	out := Conversation{
		ID:             string(c.ID),
		Usuario1ID:     c.Participant1,
		Usuario2ID:     c.Participant2,
		ProductoID:     c.ListingID,
		NombreUsuario1: c.Participant1Name,
		NombreUsuario2: c.Participant2Name,
		UltimoMensaje:  c.LastMessagePreview,
		FechaCreacion:  c.CreatedAt,
		Activo:         c.Active,
	}
	if !c.LastMessageAt.IsZero() {
		at := c.LastMessageAt
		out.FechaUltimoMensaje = &at
	}
	return out
}

func MapConversations(items []*domainchat.Conversation) []Conversation {
	out := make([]Conversation, 0, len(items))
	for _, c := range items {
		out = append(out, MapConversation(c))
	}
	return out
}

func MapMessage(m *domainchat.Message) Message {
	out := Message{
		ID:              string(m.ID),
		ChatID:          string(m.ConversationID),
		RemitenteID:     m.SenderID,
		NombreRemitente: m.SenderName,
		Contenido:       m.Content,
		FechaEnvio:      m.SentAt,
		Leido:           m.Read,
	}
	if !m.ReadAt.IsZero() {
		at := m.ReadAt
		out.FechaLeido = &at
	}
	return out
}

func MapMessages(items []*domainchat.Message) []Message {
	out := make([]Message, 0, len(items))
	for _, m := range items {
		out = append(out, MapMessage(m))
	}
	return out
}
