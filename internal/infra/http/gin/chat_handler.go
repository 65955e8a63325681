package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	appchat "hostal/internal/app/chat"
	"hostal/internal/app/dto"
	domainchat "hostal/internal/domain/chat"
	domainlistings "hostal/internal/domain/listings"
)

// ChatHandler bridges HTTP with the chat service.
type ChatHandler struct {
	Service *appchat.Service
	Logger  *slog.Logger
}

// ListForUser returns the user's active conversations, most recent activity first.
func (h ChatHandler) ListForUser(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("usuarioId"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "usuarioId is required"})
		return
	}
	page := parsePage(c)
	conversations, err := h.Service.ListConversations(c.Request.Context(), userID, page)
	if err != nil {
		h.respondError(c, err, "list conversations", "user_id", userID)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversations(conversations))
}

// GetOrCreate returns the active conversation for the pair, creating it when absent.
func (h ChatHandler) GetOrCreate(c *gin.Context) {
	var req struct {
		Usuario1ID string `json:"usuario1Id"`
		Usuario2ID string `json:"usuario2Id"`
		ProductoID string `json:"productoId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	conversation, err := h.Service.GetOrCreateConversation(c.Request.Context(), req.Usuario1ID, req.Usuario2ID, req.ProductoID)
	if err != nil {
		h.respondError(c, err, "get or create conversation", "usuario1", req.Usuario1ID, "usuario2", req.Usuario2ID)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conversation))
}

// Get loads one conversation by id.
func (h ChatHandler) Get(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chatId"))
	conversation, err := h.Service.GetConversation(c.Request.Context(), domainchat.ConversationID(chatID))
	if err != nil {
		h.respondError(c, err, "load conversation", "conversation_id", chatID)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conversation))
}

// RefreshActivity bumps the conversation's last-activity timestamp.
func (h ChatHandler) RefreshActivity(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chatId"))
	conversation, err := h.Service.RefreshActivity(c.Request.Context(), domainchat.ConversationID(chatID))
	if err != nil {
		h.respondError(c, err, "refresh activity", "conversation_id", chatID)
		return
	}
	c.JSON(http.StatusOK, dto.MapConversation(conversation))
}

// ListMessages returns one page of a conversation's messages, newest first.
func (h ChatHandler) ListMessages(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chatId"))
	page := parsePage(c)
	messages, err := h.Service.ListMessages(c.Request.Context(), domainchat.ConversationID(chatID), page, domainchat.OrderDescending)
	if err != nil {
		h.respondError(c, err, "list messages", "conversation_id", chatID)
		return
	}
	norm := page.Normalized()
	c.JSON(http.StatusOK, dto.MessagePage{
		Items: dto.MapMessages(messages),
		Page:  norm.Number,
		Size:  norm.Size,
	})
}

// SendMessage appends a message to the conversation.
func (h ChatHandler) SendMessage(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chatId"))
	var req struct {
		RemitenteID string `json:"remitenteId"`
		Contenido   string `json:"contenido"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	message, err := h.Service.SendMessage(c.Request.Context(), domainchat.ConversationID(chatID), req.RemitenteID, req.Contenido)
	if err != nil {
		// An unknown conversation on send is a caller mistake, not a missing
		// resource on the message route.
		if errors.Is(err, domainchat.ErrConversationNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "chat not found"})
			return
		}
		h.respondError(c, err, "send message", "conversation_id", chatID, "sender_id", req.RemitenteID)
		return
	}
	c.JSON(http.StatusOK, dto.MapMessage(message))
}

// MarkMessageRead marks one message as read.
func (h ChatHandler) MarkMessageRead(c *gin.Context) {
	messageID := strings.TrimSpace(c.Param("mensajeId"))
	message, err := h.Service.MarkMessageRead(c.Request.Context(), domainchat.MessageID(messageID))
	if err != nil {
		h.respondError(c, err, "mark message read", "message_id", messageID)
		return
	}
	c.JSON(http.StatusOK, dto.MapMessage(message))
}

// ListUnread returns the messages the user has not read yet.
func (h ChatHandler) ListUnread(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chatId"))
	userID := strings.TrimSpace(c.Param("usuarioId"))
	messages, err := h.Service.UnreadMessagesFor(c.Request.Context(), domainchat.ConversationID(chatID), userID)
	if err != nil {
		h.respondError(c, err, "list unread", "conversation_id", chatID, "user_id", userID)
		return
	}
	c.JSON(http.StatusOK, dto.MapMessages(messages))
}

// DeleteMessage removes a message.
func (h ChatHandler) DeleteMessage(c *gin.Context) {
	messageID := strings.TrimSpace(c.Param("mensajeId"))
	if err := h.Service.DeleteMessage(c.Request.Context(), domainchat.MessageID(messageID)); err != nil {
		h.respondError(c, err, "delete message", "message_id", messageID)
		return
	}
	c.Status(http.StatusOK)
}

func (h ChatHandler) respondError(c *gin.Context, err error, action string, attrs ...any) {
	switch {
	case errors.Is(err, domainchat.ErrConversationNotFound),
		errors.Is(err, domainchat.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domainchat.ErrInvalidParticipant),
		errors.Is(err, domainchat.ErrSameParticipant),
		errors.Is(err, domainchat.ErrNotAParticipant),
		errors.Is(err, domainchat.ErrEmptyContent),
		errors.Is(err, domainchat.ErrContentTooLong),
		errors.Is(err, domainlistings.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.Logger != nil {
			h.Logger.Error("chat request failed", append([]any{"action", action, "error", err}, attrs...)...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parsePage(c *gin.Context) domainchat.Page {
	return domainchat.Page{
		Number: parseNonNegativeInt(c.Query("page"), 0),
		Size:   parseNonNegativeInt(c.Query("size"), 0),
	}
}

func parseNonNegativeInt(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return def
	}
	return value
}

var _ ChatHTTP = (*ChatHandler)(nil)
