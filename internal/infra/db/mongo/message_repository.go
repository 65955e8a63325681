package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "hostal/internal/domain/chat"
)

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	col := db.Collection("chat_messages")
	byConversation := mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "sent_at", Value: 1}, {Key: "_id", Value: 1}},
	}
	unread := mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "read", Value: 1}, {Key: "sender_id", Value: 1}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{byConversation, unread})
	return &MessageRepository{col: col}
}

func (r *MessageRepository) ByID(ctx context.Context, id domainchat.MessageID) (*domainchat.Message, error) {
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrMessageNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *MessageRepository) Append(ctx context.Context, message *domainchat.Message) error {
	_, err := r.col.InsertOne(ctx, newMessageDocument(message))
	return err
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID domainchat.ConversationID, page domainchat.Page, order domainchat.Order) ([]*domainchat.Message, error) {
	norm := page.Normalized()
	direction := 1
	if order == domainchat.OrderDescending {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(norm.Offset())).
		SetLimit(int64(norm.Size))
	cursor, err := r.col.Find(ctx, bson.M{"conversation_id": string(conversationID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeMessages(ctx, cursor)
}

func (r *MessageRepository) Latest(ctx context.Context, conversationID domainchat.ConversationID) (*domainchat.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "sent_at", Value: -1}, {Key: "_id", Value: -1}})
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"conversation_id": string(conversationID)}, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrMessageNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// MarkRead flips the flag only when still unread; a repeated call falls back
// to fetching the already-read document so the read timestamp never moves.
func (r *MessageRepository) MarkRead(ctx context.Context, id domainchat.MessageID, at time.Time) (*domainchat.Message, error) {
	filter := bson.M{"_id": string(id), "read": false}
	update := bson.M{"$set": bson.M{"read": true, "read_at": at.UTC().UnixMilli()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc messageDocument
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toAggregate(), nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r *MessageRepository) MarkAllReadExcludingSender(ctx context.Context, conversationID domainchat.ConversationID, excludedSenderID string, at time.Time) (int64, error) {
	filter := bson.M{
		"conversation_id": string(conversationID),
		"read":            false,
		"sender_id":       bson.M{"$ne": excludedSenderID},
	}
	update := bson.M{"$set": bson.M{"read": true, "read_at": at.UTC().UnixMilli()}}
	res, err := r.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MessageRepository) ListUnreadExcludingSender(ctx context.Context, conversationID domainchat.ConversationID, excludedSenderID string) ([]*domainchat.Message, error) {
	filter := bson.M{
		"conversation_id": string(conversationID),
		"read":            false,
		"sender_id":       bson.M{"$ne": excludedSenderID},
	}
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeMessages(ctx, cursor)
}

func (r *MessageRepository) CountUnreadExcludingSender(ctx context.Context, conversationID domainchat.ConversationID, excludedSenderID string) (int64, error) {
	filter := bson.M{
		"conversation_id": string(conversationID),
		"read":            false,
		"sender_id":       bson.M{"$ne": excludedSenderID},
	}
	return r.col.CountDocuments(ctx, filter)
}

func (r *MessageRepository) Delete(ctx context.Context, id domainchat.MessageID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainchat.ErrMessageNotFound
	}
	return nil
}

func decodeMessages(ctx context.Context, cursor *mongo.Cursor) ([]*domainchat.Message, error) {
	out := make([]*domainchat.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type messageDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	SenderName     string `bson:"sender_name"`
	Content        string `bson:"content"`
	SentAt         int64  `bson:"sent_at"`
	Read           bool   `bson:"read"`
	ReadAt         int64  `bson:"read_at"`
}

func newMessageDocument(m *domainchat.Message) messageDocument {
	doc := messageDocument{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		SentAt:         m.SentAt.UnixMilli(),
		Read:           m.Read,
	}
	if !m.ReadAt.IsZero() {
		doc.ReadAt = m.ReadAt.UnixMilli()
	}
	return doc
}

func (d messageDocument) toAggregate() *domainchat.Message {
	m := &domainchat.Message{
		ID:             domainchat.MessageID(d.ID),
		ConversationID: domainchat.ConversationID(d.ConversationID),
		SenderID:       d.SenderID,
		SenderName:     d.SenderName,
		Content:        d.Content,
		SentAt:         timestampToTime(d.SentAt),
		Read:           d.Read,
	}
	if d.ReadAt > 0 {
		m.ReadAt = timestampToTime(d.ReadAt)
	}
	return m
}

var _ domainchat.MessageLog = (*MessageRepository)(nil)
