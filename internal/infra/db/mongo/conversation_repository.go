package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "hostal/internal/domain/chat"
)

type ConversationRepository struct {
	col *mongo.Collection
}

// NewConversationRepository sets up the collection and the partial unique
// index on (pair_key, listing_id) restricted to active documents. The index
// is what makes concurrent creates for the same pair collapse into one row.
func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	col := db.Collection("chat_conversations")
	uniqueActive := mongo.IndexModel{
		Keys: bson.D{{Key: "pair_key", Value: 1}, {Key: "listing_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"active": true}),
	}
	byParticipant := mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_message_at", Value: -1}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{uniqueActive, byParticipant})
	return &ConversationRepository{col: col}
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) ActiveBetween(ctx context.Context, participant1, participant2, listingID string) (*domainchat.Conversation, error) {
	filter := bson.M{
		"pair_key":   domainchat.PairKey(participant1, participant2),
		"listing_id": listingID,
		"active":     true,
	}
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domainchat.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) Create(ctx context.Context, conversation *domainchat.Conversation) error {
	doc := newConversationDocument(conversation)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainchat.ErrDuplicateConversation
		}
		return err
	}
	return nil
}

// TouchActivity refreshes the cache only when the incoming timestamp is not
// older than the stored one, so a slow commit cannot clobber a fresher write.
func (r *ConversationRepository) TouchActivity(ctx context.Context, id domainchat.ConversationID, preview string, at time.Time) error {
	ms := at.UTC().UnixMilli()
	filter := bson.M{"_id": string(id), "last_message_at": bson.M{"$lte": ms}}
	update := bson.M{"$set": bson.M{"last_message_preview": preview, "last_message_at": ms}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the row is missing or a fresher write already landed.
		count, err := r.col.CountDocuments(ctx, bson.M{"_id": string(id)})
		if err != nil {
			return err
		}
		if count == 0 {
			return domainchat.ErrConversationNotFound
		}
	}
	return nil
}

func (r *ConversationRepository) Deactivate(ctx context.Context, id domainchat.ConversationID) error {
	res, err := r.col.UpdateByID(ctx, string(id), bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainchat.ErrConversationNotFound
	}
	return nil
}

// ListForParticipant sorts by last activity descending with never-touched
// conversations last. Unset caches are stored as 0, so the sort key splits on
// a has_activity flag first.
func (r *ConversationRepository) ListForParticipant(ctx context.Context, participantID string, page domainchat.Page) ([]*domainchat.Conversation, error) {
	norm := page.Normalized()
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"participants": participantID, "active": true}}},
		{{Key: "$addFields", Value: bson.M{"has_activity": bson.M{"$gt": bson.A{"$last_message_at", 0}}}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "has_activity", Value: -1},
			{Key: "last_message_at", Value: -1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$skip", Value: norm.Offset()}},
		{{Key: "$limit", Value: norm.Size}},
	}
	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeConversations(ctx, cursor)
}

func (r *ConversationRepository) ListActive(ctx context.Context, page domainchat.Page) ([]*domainchat.Conversation, error) {
	norm := page.Normalized()
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(norm.Offset())).
		SetLimit(int64(norm.Size))
	cursor, err := r.col.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	return decodeConversations(ctx, cursor)
}

func decodeConversations(ctx context.Context, cursor *mongo.Cursor) ([]*domainchat.Conversation, error) {
	out := make([]*domainchat.Conversation, 0)
	for cursor.Next(ctx) {
		var doc conversationDocument
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

type conversationDocument struct {
	ID                 string   `bson:"_id"`
	PairKey            string   `bson:"pair_key"`
	Participants       []string `bson:"participants"`
	Participant1       string   `bson:"participant1"`
	Participant2       string   `bson:"participant2"`
	ListingID          string   `bson:"listing_id"`
	Participant1Name   string   `bson:"participant1_name"`
	Participant2Name   string   `bson:"participant2_name"`
	CreatedAt          int64    `bson:"created_at"`
	Active             bool     `bson:"active"`
	LastMessagePreview string   `bson:"last_message_preview"`
	LastMessageAt      int64    `bson:"last_message_at"`
}

func newConversationDocument(c *domainchat.Conversation) conversationDocument {
	doc := conversationDocument{
		ID:                 string(c.ID),
		PairKey:            domainchat.PairKey(c.Participant1, c.Participant2),
		Participants:       []string{c.Participant1, c.Participant2},
		Participant1:       c.Participant1,
		Participant2:       c.Participant2,
		ListingID:          c.ListingID,
		Participant1Name:   c.Participant1Name,
		Participant2Name:   c.Participant2Name,
		CreatedAt:          c.CreatedAt.UnixMilli(),
		Active:             c.Active,
		LastMessagePreview: c.LastMessagePreview,
	}
	if !c.LastMessageAt.IsZero() {
		doc.LastMessageAt = c.LastMessageAt.UnixMilli()
	}
	return doc
}

func (d conversationDocument) toAggregate() *domainchat.Conversation {
	c := &domainchat.Conversation{
		ID:                 domainchat.ConversationID(d.ID),
		Participant1:       d.Participant1,
		Participant2:       d.Participant2,
		ListingID:          d.ListingID,
		Participant1Name:   d.Participant1Name,
		Participant2Name:   d.Participant2Name,
		CreatedAt:          timestampToTime(d.CreatedAt),
		Active:             d.Active,
		LastMessagePreview: d.LastMessagePreview,
	}
	if d.LastMessageAt > 0 {
		c.LastMessageAt = timestampToTime(d.LastMessageAt)
	}
	return c
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainchat.ConversationRepository = (*ConversationRepository)(nil)
