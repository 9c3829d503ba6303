package repository

import (
	"context"
	"time"

	"marketplace-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxConversations = 100

type MongoMessageRepository struct {
	messages      *mongo.Collection
	conversations *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{
		messages:      db.Collection(models.MessagesCollection),
		conversations: db.Collection(models.ConversationsCollection),
	}
}

func (r *MongoMessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := r.messages.InsertOne(ctx, msg)
	return wrap("insert message", err)
}

// FindByConversation returns up to limit messages older than before, oldest
// first.
func (r *MongoMessageRepository) FindByConversation(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error) {
	_, limit = models.NormalizePage(1, limit)
	filter := bson.M{"conversationId": conversationID}
	if before != nil {
		filter["createdAt"] = bson.M{"$lt": *before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrap("find messages", err)
	}
	defer cursor.Close(ctx)

	msgs := []models.Message{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, wrap("decode messages", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MarkRead flags every unread message addressed to readerID in the
// conversation as read.
func (r *MongoMessageRepository) MarkRead(ctx context.Context, conversationID string, readerID primitive.ObjectID) (int64, error) {
	res, err := r.messages.UpdateMany(ctx,
		bson.M{"conversationId": conversationID, "recipientId": readerID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, wrap("mark messages read", err)
	}
	return res.ModifiedCount, nil
}

// TouchConversation upserts the conversation summary for msg and bumps the
// recipient's unread counter.
func (r *MongoMessageRepository) TouchConversation(ctx context.Context, msg *models.Message) error {
	set := bson.M{
		"lastMessage":   msg.Text,
		"lastSenderId":  msg.SenderID,
		"lastMessageAt": msg.CreatedAt,
	}
	if msg.ListingID != nil {
		set["listingId"] = *msg.ListingID
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"participants": []primitive.ObjectID{msg.SenderID, msg.RecipientID}},
		"$inc":         bson.M{"unread." + msg.RecipientID.Hex(): 1},
	}
	_, err := r.conversations.UpdateOne(ctx, bson.M{"_id": msg.ConversationID}, update, options.Update().SetUpsert(true))
	return wrap("upsert conversation", err)
}

func (r *MongoMessageRepository) ResetUnread(ctx context.Context, conversationID string, userID primitive.ObjectID) error {
	_, err := r.conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread." + userID.Hex(): 0}},
	)
	return wrap("reset unread", err)
}

func (r *MongoMessageRepository) Conversations(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "lastMessageAt", Value: -1}}).
		SetLimit(maxConversations)
	cursor, err := r.conversations.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, wrap("find conversations", err)
	}
	defer cursor.Close(ctx)

	convs := []models.Conversation{}
	if err := cursor.All(ctx, &convs); err != nil {
		return nil, wrap("decode conversations", err)
	}
	return convs, nil
}

func (r *MongoMessageRepository) Count(ctx context.Context, filter map[string]interface{}) (int64, error) {
	n, err := r.messages.CountDocuments(ctx, bson.M(filter))
	return n, wrap("count messages", err)
}

func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipientId", Value: 1}, {Key: "read", Value: 1}}},
	}); err != nil {
		return wrap("create message indexes", err)
	}
	_, err := r.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageAt", Value: -1}},
	})
	return wrap("create conversation indexes", err)
}
