package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection          = "users"
	ListingsCollection       = "listings"
	BuyerRequestsCollection  = "buyer_requests"
	MatchesCollection        = "matches"
	InquiriesCollection      = "inquiries"
	ChatRoomsCollection      = "chat_rooms"
	ChatMessagesCollection   = "chat_messages"
	FavoritesCollection      = "favorites"
	EmailTemplatesCollection = "email_templates"
)

// Indexes lists every index the application relies on. The unique ones
// back the one-room-per-pair and one-match-per-triple guarantees.
var Indexes = map[string][]mongo.IndexModel{
	UsersCollection: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	ListingsCollection: {
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "brand", Value: 1}, {Key: "price", Value: 1}}},
	},
	BuyerRequestsCollection: {
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}}},
	},
	MatchesCollection: {
		{
			Keys:    bson.D{{Key: "buyer_id", Value: 1}, {Key: "listing_id", Value: 1}, {Key: "request_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("match_triple"),
		},
		{Keys: bson.D{{Key: "request_id", Value: 1}, {Key: "score", Value: -1}}},
	},
	InquiriesCollection: {
		{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "buyer_id", Value: 1}, {Key: "created_at", Value: -1}}},
	},
	ChatRoomsCollection: {
		{Keys: bson.D{{Key: "pair_key", Value: 1}}, Options: options.Index().SetUnique(true).SetName("room_pair")},
		{Keys: bson.D{{Key: "member_ids", Value: 1}, {Key: "updated_at", Value: -1}}},
		{Keys: bson.D{{Key: "external_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	ChatMessagesCollection: {
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "seq", Value: -1}}},
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "sender_id", Value: 1}}},
	},
	FavoritesCollection: {
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "listing_id", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	EmailTemplatesCollection: {
		{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates any missing index. Existing identical indexes are left alone.
func EnsureIndexes(ctx context.Context, database *mongo.Database, log *zap.Logger) error {
	for coll, models := range Indexes {
		names, err := database.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
		log.Debug("indexes ensured", zap.String("collection", coll), zap.Strings("indexes", names))
	}
	return nil
}
