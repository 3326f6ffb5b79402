package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carlink/market/internal/db"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type Chats struct {
	rooms    *mongo.Collection
	messages *mongo.Collection
}

func NewChats(database *mongo.Database) *Chats {
	return &Chats{
		rooms:    database.Collection(db.ChatRoomsCollection),
		messages: database.Collection(db.ChatMessagesCollection),
	}
}

func (r *Chats) FindRoomByPair(ctx context.Context, pairKey string) (*models.ChatRoom, error) {
	return r.findRoom(ctx, bson.M{"pair_key": pairKey})
}

func (r *Chats) FindRoomByID(ctx context.Context, id utils.SixID) (*models.ChatRoom, error) {
	return r.findRoom(ctx, bson.M{"_id": id})
}

// InsertRoom fails with a duplicate-key error when the pair already has a room.
func (r *Chats) InsertRoom(ctx context.Context, room *models.ChatRoom) error {
	return insertWithNewID(ctx, r.rooms, &room.Base, room)
}

// NextMessageSeq bumps the room's message counter and activity time and
// returns the new counter value.
func (r *Chats) NextMessageSeq(ctx context.Context, id utils.SixID, at time.Time) (int64, error) {
	var room models.ChatRoom
	err := r.rooms.FindOneAndUpdate(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{"message_seq": 1}, "$set": bson.M{"updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, mongo.ErrNoDocuments
		}
		return 0, fmt.Errorf("error touching room %s: %w", id, err)
	}
	return room.MessageSeq, nil
}

// ListRoomsForUser returns the user's rooms, most recently active first.
func (r *Chats) ListRoomsForUser(ctx context.Context, userID utils.SixID, limit int64) ([]models.ChatRoom, error) {
	cur, err := r.rooms.Find(ctx, bson.M{"member_ids": userID}, options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(limitOrDefault(limit)))
	if err != nil {
		return nil, fmt.Errorf("error listing rooms: %w", err)
	}
	return decodeAll[models.ChatRoom](ctx, cur)
}

func (r *Chats) InsertMessage(ctx context.Context, m *models.ChatMessage) error {
	if err := insertWithNewID(ctx, r.messages, &m.Base, m); err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

func (r *Chats) FindMessageByID(ctx context.Context, id utils.SixID) (*models.ChatMessage, error) {
	var m models.ChatMessage
	if err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding message %s: %w", id, err)
	}
	return &m, nil
}

func (r *Chats) MarkMessageRead(ctx context.Context, id utils.SixID) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.messages.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error marking message %s read: %w", id, err)
	}
	return &m, nil
}

// MarkRoomRead flags every message in the room not sent by readerID as read.
func (r *Chats) MarkRoomRead(ctx context.Context, roomID, readerID utils.SixID) (int64, error) {
	res, err := r.messages.UpdateMany(ctx,
		bson.M{"room_id": roomID, "sender_id": bson.M{"$ne": readerID}, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		return 0, fmt.Errorf("error marking room %s read: %w", roomID, err)
	}
	return res.ModifiedCount, nil
}

// ListMessages returns up to limit messages older than before (all when nil),
// newest first by room sequence.
func (r *Chats) ListMessages(ctx context.Context, roomID utils.SixID, before *time.Time, limit int64) ([]models.ChatMessage, error) {
	q := bson.M{"room_id": roomID}
	if before != nil {
		q["created_at"] = bson.M{"$lt": *before}
	}
	cur, err := r.messages.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "seq", Value: -1}}).
		SetLimit(limitOrDefault(limit)))
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return decodeAll[models.ChatMessage](ctx, cur)
}

func (r *Chats) CountUnread(ctx context.Context, roomID, readerID utils.SixID) (int64, error) {
	n, err := r.messages.CountDocuments(ctx, bson.M{
		"room_id":   roomID,
		"sender_id": bson.M{"$ne": readerID},
		"is_read":   false,
	})
	if err != nil {
		return 0, fmt.Errorf("error counting unread: %w", err)
	}
	return n, nil
}

func (r *Chats) findRoom(ctx context.Context, filter bson.M) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := r.rooms.FindOne(ctx, filter).Decode(&room); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding room: %w", err)
	}
	return &room, nil
}
