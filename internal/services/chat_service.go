package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teris-io/shortid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"carlink/market/internal/db"
	"carlink/market/internal/events"
	"carlink/market/internal/logger"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

// MaxMessageLength bounds chat and inquiry message bodies.
const MaxMessageLength = 5000

// IChatService defines chat operations.
type IChatService interface {
	StartChat(ctx context.Context, userID, otherID utils.SixID) (*models.ChatRoom, error)
	SendChatMessage(ctx context.Context, roomID, senderID utils.SixID, content string, listingID *utils.SixID) (*models.ChatMessage, error)
	// MarkMessageRead returns the sender's own message unchanged.
	MarkMessageRead(ctx context.Context, messageID, readerID utils.SixID) (*models.ChatMessage, error)
	MarkRoomRead(ctx context.Context, roomID, readerID utils.SixID) (int64, error)
	GetRoom(ctx context.Context, roomID, userID utils.SixID) (*models.ChatRoom, error)
	ListRooms(ctx context.Context, userID utils.SixID) ([]models.ChatRoomSummary, error)
	ListMessages(ctx context.Context, roomID, userID utils.SixID, before *time.Time, limit int64) ([]models.ChatMessage, error)
}

type chatService struct {
	chats    ChatStore
	users    UserStore
	listings ListingStore
	tx       db.Transactor
	emitter  events.Emitter
	log      *zap.Logger
}

func NewChatService(chats ChatStore, users UserStore, listings ListingStore, tx db.Transactor, emitter events.Emitter, log *zap.Logger) IChatService {
	return &chatService{chats: chats, users: users, listings: listings, tx: tx, emitter: emitter, log: log}
}

// resolveRoom returns the room between a and b, creating it when the pair
// has none. A concurrent creator wins through the unique pair key; the loser
// reads the winner's room back.
func resolveRoom(ctx context.Context, chats ChatStore, a, b utils.SixID, now time.Time) (*models.ChatRoom, error) {
	key := models.ChatPairKey(a, b)
	room, err := chats.FindRoomByPair(ctx, key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	extID, err := shortid.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate room id: %w", err)
	}
	room = &models.ChatRoom{
		ExternalID: extID,
		MemberIDs:  models.ChatMembers(a, b),
		PairKey:    key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	insErr := chats.InsertRoom(ctx, room)
	if insErr == nil {
		return room, nil
	}
	if !db.IsMongoDuplicateKeyError(insErr) {
		return nil, fmt.Errorf("failed to create room: %w", insErr)
	}
	// Inside an aborted transaction this read fails too; the duplicate error
	// then surfaces so the caller can rerun the whole transaction.
	if existing, err := chats.FindRoomByPair(ctx, key); err == nil {
		return existing, nil
	}
	return nil, fmt.Errorf("room for %s: %w", key, insErr)
}

// appendMessage stamps msg with the room's next sequence number and stores it.
func appendMessage(ctx context.Context, chats ChatStore, msg *models.ChatMessage) error {
	seq, err := chats.NextMessageSeq(ctx, msg.RoomID, msg.CreatedAt)
	if err != nil {
		return err
	}
	msg.Seq = seq
	return chats.InsertMessage(ctx, msg)
}

// retryOnRoomRace reruns op once when it lost a room-creation race.
func retryOnRoomRace(op db.Operation) error {
	return db.WithRetries(op, 1, db.IsMongoDuplicateKeyError)
}

// emit delivers e after the write committed. Failures are logged only.
func emit(ctx context.Context, emitter events.Emitter, log *zap.Logger, e events.Event) {
	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, e); err != nil {
		log.Warn("failed to emit event",
			zap.String("type", string(e.Type)),
			zap.Stringer("recipient", e.RecipientID),
			zap.Error(err))
	}
}

func checkMessage(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", invalid("message is required")
	}
	if len(content) > MaxMessageLength {
		return "", invalid("message exceeds %d characters", MaxMessageLength)
	}
	return content, nil
}

func (s *chatService) StartChat(ctx context.Context, userID, otherID utils.SixID) (*models.ChatRoom, error) {
	if userID == otherID {
		return nil, invalid("cannot start a chat with yourself")
	}
	if _, err := s.users.FindByID(ctx, otherID); err != nil {
		return nil, notFound(err, "user")
	}

	var room *models.ChatRoom
	err := retryOnRoomRace(func() error {
		return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			var err error
			room, err = resolveRoom(ctx, s.chats, userID, otherID, time.Now().UTC())
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// memberRoom loads the room and checks userID belongs to it.
func (s *chatService) memberRoom(ctx context.Context, roomID, userID utils.SixID) (*models.ChatRoom, error) {
	room, err := s.chats.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, notFound(err, "chat room")
	}
	if !room.HasMember(userID) {
		return nil, fmt.Errorf("chat room %s: %w", roomID, ErrForbidden)
	}
	return room, nil
}

func (s *chatService) SendChatMessage(ctx context.Context, roomID, senderID utils.SixID, content string, listingID *utils.SixID) (*models.ChatMessage, error) {
	room, err := s.memberRoom(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}
	content, err = checkMessage(content)
	if err != nil {
		return nil, err
	}
	if listingID != nil {
		if _, err := s.listings.FindByID(ctx, *listingID); err != nil {
			return nil, notFound(err, "listing")
		}
	}

	now := time.Now().UTC()
	msg := &models.ChatMessage{
		RoomID:    room.ID,
		SenderID:  senderID,
		Content:   content,
		ListingID: listingID,
		CreatedAt: now,
	}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		return appendMessage(ctx, s.chats, msg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	emit(ctx, s.emitter, s.log, events.Event{
		Type:        events.MessageSent,
		RecipientID: room.OtherMember(senderID),
		ActorID:     senderID,
		RoomID:      &room.ID,
		ListingID:   listingID,
		Preview:     logger.Truncate(content, 120),
		CreatedAt:   now,
	})
	return msg, nil
}

func (s *chatService) MarkMessageRead(ctx context.Context, messageID, readerID utils.SixID) (*models.ChatMessage, error) {
	msg, err := s.chats.FindMessageByID(ctx, messageID)
	if err != nil {
		return nil, notFound(err, "message")
	}
	if _, err := s.memberRoom(ctx, msg.RoomID, readerID); err != nil {
		return nil, err
	}
	if msg.SenderID == readerID || msg.IsRead {
		return msg, nil
	}
	updated, err := s.chats.MarkMessageRead(ctx, messageID)
	if err != nil {
		return nil, notFound(err, "message")
	}
	return updated, nil
}

func (s *chatService) MarkRoomRead(ctx context.Context, roomID, readerID utils.SixID) (int64, error) {
	if _, err := s.memberRoom(ctx, roomID, readerID); err != nil {
		return 0, err
	}
	return s.chats.MarkRoomRead(ctx, roomID, readerID)
}

func (s *chatService) GetRoom(ctx context.Context, roomID, userID utils.SixID) (*models.ChatRoom, error) {
	return s.memberRoom(ctx, roomID, userID)
}

func (s *chatService) ListRooms(ctx context.Context, userID utils.SixID) ([]models.ChatRoomSummary, error) {
	rooms, err := s.chats.ListRoomsForUser(ctx, userID, 100)
	if err != nil {
		return nil, err
	}
	out := make([]models.ChatRoomSummary, 0, len(rooms))
	for i := range rooms {
		room := &rooms[i]
		sum := models.ChatRoomSummary{Room: room, OtherUserID: room.OtherMember(userID)}
		last, err := s.chats.ListMessages(ctx, room.ID, nil, 1)
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			sum.LastMessage = &last[0]
		}
		if sum.UnreadCount, err = s.chats.CountUnread(ctx, room.ID, userID); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *chatService) ListMessages(ctx context.Context, roomID, userID utils.SixID, before *time.Time, limit int64) ([]models.ChatMessage, error) {
	if _, err := s.memberRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, roomID, before, limit)
}
