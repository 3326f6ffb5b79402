package models

import (
	"time"

	"carlink/market/internal/utils"
)

// ChatRoom is a private conversation between exactly two users.
// PairKey is unique, so a pair never has more than one room.
type ChatRoom struct {
	Base       `bson:",inline"`
	ExternalID string        `bson:"external_id" json:"external_id"`
	MemberIDs  []utils.SixID `bson:"member_ids" json:"member_ids"`
	PairKey    string        `bson:"pair_key" json:"-"`
	MessageSeq int64         `bson:"message_seq" json:"-"`
	CreatedAt  time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at" json:"updated_at"`
}

func (r *ChatRoom) HasMember(userID utils.SixID) bool {
	for _, m := range r.MemberIDs {
		if m == userID {
			return true
		}
	}
	return false
}

// OtherMember returns the member that is not userID.
func (r *ChatRoom) OtherMember(userID utils.SixID) utils.SixID {
	for _, m := range r.MemberIDs {
		if m != userID {
			return m
		}
	}
	return utils.SixID{}
}

// ChatPairKey is the order-independent key of a two-member room.
func ChatPairKey(a, b utils.SixID) string {
	if b.Less(a) {
		a, b = b, a
	}
	return a.String() + "|" + b.String()
}

// ChatMembers returns the pair in canonical order.
func ChatMembers(a, b utils.SixID) []utils.SixID {
	if b.Less(a) {
		a, b = b, a
	}
	return []utils.SixID{a, b}
}

// ChatMessage belongs to one room. Seq orders messages within the room;
// timestamps can tie.
type ChatMessage struct {
	Base      `bson:",inline"`
	RoomID    utils.SixID  `bson:"room_id" json:"room_id"`
	Seq       int64        `bson:"seq" json:"seq"`
	SenderID  utils.SixID  `bson:"sender_id" json:"sender_id"`
	Content   string       `bson:"content" json:"content"`
	ListingID *utils.SixID `bson:"listing_id,omitempty" json:"listing_id,omitempty"`
	IsRead    bool         `bson:"is_read" json:"is_read"`
	CreatedAt time.Time    `bson:"created_at" json:"created_at"`
}

// ChatRoomSummary is a room as shown in a user's inbox.
type ChatRoomSummary struct {
	Room        *ChatRoom    `json:"room"`
	OtherUserID utils.SixID  `json:"other_user_id"`
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int64        `json:"unread_count"`
}
