package models

import (
	"time"

	"carlink/market/internal/utils"
)

type InquiryStatus string

const (
	InquiryPending   InquiryStatus = "PENDING"
	InquiryResponded InquiryStatus = "RESPONDED"
	InquiryClosed    InquiryStatus = "CLOSED"
)

// Inquiry is a buyer's first contact with a seller about a listing.
// The message never changes after creation.
type Inquiry struct {
	Base        `bson:",inline"`
	BuyerID     utils.SixID   `bson:"buyer_id" json:"buyer_id"`
	SellerID    utils.SixID   `bson:"seller_id" json:"seller_id"`
	ListingID   utils.SixID   `bson:"listing_id" json:"listing_id"`
	Message     string        `bson:"message" json:"message"`
	Status      InquiryStatus `bson:"status" json:"status"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`
	RespondedAt *time.Time    `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
}

// InquiryResponse is returned when a seller answers an inquiry.
type InquiryResponse struct {
	Inquiry    *Inquiry     `json:"inquiry"`
	Message    *ChatMessage `json:"message"`
	ChatRoomID utils.SixID  `json:"chat_room_id"`
}

// InquiryFilter selects inquiries for one participant.
type InquiryFilter struct {
	BuyerID  *utils.SixID
	SellerID *utils.SixID
	Status   InquiryStatus
	Limit    int64
}
