package models

import (
	"time"

	"carlink/market/internal/utils"
)

// Favorite is a listing bookmarked by a user.
type Favorite struct {
	UserID    utils.SixID `bson:"user_id" json:"user_id"`
	ListingID utils.SixID `bson:"listing_id" json:"listing_id"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}
