package models

import (
	"time"

	"carlink/market/internal/utils"
)

// BuyerRequest describes what a buyer is looking for. It is immutable once stored.
type BuyerRequest struct {
	Base      `bson:",inline"`
	BuyerID   utils.SixID `bson:"buyer_id" json:"buyer_id"`
	MinBudget int64       `bson:"min_budget" json:"min_budget"`
	MaxBudget int64       `bson:"max_budget" json:"max_budget"`
	Brand     string      `bson:"brand,omitempty" json:"brand,omitempty"`
	Model     string      `bson:"model,omitempty" json:"model,omitempty"`
	CarType   CarType     `bson:"car_type,omitempty" json:"car_type,omitempty"`
	Location  string      `bson:"location" json:"location"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}

// Match links a buyer request to a listing that passed its hard filter.
type Match struct {
	Base      `bson:",inline"`
	BuyerID   utils.SixID `bson:"buyer_id" json:"buyer_id"`
	ListingID utils.SixID `bson:"listing_id" json:"listing_id"`
	RequestID utils.SixID `bson:"request_id" json:"request_id"`
	Score     float64     `bson:"score" json:"score"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}

// BuyerRequestInput is what a buyer submits to create a request.
type BuyerRequestInput struct {
	MinBudget int64   `json:"min_budget" validate:"gte=0"`
	MaxBudget int64   `json:"max_budget" validate:"gte=0"`
	Brand     string  `json:"brand,omitempty" validate:"max=100"`
	Model     string  `json:"model,omitempty" validate:"max=100"`
	CarType   CarType `json:"car_type,omitempty"`
	Location  string  `json:"location" validate:"required,max=200"`
}
