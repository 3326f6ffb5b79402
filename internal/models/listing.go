package models

import (
	"time"

	"carlink/market/internal/utils"
)

type Condition string

const (
	ConditionNew       Condition = "NEW"
	ConditionExcellent Condition = "EXCELLENT"
	ConditionGood      Condition = "GOOD"
	ConditionFair      Condition = "FAIR"
	ConditionPoor      Condition = "POOR"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

type CarType string

const (
	CarTypeSedan       CarType = "SEDAN"
	CarTypeSUV         CarType = "SUV"
	CarTypeHatchback   CarType = "HATCHBACK"
	CarTypeCoupe       CarType = "COUPE"
	CarTypeConvertible CarType = "CONVERTIBLE"
	CarTypeTruck       CarType = "TRUCK"
	CarTypeVan         CarType = "VAN"
	CarTypeWagon       CarType = "WAGON"
)

func (c CarType) Valid() bool {
	switch c {
	case CarTypeSedan, CarTypeSUV, CarTypeHatchback, CarTypeCoupe,
		CarTypeConvertible, CarTypeTruck, CarTypeVan, CarTypeWagon:
		return true
	}
	return false
}

// Listing is a car offered for sale. Price is in whole currency units.
type Listing struct {
	Base        `bson:",inline"`
	SellerID    utils.SixID `bson:"seller_id" json:"seller_id"`
	Title       string      `bson:"title" json:"title"`
	Description string      `bson:"description" json:"description"`
	Brand       string      `bson:"brand" json:"brand"`
	Model       string      `bson:"model" json:"model"`
	Year        int         `bson:"year" json:"year"`
	Price       int64       `bson:"price" json:"price"`
	Condition   Condition   `bson:"condition" json:"condition"`
	CarType     CarType     `bson:"car_type" json:"car_type"`
	Mileage     *int        `bson:"mileage,omitempty" json:"mileage,omitempty"`
	Location    string      `bson:"location" json:"location"`
	Images      []string    `bson:"images" json:"images"` // S3 keys, display order
	IsActive    bool        `bson:"is_active" json:"is_active"`
	Views       int64       `bson:"views" json:"views"`
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `bson:"updated_at" json:"updated_at"`
}

// ListingUpdate holds the seller-editable fields; nil means unchanged.
type ListingUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Brand       *string    `json:"brand,omitempty"`
	Model       *string    `json:"model,omitempty"`
	Year        *int       `json:"year,omitempty"`
	Price       *int64     `json:"price,omitempty"`
	Condition   *Condition `json:"condition,omitempty"`
	CarType     *CarType   `json:"car_type,omitempty"`
	Mileage     *int       `json:"mileage,omitempty"`
	Location    *string    `json:"location,omitempty"`
}

// MaxPageSize caps how many documents a single store query returns.
const MaxPageSize int64 = 200

// ListingFilter narrows a listing search. Zero values are ignored.
type ListingFilter struct {
	SellerID    *utils.SixID
	ActiveOnly  bool
	Brand       string
	Model       string
	CarType     CarType
	MinPrice    *int64
	MaxPrice    *int64
	Location    string
	Query       string
	Limit       int64
	Skip        int64
	SortByPrice bool
}

// ListingInput is what a seller submits to create a listing.
type ListingInput struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=10000"`
	Brand       string    `json:"brand" validate:"required,max=100"`
	Model       string    `json:"model" validate:"required,max=100"`
	Year        int       `json:"year" validate:"gte=0"`
	Price       int64     `json:"price" validate:"gte=0"`
	Condition   Condition `json:"condition" validate:"required"`
	CarType     CarType   `json:"car_type" validate:"required"`
	Mileage     *int      `json:"mileage,omitempty" validate:"omitempty,gte=0"`
	Location    string    `json:"location" validate:"required,max=200"`
}
