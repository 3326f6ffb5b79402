package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carlink/market/internal/db"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type Listings struct {
	coll *mongo.Collection
}

func NewListings(database *mongo.Database) *Listings {
	return &Listings{coll: database.Collection(db.ListingsCollection)}
}

func (r *Listings) Insert(ctx context.Context, l *models.Listing) error {
	if l.Images == nil {
		l.Images = []string{}
	}
	if err := insertWithNewID(ctx, r.coll, &l.Base, l); err != nil {
		return fmt.Errorf("failed to insert listing for seller %s: %w", l.SellerID, err)
	}
	return nil
}

func (r *Listings) FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	var l models.Listing
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding listing %s: %w", id, err)
	}
	return &l, nil
}

// IncrementViews bumps the view counter atomically and returns the listing.
func (r *Listings) IncrementViews(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$inc": bson.M{"views": 1}})
}

// Update applies the non-nil fields of upd.
func (r *Listings) Update(ctx context.Context, id utils.SixID, upd models.ListingUpdate) (*models.Listing, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Brand != nil {
		set["brand"] = *upd.Brand
	}
	if upd.Model != nil {
		set["model"] = *upd.Model
	}
	if upd.Year != nil {
		set["year"] = *upd.Year
	}
	if upd.Price != nil {
		set["price"] = *upd.Price
	}
	if upd.Condition != nil {
		set["condition"] = *upd.Condition
	}
	if upd.CarType != nil {
		set["car_type"] = *upd.CarType
	}
	if upd.Mileage != nil {
		set["mileage"] = *upd.Mileage
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

func (r *Listings) SetActive(ctx context.Context, id utils.SixID, active bool) (*models.Listing, error) {
	return r.findOneAndUpdate(ctx, id, bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}})
}

func (r *Listings) AddImage(ctx context.Context, id utils.SixID, key string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"images": key},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("error adding image to listing %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *Listings) Delete(ctx context.Context, id utils.SixID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting listing %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Search returns listings matching f, newest first unless SortByPrice is set.
func (r *Listings) Search(ctx context.Context, f models.ListingFilter) ([]models.Listing, error) {
	opts := options.Find().SetLimit(limitOrDefault(f.Limit)).SetSkip(f.Skip)
	if f.SortByPrice {
		opts.SetSort(bson.D{{Key: "price", Value: 1}, {Key: "_id", Value: 1}})
	} else {
		opts.SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	}
	cur, err := r.coll.Find(ctx, ListingQuery(f), opts)
	if err != nil {
		return nil, fmt.Errorf("error searching listings: %w", err)
	}
	return decodeAll[models.Listing](ctx, cur)
}

// ListingQuery translates a filter into a Mongo query document.
func ListingQuery(f models.ListingFilter) bson.M {
	q := bson.M{}
	if f.SellerID != nil {
		q["seller_id"] = *f.SellerID
	}
	if f.ActiveOnly {
		q["is_active"] = true
	}
	if f.Brand != "" {
		q["brand"] = f.Brand
	}
	if f.Model != "" {
		q["model"] = f.Model
	}
	if f.CarType != "" {
		q["car_type"] = f.CarType
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		q["price"] = price
	}
	if f.Location != "" {
		q["location"] = containsRegex(f.Location)
	}
	if f.Query != "" {
		re := containsRegex(f.Query)
		q["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"brand": re},
			bson.M{"model": re},
		}
	}
	return q
}

func containsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func (r *Listings) findOneAndUpdate(ctx context.Context, id utils.SixID, update bson.M) (*models.Listing, error) {
	var l models.Listing
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&l)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error updating listing %s: %w", id, err)
	}
	return &l, nil
}
