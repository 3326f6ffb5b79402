package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carlink/market/internal/db"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type BuyerRequests struct {
	coll *mongo.Collection
}

func NewBuyerRequests(database *mongo.Database) *BuyerRequests {
	return &BuyerRequests{coll: database.Collection(db.BuyerRequestsCollection)}
}

func (r *BuyerRequests) Insert(ctx context.Context, br *models.BuyerRequest) error {
	if err := insertWithNewID(ctx, r.coll, &br.Base, br); err != nil {
		return fmt.Errorf("failed to insert buyer request: %w", err)
	}
	return nil
}

func (r *BuyerRequests) FindByID(ctx context.Context, id utils.SixID) (*models.BuyerRequest, error) {
	var br models.BuyerRequest
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&br); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding buyer request %s: %w", id, err)
	}
	return &br, nil
}

func (r *BuyerRequests) ListByBuyer(ctx context.Context, buyerID utils.SixID) ([]models.BuyerRequest, error) {
	cur, err := r.coll.Find(ctx, bson.M{"buyer_id": buyerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing buyer requests: %w", err)
	}
	return decodeAll[models.BuyerRequest](ctx, cur)
}

type Matches struct {
	coll *mongo.Collection
}

func NewMatches(database *mongo.Database) *Matches {
	return &Matches{coll: database.Collection(db.MatchesCollection)}
}

func (r *Matches) Exists(ctx context.Context, buyerID, listingID, requestID utils.SixID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"buyer_id":   buyerID,
		"listing_id": listingID,
		"request_id": requestID,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking match: %w", err)
	}
	return n > 0, nil
}

// Insert fails with a duplicate-key error when the (buyer, listing, request)
// triple already has a match.
func (r *Matches) Insert(ctx context.Context, m *models.Match) error {
	return insertWithNewID(ctx, r.coll, &m.Base, m)
}

// ListByRequest returns the request's matches, best first.
func (r *Matches) ListByRequest(ctx context.Context, requestID utils.SixID) ([]models.Match, error) {
	cur, err := r.coll.Find(ctx, bson.M{"request_id": requestID},
		options.Find().SetSort(bson.D{{Key: "score", Value: -1}, {Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing matches: %w", err)
	}
	return decodeAll[models.Match](ctx, cur)
}
