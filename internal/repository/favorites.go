package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carlink/market/internal/db"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type Favorites struct {
	coll *mongo.Collection
}

func NewFavorites(database *mongo.Database) *Favorites {
	return &Favorites{coll: database.Collection(db.FavoritesCollection)}
}

// Add is idempotent: favoriting twice keeps the original timestamp.
func (r *Favorites) Add(ctx context.Context, userID, listingID utils.SixID) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID, "listing_id": listingID},
		bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil && !db.IsMongoDuplicateKeyError(err) {
		return fmt.Errorf("error adding favorite: %w", err)
	}
	return nil
}

func (r *Favorites) Remove(ctx context.Context, userID, listingID utils.SixID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID, "listing_id": listingID})
	if err != nil {
		return fmt.Errorf("error removing favorite: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *Favorites) ListByUser(ctx context.Context, userID utils.SixID) ([]models.Favorite, error) {
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("error listing favorites: %w", err)
	}
	return decodeAll[models.Favorite](ctx, cur)
}
