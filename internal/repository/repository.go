// Package repository holds the MongoDB access code. Lookups of absent
// documents return mongo.ErrNoDocuments; unique-index violations surface as
// driver errors recognised by db.IsMongoDuplicateKeyError.
package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"carlink/market/internal/db"
	"carlink/market/internal/models"
)

const defaultLimit int64 = 50

// insertWithNewID inserts doc, regenerating its id on primary-key collisions.
func insertWithNewID(ctx context.Context, coll *mongo.Collection, base *models.Base, doc interface{}) error {
	return db.WithRetries(func() error {
		base.GenID()
		_, err := coll.InsertOne(ctx, doc)
		return err
	}, db.DefaultMaxRetries, db.IsIDCollision)
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]T, error) {
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}
	return out, nil
}

func limitOrDefault(n int64) int64 {
	if n <= 0 || n > models.MaxPageSize {
		return defaultLimit
	}
	return n
}
