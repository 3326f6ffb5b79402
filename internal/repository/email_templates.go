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
)

type EmailTemplates struct {
	coll *mongo.Collection
}

func NewEmailTemplates(database *mongo.Database) *EmailTemplates {
	return &EmailTemplates{coll: database.Collection(db.EmailTemplatesCollection)}
}

func (r *EmailTemplates) Find(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := r.coll.FindOne(ctx, bson.M{"template_id": templateID, "locale": locale}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	return &t, nil
}

// Save upserts by (template_id, locale).
func (r *EmailTemplates) Save(ctx context.Context, t *models.EmailTemplate) error {
	t.GenIDIfEmpty()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"template_id": t.TemplateID, "locale": t.Locale},
		bson.M{
			"$set":         bson.M{"subject": t.Subject, "body": t.Body},
			"$setOnInsert": bson.M{"_id": t.ID},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}
