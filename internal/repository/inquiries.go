package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carlink/market/internal/db"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type Inquiries struct {
	coll *mongo.Collection
}

func NewInquiries(database *mongo.Database) *Inquiries {
	return &Inquiries{coll: database.Collection(db.InquiriesCollection)}
}

func (r *Inquiries) Insert(ctx context.Context, inq *models.Inquiry) error {
	if err := insertWithNewID(ctx, r.coll, &inq.Base, inq); err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return nil
}

func (r *Inquiries) FindByID(ctx context.Context, id utils.SixID) (*models.Inquiry, error) {
	var inq models.Inquiry
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&inq); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding inquiry %s: %w", id, err)
	}
	return &inq, nil
}

// SetStatus moves the inquiry to status. RESPONDED also stamps responded_at.
func (r *Inquiries) SetStatus(ctx context.Context, id utils.SixID, status models.InquiryStatus, at time.Time) (*models.Inquiry, error) {
	set := bson.M{"status": status, "updated_at": at}
	if status == models.InquiryResponded {
		set["responded_at"] = at
	}
	var inq models.Inquiry
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&inq)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error updating inquiry %s: %w", id, err)
	}
	return &inq, nil
}

func (r *Inquiries) List(ctx context.Context, f models.InquiryFilter) ([]models.Inquiry, error) {
	q := bson.M{}
	if f.BuyerID != nil {
		q["buyer_id"] = *f.BuyerID
	}
	if f.SellerID != nil {
		q["seller_id"] = *f.SellerID
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	cur, err := r.coll.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limitOrDefault(f.Limit)))
	if err != nil {
		return nil, fmt.Errorf("error listing inquiries: %w", err)
	}
	return decodeAll[models.Inquiry](ctx, cur)
}
