package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carlink/market/internal/db"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type Users struct {
	coll *mongo.Collection
}

func NewUsers(database *mongo.Database) *Users {
	return &Users{coll: database.Collection(db.UsersCollection)}
}

// Insert stores a new user with a fresh id. Email is stored lower-cased.
func (r *Users) Insert(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := insertWithNewID(ctx, r.coll, &u.Base, u); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *Users) FindByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	var u models.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user %s: %w", id, err)
	}
	return &u, nil
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email: %w", err)
	}
	return &u, nil
}

// UpdateProfile sets name, phone and preferences and returns the updated user.
func (r *Users) UpdateProfile(ctx context.Context, id utils.SixID, name, phone string, prefs *models.NotificationPreferences) (*models.User, error) {
	set := bson.M{"name": name, "phone": phone, "updated_at": time.Now().UTC()}
	if prefs != nil {
		set["notification_preferences"] = prefs
	}
	var u models.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error updating user %s: %w", id, err)
	}
	return &u, nil
}

func (r *Users) SetDeviceToken(ctx context.Context, id utils.SixID, token string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"device_token": token, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("error setting device token: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeviceToken returns the user's push token, or "" for unknown users.
func (r *Users) DeviceToken(ctx context.Context, id utils.SixID) (string, error) {
	var doc struct {
		DeviceToken string `bson:"device_token"`
	}
	err := r.coll.FindOne(ctx, bson.M{"_id": id},
		options.FindOne().SetProjection(bson.M{"device_token": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading device token: %w", err)
	}
	return doc.DeviceToken, nil
}
