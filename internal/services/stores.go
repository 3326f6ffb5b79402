package services

import (
	"context"
	"time"

	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

// The store interfaces below are implemented by package repository.
// Lookups of absent documents return mongo.ErrNoDocuments.

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id utils.SixID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id utils.SixID, name, phone string, prefs *models.NotificationPreferences) (*models.User, error)
	SetDeviceToken(ctx context.Context, id utils.SixID, token string) error
}

type ListingStore interface {
	Insert(ctx context.Context, l *models.Listing) error
	FindByID(ctx context.Context, id utils.SixID) (*models.Listing, error)
	IncrementViews(ctx context.Context, id utils.SixID) (*models.Listing, error)
	Update(ctx context.Context, id utils.SixID, upd models.ListingUpdate) (*models.Listing, error)
	SetActive(ctx context.Context, id utils.SixID, active bool) (*models.Listing, error)
	AddImage(ctx context.Context, id utils.SixID, key string) error
	Delete(ctx context.Context, id utils.SixID) error
	Search(ctx context.Context, f models.ListingFilter) ([]models.Listing, error)
}

type BuyerRequestStore interface {
	Insert(ctx context.Context, br *models.BuyerRequest) error
	FindByID(ctx context.Context, id utils.SixID) (*models.BuyerRequest, error)
	ListByBuyer(ctx context.Context, buyerID utils.SixID) ([]models.BuyerRequest, error)
}

type MatchStore interface {
	Exists(ctx context.Context, buyerID, listingID, requestID utils.SixID) (bool, error)
	// Insert returns a duplicate-key error when the triple already exists.
	Insert(ctx context.Context, m *models.Match) error
	ListByRequest(ctx context.Context, requestID utils.SixID) ([]models.Match, error)
}

type InquiryStore interface {
	Insert(ctx context.Context, inq *models.Inquiry) error
	FindByID(ctx context.Context, id utils.SixID) (*models.Inquiry, error)
	SetStatus(ctx context.Context, id utils.SixID, status models.InquiryStatus, at time.Time) (*models.Inquiry, error)
	List(ctx context.Context, f models.InquiryFilter) ([]models.Inquiry, error)
}

type ChatStore interface {
	FindRoomByPair(ctx context.Context, pairKey string) (*models.ChatRoom, error)
	FindRoomByID(ctx context.Context, id utils.SixID) (*models.ChatRoom, error)
	// InsertRoom returns a duplicate-key error when the pair already has a room.
	InsertRoom(ctx context.Context, room *models.ChatRoom) error
	// NextMessageSeq bumps the room counter and updated_at, returning the new count.
	NextMessageSeq(ctx context.Context, id utils.SixID, at time.Time) (int64, error)
	ListRoomsForUser(ctx context.Context, userID utils.SixID, limit int64) ([]models.ChatRoom, error)
	InsertMessage(ctx context.Context, m *models.ChatMessage) error
	FindMessageByID(ctx context.Context, id utils.SixID) (*models.ChatMessage, error)
	MarkMessageRead(ctx context.Context, id utils.SixID) (*models.ChatMessage, error)
	MarkRoomRead(ctx context.Context, roomID, readerID utils.SixID) (int64, error)
	ListMessages(ctx context.Context, roomID utils.SixID, before *time.Time, limit int64) ([]models.ChatMessage, error)
	CountUnread(ctx context.Context, roomID, readerID utils.SixID) (int64, error)
}

type FavoriteStore interface {
	Add(ctx context.Context, userID, listingID utils.SixID) error
	Remove(ctx context.Context, userID, listingID utils.SixID) error
	ListByUser(ctx context.Context, userID utils.SixID) ([]models.Favorite, error)
}

type EmailTemplateStore interface {
	Find(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	Save(ctx context.Context, t *models.EmailTemplate) error
}

// ImageStorage issues upload URLs for listing photos.
type ImageStorage interface {
	GeneratePresignedPutURL(ctx context.Context, userID, listingID, filename, contentType string) (url string, key string, err error)
}

// TaskEnqueuer schedules background work.
type TaskEnqueuer interface {
	EnqueueImageProcess(ctx context.Context, listingID utils.SixID, key string) error
	EnqueueMatchGeneration(ctx context.Context, requestID utils.SixID) error
}
