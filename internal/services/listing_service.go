package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"carlink/market/internal/config"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

// IListingService defines listing operations.
type IListingService interface {
	CreateListing(ctx context.Context, sellerID utils.SixID, in models.ListingInput) (*models.Listing, error)
	// GetListing returns a listing and counts the view.
	GetListing(ctx context.Context, id utils.SixID) (*models.Listing, error)
	UpdateListing(ctx context.Context, id, userID utils.SixID, upd models.ListingUpdate) (*models.Listing, error)
	SetListingActive(ctx context.Context, id, userID utils.SixID, active bool) (*models.Listing, error)
	DeleteListing(ctx context.Context, id, userID utils.SixID) error
	SearchListings(ctx context.Context, f models.ListingFilter) ([]models.Listing, error)
	ListSellerListings(ctx context.Context, sellerID utils.SixID, includeInactive bool) ([]models.Listing, error)
	RequestImageUpload(ctx context.Context, id, userID utils.SixID, filename, contentType string) (url string, key string, err error)
	ConfirmImageUpload(ctx context.Context, id, userID utils.SixID, key string) error
	AddImageToListing(ctx context.Context, id utils.SixID, key string) error
}

type listingService struct {
	listings ListingStore
	storage  ImageStorage
	tasks    TaskEnqueuer
	cfg      *config.Config
	log      *zap.Logger
}

func NewListingService(listings ListingStore, storage ImageStorage, tasks TaskEnqueuer, cfg *config.Config, log *zap.Logger) IListingService {
	return &listingService{listings: listings, storage: storage, tasks: tasks, cfg: cfg, log: log}
}

func (s *listingService) CreateListing(ctx context.Context, sellerID utils.SixID, in models.ListingInput) (*models.Listing, error) {
	if err := validateListing(in.Title, in.Brand, in.Model, in.Location, in.Year, in.Price, in.Mileage, in.Condition, in.CarType); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	l := &models.Listing{
		SellerID:    sellerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Brand:       strings.TrimSpace(in.Brand),
		Model:       strings.TrimSpace(in.Model),
		Year:        in.Year,
		Price:       in.Price,
		Condition:   in.Condition,
		CarType:     in.CarType,
		Mileage:     in.Mileage,
		Location:    strings.TrimSpace(in.Location),
		Images:      []string{},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.listings.Insert(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info("listing created", zap.Stringer("listing_id", l.ID), zap.Stringer("seller_id", sellerID))
	return l, nil
}

func validateListing(title, brand, model, location string, year int, price int64, mileage *int, cond models.Condition, carType models.CarType) error {
	switch {
	case strings.TrimSpace(title) == "":
		return invalid("title is required")
	case strings.TrimSpace(brand) == "":
		return invalid("brand is required")
	case strings.TrimSpace(model) == "":
		return invalid("model is required")
	case strings.TrimSpace(location) == "":
		return invalid("location is required")
	case price < 0:
		return invalid("price must not be negative")
	case year < 0:
		return invalid("year must not be negative")
	case mileage != nil && *mileage < 0:
		return invalid("mileage must not be negative")
	case !cond.Valid():
		return invalid("unknown condition %q", cond)
	case !carType.Valid():
		return invalid("unknown car type %q", carType)
	}
	return nil
}

func (s *listingService) GetListing(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	l, err := s.listings.IncrementViews(ctx, id)
	if err != nil {
		return nil, notFound(err, "listing")
	}
	return l, nil
}

// owned loads the listing and checks userID is its seller.
func (s *listingService) owned(ctx context.Context, id, userID utils.SixID) (*models.Listing, error) {
	l, err := s.listings.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "listing")
	}
	if l.SellerID != userID {
		return nil, fmt.Errorf("listing %s: %w", id, ErrForbidden)
	}
	return l, nil
}

func (s *listingService) UpdateListing(ctx context.Context, id, userID utils.SixID, upd models.ListingUpdate) (*models.Listing, error) {
	cur, err := s.owned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	// validate the listing as it will look after the update
	next := *cur
	if upd.Title != nil {
		next.Title = *upd.Title
	}
	if upd.Brand != nil {
		next.Brand = *upd.Brand
	}
	if upd.Model != nil {
		next.Model = *upd.Model
	}
	if upd.Location != nil {
		next.Location = *upd.Location
	}
	if upd.Year != nil {
		next.Year = *upd.Year
	}
	if upd.Price != nil {
		next.Price = *upd.Price
	}
	if upd.Mileage != nil {
		next.Mileage = upd.Mileage
	}
	if upd.Condition != nil {
		next.Condition = *upd.Condition
	}
	if upd.CarType != nil {
		next.CarType = *upd.CarType
	}
	if err := validateListing(next.Title, next.Brand, next.Model, next.Location, next.Year, next.Price, next.Mileage, next.Condition, next.CarType); err != nil {
		return nil, err
	}

	l, err := s.listings.Update(ctx, id, upd)
	if err != nil {
		return nil, notFound(err, "listing")
	}
	return l, nil
}

func (s *listingService) SetListingActive(ctx context.Context, id, userID utils.SixID, active bool) (*models.Listing, error) {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return nil, err
	}
	l, err := s.listings.SetActive(ctx, id, active)
	if err != nil {
		return nil, notFound(err, "listing")
	}
	return l, nil
}

func (s *listingService) DeleteListing(ctx context.Context, id, userID utils.SixID) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		return notFound(err, "listing")
	}
	s.log.Info("listing deleted", zap.Stringer("listing_id", id))
	return nil
}

func (s *listingService) SearchListings(ctx context.Context, f models.ListingFilter) ([]models.Listing, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, invalid("min price exceeds max price")
	}
	if f.CarType != "" && !f.CarType.Valid() {
		return nil, invalid("unknown car type %q", f.CarType)
	}
	f.ActiveOnly = true
	return s.listings.Search(ctx, f)
}

func (s *listingService) ListSellerListings(ctx context.Context, sellerID utils.SixID, includeInactive bool) ([]models.Listing, error) {
	return s.listings.Search(ctx, models.ListingFilter{SellerID: &sellerID, ActiveOnly: !includeInactive, Limit: 200})
}

var allowedImageTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/gif": true}

func (s *listingService) RequestImageUpload(ctx context.Context, id, userID utils.SixID, filename, contentType string) (string, string, error) {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return "", "", err
	}
	if !allowedImageTypes[contentType] {
		return "", "", invalid("unsupported image type %q", contentType)
	}
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if filename == "." || filename == "/" || filename == "" {
		return "", "", invalid("filename is required")
	}
	return s.storage.GeneratePresignedPutURL(ctx, userID.String(), id.String(), filename, contentType)
}

// UploadPrefix is the S3 key prefix issued for a listing's uploads.
func UploadPrefix(userID, listingID utils.SixID) string {
	return fmt.Sprintf("uploads/%s/%s/", userID, listingID)
}

func (s *listingService) ConfirmImageUpload(ctx context.Context, id, userID utils.SixID, key string) error {
	if _, err := s.owned(ctx, id, userID); err != nil {
		return err
	}
	if !strings.HasPrefix(key, UploadPrefix(userID, id)) || strings.Contains(key, "..") {
		return invalid("image key does not belong to this listing")
	}
	if err := s.tasks.EnqueueImageProcess(ctx, id, key); err != nil {
		return fmt.Errorf("failed to enqueue image processing: %w", err)
	}
	return nil
}

func (s *listingService) AddImageToListing(ctx context.Context, id utils.SixID, key string) error {
	if err := s.listings.AddImage(ctx, id, key); err != nil {
		return notFound(err, "listing")
	}
	return nil
}
