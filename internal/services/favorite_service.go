package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type IFavoriteService interface {
	AddFavorite(ctx context.Context, userID, listingID utils.SixID) error
	RemoveFavorite(ctx context.Context, userID, listingID utils.SixID) error
	// ListFavorites returns the favorited listings that still exist, newest favorite first.
	ListFavorites(ctx context.Context, userID utils.SixID) ([]models.Listing, error)
}

type favoriteService struct {
	favorites FavoriteStore
	listings  ListingStore
}

func NewFavoriteService(favorites FavoriteStore, listings ListingStore) IFavoriteService {
	return &favoriteService{favorites: favorites, listings: listings}
}

func (s *favoriteService) AddFavorite(ctx context.Context, userID, listingID utils.SixID) error {
	if _, err := s.listings.FindByID(ctx, listingID); err != nil {
		return notFound(err, "listing")
	}
	return s.favorites.Add(ctx, userID, listingID)
}

func (s *favoriteService) RemoveFavorite(ctx context.Context, userID, listingID utils.SixID) error {
	return s.favorites.Remove(ctx, userID, listingID)
}

func (s *favoriteService) ListFavorites(ctx context.Context, userID utils.SixID) ([]models.Listing, error) {
	favs, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Listing, 0, len(favs))
	for _, f := range favs {
		l, err := s.listings.FindByID(ctx, f.ListingID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, nil
}
