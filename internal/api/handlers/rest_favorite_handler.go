package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carlink/market/internal/services"
)

type RestFavoriteHandler struct {
	favoriteService services.IFavoriteService
}

func NewRestFavoriteHandler(favoriteService services.IFavoriteService) *RestFavoriteHandler {
	return &RestFavoriteHandler{favoriteService: favoriteService}
}

// ListFavorites handles GET /v1/favorites
func (h *RestFavoriteHandler) ListFavorites(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listings, err := h.favoriteService.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Failed to list favorites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}

// AddFavorite handles POST /v1/favorites/:listingId
func (h *RestFavoriteHandler) AddFavorite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return
	}
	if err := h.favoriteService.AddFavorite(c.Request.Context(), userID, listingID); err != nil {
		writeServiceError(c, err, "Failed to add favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveFavorite handles DELETE /v1/favorites/:listingId
func (h *RestFavoriteHandler) RemoveFavorite(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return
	}
	if err := h.favoriteService.RemoveFavorite(c.Request.Context(), userID, listingID); err != nil {
		writeServiceError(c, err, "Failed to remove favorite")
		return
	}
	c.Status(http.StatusNoContent)
}
