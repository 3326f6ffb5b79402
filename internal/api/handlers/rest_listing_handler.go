package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"carlink/market/internal/models"
	"carlink/market/internal/services"
)

const maxPageSize = 100

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	listingService services.IListingService
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(listingService services.IListingService) *RestListingHandler {
	return &RestListingHandler{listingService: listingService}
}

type uploadURLRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
}

type confirmUploadRequest struct {
	Key string `json:"key" validate:"required,max=1024"`
}

func parsePrice(c *gin.Context, name string) (*int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return nil, false
	}
	return &v, true
}

// SearchListings handles GET /v1/listings
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	minPrice, ok := parsePrice(c, "min_price")
	if !ok {
		return
	}
	maxPrice, ok := parsePrice(c, "max_price")
	if !ok {
		return
	}

	limit := queryInt(c, "limit", 20, maxPageSize)
	page := queryInt(c, "page", 1, 0)

	filter := models.ListingFilter{
		Brand:       strings.TrimSpace(c.Query("brand")),
		Model:       strings.TrimSpace(c.Query("model")),
		CarType:     models.CarType(strings.ToUpper(c.Query("car_type"))),
		MinPrice:    minPrice,
		MaxPrice:    maxPrice,
		Location:    strings.TrimSpace(c.Query("location")),
		Query:       strings.TrimSpace(c.Query("q")),
		Limit:       limit,
		Skip:        (page - 1) * limit,
		SortByPrice: c.Query("sort") == "price",
	}

	listings, err := h.listingService.SearchListings(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "Failed to search listings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  listings,
		"page":  page,
		"limit": limit,
	})
}

// GetListingByID handles GET /v1/listings/:id
func (h *RestListingHandler) GetListingByID(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	listing, err := h.listingService.GetListing(c.Request.Context(), listingID)
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// CreateListing handles POST /v1/listings
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in models.ListingInput
	if !bindJSON(c, &in) {
		return
	}
	listing, err := h.listingService.CreateListing(c.Request.Context(), userID, in)
	if err != nil {
		writeServiceError(c, err, "Failed to create listing")
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// UpdateListing handles PATCH /v1/listings/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var upd models.ListingUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	listing, err := h.listingService.UpdateListing(c.Request.Context(), listingID, userID, upd)
	if err != nil {
		writeServiceError(c, err, "Failed to update listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *RestListingHandler) setActive(c *gin.Context, active bool) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	listing, err := h.listingService.SetListingActive(c.Request.Context(), listingID, userID, active)
	if err != nil {
		writeServiceError(c, err, "Failed to update listing")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// ActivateListing handles POST /v1/listings/:id/activate
func (h *RestListingHandler) ActivateListing(c *gin.Context) { h.setActive(c, true) }

// DeactivateListing handles POST /v1/listings/:id/deactivate
func (h *RestListingHandler) DeactivateListing(c *gin.Context) { h.setActive(c, false) }

// DeleteListing handles DELETE /v1/listings/:id
func (h *RestListingHandler) DeleteListing(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.listingService.DeleteListing(c.Request.Context(), listingID, userID); err != nil {
		writeServiceError(c, err, "Failed to delete listing")
		return
	}
	c.Status(http.StatusNoContent)
}

// RequestImageUpload handles POST /v1/listings/:id/images/upload-url
func (h *RestListingHandler) RequestImageUpload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req uploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	url, key, err := h.listingService.RequestImageUpload(c.Request.Context(), listingID, userID, req.Filename, req.ContentType)
	if err != nil {
		writeServiceError(c, err, "Failed to create upload URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "key": key})
}

// ConfirmImageUpload handles POST /v1/listings/:id/images/confirm. Processing
// happens in the background, so the response is 202.
func (h *RestListingHandler) ConfirmImageUpload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req confirmUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.listingService.ConfirmImageUpload(c.Request.Context(), listingID, userID, req.Key); err != nil {
		writeServiceError(c, err, "Failed to confirm upload")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "processing"})
}
