package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carlink/market/internal/api/middleware"
	"carlink/market/internal/auth"
	"carlink/market/internal/models"
	"carlink/market/internal/services"
)

// RestUserHandler handles account and profile requests.
type RestUserHandler struct {
	userService    services.IUserService
	listingService services.IListingService
	jwtSecret      string
	jwtTTL         time.Duration
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService, listingService services.IListingService, jwtSecret string, jwtTTL time.Duration) *RestUserHandler {
	return &RestUserHandler{
		userService:    userService,
		listingService: listingService,
		jwtSecret:      jwtSecret,
		jwtTTL:         jwtTTL,
	}
}

// PublicUser represents the data returned for a user profile.
type PublicUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DateJoined   string `json:"date_joined"`
	ListingCount int    `json:"listing_count"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
	User      *models.User `json:"user"`
}

type updateProfileRequest struct {
	Name                    string                          `json:"name" validate:"max=100"`
	Phone                   string                          `json:"phone" validate:"max=30"`
	NotificationPreferences *models.NotificationPreferences `json:"notification_preferences"`
}

type deviceTokenRequest struct {
	Token string `json:"token" validate:"max=4096"`
}

func (h *RestUserHandler) issueToken(c *gin.Context, status int, user *models.User) {
	token, err := auth.GenerateJWT(user.ID, user.IsAdmin, h.jwtSecret, h.jwtTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	c.JSON(status, tokenResponse{Token: token, ExpiresIn: int64(h.jwtTTL.Seconds()), User: user})
}

// Register handles POST /v1/auth/register
func (h *RestUserHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(c, err, "Failed to register")
		return
	}
	h.issueToken(c, http.StatusCreated, user)
}

// Login handles POST /v1/auth/login
func (h *RestUserHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(c, err, "Failed to log in")
		return
	}
	h.issueToken(c, http.StatusOK, user)
}

// GetMe handles GET /v1/me
func (h *RestUserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PATCH /v1/me
func (h *RestUserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req.Name, req.Phone, req.NotificationPreferences)
	if err != nil {
		writeServiceError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetDeviceToken handles PUT /v1/me/device-token. An empty token unregisters.
func (h *RestUserHandler) SetDeviceToken(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req deviceTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.userService.SetDeviceToken(c.Request.Context(), userID, req.Token); err != nil {
		writeServiceError(c, err, "Failed to save device token")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetUserByID handles GET /v1/users/:id
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.FindByID(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve user")
		return
	}

	listings, err := h.listingService.ListSellerListings(c.Request.Context(), userID, false)
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve user")
		return
	}

	c.JSON(http.StatusOK, PublicUser{
		ID:           user.ID.String(),
		Name:         user.Name,
		DateJoined:   user.CreatedAt.Format("2006-01-02"),
		ListingCount: len(listings),
	})
}

// GetUserListings handles GET /v1/users/:id/listings. Sellers see their own
// inactive listings too.
func (h *RestUserHandler) GetUserListings(c *gin.Context) {
	sellerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	viewer, _ := middleware.UserID(c)
	listings, err := h.listingService.ListSellerListings(c.Request.Context(), sellerID, viewer == sellerID)
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve listings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listings})
}
