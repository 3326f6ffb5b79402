package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carlink/market/internal/models"
	"carlink/market/internal/services"
)

// RestRequestHandler serves buyer requests and their matches.
type RestRequestHandler struct {
	matchService services.IMatchService
}

func NewRestRequestHandler(matchService services.IMatchService) *RestRequestHandler {
	return &RestRequestHandler{matchService: matchService}
}

// CreateRequest handles POST /v1/requests
func (h *RestRequestHandler) CreateRequest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in models.BuyerRequestInput
	if !bindJSON(c, &in) {
		return
	}
	req, err := h.matchService.CreateRequest(c.Request.Context(), userID, in)
	if err != nil {
		writeServiceError(c, err, "Failed to create request")
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListRequests handles GET /v1/requests
func (h *RestRequestHandler) ListRequests(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reqs, err := h.matchService.ListRequests(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Failed to list requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reqs})
}

// GetRequest handles GET /v1/requests/:id
func (h *RestRequestHandler) GetRequest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.matchService.GetRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve request")
		return
	}
	c.JSON(http.StatusOK, req)
}

// GenerateMatches handles POST /v1/requests/:id/matches. The response holds
// only matches created by this call.
func (h *RestRequestHandler) GenerateMatches(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	matches, err := h.matchService.GenerateMatchesForBuyer(c.Request.Context(), requestID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to generate matches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": matches, "created": len(matches)})
}

// ListMatches handles GET /v1/requests/:id/matches
func (h *RestRequestHandler) ListMatches(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	requestID, ok := pathID(c, "id")
	if !ok {
		return
	}
	matches, err := h.matchService.ListMatches(c.Request.Context(), requestID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to list matches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": matches})
}
