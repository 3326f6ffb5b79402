package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carlink/market/internal/api/middleware"
	"carlink/market/internal/models"
	"carlink/market/internal/services"
	"carlink/market/internal/utils"
)

// RestInquiryHandler serves the inquiry workflow.
type RestInquiryHandler struct {
	inquiryService services.IInquiryService
}

func NewRestInquiryHandler(inquiryService services.IInquiryService) *RestInquiryHandler {
	return &RestInquiryHandler{inquiryService: inquiryService}
}

type createInquiryRequest struct {
	ListingID utils.SixID `json:"listing_id" validate:"required"`
	SellerID  utils.SixID `json:"seller_id" validate:"required"`
	Message   string      `json:"message" validate:"required"`
}

type respondInquiryRequest struct {
	Response string `json:"response" validate:"required"`
}

// CreateInquiry handles POST /v1/inquiries. The caller is the buyer.
func (h *RestInquiryHandler) CreateInquiry(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req createInquiryRequest
	if !bindJSON(c, &req) {
		return
	}
	inq, err := h.inquiryService.CreateInquiry(c.Request.Context(), userID, req.SellerID, req.ListingID, req.Message)
	if err != nil {
		writeServiceError(c, err, "Failed to create inquiry")
		return
	}
	c.JSON(http.StatusCreated, inq)
}

// ListInquiries handles GET /v1/inquiries?role=buyer|seller&status=
func (h *RestInquiryHandler) ListInquiries(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	role := services.InquiryRole(strings.ToLower(c.DefaultQuery("role", string(services.RoleBuyer))))
	if role != services.RoleBuyer && role != services.RoleSeller {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be buyer or seller"})
		return
	}
	status := models.InquiryStatus(strings.ToUpper(c.Query("status")))
	inquiries, err := h.inquiryService.ListInquiries(c.Request.Context(), userID, role, status)
	if err != nil {
		writeServiceError(c, err, "Failed to list inquiries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inquiries})
}

// GetInquiry handles GET /v1/inquiries/:id
func (h *RestInquiryHandler) GetInquiry(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	inq, err := h.inquiryService.GetInquiry(c.Request.Context(), inquiryID, userID, middleware.IsAdmin(c))
	if err != nil {
		writeServiceError(c, err, "Failed to retrieve inquiry")
		return
	}
	c.JSON(http.StatusOK, inq)
}

// RespondToInquiry handles POST /v1/inquiries/:id/respond. The caller is the seller.
func (h *RestInquiryHandler) RespondToInquiry(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req respondInquiryRequest
	if !bindJSON(c, &req) {
		return
	}
	resp, err := h.inquiryService.RespondToInquiry(c.Request.Context(), inquiryID, userID, req.Response)
	if err != nil {
		writeServiceError(c, err, "Failed to respond to inquiry")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CloseInquiry handles POST /v1/admin/inquiries/:id/close
func (h *RestInquiryHandler) CloseInquiry(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	inquiryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	inq, err := h.inquiryService.CloseInquiry(c.Request.Context(), inquiryID, userID, middleware.IsAdmin(c))
	if err != nil {
		writeServiceError(c, err, "Failed to close inquiry")
		return
	}
	c.JSON(http.StatusOK, inq)
}
