package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carlink/market/internal/models"
	"carlink/market/internal/services"
	"carlink/market/internal/utils"
)

// RestChatHandler serves chat rooms and messages.
type RestChatHandler struct {
	chatService services.IChatService
}

func NewRestChatHandler(chatService services.IChatService) *RestChatHandler {
	return &RestChatHandler{chatService: chatService}
}

type startChatRequest struct {
	UserID    utils.SixID  `json:"user_id" validate:"required"`
	ListingID *utils.SixID `json:"listing_id"`
	Message   string       `json:"message"`
}

type sendMessageRequest struct {
	Content   string       `json:"content" validate:"required"`
	ListingID *utils.SixID `json:"listing_id"`
}

// StartChat handles POST /v1/chats. It returns the existing room for the pair
// when there is one, posting the optional opening message into it.
func (h *RestChatHandler) StartChat(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req startChatRequest
	if !bindJSON(c, &req) {
		return
	}
	room, err := h.chatService.StartChat(c.Request.Context(), userID, req.UserID)
	if err != nil {
		writeServiceError(c, err, "Failed to start chat")
		return
	}

	resp := gin.H{"room": room}
	if req.Message != "" {
		msg, err := h.chatService.SendChatMessage(c.Request.Context(), room.ID, userID, req.Message, req.ListingID)
		if err != nil {
			writeServiceError(c, err, "Failed to send message")
			return
		}
		resp["message"] = msg
	}
	c.JSON(http.StatusOK, resp)
}

// ListRooms handles GET /v1/chats
func (h *RestChatHandler) ListRooms(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	rooms, err := h.chatService.ListRooms(c.Request.Context(), userID)
	if err != nil {
		writeServiceError(c, err, "Failed to list chats")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rooms})
}

// ListMessages handles GET /v1/chats/:id/messages?before=RFC3339&limit=
func (h *RestChatHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid before timestamp"})
			return
		}
		before = &t
	}
	messages, err := h.chatService.ListMessages(c.Request.Context(), roomID, userID, before, queryInt(c, "limit", 50, maxPageSize))
	if err != nil {
		writeServiceError(c, err, "Failed to list messages")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"data": messages})
}

// SendMessage handles POST /v1/chats/:id/messages
func (h *RestChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chatService.SendChatMessage(c.Request.Context(), roomID, userID, req.Content, req.ListingID)
	if err != nil {
		writeServiceError(c, err, "Failed to send message")
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkRoomRead handles POST /v1/chats/:id/read
func (h *RestChatHandler) MarkRoomRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.chatService.MarkRoomRead(c.Request.Context(), roomID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to mark messages read")
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// MarkMessageRead handles POST /v1/messages/:id/read
func (h *RestChatHandler) MarkMessageRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	msg, err := h.chatService.MarkMessageRead(c.Request.Context(), messageID, userID)
	if err != nil {
		writeServiceError(c, err, "Failed to mark message read")
		return
	}
	c.JSON(http.StatusOK, msg)
}
