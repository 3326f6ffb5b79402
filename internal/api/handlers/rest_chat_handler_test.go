package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"carlink/market/internal/api/handlers"
	"carlink/market/internal/models"
	"carlink/market/internal/services"
	"carlink/market/internal/utils"
)

func TestRestChatHandler_SendMessage(t *testing.T) {
	userID, roomID := utils.NewSixID(), utils.NewSixID()
	svc := new(MockChatService)
	h := handlers.NewRestChatHandler(svc)
	r := newTestRouter(userID, false)
	r.POST("/v1/chats/:id/messages", h.SendMessage)

	msg := &models.ChatMessage{Base: models.NewBase(), RoomID: roomID, SenderID: userID, Content: "hello"}
	svc.On("SendChatMessage", mock.Anything, roomID, userID, "hello", (*utils.SixID)(nil)).Return(msg, nil)

	w := doJSON(r, http.MethodPost, "/v1/chats/"+roomID.String()+"/messages", map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, false, decode(w)["is_read"])
	svc.AssertExpectations(t)
}

func TestRestChatHandler_SendMessage_NotMember(t *testing.T) {
	userID, roomID := utils.NewSixID(), utils.NewSixID()
	svc := new(MockChatService)
	h := handlers.NewRestChatHandler(svc)
	r := newTestRouter(userID, false)
	r.POST("/v1/chats/:id/messages", h.SendMessage)

	svc.On("SendChatMessage", mock.Anything, roomID, userID, "hello", (*utils.SixID)(nil)).
		Return(nil, fmt.Errorf("room: %w", services.ErrForbidden))

	w := doJSON(r, http.MethodPost, "/v1/chats/"+roomID.String()+"/messages", map[string]string{"content": "hello"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRestChatHandler_StartChat_WithOpeningMessage(t *testing.T) {
	userID, otherID, listingID := utils.NewSixID(), utils.NewSixID(), utils.NewSixID()
	svc := new(MockChatService)
	h := handlers.NewRestChatHandler(svc)
	r := newTestRouter(userID, false)
	r.POST("/v1/chats", h.StartChat)

	room := &models.ChatRoom{Base: models.NewBase(), MemberIDs: models.ChatMembers(userID, otherID)}
	svc.On("StartChat", mock.Anything, userID, otherID).Return(room, nil)
	svc.On("SendChatMessage", mock.Anything, room.ID, userID, "about your car",
		mock.MatchedBy(func(id *utils.SixID) bool { return id != nil && *id == listingID })).
		Return(&models.ChatMessage{Base: models.NewBase(), RoomID: room.ID, Content: "about your car"}, nil)

	w := doJSON(r, http.MethodPost, "/v1/chats", map[string]string{
		"user_id":    otherID.String(),
		"listing_id": listingID.String(),
		"message":    "about your car",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(w)
	assert.Contains(t, body, "room")
	assert.Contains(t, body, "message")
	svc.AssertExpectations(t)
}

func TestRestChatHandler_StartChat_RoomOnly(t *testing.T) {
	userID, otherID := utils.NewSixID(), utils.NewSixID()
	svc := new(MockChatService)
	h := handlers.NewRestChatHandler(svc)
	r := newTestRouter(userID, false)
	r.POST("/v1/chats", h.StartChat)

	room := &models.ChatRoom{Base: models.NewBase(), MemberIDs: models.ChatMembers(userID, otherID)}
	svc.On("StartChat", mock.Anything, userID, otherID).Return(room, nil)

	w := doJSON(r, http.MethodPost, "/v1/chats", map[string]string{"user_id": otherID.String()})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decode(w), "message")
	svc.AssertNotCalled(t, "SendChatMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestChatHandler_ListMessages(t *testing.T) {
	userID, roomID := utils.NewSixID(), utils.NewSixID()
	svc := new(MockChatService)
	h := handlers.NewRestChatHandler(svc)
	r := newTestRouter(userID, false)
	r.GET("/v1/chats/:id/messages", h.ListMessages)

	before := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.On("ListMessages", mock.Anything, roomID, userID,
		mock.MatchedBy(func(t *time.Time) bool { return t != nil && t.Equal(before) }), int64(20)).
		Return(nil, nil)

	w := doJSON(r, http.MethodGet, "/v1/chats/"+roomID.String()+"/messages?limit=20&before="+before.Format(time.RFC3339), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(w)["data"])

	w = doJSON(r, http.MethodGet, "/v1/chats/"+roomID.String()+"/messages?before=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestRestChatHandler_MarkRead(t *testing.T) {
	userID, roomID, messageID := utils.NewSixID(), utils.NewSixID(), utils.NewSixID()
	svc := new(MockChatService)
	h := handlers.NewRestChatHandler(svc)
	r := newTestRouter(userID, false)
	r.POST("/v1/chats/:id/read", h.MarkRoomRead)
	r.POST("/v1/messages/:id/read", h.MarkMessageRead)

	svc.On("MarkRoomRead", mock.Anything, roomID, userID).Return(int64(3), nil)
	svc.On("MarkMessageRead", mock.Anything, messageID, userID).
		Return(&models.ChatMessage{Base: models.Base{ID: messageID}, IsRead: true}, nil)

	w := doJSON(r, http.MethodPost, "/v1/chats/"+roomID.String()+"/read", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(w)["updated"])

	w = doJSON(r, http.MethodPost, "/v1/messages/"+messageID.String()+"/read", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(w)["is_read"])
	svc.AssertExpectations(t)
}
