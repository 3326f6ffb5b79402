package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"carlink/market/internal/models"
	"carlink/market/internal/services"
	"carlink/market/internal/utils"
)

// --- Mocks ---

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id utils.SixID, name, phone string, prefs *models.NotificationPreferences) (*models.User, error) {
	args := m.Called(ctx, id, name, phone, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) SetDeviceToken(ctx context.Context, id utils.SixID, token string) error {
	return m.Called(ctx, id, token).Error(0)
}

var _ services.IUserService = (*MockUserService)(nil)

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, sellerID utils.SixID, in models.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, sellerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) GetListing(ctx context.Context, id utils.SixID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, id, userID utils.SixID, upd models.ListingUpdate) (*models.Listing, error) {
	args := m.Called(ctx, id, userID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) SetListingActive(ctx context.Context, id, userID utils.SixID, active bool) (*models.Listing, error) {
	args := m.Called(ctx, id, userID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) DeleteListing(ctx context.Context, id, userID utils.SixID) error {
	return m.Called(ctx, id, userID).Error(0)
}

func (m *MockListingService) SearchListings(ctx context.Context, f models.ListingFilter) ([]models.Listing, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) ListSellerListings(ctx context.Context, sellerID utils.SixID, includeInactive bool) ([]models.Listing, error) {
	args := m.Called(ctx, sellerID, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) RequestImageUpload(ctx context.Context, id, userID utils.SixID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, id, userID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockListingService) ConfirmImageUpload(ctx context.Context, id, userID utils.SixID, key string) error {
	return m.Called(ctx, id, userID, key).Error(0)
}

func (m *MockListingService) AddImageToListing(ctx context.Context, id utils.SixID, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

var _ services.IListingService = (*MockListingService)(nil)

type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) CreateRequest(ctx context.Context, buyerID utils.SixID, in models.BuyerRequestInput) (*models.BuyerRequest, error) {
	args := m.Called(ctx, buyerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BuyerRequest), args.Error(1)
}

func (m *MockMatchService) GetRequest(ctx context.Context, requestID, userID utils.SixID) (*models.BuyerRequest, error) {
	args := m.Called(ctx, requestID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BuyerRequest), args.Error(1)
}

func (m *MockMatchService) ListRequests(ctx context.Context, buyerID utils.SixID) ([]models.BuyerRequest, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BuyerRequest), args.Error(1)
}

func (m *MockMatchService) GenerateMatches(ctx context.Context, requestID utils.SixID) ([]models.Match, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Match), args.Error(1)
}

func (m *MockMatchService) GenerateMatchesForBuyer(ctx context.Context, requestID, userID utils.SixID) ([]models.Match, error) {
	args := m.Called(ctx, requestID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Match), args.Error(1)
}

func (m *MockMatchService) ListMatches(ctx context.Context, requestID, userID utils.SixID) ([]models.Match, error) {
	args := m.Called(ctx, requestID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Match), args.Error(1)
}

var _ services.IMatchService = (*MockMatchService)(nil)

type MockFavoriteService struct {
	mock.Mock
}

func (m *MockFavoriteService) AddFavorite(ctx context.Context, userID, listingID utils.SixID) error {
	return m.Called(ctx, userID, listingID).Error(0)
}

func (m *MockFavoriteService) RemoveFavorite(ctx context.Context, userID, listingID utils.SixID) error {
	return m.Called(ctx, userID, listingID).Error(0)
}

func (m *MockFavoriteService) ListFavorites(ctx context.Context, userID utils.SixID) ([]models.Listing, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

var _ services.IFavoriteService = (*MockFavoriteService)(nil)

type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) CreateInquiry(ctx context.Context, buyerID, sellerID, listingID utils.SixID, message string) (*models.Inquiry, error) {
	args := m.Called(ctx, buyerID, sellerID, listingID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) RespondToInquiry(ctx context.Context, inquiryID, sellerID utils.SixID, response string) (*models.InquiryResponse, error) {
	args := m.Called(ctx, inquiryID, sellerID, response)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InquiryResponse), args.Error(1)
}

func (m *MockInquiryService) CloseInquiry(ctx context.Context, inquiryID, actorID utils.SixID, isAdmin bool) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, actorID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) GetInquiry(ctx context.Context, inquiryID, userID utils.SixID, isAdmin bool) (*models.Inquiry, error) {
	args := m.Called(ctx, inquiryID, userID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) ListInquiries(ctx context.Context, userID utils.SixID, role services.InquiryRole, status models.InquiryStatus) ([]models.Inquiry, error) {
	args := m.Called(ctx, userID, role, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

var _ services.IInquiryService = (*MockInquiryService)(nil)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) StartChat(ctx context.Context, userID, otherID utils.SixID) (*models.ChatRoom, error) {
	args := m.Called(ctx, userID, otherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockChatService) SendChatMessage(ctx context.Context, roomID, senderID utils.SixID, content string, listingID *utils.SixID) (*models.ChatMessage, error) {
	args := m.Called(ctx, roomID, senderID, content, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockChatService) MarkMessageRead(ctx context.Context, messageID, readerID utils.SixID) (*models.ChatMessage, error) {
	args := m.Called(ctx, messageID, readerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockChatService) MarkRoomRead(ctx context.Context, roomID, readerID utils.SixID) (int64, error) {
	args := m.Called(ctx, roomID, readerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatService) GetRoom(ctx context.Context, roomID, userID utils.SixID) (*models.ChatRoom, error) {
	args := m.Called(ctx, roomID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockChatService) ListRooms(ctx context.Context, userID utils.SixID) ([]models.ChatRoomSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatRoomSummary), args.Error(1)
}

func (m *MockChatService) ListMessages(ctx context.Context, roomID, userID utils.SixID, before *time.Time, limit int64) ([]models.ChatMessage, error) {
	args := m.Called(ctx, roomID, userID, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

var _ services.IChatService = (*MockChatService)(nil)
