package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"carlink/market/internal/db"
	"carlink/market/internal/events"
	"carlink/market/internal/logger"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

type InquiryRole string

const (
	RoleBuyer  InquiryRole = "buyer"
	RoleSeller InquiryRole = "seller"
)

// IInquiryService defines the inquiry workflow. Creating an inquiry opens (or
// reuses) the buyer/seller chat room and posts the inquiry into it.
type IInquiryService interface {
	CreateInquiry(ctx context.Context, buyerID, sellerID, listingID utils.SixID, message string) (*models.Inquiry, error)
	RespondToInquiry(ctx context.Context, inquiryID, sellerID utils.SixID, response string) (*models.InquiryResponse, error)
	CloseInquiry(ctx context.Context, inquiryID, actorID utils.SixID, isAdmin bool) (*models.Inquiry, error)
	GetInquiry(ctx context.Context, inquiryID, userID utils.SixID, isAdmin bool) (*models.Inquiry, error)
	ListInquiries(ctx context.Context, userID utils.SixID, role InquiryRole, status models.InquiryStatus) ([]models.Inquiry, error)
}

type inquiryService struct {
	inquiries InquiryStore
	listings  ListingStore
	chats     ChatStore
	tx        db.Transactor
	emitter   events.Emitter
	log       *zap.Logger
}

func NewInquiryService(inquiries InquiryStore, listings ListingStore, chats ChatStore, tx db.Transactor, emitter events.Emitter, log *zap.Logger) IInquiryService {
	return &inquiryService{
		inquiries: inquiries,
		listings:  listings,
		chats:     chats,
		tx:        tx,
		emitter:   emitter,
		log:       log,
	}
}

func (s *inquiryService) CreateInquiry(ctx context.Context, buyerID, sellerID, listingID utils.SixID, message string) (*models.Inquiry, error) {
	message, err := checkMessage(message)
	if err != nil {
		return nil, err
	}
	if buyerID == sellerID {
		return nil, invalid("cannot send an inquiry to yourself")
	}
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		return nil, notFound(err, "listing")
	}
	if listing.SellerID != sellerID {
		return nil, fmt.Errorf("listing %s: %w", listingID, ErrInvalidSeller)
	}

	var inq *models.Inquiry
	var room *models.ChatRoom
	err = retryOnRoomRace(func() error {
		return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			now := time.Now().UTC()
			inq = &models.Inquiry{
				BuyerID:   buyerID,
				SellerID:  sellerID,
				ListingID: listingID,
				Message:   message,
				Status:    models.InquiryPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.inquiries.Insert(ctx, inq); err != nil {
				return err
			}
			var err error
			if room, err = resolveRoom(ctx, s.chats, buyerID, sellerID, now); err != nil {
				return err
			}
			msg := &models.ChatMessage{
				RoomID:    room.ID,
				SenderID:  buyerID,
				Content:   message,
				ListingID: &listing.ID,
				CreatedAt: now,
			}
			return appendMessage(ctx, s.chats, msg)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}

	s.log.Info("inquiry created",
		zap.Stringer("inquiry_id", inq.ID),
		zap.Stringer("listing_id", listingID),
		zap.Stringer("room_id", room.ID))
	emit(ctx, s.emitter, s.log, events.Event{
		Type:        events.InquiryCreated,
		RecipientID: sellerID,
		ActorID:     buyerID,
		RoomID:      &room.ID,
		ListingID:   &listing.ID,
		InquiryID:   &inq.ID,
		Preview:     logger.Truncate(message, 120),
		CreatedAt:   inq.CreatedAt,
	})
	return inq, nil
}

func (s *inquiryService) RespondToInquiry(ctx context.Context, inquiryID, sellerID utils.SixID, response string) (*models.InquiryResponse, error) {
	inq, err := s.inquiries.FindByID(ctx, inquiryID)
	if err != nil {
		return nil, notFound(err, "inquiry")
	}
	if inq.SellerID != sellerID {
		return nil, fmt.Errorf("inquiry %s: %w", inquiryID, ErrForbidden)
	}
	if inq.Status == models.InquiryClosed {
		return nil, fmt.Errorf("inquiry %s is closed: %w", inquiryID, ErrInvalidState)
	}
	response, err = checkMessage(response)
	if err != nil {
		return nil, err
	}

	out := &models.InquiryResponse{}
	err = retryOnRoomRace(func() error {
		return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			now := time.Now().UTC()
			room, err := resolveRoom(ctx, s.chats, inq.BuyerID, inq.SellerID, now)
			if err != nil {
				return err
			}
			listingID := inq.ListingID
			msg := &models.ChatMessage{
				RoomID:    room.ID,
				SenderID:  sellerID,
				Content:   response,
				ListingID: &listingID,
				CreatedAt: now,
			}
			if err := appendMessage(ctx, s.chats, msg); err != nil {
				return err
			}
			updated, err := s.inquiries.SetStatus(ctx, inq.ID, models.InquiryResponded, now)
			if err != nil {
				return notFound(err, "inquiry")
			}
			out.Inquiry, out.Message, out.ChatRoomID = updated, msg, room.ID
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to respond to inquiry: %w", err)
	}

	emit(ctx, s.emitter, s.log, events.Event{
		Type:        events.InquiryResponded,
		RecipientID: inq.BuyerID,
		ActorID:     sellerID,
		RoomID:      &out.ChatRoomID,
		ListingID:   &inq.ListingID,
		InquiryID:   &inq.ID,
		Preview:     logger.Truncate(response, 120),
		CreatedAt:   out.Message.CreatedAt,
	})
	return out, nil
}

func (s *inquiryService) CloseInquiry(ctx context.Context, inquiryID, actorID utils.SixID, isAdmin bool) (*models.Inquiry, error) {
	if !isAdmin {
		return nil, fmt.Errorf("closing inquiries: %w", ErrForbidden)
	}
	inq, err := s.inquiries.FindByID(ctx, inquiryID)
	if err != nil {
		return nil, notFound(err, "inquiry")
	}
	if inq.Status == models.InquiryClosed {
		return inq, nil
	}
	now := time.Now().UTC()
	inq, err = s.inquiries.SetStatus(ctx, inquiryID, models.InquiryClosed, now)
	if err != nil {
		return nil, notFound(err, "inquiry")
	}
	for _, recipient := range []utils.SixID{inq.BuyerID, inq.SellerID} {
		emit(ctx, s.emitter, s.log, events.Event{
			Type:        events.InquiryClosed,
			RecipientID: recipient,
			ActorID:     actorID,
			ListingID:   &inq.ListingID,
			InquiryID:   &inq.ID,
			CreatedAt:   now,
		})
	}
	return inq, nil
}

func (s *inquiryService) GetInquiry(ctx context.Context, inquiryID, userID utils.SixID, isAdmin bool) (*models.Inquiry, error) {
	inq, err := s.inquiries.FindByID(ctx, inquiryID)
	if err != nil {
		return nil, notFound(err, "inquiry")
	}
	if !isAdmin && inq.BuyerID != userID && inq.SellerID != userID {
		return nil, fmt.Errorf("inquiry %s: %w", inquiryID, ErrForbidden)
	}
	return inq, nil
}

func (s *inquiryService) ListInquiries(ctx context.Context, userID utils.SixID, role InquiryRole, status models.InquiryStatus) ([]models.Inquiry, error) {
	f := models.InquiryFilter{Status: status}
	switch role {
	case RoleBuyer, "":
		f.BuyerID = &userID
	case RoleSeller:
		f.SellerID = &userID
	default:
		return nil, invalid("unknown role %q", role)
	}
	switch status {
	case "", models.InquiryPending, models.InquiryResponded, models.InquiryClosed:
	default:
		return nil, invalid("unknown status %q", status)
	}
	return s.inquiries.List(ctx, f)
}
