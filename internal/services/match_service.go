package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"carlink/market/internal/config"
	"carlink/market/internal/db"
	"carlink/market/internal/events"
	"carlink/market/internal/matching"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

// IMatchService defines buyer requests and match generation.
type IMatchService interface {
	CreateRequest(ctx context.Context, buyerID utils.SixID, in models.BuyerRequestInput) (*models.BuyerRequest, error)
	GetRequest(ctx context.Context, requestID, userID utils.SixID) (*models.BuyerRequest, error)
	ListRequests(ctx context.Context, buyerID utils.SixID) ([]models.BuyerRequest, error)
	// GenerateMatches returns only the matches created by this call.
	// Running it again for the same request creates nothing new.
	GenerateMatches(ctx context.Context, requestID utils.SixID) ([]models.Match, error)
	// GenerateMatchesForBuyer is GenerateMatches restricted to the request owner.
	GenerateMatchesForBuyer(ctx context.Context, requestID, userID utils.SixID) ([]models.Match, error)
	ListMatches(ctx context.Context, requestID, userID utils.SixID) ([]models.Match, error)
}

type matchService struct {
	requests BuyerRequestStore
	matches  MatchStore
	listings ListingStore
	users    UserStore
	tasks    TaskEnqueuer
	emitter  events.Emitter
	cfg      *config.Config
	log      *zap.Logger
}

func NewMatchService(requests BuyerRequestStore, matches MatchStore, listings ListingStore, users UserStore,
	tasks TaskEnqueuer, emitter events.Emitter, cfg *config.Config, log *zap.Logger) IMatchService {
	return &matchService{
		requests: requests,
		matches:  matches,
		listings: listings,
		users:    users,
		tasks:    tasks,
		emitter:  emitter,
		cfg:      cfg,
		log:      log,
	}
}

func (s *matchService) CreateRequest(ctx context.Context, buyerID utils.SixID, in models.BuyerRequestInput) (*models.BuyerRequest, error) {
	switch {
	case in.MinBudget < 0 || in.MaxBudget < 0:
		return nil, invalid("budget must not be negative")
	case in.MinBudget > in.MaxBudget:
		return nil, invalid("min budget exceeds max budget")
	case strings.TrimSpace(in.Location) == "":
		return nil, invalid("location is required")
	case in.CarType != "" && !in.CarType.Valid():
		return nil, invalid("unknown car type %q", in.CarType)
	}

	br := &models.BuyerRequest{
		BuyerID:   buyerID,
		MinBudget: in.MinBudget,
		MaxBudget: in.MaxBudget,
		Brand:     strings.TrimSpace(in.Brand),
		Model:     strings.TrimSpace(in.Model),
		CarType:   in.CarType,
		Location:  strings.TrimSpace(in.Location),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.requests.Insert(ctx, br); err != nil {
		return nil, err
	}

	if s.cfg.MatchOnRequestCreate && s.tasks != nil {
		if err := s.tasks.EnqueueMatchGeneration(ctx, br.ID); err != nil {
			s.log.Warn("failed to enqueue match generation", zap.Stringer("request_id", br.ID), zap.Error(err))
		}
	}
	return br, nil
}

func (s *matchService) GetRequest(ctx context.Context, requestID, userID utils.SixID) (*models.BuyerRequest, error) {
	br, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "buyer request")
	}
	if br.BuyerID != userID {
		return nil, fmt.Errorf("buyer request %s: %w", requestID, ErrForbidden)
	}
	return br, nil
}

func (s *matchService) ListRequests(ctx context.Context, buyerID utils.SixID) ([]models.BuyerRequest, error) {
	return s.requests.ListByBuyer(ctx, buyerID)
}

func (s *matchService) GenerateMatches(ctx context.Context, requestID utils.SixID) ([]models.Match, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, notFound(err, "buyer request")
	}
	if _, err := s.users.FindByID(ctx, req.BuyerID); err != nil {
		return nil, notFound(err, "buyer")
	}

	pageSize := s.cfg.MatchCandidatePage
	if pageSize <= 0 || pageSize > models.MaxPageSize {
		pageSize = models.MaxPageSize
	}

	created := []models.Match{}
	scanned := 0
	for skip := int64(0); ; skip += pageSize {
		page, err := s.listings.Search(ctx, matching.CandidateFilter(req, pageSize, skip))
		if err != nil {
			return nil, fmt.Errorf("failed to load candidates: %w", err)
		}
		scanned += len(page)
		for i := range page {
			m, err := s.matchListing(ctx, req, &page[i])
			if err != nil {
				return nil, err
			}
			if m != nil {
				created = append(created, *m)
			}
		}
		if int64(len(page)) < pageSize {
			break
		}
	}

	s.log.Info("matches generated",
		zap.Stringer("request_id", req.ID),
		zap.Int("candidates", scanned),
		zap.Int("created", len(created)))
	for i := range created {
		m := &created[i]
		emit(ctx, s.emitter, s.log, events.Event{
			Type:        events.MatchCreated,
			RecipientID: m.BuyerID,
			ListingID:   &m.ListingID,
			MatchID:     &m.ID,
			RequestID:   &m.RequestID,
			Score:       m.Score,
			CreatedAt:   m.CreatedAt,
		})
	}
	return created, nil
}

// matchListing stores the match for l when it qualifies and none exists
// yet. It returns nil when nothing was created.
func (s *matchService) matchListing(ctx context.Context, req *models.BuyerRequest, l *models.Listing) (*models.Match, error) {
	if !matching.PassesHardFilter(req, l) {
		return nil, nil
	}
	exists, err := s.matches.Exists(ctx, req.BuyerID, l.ID, req.ID)
	if err != nil || exists {
		return nil, err
	}
	m := &models.Match{
		BuyerID:   req.BuyerID,
		ListingID: l.ID,
		RequestID: req.ID,
		Score:     matching.Score(req, l),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.matches.Insert(ctx, m); err != nil {
		// a concurrent run stored this triple first
		if db.IsMongoDuplicateKeyError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to store match: %w", err)
	}
	return m, nil
}

func (s *matchService) GenerateMatchesForBuyer(ctx context.Context, requestID, userID utils.SixID) ([]models.Match, error) {
	if _, err := s.GetRequest(ctx, requestID, userID); err != nil {
		return nil, err
	}
	return s.GenerateMatches(ctx, requestID)
}

func (s *matchService) ListMatches(ctx context.Context, requestID, userID utils.SixID) ([]models.Match, error) {
	if _, err := s.GetRequest(ctx, requestID, userID); err != nil {
		return nil, err
	}
	return s.matches.ListByRequest(ctx, requestID)
}
