package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"carlink/market/internal/auth"
	"carlink/market/internal/config"
	"carlink/market/internal/db"
	"carlink/market/internal/models"
	"carlink/market/internal/utils"
)

// IUserService defines account operations.
type IUserService interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, id utils.SixID) (*models.User, error)
	UpdateProfile(ctx context.Context, id utils.SixID, name, phone string, prefs *models.NotificationPreferences) (*models.User, error)
	SetDeviceToken(ctx context.Context, id utils.SixID, token string) error
}

type userService struct {
	users UserStore
	cfg   *config.Config
	log   *zap.Logger
}

func NewUserService(users UserStore, cfg *config.Config, log *zap.Logger) IUserService {
	return &userService{users: users, cfg: cfg, log: log}
}

func (s *userService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return nil, invalid("email is not valid")
	}
	if len(password) < s.cfg.PasswordMinLength {
		return nil, invalid("password must be at least %d characters", s.cfg.PasswordMinLength)
	}

	if _, err := s.users.FindByEmail(ctx, addr.Address); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &models.User{
		Name:                    name,
		Email:                   strings.ToLower(addr.Address),
		PasswordHash:            hash,
		NotificationPreferences: models.DefaultNotificationPreferences(),
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		// lost a race with a concurrent registration of the same address
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	s.log.Info("user registered", zap.Stringer("user_id", u.ID))
	return u, nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !auth.CheckPasswordHash(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *userService) FindByID(ctx context.Context, id utils.SixID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id utils.SixID, name, phone string, prefs *models.NotificationPreferences) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	u, err := s.users.UpdateProfile(ctx, id, name, strings.TrimSpace(phone), prefs)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *userService) SetDeviceToken(ctx context.Context, id utils.SixID, token string) error {
	if err := s.users.SetDeviceToken(ctx, id, strings.TrimSpace(token)); err != nil {
		return notFound(err, "user")
	}
	return nil
}
