package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const searchLimit = 10

type UserService struct {
	userRepo *repository.UserRepository
	producer queue.Publisher
	notifier subscriptions.Notifier
	logger   *logger.Logger
}

func NewUserService(
	userRepo *repository.UserRepository,
	producer queue.Publisher,
	notifier subscriptions.Notifier,
	logger *logger.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		producer: producer,
		notifier: notifier,
		logger:   logger,
	}
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (s *UserService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	existing, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	existing, err = s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		Badges:   []string{},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	event := queue.NewEvent(queue.EventUserCreated, queue.UserEventData{
		UserID:   user.ID.String(),
		Username: user.Username,
	})
	if err := s.producer.Publish(ctx, user.ID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish user created event")
	}

	s.notifier.Notify(ctx, subscriptions.TopicUsers)

	s.logger.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	s.logger.WithField("user_id", user.ID).Info("User logged in")
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// EnsureUser self-heals a missing user record. Every authenticated
// principal must have one; an earlier partial failure may have violated
// that, so the record is recreated with defaults instead of failing.
func (s *UserService) EnsureUser(ctx context.Context, userID uuid.UUID, email string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	s.logger.WithField("user_id", userID).Warn("User record missing, recreating with defaults")

	user = &models.User{
		ID:       userID,
		Username: fallbackUsername(userID, email),
		Email:    email,
		Badges:   []string{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to heal user record: %w", err)
	}

	event := queue.NewEvent(queue.EventUserHealed, queue.UserEventData{
		UserID:   user.ID.String(),
		Username: user.Username,
	})
	if err := s.producer.Publish(ctx, user.ID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish user healed event")
	}

	s.notifier.Notify(ctx, subscriptions.TopicUsers, subscriptions.TopicUser(userID.String()))
	return user, nil
}

// fallbackUsername derives a display name from the email prefix, suffixed
// with part of the id to dodge the unique index on healed records.
func fallbackUsername(userID uuid.UUID, email string) string {
	name := "user"
	if at := strings.Index(email, "@"); at > 0 {
		name = email[:at]
	}
	return name + "_" + userID.String()[:8]
}

// Search is a prefix match over usernames, capped at ten results, with the
// acting principal excluded.
func (s *UserService) Search(ctx context.Context, prefix string, selfID uuid.UUID) ([]*models.User, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []*models.User{}, nil
	}

	users, err := s.userRepo.SearchByPrefix(ctx, prefix, selfID, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}
