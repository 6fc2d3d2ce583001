package services

import (
	"context"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/google/uuid"
)

type BadgeDefinition struct {
	Name string `json:"name"`
	Cost int64  `json:"cost"`
}

// The store's fixed catalog. Badge names carry their emoji so profile
// rendering can extract it as the first token.
var badgeCatalog = []BadgeDefinition{
	{Name: "🔥 Fire Starter", Cost: 50},
	{Name: "⭐ Rising Star", Cost: 100},
	{Name: "🎬 Director's Cut", Cost: 150},
	{Name: "👑 Challenge Royalty", Cost: 250},
	{Name: "💎 Diamond Creator", Cost: 500},
}

// RewardsService validates and applies point-for-badge purchases. The
// purchase is a read-check-update, not a transaction: two near-simultaneous
// purchases reading the same stale balance can both pass the affordability
// check. Known gap, kept as observed behavior pending a product decision.
type RewardsService struct {
	userRepo *repository.UserRepository
	producer queue.Publisher
	notifier subscriptions.Notifier
	logger   *logger.Logger
}

func NewRewardsService(
	userRepo *repository.UserRepository,
	producer queue.Publisher,
	notifier subscriptions.Notifier,
	logger *logger.Logger,
) *RewardsService {
	return &RewardsService{
		userRepo: userRepo,
		producer: producer,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *RewardsService) Catalog() []BadgeDefinition {
	return badgeCatalog
}

// Purchase checks ownership and affordability against a fresh read, then
// applies the decremented balance and extended badge set as one write.
// Purchases are irreversible; there is no sell-back.
func (s *RewardsService) Purchase(ctx context.Context, userID uuid.UUID, badgeName string) (*models.User, error) {
	var def *BadgeDefinition
	for i := range badgeCatalog {
		if badgeCatalog[i].Name == badgeName {
			def = &badgeCatalog[i]
			break
		}
	}
	if def == nil {
		return nil, ErrUnknownBadge
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	for _, owned := range user.Badges {
		if owned == badgeName {
			return nil, ErrBadgeOwned
		}
	}

	if user.Points < def.Cost {
		return nil, ErrInsufficientPoints
	}

	user.Points -= def.Cost
	user.Badges = append(user.Badges, badgeName)

	if err := s.userRepo.UpdateRewards(ctx, userID, user.Points, user.Badges); err != nil {
		return nil, err
	}

	event := queue.NewEvent(queue.EventBadgePurchased, queue.BadgeEventData{
		UserID: userID.String(),
		Badge:  badgeName,
		Cost:   def.Cost,
	})
	if err := s.producer.Publish(ctx, userID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish badge purchased event")
	}

	s.notifier.Notify(ctx, subscriptions.TopicUsers, subscriptions.TopicUser(userID.String()))

	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"badge":   badgeName,
		"cost":    def.Cost,
	}).Info("Badge purchased")

	return user, nil
}
