package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/cache"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
)

// ChallengeSlot is the single record every active challenge occupies.
const ChallengeSlot = "daily"

const activeChallengeKey = "challenge:active"

type ChallengeDefinition struct {
	Title       string
	Description string
}

// Fixed catalog; rotation picks one at random.
var challengeCatalog = []ChallengeDefinition{
	{"Daily Challenge: Tell a Joke", "Record your best 30-second joke!"},
	{"Daily Challenge: Dance Off", "Show us your best dance move!"},
	{"Daily Challenge: Life Hack", "Share a useful life hack in 30 seconds."},
	{"Daily Challenge: Lip Sync", "Lip sync to your favorite song snippet!"},
	{"Daily Challenge: Hidden Talent", "What's a weird talent you have?"},
}

// ChallengeService guarantees exactly one active challenge: the expired
// slot is overwritten, never accumulated. Two callers racing at the moment
// of expiry both rotate and the last write wins — accepted, the challenge
// content is low-stakes.
type ChallengeService struct {
	challengeRepo *repository.ChallengeRepository
	cache         *cache.RedisClient
	producer      queue.Publisher
	notifier      subscriptions.Notifier
	rotation      time.Duration
	logger        *logger.Logger
}

func NewChallengeService(
	challengeRepo *repository.ChallengeRepository,
	cache *cache.RedisClient,
	producer queue.Publisher,
	notifier subscriptions.Notifier,
	rotation time.Duration,
	logger *logger.Logger,
) *ChallengeService {
	if rotation <= 0 {
		rotation = 24 * time.Hour
	}
	return &ChallengeService{
		challengeRepo: challengeRepo,
		cache:         cache,
		producer:      producer,
		notifier:      notifier,
		rotation:      rotation,
		logger:        logger,
	}
}

// Active returns the current challenge, rotating the slot first if it is
// absent or expired. The returned id scopes duplicate-submission checks.
func (s *ChallengeService) Active(ctx context.Context) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.GetSlot(ctx, ChallengeSlot)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if challenge != nil && challenge.ExpiresAt.After(now) {
		s.retainActiveID(ctx, challenge)
		return challenge, nil
	}

	def := challengeCatalog[rand.Intn(len(challengeCatalog))]
	challenge = &models.Challenge{
		Slot:        ChallengeSlot,
		ChallengeID: fmt.Sprintf("%s_%d", ChallengeSlot, now.UnixMilli()),
		Title:       def.Title,
		Description: def.Description,
		ExpiresAt:   now.Add(s.rotation),
	}

	if err := s.challengeRepo.ReplaceSlot(ctx, challenge); err != nil {
		return nil, err
	}

	event := queue.NewEvent(queue.EventChallengeRotated, queue.ChallengeEventData{
		ChallengeID: challenge.ChallengeID,
		Title:       challenge.Title,
	})
	if err := s.producer.Publish(ctx, ChallengeSlot, event); err != nil {
		s.logger.WithError(err).Error("Failed to publish challenge rotated event")
	}

	s.retainActiveID(ctx, challenge)
	s.notifier.Notify(ctx, subscriptions.TopicChallenge)

	s.logger.WithFields(map[string]interface{}{
		"challenge_id": challenge.ChallengeID,
		"title":        challenge.Title,
		"expires_at":   challenge.ExpiresAt,
	}).Info("Challenge rotated")

	return challenge, nil
}

// retainActiveID keeps the session's view of the active id in the cache so
// submission checks do not re-read the slot on every request.
func (s *ChallengeService) retainActiveID(ctx context.Context, challenge *models.Challenge) {
	if s.cache == nil {
		return
	}
	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		return
	}
	if err := s.cache.Set(ctx, activeChallengeKey, challenge.ChallengeID, ttl); err != nil {
		s.logger.WithError(err).Warn("Failed to cache active challenge id")
	}
}
