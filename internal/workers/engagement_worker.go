package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/cache"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// LeaderboardKey is the sorted set mirroring users' aggregate like counts,
// member = username, score = total likes.
const LeaderboardKey = "leaderboard:total_likes"

// EngagementWorker consumes the engagement event stream, refreshes the
// local subscription hub so writes from other instances loop back into live
// views, and maintains the Redis leaderboard mirror.
type EngagementWorker struct {
	consumer *queue.KafkaConsumer
	userRepo *repository.UserRepository
	cache    *cache.RedisClient
	hub      *subscriptions.Hub
	logger   *logger.Logger
	cancel   context.CancelFunc
}

func NewEngagementWorker(
	consumer *queue.KafkaConsumer,
	userRepo *repository.UserRepository,
	cache *cache.RedisClient,
	hub *subscriptions.Hub,
	logger *logger.Logger,
) *EngagementWorker {
	return &EngagementWorker{
		consumer: consumer,
		userRepo: userRepo,
		cache:    cache,
		hub:      hub,
		logger:   logger,
	}
}

func (w *EngagementWorker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.logger.Info("Engagement worker started")
	return w.consumer.Subscribe(ctx, func(event queue.Event) error {
		return w.handleEvent(ctx, event)
	})
}

func (w *EngagementWorker) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	return w.consumer.Close()
}

func (w *EngagementWorker) handleEvent(ctx context.Context, event queue.Event) error {
	switch event.Type {
	case queue.EventVideoCreated, queue.EventVideoDeleted:
		var data queue.VideoEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode video event: %w", err)
		}
		w.hub.Notify(ctx,
			subscriptions.TopicVideos,
			subscriptions.TopicUsers,
			subscriptions.TopicUser(data.OwnerID),
		)

	case queue.EventLikeToggled:
		var data queue.LikeEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode like event: %w", err)
		}
		w.refreshLeaderboard(ctx, data.OwnerID)
		w.hub.Notify(ctx,
			subscriptions.TopicVideos,
			subscriptions.TopicUsers,
			subscriptions.TopicUser(data.OwnerID),
		)

	case queue.EventFollowToggled:
		var data queue.FollowEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode follow event: %w", err)
		}
		w.hub.Notify(ctx,
			subscriptions.TopicUsers,
			subscriptions.TopicUser(data.TargetID),
			subscriptions.TopicUser(data.FollowerID),
			subscriptions.TopicFollowing(data.FollowerID),
		)

	case queue.EventCommentCreated, queue.EventCommentLiked:
		var data queue.CommentEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode comment event: %w", err)
		}
		w.hub.Notify(ctx, subscriptions.TopicComments(data.VideoID))

	case queue.EventUserCreated, queue.EventUserHealed:
		var data queue.UserEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode user event: %w", err)
		}
		w.refreshLeaderboard(ctx, data.UserID)
		w.hub.Notify(ctx, subscriptions.TopicUsers, subscriptions.TopicUser(data.UserID))

	case queue.EventBadgePurchased:
		var data queue.BadgeEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("failed to decode badge event: %w", err)
		}
		w.hub.Notify(ctx, subscriptions.TopicUsers, subscriptions.TopicUser(data.UserID))

	case queue.EventChallengeRotated:
		w.hub.Notify(ctx, subscriptions.TopicChallenge)

	default:
		w.logger.WithField("type", event.Type).Debug("Ignoring unknown event type")
	}

	return nil
}

// refreshLeaderboard re-scores one user in the sorted-set mirror from the
// database, the source of truth for totals.
func (w *EngagementWorker) refreshLeaderboard(ctx context.Context, userID string) {
	if w.cache == nil {
		return
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		w.logger.WithError(err).Warn("Invalid user id in event")
		return
	}

	user, err := w.userRepo.GetByID(ctx, id)
	if err != nil || user == nil {
		if err != nil {
			w.logger.WithError(err).Warn("Failed to load user for leaderboard refresh")
		}
		return
	}

	if err := w.cache.ZAdd(ctx, LeaderboardKey, &redis.Z{
		Score:  float64(user.TotalLikes),
		Member: user.Username,
	}); err != nil {
		w.logger.WithError(err).Warn("Failed to update leaderboard cache")
	}
}
