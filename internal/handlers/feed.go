package handlers

import (
	"context"
	"net/http"

	"github.com/challengehub/challengehub/internal/middleware"
	"github.com/challengehub/challengehub/internal/services"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/internal/workers"
	"github.com/challengehub/challengehub/pkg/cache"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FeedHandler serves one-shot REST reads of the same views the WebSocket
// subscriptions stream. Each read opens a scoped subscription, takes the
// initial snapshot, and closes it.
type FeedHandler struct {
	views      *subscriptions.Views
	challenges *services.ChallengeService
	cache      *cache.RedisClient
	logger     *logger.Logger
}

func NewFeedHandler(views *subscriptions.Views, challenges *services.ChallengeService, cache *cache.RedisClient, logger *logger.Logger) *FeedHandler {
	return &FeedHandler{
		views:      views,
		challenges: challenges,
		cache:      cache,
		logger:     logger,
	}
}

// snapshotOnce runs a live query once: subscribe, take the seeded snapshot,
// tear down.
func snapshotOnce(ctx context.Context, subscribe func(context.Context) (*subscriptions.Subscription, error)) (interface{}, error) {
	sub, err := subscribe(ctx)
	if err != nil {
		return nil, err
	}
	defer sub.Close()
	return <-sub.Snapshots(), nil
}

func (h *FeedHandler) GetFeed(c *gin.Context) {
	viewerID, err := uuid.Parse(middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	mode := subscriptions.FeedMode(c.DefaultQuery("mode", string(subscriptions.FeedModeGlobal)))
	if mode != subscriptions.FeedModeGlobal && mode != subscriptions.FeedModeFollowing {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feed mode"})
		return
	}

	snapshot, err := snapshotOnce(c.Request.Context(), func(ctx context.Context) (*subscriptions.Subscription, error) {
		return h.views.SubscribeFeed(ctx, viewerID, mode)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load feed"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetLeaderboard reads the Redis sorted-set mirror when it is populated and
// falls back to the database ranking otherwise. The mirror is maintained by
// the engagement worker; the database remains the source of truth.
func (h *FeedHandler) GetLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		members, err := h.cache.ZRevRangeWithScores(ctx, workers.LeaderboardKey, 0, 9)
		if err == nil && len(members) > 0 {
			entries := make([]subscriptions.LeaderboardEntry, 0, len(members))
			for i, m := range members {
				username, _ := m.Member.(string)
				entries = append(entries, subscriptions.LeaderboardEntry{
					Rank:       i + 1,
					Medal:      subscriptions.MedalFor(i + 1),
					Username:   username,
					TotalLikes: int64(m.Score),
				})
			}
			c.JSON(http.StatusOK, subscriptions.LeaderboardSnapshot{Entries: entries})
			return
		}
		if err != nil {
			h.logger.WithError(err).Warn("Leaderboard cache read failed, falling back to database")
		}
	}

	snapshot, err := snapshotOnce(ctx, h.views.SubscribeLeaderboard)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *FeedHandler) GetUserVideos(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	snapshot, err := snapshotOnce(c.Request.Context(), func(ctx context.Context) (*subscriptions.Subscription, error) {
		return h.views.SubscribeUserVideos(ctx, userID)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load videos"})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// GetChallenge returns the active daily challenge, rotating it first if the
// current one has expired.
func (h *FeedHandler) GetChallenge(c *gin.Context) {
	challenge, err := h.challenges.Active(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve active challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"challenge": challenge})
}
