package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/google/uuid"
)

type FeedMode string

const (
	FeedModeGlobal    FeedMode = "global"
	FeedModeFollowing FeedMode = "following"
)

const leaderboardSize = 10

type FeedItem struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Username    string    `json:"username"`
	VideoURL    string    `json:"video_url"`
	ChallengeID string    `json:"challenge_id"`
	Likes       int64     `json:"likes"`
	CreatedAt   time.Time `json:"created_at"`
}

type FeedSnapshot struct {
	Mode   FeedMode   `json:"mode"`
	Videos []FeedItem `json:"videos"`
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Medal      string `json:"medal,omitempty"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	TotalLikes int64  `json:"total_likes"`
}

type LeaderboardSnapshot struct {
	Entries []LeaderboardEntry `json:"entries"`
}

type ThreadComment struct {
	*models.Comment
	Replies []*models.Comment `json:"replies"`
}

type CommentThreadSnapshot struct {
	Total    int              `json:"total"`
	Comments []*ThreadComment `json:"comments"`
}

type VideoGridSnapshot struct {
	Count  int        `json:"count"`
	Videos []FeedItem `json:"videos"`
}

type FollowStatusSnapshot struct {
	Following bool `json:"following"`
}

// Views shapes repository reads into the snapshots the live subscriptions
// deliver. Each Subscribe method binds a query to the topics whose writes
// invalidate it.
type Views struct {
	hub         *Hub
	userRepo    *repository.UserRepository
	videoRepo   *repository.VideoRepository
	commentRepo *repository.CommentRepository
	followRepo  *repository.FollowRepository
	logger      *logger.Logger
}

func NewViews(
	hub *Hub,
	userRepo *repository.UserRepository,
	videoRepo *repository.VideoRepository,
	commentRepo *repository.CommentRepository,
	followRepo *repository.FollowRepository,
	logger *logger.Logger,
) *Views {
	return &Views{
		hub:         hub,
		userRepo:    userRepo,
		videoRepo:   videoRepo,
		commentRepo: commentRepo,
		followRepo:  followRepo,
		logger:      logger,
	}
}

// SubscribeFeed opens the main video feed. In following mode the viewer's
// following set is fetched once at subscribe time and applied as a client
// side filter on every snapshot, per the mode-switch contract.
func (v *Views) SubscribeFeed(ctx context.Context, viewerID uuid.UUID, mode FeedMode) (*Subscription, error) {
	var followed map[uuid.UUID]struct{}
	if mode == FeedModeFollowing {
		ids, err := v.followRepo.FollowingIDs(ctx, viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch following set: %w", err)
		}
		followed = make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			followed[id] = struct{}{}
		}
	}

	query := func(ctx context.Context) (interface{}, error) {
		videos, err := v.videoRepo.ListRecent(ctx, 0)
		if err != nil {
			return nil, err
		}

		snapshot := FeedSnapshot{Mode: mode, Videos: make([]FeedItem, 0, len(videos))}
		for _, video := range videos {
			if followed != nil {
				if _, ok := followed[video.UserID]; !ok {
					continue
				}
			}
			snapshot.Videos = append(snapshot.Videos, feedItem(video))
		}
		return snapshot, nil
	}

	return v.hub.Subscribe(ctx, query, TopicVideos)
}

// SubscribeLeaderboard opens the top-10 ranking. Rank and medal are
// positional within each snapshot, never stored.
func (v *Views) SubscribeLeaderboard(ctx context.Context) (*Subscription, error) {
	query := func(ctx context.Context) (interface{}, error) {
		users, err := v.userRepo.Leaderboard(ctx, leaderboardSize)
		if err != nil {
			return nil, err
		}
		return LeaderboardSnapshot{Entries: RankUsers(users)}, nil
	}

	return v.hub.Subscribe(ctx, query, TopicUsers)
}

// RankUsers computes the rank-dependent decoration for a leaderboard
// snapshot: medals for the top three, numeric rank for the rest.
func RankUsers(users []*models.User) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(users))
	for i, user := range users {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			Medal:      MedalFor(i + 1),
			UserID:     user.ID.String(),
			Username:   user.Username,
			TotalLikes: user.TotalLikes,
		})
	}
	return entries
}

// MedalFor returns the medal for a 1-based rank, empty below the podium.
func MedalFor(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return ""
	}
}

// SubscribeCommentThread opens a video's comment thread, nested one level.
func (v *Views) SubscribeCommentThread(ctx context.Context, videoID uuid.UUID) (*Subscription, error) {
	query := func(ctx context.Context) (interface{}, error) {
		comments, err := v.commentRepo.GetByVideoID(ctx, videoID)
		if err != nil {
			return nil, err
		}
		return BuildThread(comments), nil
	}

	return v.hub.Subscribe(ctx, query, TopicComments(videoID.String()))
}

// BuildThread partitions a flat comment list into top-level comments with
// their replies nested under them. A reply whose parent is not a top-level
// comment in the same list is dropped from display.
func BuildThread(comments []*models.Comment) CommentThreadSnapshot {
	snapshot := CommentThreadSnapshot{Total: len(comments)}

	byParent := make(map[uuid.UUID][]*models.Comment)
	for _, c := range comments {
		if c.ParentID != nil {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
		}
	}

	for _, c := range comments {
		if c.ParentID != nil {
			continue
		}
		replies := byParent[c.ID]
		if replies == nil {
			replies = []*models.Comment{}
		}
		snapshot.Comments = append(snapshot.Comments, &ThreadComment{
			Comment: c,
			Replies: replies,
		})
	}
	return snapshot
}

// SubscribeUserVideos opens the per-user video grid.
func (v *Views) SubscribeUserVideos(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	query := func(ctx context.Context) (interface{}, error) {
		videos, err := v.videoRepo.GetByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		snapshot := VideoGridSnapshot{Count: len(videos), Videos: make([]FeedItem, 0, len(videos))}
		for _, video := range videos {
			snapshot.Videos = append(snapshot.Videos, feedItem(video))
		}
		return snapshot, nil
	}

	return v.hub.Subscribe(ctx, query, TopicVideos)
}

// SubscribeProfile opens a single user document: points, streak, badges,
// counters.
func (v *Views) SubscribeProfile(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	query := func(ctx context.Context) (interface{}, error) {
		user, err := v.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, fmt.Errorf("user %s not found", userID)
		}
		return user, nil
	}

	return v.hub.Subscribe(ctx, query, TopicUser(userID.String()), TopicUsers)
}

// SubscribeFollowStatus tracks whether the viewer follows the target.
func (v *Views) SubscribeFollowStatus(ctx context.Context, followerID, targetID uuid.UUID) (*Subscription, error) {
	query := func(ctx context.Context) (interface{}, error) {
		following, err := v.followRepo.IsFollowing(ctx, followerID, targetID)
		if err != nil {
			return nil, err
		}
		return FollowStatusSnapshot{Following: following}, nil
	}

	return v.hub.Subscribe(ctx, query, TopicFollowing(followerID.String()))
}

func feedItem(video *models.Video) FeedItem {
	return FeedItem{
		ID:          video.ID.String(),
		OwnerID:     video.UserID.String(),
		Username:    video.User.Username,
		VideoURL:    video.VideoURL,
		ChallengeID: video.ChallengeID,
		Likes:       video.Likes,
		CreatedAt:   video.CreatedAt,
	}
}
