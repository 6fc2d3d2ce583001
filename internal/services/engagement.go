package services

import (
	"context"
	"strings"
	"time"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EngagementService keeps paired counters consistent with their edge
// documents. Like and follow toggles run as single transactions: the edge
// and both counters change together or not at all.
type EngagementService struct {
	db          *repository.Database
	videoRepo   *repository.VideoRepository
	likeRepo    *repository.LikeRepository
	userRepo    *repository.UserRepository
	followRepo  *repository.FollowRepository
	commentRepo *repository.CommentRepository
	producer    queue.Publisher
	notifier    subscriptions.Notifier
	logger      *logger.Logger
}

func NewEngagementService(
	db *repository.Database,
	videoRepo *repository.VideoRepository,
	likeRepo *repository.LikeRepository,
	userRepo *repository.UserRepository,
	followRepo *repository.FollowRepository,
	commentRepo *repository.CommentRepository,
	producer queue.Publisher,
	notifier subscriptions.Notifier,
	logger *logger.Logger,
) *EngagementService {
	return &EngagementService{
		db:          db,
		videoRepo:   videoRepo,
		likeRepo:    likeRepo,
		userRepo:    userRepo,
		followRepo:  followRepo,
		commentRepo: commentRepo,
		producer:    producer,
		notifier:    notifier,
		logger:      logger,
	}
}

type LikeResult struct {
	VideoID uuid.UUID `json:"video_id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Liked   bool      `json:"liked"`
}

const txAttempts = 3

// withRetry re-runs the transaction on write conflicts, mirroring the
// optimistic retry a transactional document store performs internally.
func (s *EngagementService) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isWriteConflict(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	return err
}

func isWriteConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "database is locked")
}

// ToggleLike flips the like edge for (video, viewer) and moves the video's
// like count and the owner's aggregate like count with it, atomically.
// Edge absent: create edge, both counters +1. Edge present: delete edge,
// both counters -1. On abort nothing is observable and the caller must not
// flip its optimistic state.
func (s *EngagementService) ToggleLike(ctx context.Context, videoID, viewerID uuid.UUID) (*LikeResult, error) {
	var result *LikeResult

	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		video, err := s.videoRepo.WithTx(tx).GetByID(ctx, videoID)
		if err != nil {
			return err
		}
		if video == nil {
			return ErrVideoNotFound
		}

		like, err := s.likeRepo.WithTx(tx).Get(ctx, videoID, viewerID)
		if err != nil {
			return err
		}

		var delta int64 = 1
		if like != nil {
			delta = -1
		}

		if err := s.videoRepo.WithTx(tx).UpdateLikeCount(ctx, videoID, delta); err != nil {
			return err
		}
		if err := s.userRepo.WithTx(tx).UpdateTotalLikes(ctx, video.UserID, delta); err != nil {
			return err
		}

		if like != nil {
			if err := s.likeRepo.WithTx(tx).Delete(ctx, videoID, viewerID); err != nil {
				return err
			}
		} else {
			if err := s.likeRepo.WithTx(tx).Create(ctx, &models.Like{VideoID: videoID, ViewerID: viewerID}); err != nil {
				return err
			}
		}

		result = &LikeResult{VideoID: videoID, OwnerID: video.UserID, Liked: like == nil}
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := queue.NewEvent(queue.EventLikeToggled, queue.LikeEventData{
		VideoID:  videoID.String(),
		OwnerID:  result.OwnerID.String(),
		ViewerID: viewerID.String(),
		Liked:    result.Liked,
	})
	if err := s.producer.Publish(ctx, viewerID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish like toggled event")
	}

	s.notifier.Notify(ctx,
		subscriptions.TopicVideos,
		subscriptions.TopicUsers,
		subscriptions.TopicUser(result.OwnerID.String()),
	)

	s.logger.WithFields(map[string]interface{}{
		"video_id":  videoID,
		"viewer_id": viewerID,
		"liked":     result.Liked,
	}).Info("Like toggled")

	return result, nil
}

// ToggleFollow flips the follow edge between follower and target and moves
// both counters with it in one transaction. The follower/following mirror
// documents of the source data model collapse into a single edge row here,
// so the pair cannot diverge even on partial failure.
func (s *EngagementService) ToggleFollow(ctx context.Context, targetID, followerID uuid.UUID) (bool, error) {
	if targetID == followerID {
		return false, ErrSelfFollow
	}

	var following bool

	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		target, err := s.userRepo.WithTx(tx).GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target == nil {
			return ErrUserNotFound
		}

		edge, err := s.followRepo.WithTx(tx).Get(ctx, followerID, targetID)
		if err != nil {
			return err
		}

		var delta int64 = 1
		if edge != nil {
			delta = -1
		}

		if edge != nil {
			if err := s.followRepo.WithTx(tx).Delete(ctx, followerID, targetID); err != nil {
				return err
			}
		} else {
			if err := s.followRepo.WithTx(tx).Create(ctx, &models.Follow{FollowerID: followerID, TargetID: targetID}); err != nil {
				return err
			}
		}

		if err := s.userRepo.WithTx(tx).UpdateFollowersCount(ctx, targetID, delta); err != nil {
			return err
		}
		if err := s.userRepo.WithTx(tx).UpdateFollowingCount(ctx, followerID, delta); err != nil {
			return err
		}

		following = edge == nil
		return nil
	})
	if err != nil {
		return false, err
	}

	event := queue.NewEvent(queue.EventFollowToggled, queue.FollowEventData{
		FollowerID: followerID.String(),
		TargetID:   targetID.String(),
		Following:  following,
	})
	if err := s.producer.Publish(ctx, followerID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish follow toggled event")
	}

	s.notifier.Notify(ctx,
		subscriptions.TopicUsers,
		subscriptions.TopicUser(targetID.String()),
		subscriptions.TopicUser(followerID.String()),
		subscriptions.TopicFollowing(followerID.String()),
	)

	s.logger.WithFields(map[string]interface{}{
		"follower_id": followerID,
		"target_id":   targetID,
		"following":   following,
	}).Info("Follow toggled")

	return following, nil
}

// LikeComment bumps a comment's like count by one. It is a plain
// read-then-write: comment likes feed no paired counter, so a lost
// increment under concurrent clicks is accepted.
func (s *EngagementService) LikeComment(ctx context.Context, commentID uuid.UUID) (int64, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return 0, err
	}
	if comment == nil {
		return 0, ErrCommentNotFound
	}

	likes := comment.Likes + 1
	if err := s.commentRepo.SetLikes(ctx, commentID, likes); err != nil {
		return 0, err
	}

	event := queue.NewEvent(queue.EventCommentLiked, queue.CommentEventData{
		CommentID: commentID.String(),
		VideoID:   comment.VideoID.String(),
		AuthorID:  comment.UserID.String(),
	})
	if err := s.producer.Publish(ctx, commentID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish comment liked event")
	}

	s.notifier.Notify(ctx, subscriptions.TopicComments(comment.VideoID.String()))

	return likes, nil
}

// IsLiked reports the edge state so the client can gate its toggle control
// until the previous toggle's effect is visible.
func (s *EngagementService) IsLiked(ctx context.Context, videoID, viewerID uuid.UUID) (bool, error) {
	return s.likeRepo.IsLiked(ctx, videoID, viewerID)
}

func (s *EngagementService) IsFollowing(ctx context.Context, followerID, targetID uuid.UUID) (bool, error) {
	return s.followRepo.IsFollowing(ctx, followerID, targetID)
}

func (s *EngagementService) Followers(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	return s.followRepo.GetFollowers(ctx, userID)
}

func (s *EngagementService) Following(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	return s.followRepo.GetFollowing(ctx, userID)
}
