package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/google/uuid"
)

const usernameCacheTTL = 24 * time.Hour

// NameCache is the persisted display-name preference: a key→string store
// read without a round-trip when composing comment authorship.
type NameCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

type CommentService struct {
	commentRepo *repository.CommentRepository
	videoRepo   *repository.VideoRepository
	userRepo    *repository.UserRepository
	names       NameCache
	producer    queue.Publisher
	notifier    subscriptions.Notifier
	logger      *logger.Logger
}

func NewCommentService(
	commentRepo *repository.CommentRepository,
	videoRepo *repository.VideoRepository,
	userRepo *repository.UserRepository,
	names NameCache,
	producer queue.Publisher,
	notifier subscriptions.Notifier,
	logger *logger.Logger,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		videoRepo:   videoRepo,
		userRepo:    userRepo,
		names:       names,
		producer:    producer,
		notifier:    notifier,
		logger:      logger,
	}
}

type PostCommentRequest struct {
	Text     string  `json:"text" binding:"required,min=1,max=500"`
	ParentID *string `json:"parent_id"`
}

// PostComment adds a top-level comment or a one-level reply. The parent of
// a reply must be a top-level comment on the same video; nesting depth is
// fixed at two.
func (s *CommentService) PostComment(ctx context.Context, videoID, authorID uuid.UUID, email string, req *PostCommentRequest) (*models.Comment, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && *req.ParentID != "" {
		pid, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent comment ID: %w", err)
		}

		parent, err := s.commentRepo.GetByID(ctx, pid)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, ErrParentNotFound
		}
		if parent.VideoID != videoID {
			return nil, ErrParentMismatch
		}
		if parent.ParentID != nil {
			return nil, ErrReplyDepth
		}
		parentID = &pid
	}

	comment := &models.Comment{
		VideoID:  videoID,
		UserID:   authorID,
		Username: s.authorName(ctx, authorID, email),
		Text:     text,
		ParentID: parentID,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	var parentStr *string
	if parentID != nil {
		v := parentID.String()
		parentStr = &v
	}
	event := queue.NewEvent(queue.EventCommentCreated, queue.CommentEventData{
		CommentID: comment.ID.String(),
		VideoID:   videoID.String(),
		AuthorID:  authorID.String(),
		ParentID:  parentStr,
	})
	if err := s.producer.Publish(ctx, authorID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish comment created event")
	}

	s.notifier.Notify(ctx, subscriptions.TopicComments(videoID.String()))

	s.logger.WithFields(map[string]interface{}{
		"comment_id": comment.ID,
		"video_id":   videoID,
		"author_id":  authorID,
	}).Info("Comment posted")

	return comment, nil
}

func (s *CommentService) GetThread(ctx context.Context, videoID uuid.UUID) (subscriptions.CommentThreadSnapshot, error) {
	comments, err := s.commentRepo.GetByVideoID(ctx, videoID)
	if err != nil {
		return subscriptions.CommentThreadSnapshot{}, err
	}
	return subscriptions.BuildThread(comments), nil
}

// authorName resolves the display name: cached preference first, then the
// user record (warming the cache), then the email prefix.
func (s *CommentService) authorName(ctx context.Context, authorID uuid.UUID, email string) string {
	key := "username:" + authorID.String()
	if s.names != nil {
		if name, err := s.names.Get(ctx, key); err == nil && name != "" {
			return name
		}
	}

	if user, err := s.userRepo.GetByID(ctx, authorID); err == nil && user != nil && user.Username != "" {
		if s.names != nil {
			if err := s.names.Set(ctx, key, user.Username, usernameCacheTTL); err != nil {
				s.logger.WithError(err).Warn("Failed to cache username")
			}
		}
		return user.Username
	}

	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return "User"
}
