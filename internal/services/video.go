package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/challengehub/challengehub/internal/config"
	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/media"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/google/uuid"
)

const submissionPoints = 10

type VideoService struct {
	videoRepo   *repository.VideoRepository
	userRepo    *repository.UserRepository
	userService *UserService
	challenges  *ChallengeService
	uploader    media.Uploader
	mediaCfg    *config.MediaConfig
	producer    queue.Publisher
	notifier    subscriptions.Notifier
	logger      *logger.Logger
}

func NewVideoService(
	videoRepo *repository.VideoRepository,
	userRepo *repository.UserRepository,
	userService *UserService,
	challenges *ChallengeService,
	uploader media.Uploader,
	mediaCfg *config.MediaConfig,
	producer queue.Publisher,
	notifier subscriptions.Notifier,
	logger *logger.Logger,
) *VideoService {
	return &VideoService{
		videoRepo:   videoRepo,
		userRepo:    userRepo,
		userService: userService,
		challenges:  challenges,
		uploader:    uploader,
		mediaCfg:    mediaCfg,
		producer:    producer,
		notifier:    notifier,
		logger:      logger,
	}
}

type SubmitVideoRequest struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Duration    time.Duration
	File        io.Reader
}

// SubmitVideo validates the file, rejects duplicate submissions for the
// active challenge, uploads the media, and records the video. All checks
// run before any write; a failure leaves no partial state. On success the
// uploader is awarded points and an extended streak.
func (s *VideoService) SubmitVideo(ctx context.Context, userID uuid.UUID, email string, req *SubmitVideoRequest) (*models.Video, error) {
	if !strings.HasPrefix(req.ContentType, "video/") {
		return nil, ErrNotVideoFile
	}
	if req.SizeBytes > s.mediaCfg.MaxSizeBytes {
		return nil, ErrFileTooLarge
	}
	if req.Duration > s.mediaCfg.MaxDuration {
		return nil, ErrVideoTooLong
	}

	challenge, err := s.challenges.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active challenge: %w", err)
	}

	count, err := s.videoRepo.CountByUserAndChallenge(ctx, userID, challenge.ChallengeID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateSubmission
	}

	url, err := s.uploader.Upload(ctx, req.FileName, req.File)
	if err != nil {
		return nil, fmt.Errorf("failed to upload video: %w", err)
	}

	user, err := s.userService.EnsureUser(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	video := &models.Video{
		UserID:        user.ID,
		ChallengeID:   challenge.ChallengeID,
		VideoURL:      url,
		PointsAwarded: true,
	}
	if err := s.videoRepo.Create(ctx, video); err != nil {
		return nil, err
	}

	if err := s.userRepo.AwardSubmission(ctx, user.ID, submissionPoints); err != nil {
		s.logger.WithError(err).Error("Failed to award submission points")
	}

	event := queue.NewEvent(queue.EventVideoCreated, queue.VideoEventData{
		VideoID:     video.ID.String(),
		OwnerID:     user.ID.String(),
		ChallengeID: challenge.ChallengeID,
	})
	if err := s.producer.Publish(ctx, user.ID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish video created event")
	}

	s.notifier.Notify(ctx,
		subscriptions.TopicVideos,
		subscriptions.TopicUsers,
		subscriptions.TopicUser(user.ID.String()),
	)

	s.logger.WithFields(map[string]interface{}{
		"video_id":     video.ID,
		"user_id":      user.ID,
		"challenge_id": challenge.ChallengeID,
	}).Info("Video submitted")

	return video, nil
}

func (s *VideoService) GetByID(ctx context.Context, videoID uuid.UUID) (*models.Video, error) {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video == nil {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

// Delete removes a video. Only its owner may do so.
func (s *VideoService) Delete(ctx context.Context, videoID, requesterID uuid.UUID) error {
	video, err := s.videoRepo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}
	if video == nil {
		return ErrVideoNotFound
	}
	if video.UserID != requesterID {
		return ErrPermissionDenied
	}

	if err := s.videoRepo.Delete(ctx, videoID); err != nil {
		return err
	}

	event := queue.NewEvent(queue.EventVideoDeleted, queue.VideoEventData{
		VideoID: videoID.String(),
		OwnerID: video.UserID.String(),
	})
	if err := s.producer.Publish(ctx, requesterID.String(), event); err != nil {
		s.logger.WithError(err).Error("Failed to publish video deleted event")
	}

	s.notifier.Notify(ctx, subscriptions.TopicVideos)

	s.logger.WithFields(map[string]interface{}{
		"video_id": videoID,
		"user_id":  requesterID,
	}).Info("Video deleted")

	return nil
}
