package services_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/challengehub/challengehub/internal/config"
	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/services"
	"github.com/challengehub/challengehub/internal/testutil"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	url     string
	err     error
	uploads int
}

func (u *fakeUploader) Upload(ctx context.Context, filename string, file io.Reader) (string, error) {
	u.uploads++
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

func newVideoService(t *testing.T) (*services.VideoService, *repository.Database, *fakeUploader, *testutil.FakePublisher) {
	t.Helper()

	db := testutil.NewDB(t)
	producer := &testutil.FakePublisher{}
	notifier := &testutil.FakeNotifier{}
	log := logger.NewLogger()

	userRepo := repository.NewUserRepository(db.DB)
	userService := services.NewUserService(userRepo, producer, notifier, log)
	challengeService := services.NewChallengeService(
		repository.NewChallengeRepository(db.DB),
		nil, producer, notifier, 24*time.Hour, log,
	)
	uploader := &fakeUploader{url: "https://media.example.com/clip.mp4"}

	mediaCfg := &config.MediaConfig{
		MaxSizeBytes: 50 * 1024 * 1024,
		MaxDuration:  31 * time.Second,
	}

	svc := services.NewVideoService(
		repository.NewVideoRepository(db.DB),
		userRepo,
		userService,
		challengeService,
		uploader,
		mediaCfg,
		producer,
		notifier,
		log,
	)
	return svc, db, uploader, producer
}

func submitRequest() *services.SubmitVideoRequest {
	return &services.SubmitVideoRequest{
		FileName:    "clip.mp4",
		ContentType: "video/mp4",
		SizeBytes:   1024,
		Duration:    20 * time.Second,
		File:        strings.NewReader("video-bytes"),
	}
}

func TestSubmitVideoAwardsPointsAndStreak(t *testing.T) {
	svc, db, _, producer := newVideoService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, nil)

	video, err := svc.SubmitVideo(ctx, user.ID, user.Email, submitRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/clip.mp4", video.VideoURL)
	assert.True(t, video.PointsAwarded)
	assert.NotEmpty(t, video.ChallengeID)

	var gotUser models.User
	require.NoError(t, db.First(&gotUser, "id = ?", user.ID).Error)
	assert.Equal(t, int64(10), gotUser.Points)
	assert.Equal(t, int64(1), gotUser.Streak)

	assert.Len(t, producer.EventsOfType(queue.EventVideoCreated), 1)
}

func TestSubmitVideoRejectsNonVideoFile(t *testing.T) {
	svc, db, uploader, _ := newVideoService(t)

	user := testutil.CreateUser(t, db, nil)
	req := submitRequest()
	req.ContentType = "image/png"

	_, err := svc.SubmitVideo(context.Background(), user.ID, user.Email, req)
	assert.ErrorIs(t, err, services.ErrNotVideoFile)
	assert.Zero(t, uploader.uploads)
}

func TestSubmitVideoRejectsOversizedFile(t *testing.T) {
	svc, db, uploader, _ := newVideoService(t)

	user := testutil.CreateUser(t, db, nil)
	req := submitRequest()
	req.SizeBytes = 51 * 1024 * 1024

	_, err := svc.SubmitVideo(context.Background(), user.ID, user.Email, req)
	assert.ErrorIs(t, err, services.ErrFileTooLarge)
	assert.Zero(t, uploader.uploads)
}

func TestSubmitVideoRejectsLongDuration(t *testing.T) {
	svc, db, uploader, _ := newVideoService(t)

	user := testutil.CreateUser(t, db, nil)
	req := submitRequest()
	req.Duration = 45 * time.Second

	_, err := svc.SubmitVideo(context.Background(), user.ID, user.Email, req)
	assert.ErrorIs(t, err, services.ErrVideoTooLong)
	assert.Zero(t, uploader.uploads)
}

func TestSubmitVideoRejectsDuplicateForSameChallenge(t *testing.T) {
	svc, db, uploader, _ := newVideoService(t)
	ctx := context.Background()

	user := testutil.CreateUser(t, db, nil)

	_, err := svc.SubmitVideo(ctx, user.ID, user.Email, submitRequest())
	require.NoError(t, err)

	_, err = svc.SubmitVideo(ctx, user.ID, user.Email, submitRequest())
	assert.ErrorIs(t, err, services.ErrDuplicateSubmission)

	// The duplicate is rejected before the upload.
	assert.Equal(t, 1, uploader.uploads)

	var count int64
	require.NoError(t, db.Model(&models.Video{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var gotUser models.User
	require.NoError(t, db.First(&gotUser, "id = ?", user.ID).Error)
	assert.Equal(t, int64(10), gotUser.Points)
}

func TestSubmitVideoHealsMissingUserRecord(t *testing.T) {
	svc, db, _, producer := newVideoService(t)
	ctx := context.Background()

	missingID := uuid.New()

	video, err := svc.SubmitVideo(ctx, missingID, "ghost@example.com", submitRequest())
	require.NoError(t, err)
	assert.Equal(t, missingID, video.UserID)

	var healed models.User
	require.NoError(t, db.First(&healed, "id = ?", missingID).Error)
	assert.True(t, strings.HasPrefix(healed.Username, "ghost_"))
	assert.Equal(t, "ghost@example.com", healed.Email)

	assert.Len(t, producer.EventsOfType(queue.EventUserHealed), 1)
}

func TestDeleteVideoOwnerOnly(t *testing.T) {
	svc, db, _, _ := newVideoService(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, nil)
	other := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, owner, nil)

	err := svc.Delete(ctx, video.ID, other.ID)
	assert.ErrorIs(t, err, services.ErrPermissionDenied)

	require.NoError(t, svc.Delete(ctx, video.ID, owner.ID))

	_, err = svc.GetByID(ctx, video.ID)
	assert.ErrorIs(t, err, services.ErrVideoNotFound)
}
