package services_test

import (
	"context"
	"testing"

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

func newEngagementService(t *testing.T) (*services.EngagementService, *repository.Database, *testutil.FakePublisher, *testutil.FakeNotifier) {
	t.Helper()

	db := testutil.NewDB(t)
	producer := &testutil.FakePublisher{}
	notifier := &testutil.FakeNotifier{}

	svc := services.NewEngagementService(
		db,
		repository.NewVideoRepository(db.DB),
		repository.NewLikeRepository(db.DB),
		repository.NewUserRepository(db.DB),
		repository.NewFollowRepository(db.DB),
		repository.NewCommentRepository(db.DB),
		producer,
		notifier,
		logger.NewLogger(),
	)
	return svc, db, producer, notifier
}

func TestToggleLikeAddAndRemove(t *testing.T) {
	svc, db, producer, _ := newEngagementService(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, nil)
	viewer := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, owner, nil)

	result, err := svc.ToggleLike(ctx, video.ID, viewer.ID)
	require.NoError(t, err)
	assert.True(t, result.Liked)
	assert.Equal(t, owner.ID, result.OwnerID)

	var got models.Video
	require.NoError(t, db.First(&got, "id = ?", video.ID).Error)
	assert.Equal(t, int64(1), got.Likes)

	var gotOwner models.User
	require.NoError(t, db.First(&gotOwner, "id = ?", owner.ID).Error)
	assert.Equal(t, int64(1), gotOwner.TotalLikes)

	liked, err := svc.IsLiked(ctx, video.ID, viewer.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	// Second toggle removes the edge and both counters together.
	result, err = svc.ToggleLike(ctx, video.ID, viewer.ID)
	require.NoError(t, err)
	assert.False(t, result.Liked)

	require.NoError(t, db.First(&got, "id = ?", video.ID).Error)
	assert.Equal(t, int64(0), got.Likes)

	require.NoError(t, db.First(&gotOwner, "id = ?", owner.ID).Error)
	assert.Equal(t, int64(0), gotOwner.TotalLikes)

	liked, err = svc.IsLiked(ctx, video.ID, viewer.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	assert.Len(t, producer.EventsOfType(queue.EventLikeToggled), 2)
}

func TestToggleLikeVideoNotFound(t *testing.T) {
	svc, db, _, _ := newEngagementService(t)

	viewer := testutil.CreateUser(t, db, nil)

	_, err := svc.ToggleLike(context.Background(), uuid.New(), viewer.ID)
	assert.ErrorIs(t, err, services.ErrVideoNotFound)
}

func TestToggleLikeTwoViewers(t *testing.T) {
	svc, db, _, _ := newEngagementService(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, owner, nil)
	a := testutil.CreateUser(t, db, nil)
	b := testutil.CreateUser(t, db, nil)

	_, err := svc.ToggleLike(ctx, video.ID, a.ID)
	require.NoError(t, err)
	_, err = svc.ToggleLike(ctx, video.ID, b.ID)
	require.NoError(t, err)

	var got models.Video
	require.NoError(t, db.First(&got, "id = ?", video.ID).Error)
	assert.Equal(t, int64(2), got.Likes)

	// One viewer unliking leaves the other's like intact.
	_, err = svc.ToggleLike(ctx, video.ID, a.ID)
	require.NoError(t, err)

	require.NoError(t, db.First(&got, "id = ?", video.ID).Error)
	assert.Equal(t, int64(1), got.Likes)
}

func TestToggleFollowAddAndRemove(t *testing.T) {
	svc, db, producer, _ := newEngagementService(t)
	ctx := context.Background()

	follower := testutil.CreateUser(t, db, nil)
	target := testutil.CreateUser(t, db, nil)

	following, err := svc.ToggleFollow(ctx, target.ID, follower.ID)
	require.NoError(t, err)
	assert.True(t, following)

	var gotTarget, gotFollower models.User
	require.NoError(t, db.First(&gotTarget, "id = ?", target.ID).Error)
	require.NoError(t, db.First(&gotFollower, "id = ?", follower.ID).Error)
	assert.Equal(t, int64(1), gotTarget.Followers)
	assert.Equal(t, int64(1), gotFollower.Following)

	status, err := svc.IsFollowing(ctx, follower.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, status)

	following, err = svc.ToggleFollow(ctx, target.ID, follower.ID)
	require.NoError(t, err)
	assert.False(t, following)

	require.NoError(t, db.First(&gotTarget, "id = ?", target.ID).Error)
	require.NoError(t, db.First(&gotFollower, "id = ?", follower.ID).Error)
	assert.Equal(t, int64(0), gotTarget.Followers)
	assert.Equal(t, int64(0), gotFollower.Following)

	assert.Len(t, producer.EventsOfType(queue.EventFollowToggled), 2)
}

func TestToggleFollowSelf(t *testing.T) {
	svc, db, _, _ := newEngagementService(t)

	user := testutil.CreateUser(t, db, nil)

	_, err := svc.ToggleFollow(context.Background(), user.ID, user.ID)
	assert.ErrorIs(t, err, services.ErrSelfFollow)
}

func TestToggleFollowTargetMissing(t *testing.T) {
	svc, db, _, _ := newEngagementService(t)

	follower := testutil.CreateUser(t, db, nil)

	_, err := svc.ToggleFollow(context.Background(), uuid.New(), follower.ID)
	assert.ErrorIs(t, err, services.ErrUserNotFound)
}

func TestFollowersAndFollowingLists(t *testing.T) {
	svc, db, _, _ := newEngagementService(t)
	ctx := context.Background()

	follower := testutil.CreateUser(t, db, nil)
	target := testutil.CreateUser(t, db, nil)

	_, err := svc.ToggleFollow(ctx, target.ID, follower.ID)
	require.NoError(t, err)

	followers, err := svc.Followers(ctx, target.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, follower.ID, followers[0].ID)

	following, err := svc.Following(ctx, follower.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, target.ID, following[0].ID)
}

func TestLikeComment(t *testing.T) {
	svc, db, _, notifier := newEngagementService(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, owner, nil)
	comment := &models.Comment{
		VideoID:  video.ID,
		UserID:   owner.ID,
		Username: owner.Username,
		Text:     "nice one",
	}
	require.NoError(t, db.Create(comment).Error)

	likes, err := svc.LikeComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), likes)

	likes, err = svc.LikeComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), likes)

	assert.Contains(t, notifier.Topics(), "videos/"+video.ID.String()+"/comments")
}

func TestLikeCommentNotFound(t *testing.T) {
	svc, _, _, _ := newEngagementService(t)

	_, err := svc.LikeComment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, services.ErrCommentNotFound)
}
