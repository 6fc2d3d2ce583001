package services_test

import (
	"context"
	"testing"

	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/services"
	"github.com/challengehub/challengehub/internal/testutil"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommentService(t *testing.T) (*services.CommentService, *repository.Database, *testutil.FakeNameCache) {
	t.Helper()

	db := testutil.NewDB(t)
	names := testutil.NewFakeNameCache()
	svc := services.NewCommentService(
		repository.NewCommentRepository(db.DB),
		repository.NewVideoRepository(db.DB),
		repository.NewUserRepository(db.DB),
		names,
		&testutil.FakePublisher{},
		&testutil.FakeNotifier{},
		logger.NewLogger(),
	)
	return svc, db, names
}

func TestPostCommentTopLevel(t *testing.T) {
	svc, db, _ := newCommentService(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, author, nil)

	comment, err := svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text: "  first!  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "first!", comment.Text)
	assert.Equal(t, author.Username, comment.Username)
	assert.Nil(t, comment.ParentID)
}

func TestPostCommentUsesCachedDisplayName(t *testing.T) {
	svc, db, names := newCommentService(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, author, nil)

	require.NoError(t, names.Set(ctx, "username:"+author.ID.String(), "ch_coolname", 0))

	comment, err := svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "ch_coolname", comment.Username)
}

func TestPostCommentFallsBackToEmailPrefix(t *testing.T) {
	svc, db, _ := newCommentService(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, owner, nil)

	// Author has no user record and no cached name.
	comment, err := svc.PostComment(ctx, video.ID, uuid.New(), "drifter@example.com", &services.PostCommentRequest{
		Text: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "drifter", comment.Username)
}

func TestPostCommentReply(t *testing.T) {
	svc, db, _ := newCommentService(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, author, nil)

	parent, err := svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text: "top level",
	})
	require.NoError(t, err)

	parentID := parent.ID.String()
	reply, err := svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text:     "a reply",
		ParentID: &parentID,
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	// Replies to replies are rejected; nesting is fixed at two levels.
	replyID := reply.ID.String()
	_, err = svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text:     "too deep",
		ParentID: &replyID,
	})
	assert.ErrorIs(t, err, services.ErrReplyDepth)
}

func TestPostCommentParentValidation(t *testing.T) {
	svc, db, _ := newCommentService(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, author, nil)
	otherVideo := testutil.CreateVideo(t, db, author, nil)

	missing := uuid.NewString()
	_, err := svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text:     "orphan",
		ParentID: &missing,
	})
	assert.ErrorIs(t, err, services.ErrParentNotFound)

	parent, err := svc.PostComment(ctx, otherVideo.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text: "elsewhere",
	})
	require.NoError(t, err)

	parentID := parent.ID.String()
	_, err = svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text:     "cross video",
		ParentID: &parentID,
	})
	assert.ErrorIs(t, err, services.ErrParentMismatch)
}

func TestPostCommentRejectsBlankText(t *testing.T) {
	svc, db, _ := newCommentService(t)

	author := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, author, nil)

	_, err := svc.PostComment(context.Background(), video.ID, author.ID, author.Email, &services.PostCommentRequest{
		Text: "   ",
	})
	assert.ErrorIs(t, err, services.ErrEmptyComment)
}

func TestPostCommentVideoNotFound(t *testing.T) {
	svc, db, _ := newCommentService(t)

	author := testutil.CreateUser(t, db, nil)

	_, err := svc.PostComment(context.Background(), uuid.New(), author.ID, author.Email, &services.PostCommentRequest{
		Text: "hello",
	})
	assert.ErrorIs(t, err, services.ErrVideoNotFound)
}

func TestGetThreadNestsReplies(t *testing.T) {
	svc, db, _ := newCommentService(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, nil)
	video := testutil.CreateVideo(t, db, author, nil)

	first, err := svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{Text: "first"})
	require.NoError(t, err)

	firstID := first.ID.String()
	_, err = svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{Text: "reply", ParentID: &firstID})
	require.NoError(t, err)

	_, err = svc.PostComment(ctx, video.ID, author.ID, author.Email, &services.PostCommentRequest{Text: "second"})
	require.NoError(t, err)

	thread, err := svc.GetThread(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, thread.Total)
	require.Len(t, thread.Comments, 2)
	assert.Equal(t, "first", thread.Comments[0].Text)
	require.Len(t, thread.Comments[0].Replies, 1)
	assert.Equal(t, "reply", thread.Comments[0].Replies[0].Text)
	assert.Empty(t, thread.Comments[1].Replies)
}
