package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/challengehub/challengehub/internal/subscriptions"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The worker's job on the API instance is looping events from other
// instances back into the local hub; these tests drive handleEvent directly.

func newHubSubscription(t *testing.T, hub *subscriptions.Hub, counter *int64, topics ...string) *subscriptions.Subscription {
	t.Helper()

	sub, err := hub.Subscribe(context.Background(), func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt64(counter, 1), nil
	}, topics...)
	require.NoError(t, err)
	t.Cleanup(sub.Close)

	// Drain the initial snapshot.
	<-sub.Snapshots()
	return sub
}

func expectSnapshot(t *testing.T, sub *subscriptions.Subscription) {
	t.Helper()
	select {
	case <-sub.Snapshots():
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot after the event")
	}
}

func expectNoSnapshot(t *testing.T, sub *subscriptions.Subscription) {
	t.Helper()
	select {
	case <-sub.Snapshots():
		t.Fatal("unexpected snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleLikeEventRefreshesVideoViews(t *testing.T) {
	log := logger.NewLogger()
	hub := subscriptions.NewHub(log)
	defer hub.Close()

	worker := NewEngagementWorker(nil, nil, nil, hub, log)

	var counter int64
	sub := newHubSubscription(t, hub, &counter, subscriptions.TopicVideos)

	event := queue.NewEvent(queue.EventLikeToggled, queue.LikeEventData{
		VideoID:  uuid.NewString(),
		OwnerID:  uuid.NewString(),
		ViewerID: uuid.NewString(),
		Liked:    true,
	})
	require.NoError(t, worker.handleEvent(context.Background(), event))

	expectSnapshot(t, sub)
}

func TestHandleCommentEventScopedToVideo(t *testing.T) {
	log := logger.NewLogger()
	hub := subscriptions.NewHub(log)
	defer hub.Close()

	worker := NewEngagementWorker(nil, nil, nil, hub, log)

	videoID := uuid.NewString()
	otherID := uuid.NewString()

	var hits, misses int64
	watching := newHubSubscription(t, hub, &hits, subscriptions.TopicComments(videoID))
	elsewhere := newHubSubscription(t, hub, &misses, subscriptions.TopicComments(otherID))

	event := queue.NewEvent(queue.EventCommentCreated, queue.CommentEventData{
		CommentID: uuid.NewString(),
		VideoID:   videoID,
		AuthorID:  uuid.NewString(),
	})
	require.NoError(t, worker.handleEvent(context.Background(), event))

	expectSnapshot(t, watching)
	expectNoSnapshot(t, elsewhere)
}

func TestHandleFollowEventNotifiesBothSides(t *testing.T) {
	log := logger.NewLogger()
	hub := subscriptions.NewHub(log)
	defer hub.Close()

	worker := NewEngagementWorker(nil, nil, nil, hub, log)

	followerID := uuid.NewString()
	targetID := uuid.NewString()

	var a, b, c int64
	targetProfile := newHubSubscription(t, hub, &a, subscriptions.TopicUser(targetID))
	followerProfile := newHubSubscription(t, hub, &b, subscriptions.TopicUser(followerID))
	followStatus := newHubSubscription(t, hub, &c, subscriptions.TopicFollowing(followerID))

	event := queue.NewEvent(queue.EventFollowToggled, queue.FollowEventData{
		FollowerID: followerID,
		TargetID:   targetID,
		Following:  true,
	})
	require.NoError(t, worker.handleEvent(context.Background(), event))

	expectSnapshot(t, targetProfile)
	expectSnapshot(t, followerProfile)
	expectSnapshot(t, followStatus)
}

func TestHandleUnknownEventIsIgnored(t *testing.T) {
	log := logger.NewLogger()
	hub := subscriptions.NewHub(log)
	defer hub.Close()

	worker := NewEngagementWorker(nil, nil, nil, hub, log)

	event := queue.Event{Type: "mystery_event"}
	assert.NoError(t, worker.handleEvent(context.Background(), event))
}

func TestHandleEventBadPayload(t *testing.T) {
	log := logger.NewLogger()
	hub := subscriptions.NewHub(log)
	defer hub.Close()

	worker := NewEngagementWorker(nil, nil, nil, hub, log)

	event := queue.Event{Type: queue.EventLikeToggled, Data: []byte("not-json")}
	assert.Error(t, worker.handleEvent(context.Background(), event))
}
