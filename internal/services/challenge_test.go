package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/challengehub/challengehub/internal/services"
	"github.com/challengehub/challengehub/internal/testutil"
	"github.com/challengehub/challengehub/pkg/logger"
	"github.com/challengehub/challengehub/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChallengeService(t *testing.T, rotation time.Duration) (*services.ChallengeService, *repository.Database, *testutil.FakePublisher) {
	t.Helper()

	db := testutil.NewDB(t)
	producer := &testutil.FakePublisher{}
	svc := services.NewChallengeService(
		repository.NewChallengeRepository(db.DB),
		nil,
		producer,
		&testutil.FakeNotifier{},
		rotation,
		logger.NewLogger(),
	)
	return svc, db, producer
}

func TestActiveCreatesChallengeWhenSlotEmpty(t *testing.T) {
	svc, db, producer := newChallengeService(t, 24*time.Hour)
	ctx := context.Background()

	challenge, err := svc.Active(ctx)
	require.NoError(t, err)

	assert.Equal(t, services.ChallengeSlot, challenge.Slot)
	assert.True(t, strings.HasPrefix(challenge.ChallengeID, "daily_"))
	assert.NotEmpty(t, challenge.Title)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), challenge.ExpiresAt, time.Minute)

	var count int64
	require.NoError(t, db.Model(&models.Challenge{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.Len(t, producer.EventsOfType(queue.EventChallengeRotated), 1)
}

func TestActiveReusesUnexpiredChallenge(t *testing.T) {
	svc, _, producer := newChallengeService(t, 24*time.Hour)
	ctx := context.Background()

	first, err := svc.Active(ctx)
	require.NoError(t, err)

	second, err := svc.Active(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.ChallengeID, second.ChallengeID)
	assert.Len(t, producer.EventsOfType(queue.EventChallengeRotated), 1)
}

func TestActiveRotatesExpiredChallenge(t *testing.T) {
	svc, db, _ := newChallengeService(t, 24*time.Hour)
	ctx := context.Background()

	expired := &models.Challenge{
		Slot:        services.ChallengeSlot,
		ChallengeID: "daily_1",
		Title:       "Daily Challenge: Tell a Joke",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(expired).Error)

	challenge, err := svc.Active(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, expired.ChallengeID, challenge.ChallengeID)
	assert.True(t, challenge.ExpiresAt.After(time.Now()))

	// The slot is overwritten, never accumulated.
	var count int64
	require.NoError(t, db.Model(&models.Challenge{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
