package session

import (
	"context"
	"testing"
	"time"

	"pulse-analytics/internal/domain"
	"pulse-analytics/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func seedSession(t *testing.T, repo *memory.SessionRepository, sessionID string, seen time.Time) {
	t.Helper()
	err := repo.ApplyDelta(context.Background(), sessionID, domain.SessionDelta{
		UserID: "u1",
		Events: 1,
		Seen:   seen,
	})
	require.NoError(t, err)
}

func TestEnd_ComputesDurationAndExitPage(t *testing.T) {
	repo := memory.NewSessionRepository()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(5 * time.Minute)
	svc := NewService(repo, fixedClock{now}, 30*time.Minute)

	seedSession(t, repo, "s1", start)

	ended, err := svc.End(context.Background(), "s1", "/checkout")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionEnded, ended.Status)
	assert.Equal(t, (5 * time.Minute).Milliseconds(), ended.DurationMs)
	assert.Equal(t, "/checkout", ended.ExitPage)
	require.NotNil(t, ended.EndTime)
	assert.Equal(t, now, *ended.EndTime)
}

func TestEnd_IsIdempotent(t *testing.T) {
	repo := memory.NewSessionRepository()
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc := NewService(repo, fixedClock{start.Add(time.Minute)}, 30*time.Minute)

	seedSession(t, repo, "s1", start)

	first, err := svc.End(context.Background(), "s1", "/bye")
	require.NoError(t, err)

	// Second end with a different exit page is a no-op returning the same
	// terminal record.
	second, err := svc.End(context.Background(), "s1", "/other")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnd_UnknownSession(t *testing.T) {
	svc := NewService(memory.NewSessionRepository(), fixedClock{time.Now()}, 30*time.Minute)

	_, err := svc.End(context.Background(), "nope", "")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestExpireInactive(t *testing.T) {
	repo := memory.NewSessionRepository()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, fixedClock{now}, 30*time.Minute)

	seedSession(t, repo, "stale", now.Add(-45*time.Minute))
	seedSession(t, repo, "fresh", now.Add(-5*time.Minute))

	expired, err := svc.ExpireInactive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	stale, err := repo.FindByID(context.Background(), "stale")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, stale.Status)
	require.NotNil(t, stale.EndTime)
	assert.Equal(t, now.Add(-45*time.Minute), *stale.EndTime)

	fresh, err := repo.FindByID(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, fresh.Status)

	// Sweeping again finds nothing; terminal states are one-way.
	expired, err = svc.ExpireInactive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), expired)
}

func TestEnd_ExpiredSessionIsNoOp(t *testing.T) {
	repo := memory.NewSessionRepository()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo, fixedClock{now}, 30*time.Minute)

	seedSession(t, repo, "s1", now.Add(-2*time.Hour))
	_, err := svc.ExpireInactive(context.Background())
	require.NoError(t, err)

	ended, err := svc.End(context.Background(), "s1", "/late")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionExpired, ended.Status)
	assert.NotEqual(t, "/late", ended.ExitPage)
}
