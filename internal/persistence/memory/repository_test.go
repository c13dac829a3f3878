package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/devguard/internal/domain"
)

var today = time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)

func newDeveloper(t *testing.T, repo *Repository, email string) *domain.Developer {
	t.Helper()
	dev, err := repo.CreateDeveloper(context.Background(), domain.Developer{Name: email, Email: email})
	require.NoError(t, err)
	return dev
}

func TestCreateDeveloperRejectsDuplicateEmail(t *testing.T) {
	repo := NewRepository()
	newDeveloper(t, repo, "alex@devguard.dev")

	_, err := repo.CreateDeveloper(context.Background(), domain.Developer{Name: "Alex", Email: "ALEX@devguard.dev"})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetDeveloperMissingReturnsNil(t *testing.T) {
	dev, err := NewRepository().GetDeveloper(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, dev)
}

func TestListActivityOrderAndCursor(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	dev := newDeveloper(t, repo, "jordan@devguard.dev")

	for i := 0; i < 5; i++ {
		_, err := repo.LogActivity(ctx, domain.ActivityRecord{DeveloperID: dev.ID, ActivityDate: today.AddDate(0, 0, -i).Add(5 * time.Hour), Commits: i})
		require.NoError(t, err)
	}
	// second record on today sorts before the first by id
	second, err := repo.LogActivity(ctx, domain.ActivityRecord{DeveloperID: dev.ID, ActivityDate: today})
	require.NoError(t, err)

	page, next, err := repo.ListActivity(ctx, domain.ActivityFilter{DeveloperID: dev.ID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.NotNil(t, next)
	assert.Equal(t, second.ID, page[0].ID)
	assert.Equal(t, today, page[1].ActivityDate)
	assert.Equal(t, today.AddDate(0, 0, -1), page[2].ActivityDate)

	rest, next, err := repo.ListActivity(ctx, domain.ActivityFilter{DeveloperID: dev.ID, Limit: 3, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, today.AddDate(0, 0, -4), rest[2].ActivityDate)

	// an exactly full last page still yields a cursor; the following page is empty
	require.NotNil(t, next)
	empty, next, err := repo.ListActivity(ctx, domain.ActivityFilter{DeveloperID: dev.ID, Limit: 3, Cursor: next})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Nil(t, next)
}

func TestRecentActivityLimitsAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	a := newDeveloper(t, repo, "a@devguard.dev")
	b := newDeveloper(t, repo, "b@devguard.dev")

	for i := 0; i < 20; i++ {
		_, err := repo.LogActivity(ctx, domain.ActivityRecord{DeveloperID: a.ID, ActivityDate: today.AddDate(0, 0, -i)})
		require.NoError(t, err)
	}
	_, err := repo.LogActivity(ctx, domain.ActivityRecord{DeveloperID: b.ID, ActivityDate: today.AddDate(0, 0, 1)})
	require.NoError(t, err)

	recent, err := repo.RecentActivity(ctx, a.ID, domain.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, recent, domain.HistoryLimit)
	for _, r := range recent {
		assert.Equal(t, a.ID, r.DeveloperID)
	}
	assert.Equal(t, today, recent[0].ActivityDate)
}

func TestLogActivityUnknownDeveloper(t *testing.T) {
	_, err := NewRepository().LogActivity(context.Background(), domain.ActivityRecord{DeveloperID: 7, ActivityDate: today})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteDeveloperCascades(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	dev := newDeveloper(t, repo, "marcus@devguard.dev")

	_, err := repo.LogActivity(ctx, domain.ActivityRecord{DeveloperID: dev.ID, ActivityDate: today})
	require.NoError(t, err)
	_, err = repo.SaveInsight(ctx, domain.Insight{DeveloperID: dev.ID, Text: "Too many meetings", Severity: domain.RiskHigh})
	require.NoError(t, err)

	_, err = repo.DeleteDeveloper(ctx, dev.ID)
	require.NoError(t, err)

	recent, err := repo.RecentActivity(ctx, dev.ID, domain.HistoryLimit)
	require.NoError(t, err)
	assert.Empty(t, recent)
	insights, err := repo.ListInsights(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, insights)

	_, err = repo.DeleteDeveloper(ctx, dev.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInsightsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	dev := newDeveloper(t, repo, "sarah@devguard.dev")

	older, err := repo.SaveInsight(ctx, domain.Insight{DeveloperID: dev.ID, Text: "older", Severity: domain.RiskLow, CreatedAt: today})
	require.NoError(t, err)
	newer, err := repo.SaveInsight(ctx, domain.Insight{DeveloperID: dev.ID, Text: "newer", Severity: domain.RiskMedium, CreatedAt: today.Add(time.Hour)})
	require.NoError(t, err)

	insights, err := repo.ListInsights(ctx, dev.ID)
	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, newer.ID, insights[0].ID)
	assert.Equal(t, older.ID, insights[1].ID)

	_, err = repo.DeleteInsight(ctx, older.ID)
	require.NoError(t, err)
	_, err = repo.DeleteInsight(ctx, older.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRepository().ListDevelopers(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	dev := newDeveloper(t, repo, "load@devguard.dev")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.LogActivity(ctx, domain.ActivityRecord{DeveloperID: dev.ID, ActivityDate: today.AddDate(0, 0, -i)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, _, err := repo.ListActivity(ctx, domain.ActivityFilter{DeveloperID: dev.ID})
	require.NoError(t, err)
	assert.Len(t, all, 50)
}

func TestSeedIsReproducible(t *testing.T) {
	ctx := context.Background()
	a, b := NewRepository(), NewRepository()
	require.NoError(t, a.Seed(ctx, today, 7))
	require.NoError(t, b.Seed(ctx, today, 7))

	recA, _, err := a.ListActivity(ctx, domain.ActivityFilter{})
	require.NoError(t, err)
	recB, _, err := b.ListActivity(ctx, domain.ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, recA, 4*7)
	assert.Equal(t, recA, recB)
}
