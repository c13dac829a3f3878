package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/devguard/internal/domain"
)

var fixedNow = time.Date(2025, time.April, 2, 9, 30, 0, 0, time.UTC)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewRepository(mock)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func activityRows() *pgxmock.Rows {
	return pgxmock.NewRows(activityColumns)
}

func TestGetDeveloper(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := fixedNow.AddDate(0, -1, 0)

	mock.ExpectQuery(`SELECT id, name, email, role, created_at FROM developers WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(developerColumns).AddRow(int64(3), "Sarah Chen", "sarah@devguard.dev", "AI Researcher", created))

	dev, err := repo.GetDeveloper(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, dev)
	assert.Equal(t, "Sarah Chen", dev.Name)
	assert.Equal(t, created, dev.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeveloperMissingReturnsNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM developers WHERE id`).
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(developerColumns))

	dev, err := repo.GetDeveloper(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, dev)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeveloperConnectionFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`FROM developers`).
		WithArgs(int64(1)).
		WillReturnError(errors.New("dial tcp: connection refused"))

	_, err := repo.GetDeveloper(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateDeveloperWritesOutbox(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO developers \(name,email,role,created_at\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING`).
		WithArgs("Alex Rivera", "alex@devguard.dev", "Sr. Frontend Engineer", fixedNow).
		WillReturnRows(pgxmock.NewRows(developerColumns).AddRow(int64(1), "Alex Rivera", "alex@devguard.dev", "Sr. Frontend Engineer", fixedNow))
	mock.ExpectExec(`INSERT INTO outbox`).
		WithArgs("developer", "1", "developer.created", "devguard.developers", "1", pgxmock.AnyArg(), "developer:1:developer.created").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	dev, err := repo.CreateDeveloper(context.Background(), domain.Developer{
		Name:      "Alex Rivera",
		Email:     "alex@devguard.dev",
		Role:      "Sr. Frontend Engineer",
		CreatedAt: fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), dev.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDeveloperDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO developers`).
		WithArgs("A", "a@x.io", "", fixedNow).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateDeveloper(context.Background(), domain.Developer{Name: "A", Email: "a@x.io", CreatedAt: fixedNow})
	require.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogActivityUnknownDeveloper(t *testing.T) {
	repo, mock := newMockRepo(t)
	day := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO developer_activity`).
		WithArgs(int64(77), day, 8.0, 3, 1, 2, 4, 1).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()

	_, err := repo.LogActivity(context.Background(), domain.ActivityRecord{
		DeveloperID:    77,
		ActivityDate:   day.Add(13 * time.Hour),
		WorkHours:      8,
		Commits:        3,
		PullRequests:   1,
		TasksCompleted: 2,
		PendingTasks:   4,
		Meetings:       1,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogActivityOutboxFailureRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	day := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO developer_activity`).
		WithArgs(int64(2), day, 6.5, 0, 0, 0, 0, 0).
		WillReturnRows(activityRows().AddRow(int64(10), int64(2), day, 6.5, 0, 0, 0, 0, 0))
	mock.ExpectExec(`INSERT INTO outbox`).
		WithArgs("activity", "10", "activity.logged", "devguard.activity", "2", pgxmock.AnyArg(), "activity:10:activity.logged").
		WillReturnError(errors.New("outbox is full"))
	mock.ExpectRollback()

	_, err := repo.LogActivity(context.Background(), domain.ActivityRecord{DeveloperID: 2, ActivityDate: day, WorkHours: 6.5})
	require.ErrorIs(t, err, domain.ErrUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentActivityOrdersAndLimits(t *testing.T) {
	repo, mock := newMockRepo(t)
	d1 := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	d0 := d1.AddDate(0, 0, -1)

	mock.ExpectQuery(`SELECT .+ FROM developer_activity WHERE developer_id = \$1 ORDER BY activity_date DESC, id DESC LIMIT 14`).
		WithArgs(int64(5)).
		WillReturnRows(activityRows().
			AddRow(int64(9), int64(5), d1, 9.0, 4, 1, 3, 2, 2).
			AddRow(int64(8), int64(5), d0, 7.5, 2, 0, 1, 5, 3))

	records, err := repo.RecentActivity(context.Background(), 5, domain.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(9), records[0].ID)
	assert.Equal(t, 7.5, records[1].WorkHours)
	assert.Equal(t, 5, records[1].PendingTasks)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActivityCursorPage(t *testing.T) {
	repo, mock := newMockRepo(t)
	cursorDate := time.Date(2025, time.March, 30, 0, 0, 0, 0, time.UTC)
	d := cursorDate.AddDate(0, 0, -1)

	mock.ExpectQuery(`WHERE developer_id = \$1 AND \(activity_date, id\) < \(\$2, \$3\) ORDER BY activity_date DESC, id DESC LIMIT 2`).
		WithArgs(int64(5), cursorDate, int64(40)).
		WillReturnRows(activityRows().
			AddRow(int64(39), int64(5), cursorDate, 8.0, 1, 0, 0, 0, 0).
			AddRow(int64(31), int64(5), d, 8.0, 1, 0, 0, 0, 0))

	records, next, err := repo.ListActivity(context.Background(), domain.ActivityFilter{
		DeveloperID: 5,
		Cursor:      &domain.Cursor{ActivityDate: cursorDate, ID: 40},
		Limit:       2,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, next)
	assert.Equal(t, domain.Cursor{ActivityDate: d, ID: 31}, *next)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteActivityMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`DELETE FROM developer_activity WHERE id = \$1 RETURNING`).
		WithArgs(int64(404)).
		WillReturnRows(activityRows())
	mock.ExpectRollback()

	_, err := repo.DeleteActivity(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInsightTimeoutIsUnavailable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin().WillReturnError(context.DeadlineExceeded)

	_, err := repo.DeleteInsight(context.Background(), 1)
	require.ErrorIs(t, err, domain.ErrUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, domain.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, domain.ErrNotFound},
		{"check", &pgconn.PgError{Code: "23514"}, domain.ErrValidation},
		{"other pg", &pgconn.PgError{Code: "40001"}, domain.ErrUnavailable},
		{"canceled", context.Canceled, domain.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, mapError(tt.in, "developer", 1), tt.want)
		})
	}
	require.NoError(t, mapError(nil, "developer", 1))
}
