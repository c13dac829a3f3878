// Package postgres is the production store. Every mutation writes its change
// event to the outbox table inside the same transaction.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"example.com/devguard/internal/domain"
	"example.com/devguard/internal/events"
	"example.com/devguard/internal/observability"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	developerColumns = []string{"id", "name", "email", "role", "created_at"}
	activityColumns  = []string{"id", "developer_id", "activity_date", "work_hours", "commits", "pull_requests", "tasks_completed", "pending_tasks", "meetings"}
	insightColumns   = []string{"id", "developer_id", "insight_text", "severity", "created_at"}
)

func returning(cols []string) string {
	return "RETURNING " + strings.Join(cols, ", ")
}

// Repository provides Postgres-backed persistence for developers, activity, insights and outbox events.
type Repository struct {
	db  DB
	now func() time.Time
}

// NewRepository constructs a Repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// ListDevelopers returns every developer ordered by name.
func (r *Repository) ListDevelopers(ctx context.Context) ([]domain.Developer, error) {
	query, args, err := psql.Select(developerColumns...).From("developers").OrderBy("name ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}
	devs := make([]domain.Developer, 0)
	if err := pgxscan.Select(ctx, r.db, &devs, query, args...); err != nil {
		return nil, mapError(err, "developers", 0)
	}
	return devs, nil
}

// GetDeveloper returns nil without error when the developer does not exist.
func (r *Repository) GetDeveloper(ctx context.Context, id int64) (*domain.Developer, error) {
	query, args, err := psql.Select(developerColumns...).From("developers").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var dev domain.Developer
	if err := pgxscan.Get(ctx, r.db, &dev, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, mapError(err, "developer", id)
	}
	return &dev, nil
}

// CreateDeveloper inserts the developer and records developer.created.
func (r *Repository) CreateDeveloper(ctx context.Context, dev domain.Developer) (*domain.Developer, error) {
	query, args, err := psql.Insert("developers").
		Columns("name", "email", "role", "created_at").
		Values(dev.Name, dev.Email, dev.Role, dev.CreatedAt).
		Suffix(returning(developerColumns)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var created domain.Developer
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := pgxscan.Get(ctx, tx, &created, query, args...); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, events.DeveloperCreated, created.ID, created.ID, events.NewDeveloperChanged(created, r.now()))
	})
	if err != nil {
		return nil, mapError(err, "developer", dev.ID)
	}
	return &created, nil
}

// DeleteDeveloper removes the developer; activity and insights cascade in the schema.
func (r *Repository) DeleteDeveloper(ctx context.Context, id int64) (*domain.Developer, error) {
	query, args, err := psql.Delete("developers").Where(sq.Eq{"id": id}).Suffix(returning(developerColumns)).ToSql()
	if err != nil {
		return nil, err
	}

	var deleted domain.Developer
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := pgxscan.Get(ctx, tx, &deleted, query, args...); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, events.DeveloperDeleted, deleted.ID, deleted.ID, events.NewDeveloperChanged(deleted, r.now()))
	})
	if err != nil {
		return nil, mapError(err, "developer", id)
	}
	return &deleted, nil
}

// LogActivity inserts one day of telemetry and records activity.logged.
func (r *Repository) LogActivity(ctx context.Context, record domain.ActivityRecord) (*domain.ActivityRecord, error) {
	query, args, err := psql.Insert("developer_activity").
		Columns(activityColumns[1:]...).
		Values(
			record.DeveloperID,
			domain.TruncateDate(record.ActivityDate),
			record.WorkHours,
			record.Commits,
			record.PullRequests,
			record.TasksCompleted,
			record.PendingTasks,
			record.Meetings,
		).
		Suffix(returning(activityColumns)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var stored domain.ActivityRecord
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := pgxscan.Get(ctx, tx, &stored, query, args...); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, events.ActivityLogged, stored.ID, stored.DeveloperID, events.NewActivityChanged(stored, r.now()))
	})
	if err != nil {
		return nil, mapError(err, "activity for developer", record.DeveloperID)
	}
	observability.RecordActivityPersisted(r.now())
	return &stored, nil
}

// DeleteActivity removes one record and records activity.deleted.
func (r *Repository) DeleteActivity(ctx context.Context, id int64) (*domain.ActivityRecord, error) {
	query, args, err := psql.Delete("developer_activity").Where(sq.Eq{"id": id}).Suffix(returning(activityColumns)).ToSql()
	if err != nil {
		return nil, err
	}

	var deleted domain.ActivityRecord
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := pgxscan.Get(ctx, tx, &deleted, query, args...); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, events.ActivityDeleted, deleted.ID, deleted.DeveloperID, events.NewActivityChanged(deleted, r.now()))
	})
	if err != nil {
		return nil, mapError(err, "activity", id)
	}
	return &deleted, nil
}

// RecentActivity returns at most limit records for one developer, newest first.
func (r *Repository) RecentActivity(ctx context.Context, developerID int64, limit int) ([]domain.ActivityRecord, error) {
	records, _, err := r.ListActivity(ctx, domain.ActivityFilter{DeveloperID: developerID, Limit: limit})
	return records, err
}

// ListActivity returns activity ordered by activity_date then id, both descending.
func (r *Repository) ListActivity(ctx context.Context, filter domain.ActivityFilter) ([]domain.ActivityRecord, *domain.Cursor, error) {
	builder := psql.Select(activityColumns...).From("developer_activity").OrderBy("activity_date DESC", "id DESC")
	if filter.DeveloperID != 0 {
		builder = builder.Where(sq.Eq{"developer_id": filter.DeveloperID})
	}
	if c := filter.Cursor; c != nil {
		builder = builder.Where(sq.Expr("(activity_date, id) < (?, ?)", c.ActivityDate, c.ID))
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, nil, err
	}

	records := make([]domain.ActivityRecord, 0)
	if err := pgxscan.Select(ctx, r.db, &records, query, args...); err != nil {
		return nil, nil, mapError(err, "activity for developer", filter.DeveloperID)
	}

	var next *domain.Cursor
	if filter.Limit > 0 && len(records) == filter.Limit {
		last := records[len(records)-1]
		next = &domain.Cursor{ActivityDate: last.ActivityDate, ID: last.ID}
	}
	return records, next, nil
}

// ListInsights returns insights newest first; developerID 0 lists all developers.
func (r *Repository) ListInsights(ctx context.Context, developerID int64) ([]domain.Insight, error) {
	builder := psql.Select(insightColumns...).From("ai_insights").OrderBy("created_at DESC", "id DESC")
	if developerID != 0 {
		builder = builder.Where(sq.Eq{"developer_id": developerID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	insights := make([]domain.Insight, 0)
	if err := pgxscan.Select(ctx, r.db, &insights, query, args...); err != nil {
		return nil, mapError(err, "insights for developer", developerID)
	}
	return insights, nil
}

// SaveInsight inserts the insight and records insight.recorded.
func (r *Repository) SaveInsight(ctx context.Context, insight domain.Insight) (*domain.Insight, error) {
	query, args, err := psql.Insert("ai_insights").
		Columns("developer_id", "insight_text", "severity", "created_at").
		Values(insight.DeveloperID, insight.Text, string(insight.Severity), insight.CreatedAt).
		Suffix(returning(insightColumns)).
		ToSql()
	if err != nil {
		return nil, err
	}

	var saved domain.Insight
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := pgxscan.Get(ctx, tx, &saved, query, args...); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, events.InsightRecorded, saved.ID, saved.DeveloperID, events.NewInsightChanged(saved, r.now()))
	})
	if err != nil {
		return nil, mapError(err, "insight for developer", insight.DeveloperID)
	}
	return &saved, nil
}

// DeleteInsight removes one insight and records insight.deleted.
func (r *Repository) DeleteInsight(ctx context.Context, id int64) (*domain.Insight, error) {
	query, args, err := psql.Delete("ai_insights").Where(sq.Eq{"id": id}).Suffix(returning(insightColumns)).ToSql()
	if err != nil {
		return nil, err
	}

	var deleted domain.Insight
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := pgxscan.Get(ctx, tx, &deleted, query, args...); err != nil {
			return err
		}
		return r.insertOutbox(ctx, tx, events.InsightDeleted, deleted.ID, deleted.DeveloperID, events.NewInsightChanged(deleted, r.now()))
	})
	if err != nil {
		return nil, mapError(err, "insight", id)
	}
	return &deleted, nil
}

func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, eventType string, aggregateID, developerID int64, payload any) error {
	route, ok := events.Lookup(eventType)
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	aggregate := strconv.FormatInt(aggregateID, 10)
	query, args, err := psql.Insert("outbox").
		Columns("aggregate_type", "aggregate_id", "event_type", "topic", "partition_key", "payload", "dedupe_key").
		Values(route.AggregateType, aggregate, eventType, route.Topic, strconv.FormatInt(developerID, 10), body,
			fmt.Sprintf("%s:%s:%s", route.AggregateType, aggregate, eventType)).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}
