// Package memory provides an in-process store for local development and tests.
// It is selected explicitly at start-up and never stands in for a failing database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/devguard/internal/domain"
)

// Repository stores developers, activity and insights in memory.
type Repository struct {
	mu         sync.RWMutex
	developers map[int64]domain.Developer
	activities map[int64]domain.ActivityRecord
	insights   map[int64]domain.Insight
	nextID     int64
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		developers: make(map[int64]domain.Developer),
		activities: make(map[int64]domain.ActivityRecord),
		insights:   make(map[int64]domain.Insight),
	}
}

func (r *Repository) allocateID() int64 {
	r.nextID++
	return r.nextID
}

// ListDevelopers implements domain.DeveloperRepository.
func (r *Repository) ListDevelopers(ctx context.Context) ([]domain.Developer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Developer, 0, len(r.developers))
	for _, d := range r.developers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// GetDeveloper returns nil without error when the developer does not exist.
func (r *Repository) GetDeveloper(ctx context.Context, id int64) (*domain.Developer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.developers[id]
	if !ok {
		return nil, nil
	}
	return &dev, nil
}

// CreateDeveloper implements domain.DeveloperRepository.
func (r *Repository) CreateDeveloper(ctx context.Context, dev domain.Developer) (*domain.Developer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.developers {
		if strings.EqualFold(existing.Email, dev.Email) {
			return nil, fmt.Errorf("developer email %s: %w", dev.Email, domain.ErrConflict)
		}
	}
	dev.ID = r.allocateID()
	if dev.CreatedAt.IsZero() {
		dev.CreatedAt = time.Now().UTC()
	}
	r.developers[dev.ID] = dev
	return &dev, nil
}

// DeleteDeveloper removes the developer and cascades to activity and insights.
func (r *Repository) DeleteDeveloper(ctx context.Context, id int64) (*domain.Developer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	dev, ok := r.developers[id]
	if !ok {
		return nil, fmt.Errorf("developer %d: %w", id, domain.ErrNotFound)
	}
	delete(r.developers, id)
	for aid, a := range r.activities {
		if a.DeveloperID == id {
			delete(r.activities, aid)
		}
	}
	for iid, in := range r.insights {
		if in.DeveloperID == id {
			delete(r.insights, iid)
		}
	}
	return &dev, nil
}

// LogActivity implements domain.ActivityRepository.
func (r *Repository) LogActivity(ctx context.Context, record domain.ActivityRecord) (*domain.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.developers[record.DeveloperID]; !ok {
		return nil, fmt.Errorf("developer %d: %w", record.DeveloperID, domain.ErrNotFound)
	}
	record.ID = r.allocateID()
	record.ActivityDate = domain.TruncateDate(record.ActivityDate)
	r.activities[record.ID] = record
	return &record, nil
}

// DeleteActivity implements domain.ActivityRepository.
func (r *Repository) DeleteActivity(ctx context.Context, id int64) (*domain.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.activities[id]
	if !ok {
		return nil, fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
	}
	delete(r.activities, id)
	return &record, nil
}

// RecentActivity implements domain.ActivityRepository.
func (r *Repository) RecentActivity(ctx context.Context, developerID int64, limit int) ([]domain.ActivityRecord, error) {
	records, _, err := r.ListActivity(ctx, domain.ActivityFilter{DeveloperID: developerID, Limit: limit})
	return records, err
}

// ListActivity returns records ordered by activity date then id, both descending.
func (r *Repository) ListActivity(ctx context.Context, filter domain.ActivityFilter) ([]domain.ActivityRecord, *domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ActivityRecord, 0)
	for _, a := range r.activities {
		if filter.DeveloperID != 0 && a.DeveloperID != filter.DeveloperID {
			continue
		}
		if c := filter.Cursor; c != nil && !before(a, c.ActivityDate, c.ID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return before(out[j], out[i].ActivityDate, out[i].ID)
	})

	if filter.Limit <= 0 || len(out) < filter.Limit {
		return out, nil, nil
	}
	out = out[:filter.Limit]
	last := out[len(out)-1]
	return out, &domain.Cursor{ActivityDate: last.ActivityDate, ID: last.ID}, nil
}

// before reports whether a sorts after (date, id) in descending order.
func before(a domain.ActivityRecord, date time.Time, id int64) bool {
	if a.ActivityDate.Equal(date) {
		return a.ID < id
	}
	return a.ActivityDate.Before(date)
}

// ListInsights implements domain.InsightRepository.
func (r *Repository) ListInsights(ctx context.Context, developerID int64) ([]domain.Insight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Insight, 0)
	for _, in := range r.insights {
		if developerID != 0 && in.DeveloperID != developerID {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SaveInsight implements domain.InsightRepository.
func (r *Repository) SaveInsight(ctx context.Context, insight domain.Insight) (*domain.Insight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.developers[insight.DeveloperID]; !ok {
		return nil, fmt.Errorf("developer %d: %w", insight.DeveloperID, domain.ErrNotFound)
	}
	insight.ID = r.allocateID()
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now().UTC()
	}
	r.insights[insight.ID] = insight
	return &insight, nil
}

// DeleteInsight implements domain.InsightRepository.
func (r *Repository) DeleteInsight(ctx context.Context, id int64) (*domain.Insight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	insight, ok := r.insights[id]
	if !ok {
		return nil, fmt.Errorf("insight %d: %w", id, domain.ErrNotFound)
	}
	delete(r.insights, id)
	return &insight, nil
}
