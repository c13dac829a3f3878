// Package domain defines the business logic for the burnout tracking service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DeveloperRepository captures developer persistence.
type DeveloperRepository interface {
	ListDevelopers(ctx context.Context) ([]Developer, error)
	GetDeveloper(ctx context.Context, id int64) (*Developer, error)
	CreateDeveloper(ctx context.Context, dev Developer) (*Developer, error)
	DeleteDeveloper(ctx context.Context, id int64) (*Developer, error)
}

// ActivityRepository captures activity persistence.
type ActivityRepository interface {
	LogActivity(ctx context.Context, record ActivityRecord) (*ActivityRecord, error)
	DeleteActivity(ctx context.Context, id int64) (*ActivityRecord, error)
	// RecentActivity returns at most limit records for one developer, newest activity_date first.
	RecentActivity(ctx context.Context, developerID int64, limit int) ([]ActivityRecord, error)
	ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityRecord, *Cursor, error)
}

// InsightRepository captures insight persistence.
type InsightRepository interface {
	// ListInsights returns insights newest first; developerID 0 lists all developers.
	ListInsights(ctx context.Context, developerID int64) ([]Insight, error)
	SaveInsight(ctx context.Context, insight Insight) (*Insight, error)
	DeleteInsight(ctx context.Context, id int64) (*Insight, error)
}

// Repository is the full store contract.
type Repository interface {
	DeveloperRepository
	ActivityRepository
	InsightRepository
}

// Cursor models the keyset pagination token for activity listings.
type Cursor struct {
	ActivityDate time.Time
	ID           int64
}

// ActivityFilter narrows ListActivity. Zero DeveloperID means every developer,
// Limit <= 0 means no limit.
type ActivityFilter struct {
	DeveloperID int64
	Cursor      *Cursor
	Limit       int
}

// Service orchestrates developer, activity and insight workflows.
type Service struct {
	repo    Repository
	timeout time.Duration
	now     func() time.Time
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithStoreTimeout bounds every store call made by the service.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithClock overrides the clock used for default activity dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Unavailable marks err as a storage failure unless it is already classified.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// DeveloperMetrics is the dashboard bundle for one developer.
type DeveloperMetrics struct {
	Developer  Developer
	Activities []ActivityRecord
	Assessment BurnoutAssessment
	Insights   []Insight
}

// DeveloperMetrics loads the developer, their HistoryLimit most recent records
// and stored insights, and scores the newest ScoringWindow records. Any store
// failure aborts the request; the scorer never runs on partial data.
func (s *Service) DeveloperMetrics(ctx context.Context, developerID int64) (*DeveloperMetrics, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	dev, err := s.repo.GetDeveloper(ctx, developerID)
	if err != nil {
		return nil, fmt.Errorf("load developer %d: %w", developerID, Unavailable(err))
	}
	if dev == nil {
		return nil, fmt.Errorf("load developer %d: %w", developerID, ErrNotFound)
	}

	history, err := s.repo.RecentActivity(ctx, developerID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load activity for developer %d: %w", developerID, Unavailable(err))
	}

	insights, err := s.repo.ListInsights(ctx, developerID)
	if err != nil {
		return nil, fmt.Errorf("load insights for developer %d: %w", developerID, Unavailable(err))
	}

	return &DeveloperMetrics{
		Developer:  *dev,
		Activities: history,
		Assessment: Score(ScoringWindowOf(history)),
		Insights:   insights,
	}, nil
}

// Rescore recomputes the assessment for one developer without loading the display history.
// Unknown developers yield ErrNotFound rather than an empty-window score.
func (s *Service) Rescore(ctx context.Context, developerID int64) (BurnoutAssessment, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	dev, err := s.repo.GetDeveloper(ctx, developerID)
	if err != nil {
		return BurnoutAssessment{}, fmt.Errorf("load developer %d: %w", developerID, Unavailable(err))
	}
	if dev == nil {
		return BurnoutAssessment{}, fmt.Errorf("load developer %d: %w", developerID, ErrNotFound)
	}

	window, err := s.repo.RecentActivity(ctx, developerID, ScoringWindow)
	if err != nil {
		return BurnoutAssessment{}, fmt.Errorf("load activity for developer %d: %w", developerID, Unavailable(err))
	}
	return Score(window), nil
}

// ListDevelopers returns every developer ordered by name.
func (s *Service) ListDevelopers(ctx context.Context) ([]Developer, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	devs, err := s.repo.ListDevelopers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list developers: %w", Unavailable(err))
	}
	return devs, nil
}

// CreateDeveloperInput captures the payload from the API layer.
type CreateDeveloperInput struct {
	Name  string
	Email string
	Role  string
}

// Validate ensures required fields are present.
func (in CreateDeveloperInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email %q is malformed", ErrValidation, email)
	}
	return nil
}

// CreateDeveloper validates and stores a developer.
func (s *Service) CreateDeveloper(ctx context.Context, in CreateDeveloperInput) (*Developer, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	dev, err := s.repo.CreateDeveloper(ctx, Developer{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Role:      strings.TrimSpace(in.Role),
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create developer: %w", Unavailable(err))
	}
	return dev, nil
}

// DeleteDeveloper removes a developer together with their activity and insights.
func (s *Service) DeleteDeveloper(ctx context.Context, id int64) (*Developer, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	dev, err := s.repo.DeleteDeveloper(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete developer %d: %w", id, Unavailable(err))
	}
	return dev, nil
}

// LogActivityInput captures one day of telemetry from the API layer.
type LogActivityInput struct {
	DeveloperID    int64
	ActivityDate   time.Time
	WorkHours      float64
	Commits        int
	PullRequests   int
	TasksCompleted int
	PendingTasks   int
	Meetings       int
}

// Validate rejects negative or non-finite counters.
func (in LogActivityInput) Validate() error {
	if in.DeveloperID <= 0 {
		return fmt.Errorf("%w: developer_id is required", ErrValidation)
	}
	if math.IsNaN(in.WorkHours) || math.IsInf(in.WorkHours, 0) || in.WorkHours < 0 {
		return fmt.Errorf("%w: work_hours must be a non-negative number", ErrValidation)
	}
	counters := []struct {
		name  string
		value int
	}{
		{"commits", in.Commits},
		{"pull_requests", in.PullRequests},
		{"tasks_completed", in.TasksCompleted},
		{"pending_tasks", in.PendingTasks},
		{"meetings", in.Meetings},
	}
	for _, c := range counters {
		if c.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrValidation, c.name)
		}
	}
	return nil
}

// LogActivity records a day of telemetry for an existing developer.
func (s *Service) LogActivity(ctx context.Context, in LogActivityInput) (*ActivityRecord, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	dev, err := s.repo.GetDeveloper(ctx, in.DeveloperID)
	if err != nil {
		return nil, fmt.Errorf("log activity: %w", Unavailable(err))
	}
	if dev == nil {
		return nil, fmt.Errorf("log activity: developer %d: %w", in.DeveloperID, ErrNotFound)
	}

	date := in.ActivityDate
	if date.IsZero() {
		date = s.now()
	}

	record, err := s.repo.LogActivity(ctx, ActivityRecord{
		DeveloperID:    in.DeveloperID,
		ActivityDate:   TruncateDate(date),
		WorkHours:      in.WorkHours,
		Commits:        in.Commits,
		PullRequests:   in.PullRequests,
		TasksCompleted: in.TasksCompleted,
		PendingTasks:   in.PendingTasks,
		Meetings:       in.Meetings,
	})
	if err != nil {
		return nil, fmt.Errorf("log activity: %w", Unavailable(err))
	}
	return record, nil
}

// DeleteActivity removes one activity record.
func (s *Service) DeleteActivity(ctx context.Context, id int64) (*ActivityRecord, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	record, err := s.repo.DeleteActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete activity %d: %w", id, Unavailable(err))
	}
	return record, nil
}

// ListActivity fetches activity newest first with cursor pagination.
func (s *Service) ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityRecord, *Cursor, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	records, next, err := s.repo.ListActivity(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("list activity: %w", Unavailable(err))
	}
	return records, next, nil
}

// ListInsights returns insights newest first; developerID 0 lists every developer.
func (s *Service) ListInsights(ctx context.Context, developerID int64) ([]Insight, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	insights, err := s.repo.ListInsights(ctx, developerID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", Unavailable(err))
	}
	return insights, nil
}

// SaveInsightInput captures an insight from the API layer.
type SaveInsightInput struct {
	DeveloperID int64
	Text        string
	Severity    RiskLevel
}

// Validate ensures the insight references a developer and carries a known severity.
func (in SaveInsightInput) Validate() error {
	if in.DeveloperID <= 0 {
		return fmt.Errorf("%w: developer_id is required", ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" {
		return fmt.Errorf("%w: insight_text is required", ErrValidation)
	}
	if !in.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrValidation, in.Severity)
	}
	return nil
}

// SaveInsight stores an insight for an existing developer.
func (s *Service) SaveInsight(ctx context.Context, in SaveInsightInput) (*Insight, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	dev, err := s.repo.GetDeveloper(ctx, in.DeveloperID)
	if err != nil {
		return nil, fmt.Errorf("save insight: %w", Unavailable(err))
	}
	if dev == nil {
		return nil, fmt.Errorf("save insight: developer %d: %w", in.DeveloperID, ErrNotFound)
	}

	insight, err := s.repo.SaveInsight(ctx, Insight{
		DeveloperID: in.DeveloperID,
		Text:        strings.TrimSpace(in.Text),
		Severity:    in.Severity,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("save insight: %w", Unavailable(err))
	}
	return insight, nil
}

// DeleteInsight removes one insight.
func (s *Service) DeleteInsight(ctx context.Context, id int64) (*Insight, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	insight, err := s.repo.DeleteInsight(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delete insight %d: %w", id, Unavailable(err))
	}
	return insight, nil
}

// Trend groups activity by day for one developer (0 for the whole team).
func (s *Service) Trend(ctx context.Context, developerID int64, rng TrendRange) ([]TrendPoint, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	records, _, err := s.repo.ListActivity(ctx, ActivityFilter{DeveloperID: developerID})
	if err != nil {
		return nil, fmt.Errorf("load trend: %w", Unavailable(err))
	}
	return BuildTrend(records, rng), nil
}

// Summary aggregates team-wide totals.
func (s *Service) Summary(ctx context.Context) (*TeamSummary, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	devs, err := s.repo.ListDevelopers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", Unavailable(err))
	}
	records, _, err := s.repo.ListActivity(ctx, ActivityFilter{})
	if err != nil {
		return nil, fmt.Errorf("load summary: %w", Unavailable(err))
	}
	summary := Summarize(devs, records)
	return &summary, nil
}
