package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"example.com/devguard/internal/domain"
)

// CreateDeveloperRequest is the payload for POST /api/developers.
type CreateDeveloperRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LogActivityRequest is the payload for POST /api/activity. Omitted counters are zero.
type LogActivityRequest struct {
	DeveloperID    int64   `json:"developer_id"`
	ActivityDate   string  `json:"activity_date"`
	WorkHours      float64 `json:"work_hours"`
	Commits        count   `json:"commits"`
	PullRequests   count   `json:"pull_requests"`
	TasksCompleted count   `json:"tasks_completed"`
	PendingTasks   count   `json:"pending_tasks"`
	Meetings       count   `json:"meetings"`
}

// count is an activity counter. The dashboard form sends meetings in half
// steps, so fractional and quoted numbers are accepted and truncated toward zero.
type count int

func (c *count) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*c = 0
		return nil
	}
	raw = strings.TrimSpace(strings.Trim(raw, `"`))
	if raw == "" {
		*c = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("counter must be a number, got %s", data)
	}
	if math.Abs(v) > math.MaxInt32 {
		return fmt.Errorf("counter out of range: %s", data)
	}
	*c = count(math.Trunc(v))
	return nil
}

func (r LogActivityRequest) toInput() (domain.LogActivityInput, error) {
	in := domain.LogActivityInput{
		DeveloperID:    r.DeveloperID,
		WorkHours:      r.WorkHours,
		Commits:        int(r.Commits),
		PullRequests:   int(r.PullRequests),
		TasksCompleted: int(r.TasksCompleted),
		PendingTasks:   int(r.PendingTasks),
		Meetings:       int(r.Meetings),
	}
	if raw := strings.TrimSpace(r.ActivityDate); raw != "" {
		date, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			return in, fmt.Errorf("activity_date must be YYYY-MM-DD: %q", raw)
		}
		in.ActivityDate = date
	}
	return in, nil
}

// SaveInsightRequest is the payload for POST /api/insights.
type SaveInsightRequest struct {
	DeveloperID int64  `json:"developer_id"`
	Text        string `json:"insight_text"`
	Severity    string `json:"severity"`
}

// DeveloperView is the wire form of a developer.
type DeveloperView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityView is the wire form of an activity record.
type ActivityView struct {
	ID             int64   `json:"id"`
	DeveloperID    int64   `json:"developer_id"`
	ActivityDate   string  `json:"activity_date"`
	WorkHours      float64 `json:"work_hours"`
	Commits        int     `json:"commits"`
	PullRequests   int     `json:"pull_requests"`
	TasksCompleted int     `json:"tasks_completed"`
	PendingTasks   int     `json:"pending_tasks"`
	Meetings       int     `json:"meetings"`
}

// InsightView is the wire form of an insight.
type InsightView struct {
	ID          int64     `json:"id"`
	DeveloperID int64     `json:"developer_id"`
	Text        string    `json:"insight_text"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// LatestMetricView carries the computed assessment.
type LatestMetricView struct {
	BurnoutScore float64 `json:"burnout_score"`
	RiskLevel    string  `json:"risk_level"`
}

// MetricsResponse is the dashboard bundle for one developer.
type MetricsResponse struct {
	Developer    DeveloperView    `json:"developer"`
	Activities   []ActivityView   `json:"activities"`
	LatestMetric LatestMetricView `json:"latestMetric"`
	Insights     []InsightView    `json:"insights"`
}

// TrendPointView is one day of the trend series.
type TrendPointView struct {
	Date           string  `json:"date"`
	Commits        int     `json:"commits"`
	PullRequests   int     `json:"prs"`
	TasksCompleted int     `json:"tasks"`
	Meetings       int     `json:"meetings"`
	WorkHours      float64 `json:"work_hours"`
}

// SummaryView is the team summary payload.
type SummaryView struct {
	Developers       int            `json:"developers"`
	Records          int            `json:"records"`
	TotalCommits     int            `json:"total_commits"`
	TotalTasks       int            `json:"total_tasks"`
	TotalWorkHours   float64        `json:"total_work_hours"`
	AverageWorkHours float64        `json:"average_work_hours"`
	Roles            map[string]int `json:"roles"`
}

func toDeveloperView(d domain.Developer) DeveloperView {
	return DeveloperView{ID: d.ID, Name: d.Name, Email: d.Email, Role: d.Role, CreatedAt: d.CreatedAt}
}

// Record converts the wire form back into a domain record.
func (v ActivityView) Record() (domain.ActivityRecord, error) {
	date, err := time.Parse(domain.DateLayout, strings.TrimSpace(v.ActivityDate))
	if err != nil {
		return domain.ActivityRecord{}, fmt.Errorf("activity_date must be YYYY-MM-DD: %q", v.ActivityDate)
	}
	return domain.ActivityRecord{
		ID:             v.ID,
		DeveloperID:    v.DeveloperID,
		ActivityDate:   date,
		WorkHours:      v.WorkHours,
		Commits:        v.Commits,
		PullRequests:   v.PullRequests,
		TasksCompleted: v.TasksCompleted,
		PendingTasks:   v.PendingTasks,
		Meetings:       v.Meetings,
	}, nil
}

func toActivityView(a domain.ActivityRecord) ActivityView {
	return ActivityView{
		ID:             a.ID,
		DeveloperID:    a.DeveloperID,
		ActivityDate:   a.ActivityDate.Format(domain.DateLayout),
		WorkHours:      a.WorkHours,
		Commits:        a.Commits,
		PullRequests:   a.PullRequests,
		TasksCompleted: a.TasksCompleted,
		PendingTasks:   a.PendingTasks,
		Meetings:       a.Meetings,
	}
}

func toInsightView(in domain.Insight) InsightView {
	return InsightView{
		ID:          in.ID,
		DeveloperID: in.DeveloperID,
		Text:        in.Text,
		Severity:    string(in.Severity),
		CreatedAt:   in.CreatedAt,
	}
}

func toTrendPointView(p domain.TrendPoint) TrendPointView {
	return TrendPointView{
		Date:           p.Date.Format(domain.DateLayout),
		Commits:        p.Commits,
		PullRequests:   p.PullRequests,
		TasksCompleted: p.TasksCompleted,
		Meetings:       p.Meetings,
		WorkHours:      p.WorkHours,
	}
}
