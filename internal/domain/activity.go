package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Developer is a tracked engineer.
type Developer struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// ActivityRecord is one developer's telemetry for one calendar day.
type ActivityRecord struct {
	ID             int64     `db:"id"`
	DeveloperID    int64     `db:"developer_id"`
	ActivityDate   time.Time `db:"activity_date"`
	WorkHours      float64   `db:"work_hours"`
	Commits        int       `db:"commits"`
	PullRequests   int       `db:"pull_requests"`
	TasksCompleted int       `db:"tasks_completed"`
	PendingTasks   int       `db:"pending_tasks"`
	Meetings       int       `db:"meetings"`
}

// Insight is a stored diagnostic note for a developer.
type Insight struct {
	ID          int64     `db:"id"`
	DeveloperID int64     `db:"developer_id"`
	Text        string    `db:"insight_text"`
	Severity    RiskLevel `db:"severity"`
	CreatedAt   time.Time `db:"created_at"`
}

// RiskLevel is the categorical burnout bucket.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskLevels lists every valid level, lowest first.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// ParseRiskLevel normalises s into one of the three levels.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return "", fmt.Errorf("%w: unknown risk level %q", ErrValidation, s)
}

// Valid reports whether l is one of the known levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// UnmarshalJSON rejects anything but the three known levels.
func (l *RiskLevel) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseRiskLevel(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Scan lets database drivers and row scanners decode severity columns.
func (l *RiskLevel) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("risk level: unsupported type %T", src)
	}
	parsed, err := ParseRiskLevel(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// TruncateDate drops the time-of-day component and normalises to UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
