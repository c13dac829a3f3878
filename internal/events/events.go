// Package events defines the change events devguard publishes to Kafka.
package events

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"example.com/devguard/internal/domain"
)

// Event types written to the outbox.
const (
	DeveloperCreated = "developer.created"
	DeveloperDeleted = "developer.deleted"
	ActivityLogged   = "activity.logged"
	ActivityDeleted  = "activity.deleted"
	InsightRecorded  = "insight.recorded"
	InsightDeleted   = "insight.deleted"
)

// Topics events are routed to.
const (
	TopicDevelopers = "devguard.developers"
	TopicActivity   = "devguard.activity"
	TopicInsights   = "devguard.insights"
)

// HeaderEventType is the Kafka header carrying the event type.
const HeaderEventType = "event_type"

// Route describes where an event type is published.
type Route struct {
	AggregateType string
	Topic         string
}

var catalog = map[string]Route{
	DeveloperCreated: {AggregateType: "developer", Topic: TopicDevelopers},
	DeveloperDeleted: {AggregateType: "developer", Topic: TopicDevelopers},
	ActivityLogged:   {AggregateType: "activity", Topic: TopicActivity},
	ActivityDeleted:  {AggregateType: "activity", Topic: TopicActivity},
	InsightRecorded:  {AggregateType: "insight", Topic: TopicInsights},
	InsightDeleted:   {AggregateType: "insight", Topic: TopicInsights},
}

// Lookup returns the route for eventType.
func Lookup(eventType string) (Route, bool) {
	r, ok := catalog[eventType]
	return r, ok
}

// Topics lists every topic an event can be routed to, sorted.
func Topics() []string {
	seen := make(map[string]struct{}, len(catalog))
	out := make([]string, 0, 3)
	for _, r := range catalog {
		if _, ok := seen[r.Topic]; ok {
			continue
		}
		seen[r.Topic] = struct{}{}
		out = append(out, r.Topic)
	}
	sort.Strings(out)
	return out
}

// Meta is embedded in every payload.
type Meta struct {
	EventID     string    `json:"event_id"`
	DeveloperID int64     `json:"developer_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func newMeta(developerID int64, at time.Time) Meta {
	return Meta{EventID: uuid.NewString(), DeveloperID: developerID, OccurredAt: at.UTC()}
}

// DeveloperChanged is the payload of developer.* events.
type DeveloperChanged struct {
	Meta
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewDeveloperChanged builds the payload for dev.
func NewDeveloperChanged(dev domain.Developer, at time.Time) DeveloperChanged {
	return DeveloperChanged{Meta: newMeta(dev.ID, at), Name: dev.Name, Email: dev.Email, Role: dev.Role}
}

// ActivityChanged is the payload of activity.* events.
type ActivityChanged struct {
	Meta
	ActivityID     int64   `json:"activity_id"`
	ActivityDate   string  `json:"activity_date"`
	WorkHours      float64 `json:"work_hours"`
	Commits        int     `json:"commits"`
	PullRequests   int     `json:"pull_requests"`
	TasksCompleted int     `json:"tasks_completed"`
	PendingTasks   int     `json:"pending_tasks"`
	Meetings       int     `json:"meetings"`
}

// NewActivityChanged builds the payload for rec.
func NewActivityChanged(rec domain.ActivityRecord, at time.Time) ActivityChanged {
	return ActivityChanged{
		Meta:           newMeta(rec.DeveloperID, at),
		ActivityID:     rec.ID,
		ActivityDate:   rec.ActivityDate.Format(domain.DateLayout),
		WorkHours:      rec.WorkHours,
		Commits:        rec.Commits,
		PullRequests:   rec.PullRequests,
		TasksCompleted: rec.TasksCompleted,
		PendingTasks:   rec.PendingTasks,
		Meetings:       rec.Meetings,
	}
}

// InsightChanged is the payload of insight.* events.
type InsightChanged struct {
	Meta
	InsightID int64            `json:"insight_id"`
	Severity  domain.RiskLevel `json:"severity"`
}

// NewInsightChanged builds the payload for in.
func NewInsightChanged(in domain.Insight, at time.Time) InsightChanged {
	return InsightChanged{Meta: newMeta(in.DeveloperID, at), InsightID: in.ID, Severity: in.Severity}
}
