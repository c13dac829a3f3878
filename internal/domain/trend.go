package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TrendRange selects how many trailing days a trend keeps.
type TrendRange string

const (
	TrendWeek  TrendRange = "week"
	TrendMonth TrendRange = "month"
)

// ParseTrendRange defaults to a week when s is empty.
func ParseTrendRange(s string) (TrendRange, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "week":
		return TrendWeek, nil
	case "month":
		return TrendMonth, nil
	}
	return "", fmt.Errorf("%w: unknown range %q", ErrValidation, s)
}

// Days is the number of trailing days kept for the range.
func (r TrendRange) Days() int {
	if r == TrendMonth {
		return 30
	}
	return 7
}

// TrendPoint sums one calendar day of activity.
type TrendPoint struct {
	Date           time.Time
	Commits        int
	PullRequests   int
	TasksCompleted int
	Meetings       int
	WorkHours      float64
}

// BuildTrend groups records by day, sorts ascending and keeps the trailing days of rng.
func BuildTrend(records []ActivityRecord, rng TrendRange) []TrendPoint {
	byDay := make(map[time.Time]*TrendPoint)
	for _, r := range records {
		day := TruncateDate(r.ActivityDate)
		p, ok := byDay[day]
		if !ok {
			p = &TrendPoint{Date: day}
			byDay[day] = p
		}
		p.Commits += nonNegative(r.Commits)
		p.PullRequests += nonNegative(r.PullRequests)
		p.TasksCompleted += nonNegative(r.TasksCompleted)
		p.Meetings += nonNegative(r.Meetings)
		p.WorkHours += nonNegativeFloat(r.WorkHours)
	}

	points := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	if keep := rng.Days(); len(points) > keep {
		points = points[len(points)-keep:]
	}
	return points
}

// TeamSummary holds team-wide activity totals.
type TeamSummary struct {
	Developers       int
	Records          int
	TotalCommits     int
	TotalTasks       int
	TotalWorkHours   float64
	AverageWorkHours float64
	Roles            map[string]int
}

// Summarize totals activity across the team and counts developers per role.
func Summarize(devs []Developer, records []ActivityRecord) TeamSummary {
	s := TeamSummary{
		Developers: len(devs),
		Records:    len(records),
		Roles:      make(map[string]int),
	}
	for _, d := range devs {
		role := strings.TrimSpace(d.Role)
		if role == "" {
			role = "Unassigned"
		}
		s.Roles[role]++
	}
	for _, r := range records {
		s.TotalCommits += nonNegative(r.Commits)
		s.TotalTasks += nonNegative(r.TasksCompleted)
		s.TotalWorkHours += nonNegativeFloat(r.WorkHours)
	}
	if s.Records > 0 {
		s.AverageWorkHours = s.TotalWorkHours / float64(s.Records)
	}
	return s
}
