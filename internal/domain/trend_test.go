package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTrendGroupsAndTrims(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	var records []ActivityRecord
	for i := 0; i < 10; i++ {
		records = append(records, ActivityRecord{
			DeveloperID:  1,
			ActivityDate: start.AddDate(0, 0, i),
			Commits:      i,
			WorkHours:    8,
		})
	}
	// Second developer on the last day folds into the same point.
	records = append(records, ActivityRecord{DeveloperID: 2, ActivityDate: start.AddDate(0, 0, 9).Add(5 * time.Hour), Commits: 1, Meetings: 2, WorkHours: 4})

	week := BuildTrend(records, TrendWeek)
	require.Len(t, week, 7)
	assert.Equal(t, start.AddDate(0, 0, 3), week[0].Date)
	last := week[len(week)-1]
	assert.Equal(t, start.AddDate(0, 0, 9), last.Date)
	assert.Equal(t, 10, last.Commits)
	assert.Equal(t, 2, last.Meetings)
	assert.Equal(t, 12.0, last.WorkHours)

	month := BuildTrend(records, TrendMonth)
	assert.Len(t, month, 10)
	for i := 1; i < len(month); i++ {
		assert.True(t, month[i-1].Date.Before(month[i].Date))
	}

	assert.Empty(t, BuildTrend(nil, TrendWeek))
}

func TestParseTrendRange(t *testing.T) {
	got, err := ParseTrendRange("")
	require.NoError(t, err)
	assert.Equal(t, TrendWeek, got)

	got, err = ParseTrendRange("Month")
	require.NoError(t, err)
	assert.Equal(t, 30, got.Days())

	_, err = ParseTrendRange("year")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSummarize(t *testing.T) {
	devs := []Developer{{ID: 1, Role: "DevOps Lead"}, {ID: 2, Role: "DevOps Lead"}, {ID: 3}}
	records := []ActivityRecord{
		{DeveloperID: 1, Commits: 4, TasksCompleted: 2, WorkHours: 9},
		{DeveloperID: 2, Commits: 1, TasksCompleted: 1, WorkHours: 7},
	}
	s := Summarize(devs, records)
	assert.Equal(t, 3, s.Developers)
	assert.Equal(t, 2, s.Records)
	assert.Equal(t, 5, s.TotalCommits)
	assert.Equal(t, 3, s.TotalTasks)
	assert.Equal(t, 16.0, s.TotalWorkHours)
	assert.Equal(t, 8.0, s.AverageWorkHours)
	assert.Equal(t, map[string]int{"DevOps Lead": 2, "Unassigned": 1}, s.Roles)

	empty := Summarize(nil, nil)
	assert.Zero(t, empty.AverageWorkHours)
}
