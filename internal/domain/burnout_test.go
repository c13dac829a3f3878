package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(hours float64, meetings, pending, commits, tasks int) ActivityRecord {
	return ActivityRecord{
		WorkHours:      hours,
		Meetings:       meetings,
		PendingTasks:   pending,
		Commits:        commits,
		TasksCompleted: tasks,
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		window   []ActivityRecord
		expected float64
		level    RiskLevel
	}{
		{
			name:     "empty window",
			window:   nil,
			expected: 0.15,
			level:    RiskLow,
		},
		{
			name:     "all zero fields",
			window:   []ActivityRecord{day(0, 0, 0, 0, 0), day(0, 0, 0, 0, 0)},
			expected: 0.15,
			level:    RiskLow,
		},
		{
			name:     "single record",
			window:   []ActivityRecord{day(10, 2, 5, 3, 2)},
			expected: 0.2679166666666667,
			level:    RiskLow,
		},
		{
			name:     "every driver saturated",
			window:   []ActivityRecord{day(30, 10, 20, 0, 0), day(25, 12, 15, 0, 0)},
			expected: 1.0,
			level:    RiskHigh,
		},
		{
			name:     "exactly high threshold",
			window:   []ActivityRecord{day(50, 20, 0, 0, 0)},
			expected: 0.75,
			level:    RiskMedium,
		},
		{
			name:     "exactly medium threshold",
			window:   []ActivityRecord{day(0, 20, 24, 30, 10)},
			expected: 0.45,
			level:    RiskLow,
		},
		{
			name:     "output beyond ceiling floors productivity",
			window:   []ActivityRecord{day(0, 0, 0, 60, 20)},
			expected: 0,
			level:    RiskLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.window)
			assert.InDelta(t, tt.expected, got.Score, 1e-9)
			assert.Equal(t, tt.level, got.RiskLevel)
		})
	}
}

func TestScoreBoundariesAreExact(t *testing.T) {
	high := Score([]ActivityRecord{day(50, 20, 0, 0, 0)})
	require.Equal(t, 0.75, high.Score)
	require.Equal(t, RiskMedium, high.RiskLevel)

	medium := Score([]ActivityRecord{day(0, 20, 24, 40, 0)})
	require.Equal(t, 0.45, medium.Score)
	require.Equal(t, RiskLow, medium.RiskLevel)
}

func TestScoreCoercesInvalidNumbers(t *testing.T) {
	window := []ActivityRecord{
		{WorkHours: math.NaN(), Meetings: -4, PendingTasks: -1, Commits: -10, TasksCompleted: -3},
		{WorkHours: math.Inf(1)},
		{WorkHours: -8},
	}
	got := Score(window)
	assert.Equal(t, 0.15, got.Score)
	assert.Equal(t, RiskLow, got.RiskLevel)
	assert.False(t, math.IsNaN(got.Score))
}

func TestScoreHoursMonotonic(t *testing.T) {
	prev := -1.0
	for hours := 0.0; hours <= 80; hours += 2.5 {
		got := Score([]ActivityRecord{day(hours, 4, 6, 5, 5)}).Score
		assert.GreaterOrEqual(t, got, prev, "hours=%v", hours)
		prev = got
	}
	saturated := Score([]ActivityRecord{day(50, 4, 6, 5, 5)}).Score
	assert.Equal(t, saturated, Score([]ActivityRecord{day(75, 4, 6, 5, 5)}).Score)
}

func TestScoreIsPure(t *testing.T) {
	window := []ActivityRecord{day(9.5, 3, 7, 4, 2), day(8, 1, 6, 2, 3), day(11.25, 5, 9, 0, 1)}
	first := Score(window)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Score(window))
	}
}

func TestScoreOrderIndependentForIntegers(t *testing.T) {
	a := []ActivityRecord{day(8, 3, 7, 4, 2), day(10, 1, 6, 2, 3), day(6, 5, 9, 0, 1)}
	b := []ActivityRecord{a[2], a[0], a[1]}
	assert.Equal(t, Score(a).Score, Score(b).Score)
}

func TestScoringWindowOf(t *testing.T) {
	history := make([]ActivityRecord, 0, HistoryLimit)
	for i := 0; i < HistoryLimit; i++ {
		history = append(history, day(4, 0, 0, 0, 0))
	}
	for i := ScoringWindow; i < HistoryLimit; i++ {
		history[i] = day(12, 6, 9, 0, 0)
	}

	window := ScoringWindowOf(history)
	require.Len(t, window, ScoringWindow)
	assert.NotEqual(t, Score(history).Score, Score(window).Score)

	short := history[:3]
	assert.Len(t, ScoringWindowOf(short), 3)
	assert.Empty(t, ScoringWindowOf(nil))
}

func TestScoreFactorsSumToScore(t *testing.T) {
	got := Score([]ActivityRecord{day(20, 5, 10, 8, 4)})
	f := got.Factors
	assert.InDelta(t, got.Score, f.Hours+f.Meetings+f.Backlog+f.Productivity, 1e-12)
	assert.Equal(t, Totals{Hours: 20, Meetings: 5, Pending: 10, Commits: 8, Tasks: 4}, got.Totals)
}

func TestClassifyRisk(t *testing.T) {
	assert.Equal(t, RiskLow, ClassifyRisk(0))
	assert.Equal(t, RiskLow, ClassifyRisk(0.45))
	assert.Equal(t, RiskMedium, ClassifyRisk(math.Nextafter(0.45, 1)))
	assert.Equal(t, RiskMedium, ClassifyRisk(0.75))
	assert.Equal(t, RiskHigh, ClassifyRisk(math.Nextafter(0.75, 1)))
	assert.Equal(t, RiskHigh, ClassifyRisk(1))
}

func TestParseRiskLevel(t *testing.T) {
	for _, in := range []string{"Low", "low", " LOW "} {
		got, err := ParseRiskLevel(in)
		require.NoError(t, err)
		assert.Equal(t, RiskLow, got)
	}
	got, err := ParseRiskLevel("High")
	require.NoError(t, err)
	assert.Equal(t, RiskHigh, got)

	_, err = ParseRiskLevel("Critical")
	require.ErrorIs(t, err, ErrValidation)

	var level RiskLevel
	require.Error(t, level.UnmarshalJSON([]byte(`"Severe"`)))
	require.NoError(t, level.UnmarshalJSON([]byte(`"medium"`)))
	assert.Equal(t, RiskMedium, level)
	assert.False(t, RiskLevel("medium").Valid())
}
