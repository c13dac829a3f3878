package domain

import "math"

const (
	// HistoryLimit is how many of a developer's most recent records are returned for display.
	HistoryLimit = 14
	// ScoringWindow is how many of those records feed the burnout score.
	ScoringWindow = 7
)

// Saturation points and weights of the four burnout drivers.
const (
	hoursCeiling    = 50.0
	meetingsCeiling = 20.0
	backlogCeiling  = 30.0
	outputCeiling   = 40.0

	hoursWeight        = 0.35
	meetingsWeight     = 0.25
	backlogWeight      = 0.25
	productivityWeight = 0.15

	highThreshold   = 0.75
	mediumThreshold = 0.45
)

// Factors is the weighted contribution of each burnout driver.
type Factors struct {
	Hours        float64
	Meetings     float64
	Backlog      float64
	Productivity float64
}

// Totals are the raw sums over a scoring window.
type Totals struct {
	Hours    float64
	Meetings int
	Pending  int
	Commits  int
	Tasks    int
}

// BurnoutAssessment is the derived risk for one window. It is never persisted.
type BurnoutAssessment struct {
	Score     float64
	RiskLevel RiskLevel
	Factors   Factors
	Totals    Totals
}

// ScoringWindowOf returns the newest-first prefix of history that is scored.
func ScoringWindowOf(history []ActivityRecord) []ActivityRecord {
	if len(history) > ScoringWindow {
		return history[:ScoringWindow]
	}
	return history
}

// Score computes the burnout assessment for a window of at most ScoringWindow
// records, newest first. Callers select the window; Score sums whatever it gets.
func Score(window []ActivityRecord) BurnoutAssessment {
	var t Totals
	for _, a := range window {
		t.Hours += nonNegativeFloat(a.WorkHours)
		t.Meetings += nonNegative(a.Meetings)
		t.Pending += nonNegative(a.PendingTasks)
		t.Commits += nonNegative(a.Commits)
		t.Tasks += nonNegative(a.TasksCompleted)
	}

	f := Factors{
		Hours:        math.Min(t.Hours/hoursCeiling, 1) * hoursWeight,
		Meetings:     math.Min(float64(t.Meetings)/meetingsCeiling, 1) * meetingsWeight,
		Backlog:      math.Min(float64(t.Pending)/backlogCeiling, 1) * backlogWeight,
		Productivity: math.Max(0, 1-float64(t.Commits+t.Tasks)/outputCeiling) * productivityWeight,
	}

	score := math.Min(f.Hours+f.Meetings+f.Backlog+f.Productivity, 1)

	return BurnoutAssessment{
		Score:     score,
		RiskLevel: ClassifyRisk(score),
		Factors:   f,
		Totals:    t,
	}
}

// ClassifyRisk maps a score onto a level. Thresholds are strict.
func ClassifyRisk(score float64) RiskLevel {
	switch {
	case score > highThreshold:
		return RiskHigh
	case score > mediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func nonNegativeFloat(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
