package memory

import (
	"context"
	"time"

	"example.com/devguard/internal/domain"
)

var seedDevelopers = []domain.Developer{
	{Name: "Alex Rivera", Email: "alex@devguard.dev", Role: "Sr. Frontend Engineer"},
	{Name: "Jordan Smith", Email: "jordan@devguard.dev", Role: "DevOps Lead"},
	{Name: "Sarah Chen", Email: "sarah@devguard.dev", Role: "AI Researcher"},
	{Name: "Marcus Thorne", Email: "marcus@devguard.dev", Role: "Backend Architect"},
}

// Seed fills the repository with four developers and days of history ending at today.
// Values are derived from the developer and day index so runs are reproducible.
func (r *Repository) Seed(ctx context.Context, today time.Time, days int) error {
	today = domain.TruncateDate(today)
	for i, d := range seedDevelopers {
		d.CreatedAt = today.AddDate(0, -i-1, 0)
		dev, err := r.CreateDeveloper(ctx, d)
		if err != nil {
			return err
		}
		for day := 0; day < days; day++ {
			k := i*31 + day
			_, err := r.LogActivity(ctx, domain.ActivityRecord{
				DeveloperID:    dev.ID,
				ActivityDate:   today.AddDate(0, 0, -day),
				WorkHours:      6 + float64((k*7)%13)/2,
				Commits:        (k * 5) % 15,
				PullRequests:   (k * 3) % 5,
				Meetings:       (k + i) % 6,
				TasksCompleted: (k * 7) % 10,
				PendingTasks:   (k * 11) % 15,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
