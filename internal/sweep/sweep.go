// Package sweep periodically rescores every developer into the burnout gauge.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"example.com/devguard/internal/domain"
	"example.com/devguard/internal/observability"
)

// Source lists developers and rescores them. *domain.Service satisfies it.
type Source interface {
	ListDevelopers(ctx context.Context) ([]domain.Developer, error)
	Rescore(ctx context.Context, developerID int64) (domain.BurnoutAssessment, error)
}

// Result summarises one sweep.
type Result struct {
	Scored int
	Failed int
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a five-field cron expression or a descriptor such as "@every 15m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	return parser.Parse(expr)
}

// Sweeper runs the risk sweep on a cron schedule.
type Sweeper struct {
	source   Source
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

// New validates schedule and returns a Sweeper. An empty schedule yields a
// Sweeper whose Start is a no-op.
func New(source Source, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule != "" {
		if _, err := ParseSchedule(schedule); err != nil {
			return nil, fmt.Errorf("parse sweep schedule %q: %w", schedule, err)
		}
	}
	return &Sweeper{source: source, schedule: schedule, logger: logger}, nil
}

// RunOnce rescores every developer. A developer that fails is logged and
// counted; only a failure to list developers aborts the sweep.
func (s *Sweeper) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	devs, err := s.source.ListDevelopers(ctx)
	if err != nil {
		observability.RecordSweepAborted()
		return res, fmt.Errorf("risk sweep: %w", err)
	}

	for _, dev := range devs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		assessment, err := s.source.Rescore(ctx, dev.ID)
		if errors.Is(err, domain.ErrNotFound) {
			observability.ForgetDeveloper(dev.ID)
			continue
		}
		if err != nil {
			res.Failed++
			s.logger.Warn("risk sweep rescore failed", slog.Int64("developer_id", dev.ID), slog.Any("error", err))
			continue
		}
		observability.SetBurnoutScore(dev.ID, assessment.Score)
		res.Scored++
	}

	observability.RecordSweep(res.Failed)
	return res, nil
}

// Start schedules the sweep and blocks until ctx is cancelled, then waits for
// a running sweep to finish.
func (s *Sweeper) Start(ctx context.Context) {
	if s.schedule == "" {
		s.logger.Info("risk sweep disabled")
		return
	}

	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		s.logger.Error("risk sweep schedule rejected", slog.Any("error", err))
		return
	}

	s.logger.Info("risk sweep scheduled", slog.String("schedule", s.schedule))
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

func (s *Sweeper) run(ctx context.Context) {
	start := time.Now()
	res, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("risk sweep failed", slog.Any("error", err))
		return
	}
	s.logger.Info("risk sweep complete",
		slog.Int("scored", res.Scored),
		slog.Int("failed", res.Failed),
		slog.Duration("elapsed", time.Since(start)))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
