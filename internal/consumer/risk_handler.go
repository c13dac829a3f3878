package consumer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"example.com/devguard/internal/domain"
	"example.com/devguard/internal/events"
	"example.com/devguard/internal/observability"
)

// Scorer recomputes a developer's assessment.
type Scorer interface {
	Rescore(ctx context.Context, developerID int64) (domain.BurnoutAssessment, error)
}

// RiskHandler keeps the per-developer burnout gauge current as activity changes.
type RiskHandler struct {
	scorer Scorer
	logger *slog.Logger
}

// NewRiskHandler constructs a RiskHandler.
func NewRiskHandler(scorer Scorer, logger *slog.Logger) *RiskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskHandler{scorer: scorer, logger: logger}
}

// Handle rescores on activity events and drops the gauge of deleted developers.
// Activity for an unknown developer drops the gauge too.
func (h *RiskHandler) Handle(ctx context.Context, msg Message) error {
	if msg.DeveloperID <= 0 {
		return nil
	}

	switch {
	case msg.EventType == events.DeveloperDeleted:
		observability.ForgetDeveloper(msg.DeveloperID)
		return nil
	case strings.HasPrefix(msg.EventType, "activity."):
		assessment, err := h.scorer.Rescore(ctx, msg.DeveloperID)
		if errors.Is(err, domain.ErrNotFound) {
			// Activity for a developer deleted on the other topic.
			observability.ForgetDeveloper(msg.DeveloperID)
			return nil
		}
		if err != nil {
			return err
		}
		observability.SetBurnoutScore(msg.DeveloperID, assessment.Score)
		h.logger.Debug("developer rescored",
			slog.Int64("developer_id", msg.DeveloperID),
			slog.Float64("score", assessment.Score),
			slog.String("risk_level", string(assessment.RiskLevel)))
		return nil
	default:
		return nil
	}
}
