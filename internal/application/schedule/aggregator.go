// Package schedule implements the schedule fetch use case: resolving the
// requested period to calendar days, obtaining a session token, and
// aggregating per-day portal queries into one result.
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

// TokenSource provides a fresh session token for a parent.
type TokenSource interface {
	EnsureToken(ctx context.Context, id parent.TelegramID) (string, error)
}

// PortalClient queries one calendar day of lessons from the portal.
type PortalClient interface {
	QuerySchedule(ctx context.Context, token string, child *parent.Child, date time.Time) ([]schedule.Lesson, error)
}

// AggregatorConfig contains configuration for the aggregator.
type AggregatorConfig struct {
	// Logger for structured logging
	Logger *slog.Logger

	// Now overrides the clock (tests only)
	Now func() time.Time
}

// Aggregator fetches schedules day by day. Days are queried sequentially
// and in order; the portal already sees one request per day per user and
// a failed Tuesday must not hide a perfectly good Wednesday.
type Aggregator struct {
	tokens TokenSource
	portal PortalClient
	logger *slog.Logger
	now    func() time.Time
}

// NewAggregator creates a schedule aggregator.
func NewAggregator(tokens TokenSource, portal PortalClient, cfg AggregatorConfig) *Aggregator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = timeutil.Now
	}
	return &Aggregator{
		tokens: tokens,
		portal: portal,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
}

// Fetch retrieves the schedule for one child over the requested period.
//
// Per-day failures are recorded in the matching DayResult and the
// remaining days are still fetched; even a fully failed period returns a
// result so the caller can render one combined message. The exception is
// an authentication failure: it would repeat for every remaining day, so
// it aborts the whole fetch and propagates as-is for the caller to
// escalate to the user.
func (a *Aggregator) Fetch(ctx context.Context, id parent.TelegramID, child *parent.Child, kind schedule.PeriodKind) (*schedule.PeriodResult, error) {
	period := schedule.ResolvePeriod(kind, a.now())

	token, err := a.tokens.EnsureToken(ctx, id)
	if err != nil {
		return nil, err
	}

	dates := period.Dates()
	result := &schedule.PeriodResult{
		Days: make([]schedule.DayResult, 0, len(dates)),
	}

	for _, date := range dates {
		lessons, err := a.portal.QuerySchedule(ctx, token, child, date)
		if err != nil {
			if shared.IsAuthenticationFailed(err) {
				return nil, err
			}
			logctx.From(ctx, a.logger).Warn("day fetch failed",
				"telegram_id", id,
				"student_id", child.StudentID,
				"date", timeutil.FormatISODate(date),
				"error", err)
			result.Days = append(result.Days, schedule.DayResult{Date: date, Err: err})
			continue
		}
		result.Days = append(result.Days, schedule.DayResult{Date: date, Lessons: lessons})
	}

	return result, nil
}
