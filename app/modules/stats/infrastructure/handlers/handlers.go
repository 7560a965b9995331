package statshandlers

import (
	"log/slog"

	statsservice "github.com/YuTeChang/VibeBadminton-sub000/app/modules/stats/application"
)

// StatsHandlers handles stats-related events.
type StatsHandlers struct {
	engine    Engine
	scheduler statsservice.RecalculationScheduler
	limiter   *GroupLimiter
	logger    *slog.Logger
}

var _ Handlers = (*StatsHandlers)(nil)

// NewStatsHandlers creates a new instance of StatsHandlers.
func NewStatsHandlers(
	engine Engine,
	scheduler statsservice.RecalculationScheduler,
	limiter *GroupLimiter,
	logger *slog.Logger,
) *StatsHandlers {
	if limiter == nil {
		limiter = NewGroupLimiter(0)
	}
	return &StatsHandlers{
		engine:    engine,
		scheduler: scheduler,
		limiter:   limiter,
		logger:    logger,
	}
}
