package schedule

import (
	"context"
	"errors"

	"calview/internal/calendar"
	"calview/internal/config"
)

const (
	JobRefresh    = "refresh"
	JobMarkerTick = "marker_tick"
	JobSnapshot   = "snapshot"
)

// RegisterCalendar wires the engine's periodic work: re-fetching the
// current range and recomputing the current-time marker. snapshot is
// registered only when enabled in cfg.
func RegisterCalendar(s *Scheduler, cfg *config.Config, engine *calendar.Engine, snapshot JobFunc) error {
	err := s.Add(JobRefresh, cfg.RefreshCron, func(ctx context.Context) error {
		err := engine.Refresh(ctx)
		if errors.Is(err, calendar.ErrStale) {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	err = s.Add(JobMarkerTick, cfg.MarkerTick, func(context.Context) error {
		engine.Tick()
		return nil
	})
	if err != nil {
		return err
	}

	if cfg.Snapshot.Enabled && snapshot != nil {
		return s.Add(JobSnapshot, cfg.Snapshot.Cron, snapshot)
	}
	return nil
}
