package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sysmanager-dev/sysmanager/internal/models"
)

const (
	// DefaultCleanupSchedule runs the session janitor every 15 minutes
	DefaultCleanupSchedule = "*/15 * * * *"

	// sessionRetention keeps ended sessions visible to GET /session for a while
	sessionRetention = 24 * time.Hour
)

// parseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week)
func parseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// RunJanitor purges stale sessions on schedule until ctx is done. It runs
// once immediately.
func (s *Server) RunJanitor(ctx context.Context, expr string) error {
	schedule, err := parseSchedule(expr)
	if err != nil {
		return err
	}

	for {
		if _, err := s.PurgeSessions(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to purge sessions")
		}

		next := schedule.Next(s.now())
		s.logger.Debug().Time("next_run_at", next).Msg("Session janitor sleeping")

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// PurgeSessions deletes sessions that expired or were revoked more than a
// day ago and returns how many were removed
func (s *Server) PurgeSessions() (int64, error) {
	cutoff := s.now().Add(-sessionRetention)

	result := s.db.
		Where("expires_at < ?", cutoff).
		Or("revoked_at IS NOT NULL AND revoked_at < ?", cutoff).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Info().Int64("sessions", result.RowsAffected).Msg("Purged stale sessions")
	}
	return result.RowsAffected, nil
}
