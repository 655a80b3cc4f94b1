package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/leaguehq/leaguehq/internal/booking"
)

const noShowJobTimeout = 2 * time.Minute

// RegisterNoShowJob schedules the sweep that marks confirmed bookings whose
// window has passed without a check-in as no-shows.
func RegisterNoShowJob(engine *booking.Engine, cronExpr string) error {
	if engine == nil {
		return fmt.Errorf("no-show job requires the booking engine")
	}
	if cronExpr == "" {
		cronExpr = "*/15 * * * *"
	}

	jobName := "booking_no_show_sweep"
	jobLogger := log.With().
		Str("component", "no_show_job").
		Str("job_name", jobName).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), noShowJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		marked, err := engine.ExpireNoShows(ctx, time.Now())
		if err != nil {
			jobLogger.Error().Err(err).Msg("No-show sweep failed")
			return
		}
		if marked > 0 {
			jobLogger.Info().Int64("marked", marked).Msg("Bookings marked as no-shows")
		}
	})
	return err
}
