package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/CHUDOAL/Valve-sait/internal/metrics"
)

// SessionSweeper deletes sessions that expired more than grace ago.
type SessionSweeper interface {
	SweepExpired(ctx context.Context, grace time.Duration) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	sessions SessionSweeper
	schedule string
	grace    time.Duration
	log      zerolog.Logger
}

func NewScheduler(sessions SessionSweeper, schedule string, grace time.Duration, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		schedule: schedule,
		grace:    grace,
		log:      log.With().Str("component", "jobs").Logger(),
	}
}

// Start registers the sweep. An empty schedule disables it.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweepSessions); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.sessions.SweepExpired(ctx, s.grace)
	if err != nil {
		s.log.Error().Err(err).Msg("session sweep failed")
		return
	}
	metrics.SessionsSwept.Add(float64(removed))
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("expired sessions swept")
	}
}
