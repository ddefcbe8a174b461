package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/gatehouse/pkg/logger"
)

// DefaultSweepSchedule runs the sweeper every 15 minutes.
const DefaultSweepSchedule = "*/15 * * * *"

// ErrInvalidSchedule is returned when a sweep schedule cannot be parsed.
var ErrInvalidSchedule = errors.New("session: invalid sweep schedule")

// Sweeper periodically removes expired sessions from a Store.
type Sweeper struct {
	store   Store
	logger  *slog.Logger
	cron    *cron.Cron
	timeout time.Duration
}

// NewSweeper creates a sweeper for store running on the given cron schedule
// (standard five-field syntax). An empty schedule uses DefaultSweepSchedule.
func NewSweeper(store Store, schedule string, log *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if log == nil {
		log = logger.NewNope()
	}

	s := &Sweeper{
		store:   store,
		logger:  log,
		cron:    cron.New(),
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, errors.Join(ErrInvalidSchedule, err)
	}
	return s, nil
}

// Sweep removes expired sessions once.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx)
}

// Start begins running the schedule in the background.
// Matches the startup hook signature used by the application.
func (s *Sweeper) Start(context.Context) error {
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "session sweep failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions removed", slog.Int64("count", n))
	}
}
