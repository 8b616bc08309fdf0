package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Waiter blocks until the next poll cycle is due.
type Waiter interface {
	// Wait returns nil when the next cycle may start, or ctx.Err() if the
	// context ends first.
	Wait(ctx context.Context) error
	// Next reports when the cycle after now is due.
	Next(now time.Time) time.Time
}

// CronWaiter spaces poll cycles according to a cron schedule.
type CronWaiter struct {
	schedule cron.Schedule
	now      func() time.Time
}

// NewIntervalWaiter waits a constant interval between cycles.
// Intervals below one second are rounded up by cron.
func NewIntervalWaiter(interval time.Duration) *CronWaiter {
	return &CronWaiter{
		schedule: cron.Every(interval),
		now:      time.Now,
	}
}

// NewCronWaiter parses a standard 5-field cron expression or a descriptor
// such as "@every 90s" or "@hourly".
func NewCronWaiter(spec string) (*CronWaiter, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	return &CronWaiter{
		schedule: sched,
		now:      time.Now,
	}, nil
}

// New picks a cron waiter when spec is set and an interval waiter otherwise.
func New(spec string, interval time.Duration) (*CronWaiter, error) {
	if spec != "" {
		return NewCronWaiter(spec)
	}
	return NewIntervalWaiter(interval), nil
}

func (w *CronWaiter) Next(now time.Time) time.Time {
	return w.schedule.Next(now)
}

func (w *CronWaiter) Wait(ctx context.Context) error {
	now := w.now()
	delay := w.Next(now).Sub(now)
	if delay < 0 {
		delay = 0
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
