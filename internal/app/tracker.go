// internal/app/tracker.go
package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"cgv_schedule_tracker/internal/domain/schedule"
	"cgv_schedule_tracker/internal/infra/scheduler"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const summaryLimit = 5

var (
	// ErrInterrupted is returned by Run when its context ends before
	// schedules were found. Callers treat it as a clean shutdown.
	ErrInterrupted = errors.New("tracker interrupted")
	// ErrAttemptsExhausted is returned by Run when MaxAttempts cycles found nothing.
	ErrAttemptsExhausted = errors.New("maximum poll attempts reached without finding schedules")
)

// State is the tracker's position in its two-state lifecycle.
type State string

const (
	StatePolling State = "POLLING"
	StateDone    State = "DONE" // Terminal
)

// ScheduleSource looks up the showtimes for a date.
type ScheduleSource interface {
	SearchSchedules(ctx context.Context, date string) (*schedule.PollResult, error)
}

// TrackerOptions is the part of the configuration the tracker needs.
type TrackerOptions struct {
	TargetDate string // YYYYMMDD
	MovieNo    string
	SiteNo     string

	// MaxAttempts stops Run after this many fruitless cycles. 0 polls forever.
	MaxAttempts int
	// StopOnUnauthorized makes a 401 fatal instead of polling again.
	StopOnUnauthorized bool
}

// Tracker polls the schedule source until showtimes appear, then announces
// them once and stops.
type Tracker struct {
	source   ScheduleSource
	notifier Notifier
	waiter   scheduler.Waiter
	opts     TrackerOptions
	logger   *logrus.Entry

	runID    string
	state    State
	attempts int
}

func NewTracker(
	source ScheduleSource,
	notifier Notifier,
	waiter scheduler.Waiter,
	opts TrackerOptions,
	logger *logrus.Entry,
) *Tracker {
	runID := uuid.NewString()
	return &Tracker{
		source:   source,
		notifier: notifier,
		waiter:   waiter,
		opts:     opts,
		logger:   logger.WithField("run_id", runID),
		runID:    runID,
		state:    StatePolling,
	}
}

func (t *Tracker) State() State { return t.state }
func (t *Tracker) Attempts() int { return t.attempts }
func (t *Tracker) RunID() string { return t.runID }

// CheckOnce performs a single poll cycle and classifies its result. It never
// notifies. A panic inside the cycle is recovered and reported as
// schedule.FailurePanic.
func (t *Tracker) CheckOnce(ctx context.Context) (out schedule.Outcome) {
	t.attempts++
	log := t.logger.WithField("attempt", t.attempts)

	defer recoverCycle(log, "schedule check", &out)

	log.WithFields(logrus.Fields{
		"date":  t.opts.TargetDate,
		"movie": t.opts.MovieNo,
		"site":  t.opts.SiteNo,
	}).Info("CGV schedule check")

	result, err := t.source.SearchSchedules(ctx, t.opts.TargetDate)
	out = schedule.Classify(result, err)

	switch out.Kind {
	case schedule.OutcomeAvailable:
		log.WithFields(logrus.Fields{
			"status_code":    out.Result.StatusCode,
			"status_message": out.Result.StatusMessage,
		}).Infof("Found %d schedules!", len(out.Result.Entries))
		for i, e := range out.Result.Entries {
			if i == summaryLimit {
				log.Infof("  ... and %d more", len(out.Result.Entries)-summaryLimit)
				break
			}
			log.Infof("  - %s", e.Summary())
		}
	case schedule.OutcomeEmpty:
		log.WithFields(logrus.Fields{
			"status_code":    out.Result.StatusCode,
			"status_message": out.Result.StatusMessage,
		}).Info("No schedules available yet")
	case schedule.OutcomeFailed:
		entry := log.WithError(out.Err).WithField("failure", out.Failure)
		if out.Failure == schedule.FailureAuth {
			entry.Warn("Unauthorized, signature may be incorrect")
		} else {
			entry.Warn("Failed to get schedule data")
		}
	}
	return out
}

// RunOnce performs one cycle and, when schedules are found, sends the
// announcement and moves the tracker to StateDone. A panic while announcing
// is reported as schedule.FailurePanic and leaves the tracker polling, as does
// an interrupt that arrives before the announcement went out.
func (t *Tracker) RunOnce(ctx context.Context) (out schedule.Outcome) {
	out = t.CheckOnce(ctx)
	if !out.Found() {
		return out
	}

	defer recoverCycle(t.logger.WithField("attempt", t.attempts), "schedule announcement", &out)

	message := FormatScheduleMessage(out.Result.Entries, t.opts.TargetDate, t.opts.MovieNo)
	if !t.notifier.Notify(ctx, message) {
		if ctx.Err() != nil {
			t.logger.Warn("Schedules found but interrupted before the notification was sent")
			return out
		}
		// Not retried: the tracker still stops.
		t.logger.Warn("Schedules found but the notification was not delivered")
	}
	t.state = StateDone
	return out
}

// recoverCycle turns a panic in the current cycle into a FailurePanic
// outcome. It must be deferred directly.
func recoverCycle(log *logrus.Entry, step string, out *schedule.Outcome) {
	r := recover()
	if r == nil {
		return
	}
	correlationID := uuid.NewString()
	log.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"panic":          fmt.Sprintf("%v", r),
		"stack":          string(debug.Stack()),
	}).Errorf("%s panicked", step)
	*out = schedule.Outcome{
		Kind:    schedule.OutcomeFailed,
		Failure: schedule.FailurePanic,
		Err:     fmt.Errorf("%s panic (correlation_id: %s)", step, correlationID),
	}
}

// Run polls until schedules are found, the context ends, or one of the
// optional stop conditions in TrackerOptions is hit.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.WithFields(logrus.Fields{
		"date":         t.opts.TargetDate,
		"max_attempts": t.opts.MaxAttempts,
	}).Info("Starting CGV monitor")

	for t.state == StatePolling {
		if ctx.Err() != nil {
			return ErrInterrupted
		}

		out := t.RunOnce(ctx)
		if t.state == StateDone {
			t.logger.Info("Schedule found! Stopping.")
			return nil
		}
		if ctx.Err() != nil {
			return ErrInterrupted
		}

		if out.Failure == schedule.FailureAuth && t.opts.StopOnUnauthorized {
			return fmt.Errorf("stopping after rejected signature: %w", out.Err)
		}
		if t.opts.MaxAttempts > 0 && t.attempts >= t.opts.MaxAttempts {
			return fmt.Errorf("%w (%d)", ErrAttemptsExhausted, t.attempts)
		}

		now := time.Now()
		t.logger.Infof("Next check in %s", t.waiter.Next(now).Sub(now).Round(time.Second))
		if err := t.waiter.Wait(ctx); err != nil {
			return ErrInterrupted
		}
	}
	return nil
}
