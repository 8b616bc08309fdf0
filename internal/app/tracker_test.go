package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cgv_schedule_tracker/internal/domain/schedule"
	"cgv_schedule_tracker/internal/infra/cgv"
	"cgv_schedule_tracker/internal/infra/config"
	"cgv_schedule_tracker/internal/infra/logger"
)

// sourceFunc adapts a function to ScheduleSource.
type sourceFunc func(ctx context.Context, date string) (*schedule.PollResult, error)

func (f sourceFunc) SearchSchedules(ctx context.Context, date string) (*schedule.PollResult, error) {
	return f(ctx, date)
}

// sequenceSource replays a fixed list of responses, repeating the last one.
type sequenceSource struct {
	results []*schedule.PollResult
	errs    []error
	calls   int
	dates   []string
}

func (s *sequenceSource) SearchSchedules(_ context.Context, date string) (*schedule.PollResult, error) {
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	s.dates = append(s.dates, date)
	return s.results[i], s.errs[i]
}

type recordingNotifier struct {
	messages []string
	ok       bool
}

func (n *recordingNotifier) Notify(_ context.Context, text string) bool {
	n.messages = append(n.messages, text)
	return n.ok
}

// countingWaiter returns immediately. When cancelAfter > 0 it cancels the
// run's context on that wait.
type countingWaiter struct {
	waits       int
	cancelAfter int
	cancel      context.CancelFunc
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	w.waits++
	if w.cancelAfter > 0 && w.waits >= w.cancelAfter {
		w.cancel()
	}
	return ctx.Err()
}

func (w *countingWaiter) Next(now time.Time) time.Time { return now.Add(time.Minute) }

func testOptions() TrackerOptions {
	return TrackerOptions{TargetDate: "20251231", MovieNo: "30000774", SiteNo: "0013"}
}

func found() *schedule.PollResult {
	return &schedule.PollResult{
		StatusMessage: "ok",
		Entries: []schedule.Entry{
			{MovieName: "Zootopia 2", SiteName: "CGV Yongsan", ScreenName: "IMAX관", StartTime: "0930", ScreenType: "IMAX"},
			{MovieName: "Zootopia 2", SiteName: "CGV Yongsan", ScreenName: "SCREENX관", StartTime: "1100", ScreenType: "SCREENX"},
			{MovieName: "Zootopia 2", SiteName: "CGV Yongsan", ScreenName: "IMAX관", StartTime: "1300", ScreenType: "IMAX"},
		},
	}
}

func empty() *schedule.PollResult {
	return &schedule.PollResult{StatusMessage: "no data"}
}

func TestTracker_RunOnce_EmptyDoesNotNotify(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{empty()}, errs: []error{nil}}
	n := &recordingNotifier{ok: true}
	tr := NewTracker(src, n, &countingWaiter{}, testOptions(), logger.Discard())

	out := tr.RunOnce(context.Background())

	if out.Kind != schedule.OutcomeEmpty {
		t.Errorf("Kind = %s, want EMPTY", out.Kind)
	}
	if len(n.messages) != 0 {
		t.Errorf("notifier called %d times, want 0", len(n.messages))
	}
	if tr.State() != StatePolling {
		t.Errorf("State() = %s, want POLLING", tr.State())
	}
	if src.dates[0] != "20251231" {
		t.Errorf("searched date %q", src.dates[0])
	}
}

func TestTracker_Run_NotifiesOnceAndStops(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{found()}, errs: []error{nil}}
	n := &recordingNotifier{ok: true}
	w := &countingWaiter{}
	tr := NewTracker(src, n, w, testOptions(), logger.Discard())

	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(n.messages) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(n.messages))
	}
	if tr.State() != StateDone {
		t.Errorf("State() = %s, want DONE", tr.State())
	}
	if src.calls != 1 || w.waits != 0 {
		t.Errorf("calls/waits = %d/%d, want 1/0", src.calls, w.waits)
	}

	msg := n.messages[0]
	for _, want := range []string{"2025-12-31", "Zootopia 2", "<b>IMAX관</b>", "<b>SCREENX관</b>", "movieChart/30000774"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Count(msg, "<b>IMAX관</b>") != 1 {
		t.Errorf("IMAX group rendered more than once:\n%s", msg)
	}
}

func TestTracker_Run_KeepsPollingUntilFound(t *testing.T) {
	src := &sequenceSource{
		results: []*schedule.PollResult{nil, empty(), nil, found()},
		errs:    []error{errors.New("connection reset"), nil, schedule.ErrMalformedResponse, nil},
	}
	n := &recordingNotifier{ok: true}
	w := &countingWaiter{}
	tr := NewTracker(src, n, w, testOptions(), logger.Discard())

	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if src.calls != 4 {
		t.Errorf("source calls = %d, want 4", src.calls)
	}
	if w.waits != 3 {
		t.Errorf("waits = %d, want 3 (fixed interval after every miss)", w.waits)
	}
	if len(n.messages) != 1 {
		t.Errorf("notifier called %d times, want 1", len(n.messages))
	}
	if tr.Attempts() != 4 {
		t.Errorf("Attempts() = %d, want 4", tr.Attempts())
	}
}

func TestTracker_Run_FailedNotificationStillStops(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{found()}, errs: []error{nil}}
	n := &recordingNotifier{ok: false}
	tr := NewTracker(src, n, &countingWaiter{}, testOptions(), logger.Discard())

	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(n.messages) != 1 {
		t.Errorf("notifier called %d times, want exactly 1 (no retry)", len(n.messages))
	}
	if tr.State() != StateDone {
		t.Errorf("State() = %s, want DONE", tr.State())
	}
}

// TestTracker_Run_RepeatedUnauthorizedPollsForever drives the real CGV client
// against a server that rejects every signature. The tracker must keep
// polling without ever notifying; only the interrupt ends it.
func TestTracker_Run_RepeatedUnauthorizedPollsForever(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := cgv.NewClient(&config.AppConfig{
		CGVSecretKey:   "wrong-secret",
		CGVAPIURL:      server.URL,
		CGVCompanyCode: "A420",
		SiteNo:         "0013",
		MovieNo:        "30000774",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const cycles = 25
	n := &recordingNotifier{ok: true}
	w := &countingWaiter{cancelAfter: cycles, cancel: cancel}
	tr := NewTracker(client, n, w, testOptions(), logger.Discard())

	err := tr.Run(ctx)

	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Run() error = %v, want ErrInterrupted", err)
	}
	if got := hits.Load(); got != cycles {
		t.Errorf("API hits = %d, want %d", got, cycles)
	}
	if len(n.messages) != 0 {
		t.Errorf("notifier called %d times, want 0", len(n.messages))
	}
	if tr.State() != StatePolling {
		t.Errorf("State() = %s, want POLLING", tr.State())
	}
}

func TestTracker_Run_StopOnUnauthorized(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{nil}, errs: []error{schedule.ErrUnauthorized}}
	opts := testOptions()
	opts.StopOnUnauthorized = true
	tr := NewTracker(src, &recordingNotifier{}, &countingWaiter{}, opts, logger.Discard())

	err := tr.Run(context.Background())

	if !errors.Is(err, schedule.ErrUnauthorized) {
		t.Fatalf("Run() error = %v, want ErrUnauthorized", err)
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}
}

func TestTracker_Run_MaxAttempts(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{empty()}, errs: []error{nil}}
	opts := testOptions()
	opts.MaxAttempts = 3
	w := &countingWaiter{}
	tr := NewTracker(src, &recordingNotifier{}, w, opts, logger.Discard())

	err := tr.Run(context.Background())

	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Run() error = %v, want ErrAttemptsExhausted", err)
	}
	if src.calls != 3 || w.waits != 2 {
		t.Errorf("calls/waits = %d/%d, want 3/2", src.calls, w.waits)
	}
}

func TestTracker_CheckOnce_RecoversPanic(t *testing.T) {
	calls := 0
	src := sourceFunc(func(ctx context.Context, date string) (*schedule.PollResult, error) {
		calls++
		if calls == 1 {
			panic("nil map write")
		}
		return found(), nil
	})
	n := &recordingNotifier{ok: true}
	w := &countingWaiter{}
	tr := NewTracker(src, n, w, testOptions(), logger.Discard())

	out := tr.CheckOnce(context.Background())
	if out.Kind != schedule.OutcomeFailed || out.Failure != schedule.FailurePanic {
		t.Fatalf("CheckOnce() = %s/%s, want FAILED/PANIC", out.Kind, out.Failure)
	}
	if !strings.Contains(out.Err.Error(), "correlation_id") {
		t.Errorf("error %q lacks correlation id", out.Err)
	}

	// the loop survives the panic and finds schedules on the next cycle
	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(n.messages) != 1 {
		t.Errorf("notifier called %d times, want 1", len(n.messages))
	}
}

func TestTracker_Run_InterruptedBeforeStart(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{found()}, errs: []error{nil}}
	tr := NewTracker(src, &recordingNotifier{}, &countingWaiter{}, testOptions(), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tr.Run(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Run() error = %v, want ErrInterrupted", err)
	}
	if src.calls != 0 {
		t.Errorf("source calls = %d, want 0", src.calls)
	}
}

func TestTracker_Run_InterruptedDuringRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := sourceFunc(func(ctx context.Context, date string) (*schedule.PollResult, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})
	w := &countingWaiter{}
	tr := NewTracker(src, &recordingNotifier{}, w, testOptions(), logger.Discard())

	if err := tr.Run(ctx); !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Run() error = %v, want ErrInterrupted", err)
	}
	if w.waits != 0 {
		t.Errorf("waits = %d, want 0 (no sleep after interrupt)", w.waits)
	}
}

func TestNewTracker_RunIDsAreUnique(t *testing.T) {
	a := NewTracker(nil, nil, nil, testOptions(), logger.Discard())
	b := NewTracker(nil, nil, nil, testOptions(), logger.Discard())
	if a.RunID() == "" || a.RunID() == b.RunID() {
		t.Errorf("run ids %q and %q", a.RunID(), b.RunID())
	}
}

// panicNotifier panics for the first n.panics calls and then behaves like
// recordingNotifier.
type panicNotifier struct {
	recordingNotifier
	panics int
	calls  int
}

func (n *panicNotifier) Notify(ctx context.Context, text string) bool {
	n.calls++
	if n.calls <= n.panics {
		panic("send exploded")
	}
	return n.recordingNotifier.Notify(ctx, text)
}

func TestTracker_Run_RecoversNotifierPanic(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{found()}, errs: []error{nil}}
	n := &panicNotifier{recordingNotifier: recordingNotifier{ok: true}, panics: 1}
	w := &countingWaiter{}
	tr := NewTracker(src, n, w, testOptions(), logger.Discard())

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("panic escaped Run: %v", r)
			}
		}()
		err = tr.Run(context.Background())
	}()

	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// the panicking cycle counts as a failure and the next one announces
	if src.calls != 2 || w.waits != 1 {
		t.Errorf("calls/waits = %d/%d, want 2/1", src.calls, w.waits)
	}
	if len(n.messages) != 1 {
		t.Errorf("delivered %d messages, want 1", len(n.messages))
	}
	if tr.State() != StateDone {
		t.Errorf("State() = %s, want DONE", tr.State())
	}
}

func TestTracker_RunOnce_NotifierPanicIsCycleFailure(t *testing.T) {
	src := &sequenceSource{results: []*schedule.PollResult{found()}, errs: []error{nil}}
	n := &panicNotifier{panics: 1}
	tr := NewTracker(src, n, &countingWaiter{}, testOptions(), logger.Discard())

	out := tr.RunOnce(context.Background())

	if out.Kind != schedule.OutcomeFailed || out.Failure != schedule.FailurePanic {
		t.Fatalf("RunOnce() = %s/%s, want FAILED/PANIC", out.Kind, out.Failure)
	}
	if !strings.Contains(out.Err.Error(), "correlation_id") {
		t.Errorf("error %q lacks correlation id", out.Err)
	}
	if tr.State() != StatePolling {
		t.Errorf("State() = %s, want POLLING", tr.State())
	}
}

func TestTracker_Run_InterruptedBeforeNotification(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := sourceFunc(func(ctx context.Context, date string) (*schedule.PollResult, error) {
		cancel()
		return found(), nil
	})
	client := &fakeTelegramClient{}
	n := NewTelegramNotifier(client, "42", logger.Discard())
	w := &countingWaiter{}
	tr := NewTracker(src, n, w, testOptions(), logger.Discard())

	err := tr.Run(ctx)

	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("Run() error = %v, want ErrInterrupted", err)
	}
	if len(client.texts) != 0 {
		t.Errorf("telegram sends = %d, want 0", len(client.texts))
	}
	if tr.State() != StatePolling {
		t.Errorf("State() = %s, want POLLING", tr.State())
	}
	if w.waits != 0 {
		t.Errorf("waits = %d, want 0", w.waits)
	}
}

// TestTracker_Run_OddFieldsStillAnnounce drives the real CGV client with
// responses whose seat and status fields are not plain numbers.
func TestTracker_Run_OddFieldsStillAnnounce(t *testing.T) {
	bodies := map[string]string{
		"dash seats": `{"statusCode":0,"statusMessage":"ok","data":[
			{"movNm":"Wicked","siteNm":"CGV Yongsan","expoScnsNm":"IMAX관","scnsrtTm":"0930","frSeatCnt":"-","stcnt":100}
		]}`,
		"string status": `{"statusCode":"0","statusMessage":"ok","data":[
			{"movNm":"Wicked","siteNm":"CGV Yongsan","expoScnsNm":"IMAX관","scnsrtTm":"0930","frSeatCnt":10,"stcnt":100}
		]}`,
	}
	wantSeats := map[string]string{
		"dash seats":    "Seats: -/100",
		"string status": "Seats: 10/100",
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			client := cgv.NewClient(&config.AppConfig{
				CGVSecretKey:   "test-secret",
				CGVAPIURL:      server.URL,
				CGVCompanyCode: "A420",
				SiteNo:         "0013",
				MovieNo:        "30000774",
			})
			opts := testOptions()
			opts.MaxAttempts = 3
			n := &recordingNotifier{ok: true}
			tr := NewTracker(client, n, &countingWaiter{}, opts, logger.Discard())

			if err := tr.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if tr.Attempts() != 1 {
				t.Errorf("Attempts() = %d, want 1", tr.Attempts())
			}
			if len(n.messages) != 1 {
				t.Fatalf("notifier called %d times, want 1", len(n.messages))
			}
			if !strings.Contains(n.messages[0], wantSeats[name]) {
				t.Errorf("message missing %q:\n%s", wantSeats[name], n.messages[0])
			}
		})
	}
}
