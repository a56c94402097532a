package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/robochess/internal/clock"
)

func TestScheduleActionRunsOnceAfterDelay(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	var outcomes []Outcome
	r := NewRunner(WithClock(fc), WithOutcomeHook(func(o Outcome) { outcomes = append(outcomes, o) }))
	defer r.Close()

	calls := 0
	if err := r.ScheduleAction(4*time.Second, "ok", func(context.Context) error { calls++; return nil }); err != nil {
		t.Fatalf("ScheduleAction: %v", err)
	}
	boom := errors.New("boom")
	if err := r.ScheduleAction(4*time.Second, "fail", func(context.Context) error { calls++; return boom }); err != nil {
		t.Fatalf("ScheduleAction: %v", err)
	}
	if r.Pending() != 2 {
		t.Fatalf("pending = %d", r.Pending())
	}

	fc.Advance(3 * time.Second)
	if calls != 0 {
		t.Fatalf("jobs ran before their delay")
	}
	fc.Advance(time.Second)
	if calls != 2 || r.Pending() != 0 {
		t.Fatalf("calls = %d pending = %d", calls, r.Pending())
	}
	fc.Advance(time.Minute)
	if calls != 2 {
		t.Fatalf("failed job must not be retried, calls = %d", calls)
	}
	if len(outcomes) != 2 || outcomes[0].Err != nil || !errors.Is(outcomes[1].Err, boom) {
		t.Fatalf("outcomes = %+v", outcomes)
	}
}

func TestPanicIsReportedAsFailure(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	var got Outcome
	r := NewRunner(WithClock(fc), WithOutcomeHook(func(o Outcome) { got = o }))
	defer r.Close()
	_ = r.ScheduleAction(0, "panics", func(context.Context) error { panic("unhandled state") })
	fc.Advance(0)
	if got.Name != "panics" || got.Err == nil {
		t.Fatalf("outcome = %+v", got)
	}
}

func TestCloseDropsPendingJobs(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	r := NewRunner(WithClock(fc))
	ran := false
	_ = r.ScheduleAction(time.Second, "late", func(context.Context) error { ran = true; return nil })
	r.Close()
	fc.Advance(time.Hour)
	if ran {
		t.Fatalf("job ran after Close")
	}
	if err := r.ScheduleAction(0, "x", func(context.Context) error { return nil }); !errors.Is(err, ErrRunnerClosed) {
		t.Fatalf("err = %v", err)
	}
}
