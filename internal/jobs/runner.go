// Package jobs runs delayed one-shot actions. An action that fails is logged and dropped.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/robochess/internal/clock"
	"github.com/park285/robochess/internal/obslog"
)

var ErrRunnerClosed = errors.New("job runner closed")

// Action is the body of a job.
type Action func(ctx context.Context) error

// Outcome is reported once per scheduled job.
type Outcome struct {
	Name string
	Err  error
}

type Runner struct {
	clock    clock.Clock
	logger   *zap.Logger
	onFinish func(Outcome)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[uint64]clock.Timer
	seq     uint64
	closed  bool
	wg      sync.WaitGroup
}

type Option func(*Runner)

func WithClock(c clock.Clock) Option { return func(r *Runner) { r.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithOutcomeHook is called after every job, successful or not.
func WithOutcomeHook(f func(Outcome)) Option { return func(r *Runner) { r.onFinish = f } }

func NewRunner(opts ...Option) *Runner {
	r := &Runner{clock: clock.Real{}, pending: make(map[uint64]clock.Timer)}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = obslog.L()
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r
}

// ScheduleAction runs fn once after delay. There are no retries.
func (r *Runner) ScheduleAction(delay time.Duration, name string, fn Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}
	r.seq++
	id := r.seq
	r.wg.Add(1)
	r.pending[id] = r.clock.AfterFunc(delay, func() { r.run(id, name, fn) })
	r.logger.Debug("job_scheduled", zap.String("job", name), zap.Duration("delay", delay))
	return nil
}

// Pending reports how many jobs have not started yet.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Runner) run(id uint64, name string, fn Action) {
	defer r.wg.Done()
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()

	err := r.safeCall(fn)
	if err != nil {
		r.logger.Warn("job_failed", zap.String("job", name), zap.Error(err))
	} else {
		r.logger.Debug("job_done", zap.String("job", name))
	}
	if r.onFinish != nil {
		r.onFinish(Outcome{Name: name, Err: err})
	}
}

func (r *Runner) safeCall(fn Action) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()
	return fn(r.ctx)
}

// Close drops jobs that have not started and waits for running ones.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for id, t := range r.pending {
		if t.Stop() {
			r.wg.Done()
		}
		delete(r.pending, id)
	}
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
