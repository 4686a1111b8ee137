package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mediarise/neuromarket/internal/kie"
)

// progressEvery throttles progress notices to one per N polls (~30s at
// the default 5s interval).
const progressEvery = 6

// StatusFetcher samples one remote task status.
type StatusFetcher interface {
	Status(ctx context.Context, taskID string) (*kie.TaskStatus, error)
}

// Handler receives the lifecycle events of one polling task. All methods
// run on the poller goroutine.
type Handler interface {
	HandleProgress(ctx context.Context, state kie.TaskState, elapsed time.Duration)
	HandleSuccess(ctx context.Context, status *kie.TaskStatus)
	HandleFailure(ctx context.Context, failCode, failMsg string)
	HandleTimeout(ctx context.Context)
	HandlePollError(ctx context.Context, err error)
}

type task struct {
	taskID string
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry tracks the detached polling task per user. Submitting a new
// generation for a user cancels the previous poller; a user-issued flow
// cancel does not; the remote job runs to its terminal state regardless.
type Registry struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxAttempts int
	log         *slog.Logger

	mu     sync.Mutex
	active map[int64]*task
}

func NewRegistry(fetcher StatusFetcher, interval time.Duration, maxAttempts int, log *slog.Logger) *Registry {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &Registry{
		fetcher:     fetcher,
		interval:    interval,
		maxAttempts: maxAttempts,
		log:         log,
		active:      make(map[int64]*task),
	}
}

// Start registers and launches a polling task keyed (userID, taskID),
// replacing any previous task for the user.
func (r *Registry) Start(ctx context.Context, userID int64, taskID string, h Handler) {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &task{taskID: taskID, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if prev, ok := r.active[userID]; ok {
		prev.cancel()
	}
	r.active[userID] = t
	r.mu.Unlock()

	go func() {
		defer close(t.done)
		defer r.remove(userID, t)
		r.run(taskCtx, userID, taskID, h)
	}()
}

// ActiveTask returns the task id the user's poller is tracking, if any.
func (r *Registry) ActiveTask(userID int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.active[userID]
	if !ok {
		return "", false
	}
	return t.taskID, true
}

// Cancel stops the user's polling task, if one is running.
func (r *Registry) Cancel(userID int64) bool {
	r.mu.Lock()
	t, ok := r.active[userID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// Shutdown cancels every active poller and waits for them to stop.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	tasks := make([]*task, 0, len(r.active))
	for _, t := range r.active {
		tasks = append(tasks, t)
	}
	r.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
		<-t.done
	}
}

func (r *Registry) remove(userID int64, t *task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[userID]; ok && cur == t {
		delete(r.active, userID)
	}
}

func (r *Registry) run(ctx context.Context, userID int64, taskID string, h Handler) {
	start := time.Now()
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			r.log.Info("poll task canceled", "user", userID, "task_id", taskID)
			return
		case <-timer.C:
		}

		status, err := r.fetcher.Status(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("poll task status", "user", userID, "task_id", taskID, "err", err)
			h.HandlePollError(ctx, err)
			return
		}

		switch status.State {
		case kie.StateSuccess:
			h.HandleSuccess(ctx, status)
			return
		case kie.StateFail:
			h.HandleFailure(ctx, status.FailCode, status.FailMsg)
			return
		default:
			if attempt%progressEvery == 0 {
				h.HandleProgress(ctx, status.State, time.Since(start))
			}
		}

		timer.Reset(r.interval)
	}

	h.HandleTimeout(ctx)
}
