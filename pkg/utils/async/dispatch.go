package async

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// ErrQueueFull is returned by Dispatch when no more jobs can be accepted
var ErrQueueFull = goerr.New("job queue is full")

// ErrQueueClosed is returned by Dispatch after Close
var ErrQueueClosed = goerr.New("job queue is closed")

type job struct {
	ctx     context.Context
	handler func(ctx context.Context) error
}

// Queue runs handlers one at a time in a single background goroutine, in the
// order they were dispatched
type Queue struct {
	jobs    chan job
	mu      sync.Mutex
	closed  bool
	running atomic.Bool
	done    chan struct{}
}

// NewQueue starts a queue that holds up to size pending jobs
func NewQueue(size int) *Queue {
	q := &Queue{
		jobs: make(chan job, size),
		done: make(chan struct{}),
	}
	go q.loop()
	return q
}

// Dispatch enqueues handler without waiting for it to run
//
// Parameters:
//   - ctx: Original context (values will be preserved, but cancellation won't affect the handler)
//   - handler: Function to execute in the worker
//
// Behavior:
//   - Creates a new background context with preserved logger
//   - Fails with ErrQueueFull instead of blocking when the queue is full
//   - Recovers from panics and logs them
//   - Logs errors returned by handler
func (q *Queue) Dispatch(ctx context.Context, handler func(ctx context.Context) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job{ctx: newBackgroundContext(ctx), handler: handler}:
		return nil
	default:
		return goerr.Wrap(ErrQueueFull, "failed to dispatch job", goerr.V("capacity", cap(q.jobs)))
	}
}

// Close stops accepting jobs and waits until pending jobs have run or ctx is done
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "pending jobs did not finish")
	}
}

// Status reports how many jobs wait, whether one is running and whether the
// queue still accepts jobs
func (q *Queue) Status() model.QueueStatus {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()

	return model.QueueStatus{
		Pending:  len(q.jobs),
		Capacity: cap(q.jobs),
		Running:  q.running.Load(),
		Closed:   closed,
	}
}

func (q *Queue) loop() {
	defer close(q.done)
	for j := range q.jobs {
		q.running.Store(true)
		run(j)
		q.running.Store(false)
	}
}

func run(j job) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()
			logger := ctxlog.From(j.ctx)
			logger.Error("panic in async handler",
				"recover", r,
				"stack", string(stack))
		}
	}()

	if err := j.handler(j.ctx); err != nil {
		logger := ctxlog.From(j.ctx)
		logger.Error("error in async handler", "error", err)
	}
}

// newBackgroundContext creates a new background context preserving important values
//
// Preserved values:
//   - ctxlog logger
//
// Returns: New context.Background() with preserved values
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = ctxlog.With(newCtx, ctxlog.From(ctx))
	return newCtx
}
