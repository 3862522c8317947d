// Package builder turns pushed source into images: it owns the bounded,
// per-project-deduplicating build queue and the buildpack invocation.
package builder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// BuildRequest asks for one build of a project. Requests carry no source
// snapshot: the worker re-reads the bare repository at dequeue time, which
// is what makes coalescing correct.
type BuildRequest struct {
	ProjectID uuid.UUID
	Owner     string
	Project   string
}

// SubmitResult reports what happened to a submission.
type SubmitResult int

const (
	// Submitted means the request was appended to the queue.
	Submitted SubmitResult = iota
	// Coalesced means an equivalent request is already pending, so this
	// one was dropped. A request for a project that is mid-build is not
	// coalesced: it queues one follow-up build.
	Coalesced
)

func (r SubmitResult) String() string {
	if r == Coalesced {
		return "coalesced"
	}
	return "submitted"
}

// Runner executes one dequeued build to completion. Implementations must
// not panic; the queue counts on Run returning to release capacity.
type Runner interface {
	Run(ctx context.Context, req BuildRequest)
}

// Queue is a bounded build queue with per-project coalescing. At most
// capacity builds execute concurrently, at most one build per project is
// executing, and at most one further request per project is pending.
// Dequeue order is FIFO by first submission.
type Queue struct {
	runner Runner

	mu          sync.Mutex
	pending     []BuildRequest
	pendingKeys map[uuid.UUID]struct{}
	inFlight    map[uuid.UUID]struct{}
	capacity    int

	// wake is buffered so signalers never block; a single token is
	// enough because the scheduler drains all dispatchable work per
	// wakeup.
	wake    chan struct{}
	workers sync.WaitGroup
}

func NewQueue(capacity int, runner Runner) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		runner:      runner,
		pendingKeys: make(map[uuid.UUID]struct{}),
		inFlight:    make(map[uuid.UUID]struct{}),
		capacity:    capacity,
		wake:        make(chan struct{}, 1),
	}
}

// Submit hands a request to the queue. It never blocks: the request is
// either appended or coalesced under a single critical section. One pending
// entry per project is enough even while a build of it is executing: the
// worker reads the repository's state at dequeue time, so the newest push
// wins regardless of how many arrived meanwhile.
func (q *Queue) Submit(req BuildRequest) SubmitResult {
	q.mu.Lock()
	if _, dup := q.pendingKeys[req.ProjectID]; dup {
		q.mu.Unlock()
		return Coalesced
	}
	q.pending = append(q.pending, req)
	q.pendingKeys[req.ProjectID] = struct{}{}
	q.mu.Unlock()
	q.signal()
	return Submitted
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Run is the scheduler loop. It dispatches until ctx is cancelled, then
// waits for in-flight workers: builds are never cancelled mid-flight.
func (q *Queue) Run(ctx context.Context) {
	slog.Info("Build queue started", "layer", "builder", "capacity", q.capacity)

	// Workers run on a context that survives scheduler shutdown so a
	// half-finished build is not torn down under the buildpack.
	workerCtx := context.WithoutCancel(ctx)

	for {
		q.dispatch(workerCtx)

		select {
		case <-ctx.Done():
			slog.Info("Build queue draining", "layer", "builder")
			q.workers.Wait()
			slog.Info("Build queue stopped", "layer", "builder")
			return
		case <-q.wake:
		}
	}
}

// dispatch launches workers while capacity remains and an eligible request
// exists. A pending request whose project is still executing stays queued
// until that build releases it; requests behind it are not blocked, keeping
// dequeue FIFO among distinct projects.
func (q *Queue) dispatch(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.capacity > 0 {
		idx := -1
		for i, req := range q.pending {
			if _, executing := q.inFlight[req.ProjectID]; !executing {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}

		req := q.pending[idx]
		q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
		delete(q.pendingKeys, req.ProjectID)
		q.inFlight[req.ProjectID] = struct{}{}
		q.capacity--

		q.workers.Add(1)
		go q.work(ctx, req)
	}
}

func (q *Queue) work(ctx context.Context, req BuildRequest) {
	defer q.workers.Done()
	defer func() {
		q.mu.Lock()
		delete(q.inFlight, req.ProjectID)
		q.capacity++
		q.mu.Unlock()
		q.signal()
	}()

	q.runner.Run(ctx, req)
}

// Stats returns the current pending and in-flight counts.
func (q *Queue) Stats() (pending, inFlight int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), len(q.inFlight)
}
