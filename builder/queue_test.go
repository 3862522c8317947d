package builder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateRunner blocks each Run until released, so tests control exactly when
// builds finish.
type gateRunner struct {
	mu      sync.Mutex
	runs    []BuildRequest
	started chan BuildRequest
	release chan struct{}
}

func newGateRunner() *gateRunner {
	return &gateRunner{
		started: make(chan BuildRequest, 16),
		release: make(chan struct{}),
	}
}

func (r *gateRunner) Run(ctx context.Context, req BuildRequest) {
	r.mu.Lock()
	r.runs = append(r.runs, req)
	r.mu.Unlock()
	r.started <- req
	<-r.release
}

func (r *gateRunner) runCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func (r *gateRunner) waitStart(t *testing.T) BuildRequest {
	t.Helper()
	select {
	case req := <-r.started:
		return req
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a build to start")
		return BuildRequest{}
	}
}

func newRequest(owner, project string) BuildRequest {
	return BuildRequest{ProjectID: uuid.New(), Owner: owner, Project: project}
}

func TestQueueSubmitCoalescesPendingDuplicate(t *testing.T) {
	q := NewQueue(1, newGateRunner())
	req := newRequest("alice", "blog")

	assert.Equal(t, Submitted, q.Submit(req))
	assert.Equal(t, Coalesced, q.Submit(req))
	assert.Equal(t, Coalesced, q.Submit(req))

	pending, inFlight := q.Stats()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 0, inFlight)
}

func TestQueueSubmitDistinctProjects(t *testing.T) {
	q := NewQueue(1, newGateRunner())

	assert.Equal(t, Submitted, q.Submit(newRequest("alice", "blog")))
	assert.Equal(t, Submitted, q.Submit(newRequest("bob", "shop")))

	pending, _ := q.Stats()
	assert.Equal(t, 2, pending)
}

// Five rapid pushes of one project execute exactly two builds: the one
// running when the burst arrives, plus one more that sees the final state.
func TestQueueRapidPushesCoalesce(t *testing.T) {
	runner := newGateRunner()
	q := NewQueue(2, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	req := newRequest("alice", "blog")
	assert.Equal(t, Submitted, q.Submit(req))
	runner.waitStart(t)

	// Build one is executing; the burst lands now.
	results := []SubmitResult{
		q.Submit(req),
		q.Submit(req),
		q.Submit(req),
		q.Submit(req),
	}
	assert.Equal(t, Submitted, results[0])
	for _, r := range results[1:] {
		assert.Equal(t, Coalesced, r)
	}

	runner.release <- struct{}{} // finish build one
	runner.waitStart(t)          // build two starts only now
	runner.release <- struct{}{}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not stop")
	}

	assert.Equal(t, 2, runner.runCount())
}

// A project with a build executing never gets a second one concurrently,
// and requests for other projects are not blocked behind it.
func TestQueueOneBuildPerProject(t *testing.T) {
	runner := newGateRunner()
	q := NewQueue(2, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	alice := newRequest("alice", "blog")
	bob := newRequest("bob", "shop")

	require.Equal(t, Submitted, q.Submit(alice))
	first := runner.waitStart(t)
	assert.Equal(t, alice.ProjectID, first.ProjectID)

	// Another push for alice waits; bob's build runs alongside.
	require.Equal(t, Submitted, q.Submit(alice))
	require.Equal(t, Submitted, q.Submit(bob))

	second := runner.waitStart(t)
	assert.Equal(t, bob.ProjectID, second.ProjectID)

	pending, inFlight := q.Stats()
	assert.Equal(t, 1, pending)
	assert.Equal(t, 2, inFlight)

	runner.release <- struct{}{} // one of the two finishes
	runner.release <- struct{}{}

	third := runner.waitStart(t)
	assert.Equal(t, alice.ProjectID, third.ProjectID)
	runner.release <- struct{}{}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not stop")
	}

	assert.Equal(t, 3, runner.runCount())
}

func TestQueueDequeueOrderIsFIFO(t *testing.T) {
	runner := newGateRunner()
	q := NewQueue(1, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	first := newRequest("alice", "blog")
	second := newRequest("bob", "shop")
	third := newRequest("carol", "wiki")
	q.Submit(first)
	q.Submit(second)
	q.Submit(third)

	for _, want := range []BuildRequest{first, second, third} {
		got := runner.waitStart(t)
		assert.Equal(t, want.ProjectID, got.ProjectID)
		runner.release <- struct{}{}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not stop")
	}
}

// Shutdown waits for executing builds instead of abandoning them.
func TestQueueDrainsInFlightOnShutdown(t *testing.T) {
	runner := newGateRunner()
	q := NewQueue(1, runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	q.Submit(newRequest("alice", "blog"))
	runner.waitStart(t)

	cancel()
	select {
	case <-done:
		t.Fatal("queue stopped while a build was executing")
	case <-time.After(100 * time.Millisecond):
	}

	runner.release <- struct{}{}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not stop after the build finished")
	}
}

func TestSubmitResultString(t *testing.T) {
	assert.Equal(t, "submitted", Submitted.String())
	assert.Equal(t, "coalesced", Coalesced.String())
}
