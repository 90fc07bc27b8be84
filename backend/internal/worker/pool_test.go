package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itchan-dev/itboard/backend/internal/job"
	"github.com/itchan-dev/itboard/backend/internal/queue"
	"github.com/itchan-dev/itboard/shared/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockQueue hands out deliveries from a channel and records completions.
type MockQueue struct {
	deliveries chan *queue.Delivery
	dequeueErr error

	mu        sync.Mutex
	completed  map[domain.JobId]job.Result
	recovered  int
	heartbeats int
	released   int
	// events records lifecycle calls in order
	events []string
}

func newMockQueue(deliveries ...*queue.Delivery) *MockQueue {
	ch := make(chan *queue.Delivery, len(deliveries))
	for _, d := range deliveries {
		ch <- d
	}
	return &MockQueue{deliveries: ch, completed: map[domain.JobId]job.Result{}}
}

func (m *MockQueue) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 || m.events[len(m.events)-1] != event {
		m.events = append(m.events, event)
	}
}

func (m *MockQueue) Dequeue(ctx context.Context, timeout time.Duration) (*queue.Delivery, error) {
	m.record("dequeue")
	if m.dequeueErr != nil {
		return nil, m.dequeueErr
	}
	select {
	case d := <-m.deliveries:
		return d, nil
	case <-time.After(timeout):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *MockQueue) Complete(ctx context.Context, id domain.JobId, result job.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = result
	return nil
}

func (m *MockQueue) Recover(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovered++
	m.events = append(m.events, "recover")
	return 0, nil
}

func (m *MockQueue) Heartbeat(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeats++
	if len(m.events) == 0 || m.events[len(m.events)-1] != "heartbeat" {
		m.events = append(m.events, "heartbeat")
	}
	return nil
}

func (m *MockQueue) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released++
	m.events = append(m.events, "release")
	return nil
}

func (m *MockQueue) snapshot() (heartbeats, released int, events []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heartbeats, m.released, append([]string(nil), m.events...)
}

func (m *MockQueue) results() map[domain.JobId]job.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[domain.JobId]job.Result, len(m.completed))
	for k, v := range m.completed {
		out[k] = v
	}
	return out
}

type MockExecutor struct {
	executeFunc func(ctx context.Context, s job.Submission) job.Result
}

func (m *MockExecutor) Execute(ctx context.Context, s job.Submission) job.Result {
	return m.executeFunc(ctx, s)
}

func delivery(t *testing.T, id string, s job.Submission) *queue.Delivery {
	t.Helper()
	payload, err := json.Marshal(s)
	require.NoError(t, err)
	return &queue.Delivery{Id: id, Kind: s.Kind, Payload: payload}
}

func runPool(t *testing.T, p *Pool) (cancel func()) {
	t.Helper()
	ctx, cancelCtx := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() {
		cancelCtx()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("pool did not stop")
		}
	}
}

func TestPool_CompletesEveryDelivery(t *testing.T) {
	q := newMockQueue(
		delivery(t, "a", job.Submission{Kind: job.KindThread, BoardId: 1, Title: "Hello", Body: "World"}),
		delivery(t, "b", job.Submission{Kind: job.KindReply, BoardId: 1, ThreadId: 7, Body: "Hi!"}),
		delivery(t, "c", job.Submission{Kind: job.KindReply, BoardId: 1, ThreadId: 7, Body: "Again"}),
	)
	var mu sync.Mutex
	next := int64(0)
	executor := &MockExecutor{executeFunc: func(ctx context.Context, s job.Submission) job.Result {
		mu.Lock()
		defer mu.Unlock()
		next++
		return job.Created{Kind: s.Kind, ID: next}
	}}

	stop := runPool(t, NewPool(q, executor, 2, 10*time.Millisecond))
	defer stop()

	assert.Eventually(t, func() bool { return len(q.results()) == 3 }, 2*time.Second, 10*time.Millisecond)
	results := q.results()
	for _, id := range []string{"a", "b", "c"} {
		assert.IsType(t, job.Created{}, results[id], id)
	}
	assert.Equal(t, job.KindThread, results["a"].(job.Created).Kind)
	assert.Equal(t, 1, q.recovered)
}

func TestPool_MalformedPayload(t *testing.T) {
	q := newMockQueue(&queue.Delivery{Id: "bad", Kind: job.KindReply, Payload: []byte("{not json")})
	executor := &MockExecutor{executeFunc: func(ctx context.Context, s job.Submission) job.Result {
		t.Error("executor must not run for malformed payloads")
		return nil
	}}

	stop := runPool(t, NewPool(q, executor, 1, 10*time.Millisecond))
	defer stop()

	assert.Eventually(t, func() bool { return len(q.results()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, job.InfraFailure{Message: "malformed job payload"}, q.results()["bad"])
}

func TestPool_FinishesJobInHandOnShutdown(t *testing.T) {
	q := newMockQueue(delivery(t, "slow", job.Submission{Kind: job.KindThread, BoardId: 1, Title: "Hello", Body: "World"}))
	started := make(chan struct{})
	executor := &MockExecutor{executeFunc: func(ctx context.Context, s job.Submission) job.Result {
		close(started)
		time.Sleep(50 * time.Millisecond)
		if ctx.Err() != nil {
			return job.InfraFailure{Message: "cancelled"}
		}
		return job.Created{Kind: job.KindThread, ID: 1}
	}}

	stop := runPool(t, NewPool(q, executor, 1, 10*time.Millisecond))
	<-started
	stop()

	assert.Equal(t, job.Created{Kind: job.KindThread, ID: 1}, q.results()["slow"])
}

func TestPool_KeepsPollingAfterDequeueError(t *testing.T) {
	q := newMockQueue()
	q.dequeueErr = errors.New("connection refused")
	p := NewPool(q, &MockExecutor{}, 1, 10*time.Millisecond)
	p.errorDelay = time.Millisecond

	stop := runPool(t, p)
	time.Sleep(20 * time.Millisecond)
	stop()

	assert.Empty(t, q.results())
}

func TestPool_HeartbeatCoversWholeRun(t *testing.T) {
	q := newMockQueue()
	p := NewPool(q, &MockExecutor{}, 2, 5*time.Millisecond)
	p.heartbeatEvery = 5 * time.Millisecond

	stop := runPool(t, p)
	assert.Eventually(t, func() bool {
		n, _, _ := q.snapshot()
		return n >= 3
	}, 2*time.Second, 5*time.Millisecond)
	stop()

	heartbeats, released, events := q.snapshot()
	assert.Equal(t, 1, released)
	require.NotEmpty(t, events)
	assert.Equal(t, "heartbeat", events[0], "owner must be alive before recovering or dequeuing")
	assert.Equal(t, "recover", events[1])
	assert.Equal(t, "release", events[len(events)-1])

	time.Sleep(20 * time.Millisecond)
	after, _, _ := q.snapshot()
	assert.Equal(t, heartbeats, after, "heartbeat must stop after release")
}
