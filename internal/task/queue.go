// Package task runs analyses asynchronously. Each submission becomes a
// task with a replayable progress log, so a consumer that reconnects can
// catch up from the last event it saw and then follow live updates.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"datasage/internal/logging"
	"datasage/internal/orchestrator"
	"datasage/internal/session"
)

// Status is the lifecycle state of a task.
type Status int

const (
	StatusQueued Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the task has finished.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Event is one entry of a task's progress log. Seq starts at 1 and is
// strictly increasing within a task.
type Event struct {
	Seq     int
	Status  Status
	Stage   string
	Attempt int
	Message string
	Time    time.Time
}

// Snapshot is a point-in-time copy of a task's public state.
type Snapshot struct {
	ID         string
	SessionID  string
	Query      string
	Status     Status
	Response   *orchestrator.Response
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// ErrNotFound is returned for unknown or already-collected task ids.
var ErrNotFound = errors.New("task not found")

// Analyzer runs one analysis for a session. The queue stays ignorant of
// how answers are produced.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID, query string, progress orchestrator.ProgressFunc) (*orchestrator.Response, error)
}

type task struct {
	mu         sync.Mutex
	id         string
	sessionID  string
	query      string
	status     Status
	events     []Event
	subs       map[int]chan Event
	nextSub    int
	response   *orchestrator.Response
	err        string
	createdAt  time.Time
	finishedAt time.Time
	cancel     context.CancelFunc
}

// Options configures a queue.
type Options struct {
	Workers       int
	Retention     time.Duration
	SweepInterval time.Duration
}

// Queue dispatches analyses onto a bounded worker pool. Submissions take
// the session's analysis slot up front, so a busy session rejects
// immediately instead of queueing behind itself.
type Queue struct {
	analyzer  Analyzer
	sessions  *session.Store
	sem       *semaphore.Weighted
	retention time.Duration
	now       func() time.Time

	mu    sync.RWMutex
	tasks map[string]*task

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue creates a queue and starts its retention janitor.
func NewQueue(analyzer Analyzer, sessions *session.Store, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Retention <= 0 {
		opts.Retention = 15 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		analyzer:  analyzer,
		sessions:  sessions,
		sem:       semaphore.NewWeighted(int64(opts.Workers)),
		retention: opts.Retention,
		now:       time.Now,
		tasks:     make(map[string]*task),
		baseCtx:   ctx,
		stop:      cancel,
	}
	q.wg.Add(1)
	go q.janitor(opts.SweepInterval)
	return q
}

// Close cancels all running tasks and waits for them to wind down.
func (q *Queue) Close() {
	q.stop()
	q.wg.Wait()
}

// Submit enqueues an analysis. It fails with session.ErrBusy when the
// session already has one queued or running, and session.ErrNotFound when
// the session is unknown or expired.
func (q *Queue) Submit(sessionID, query string) (string, error) {
	if err := q.sessions.Acquire(sessionID); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(q.baseCtx)
	t := &task{
		id:        uuid.New().String(),
		sessionID: sessionID,
		query:     query,
		status:    StatusQueued,
		subs:      make(map[int]chan Event),
		createdAt: q.now(),
		cancel:    cancel,
	}
	t.appendEventLocked(Event{Status: StatusQueued, Stage: "queued", Time: q.now()})

	q.mu.Lock()
	q.tasks[t.id] = t
	q.mu.Unlock()

	q.wg.Add(1)
	go q.run(ctx, t)

	logging.Tasks("Submit: task=%s session=%s", t.id, sessionID)
	return t.id, nil
}

func (q *Queue) run(ctx context.Context, t *task) {
	defer q.wg.Done()
	defer q.sessions.Release(t.sessionID)
	defer t.cancel()

	if err := q.sem.Acquire(ctx, 1); err != nil {
		q.finish(t, StatusCancelled, nil, "cancelled before start")
		return
	}
	defer q.sem.Release(1)

	t.mu.Lock()
	if t.status != StatusQueued {
		t.mu.Unlock()
		return
	}
	t.status = StatusRunning
	t.appendEventLocked(Event{Status: StatusRunning, Stage: "starting", Time: q.now()})
	t.mu.Unlock()

	progress := func(state orchestrator.State, attempt int) {
		t.mu.Lock()
		if !t.status.Terminal() {
			t.appendEventLocked(Event{
				Status:  StatusRunning,
				Stage:   state.String(),
				Attempt: attempt,
				Time:    q.now(),
			})
		}
		t.mu.Unlock()
	}

	resp, err := q.analyzer.Analyze(ctx, t.sessionID, t.query, progress)
	switch {
	case errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled:
		q.finish(t, StatusCancelled, resp, "cancelled")
	case err != nil:
		q.finish(t, StatusFailed, resp, err.Error())
	default:
		q.finish(t, StatusSucceeded, resp, "")
	}
}

func (q *Queue) finish(t *task, status Status, resp *orchestrator.Response, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return
	}
	t.status = status
	t.response = resp
	t.err = msg
	t.finishedAt = q.now()
	t.appendEventLocked(Event{Status: status, Stage: status.String(), Message: msg, Time: t.finishedAt})
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
	logging.Tasks("finish: task=%s status=%s", t.id, status)
}

// appendEventLocked requires t.mu held (except during construction).
func (t *task) appendEventLocked(ev Event) {
	ev.Seq = len(t.events) + 1
	t.events = append(t.events, ev)
	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it can replay what it missed.
		}
	}
}

// Status returns a snapshot of the task.
func (q *Queue) Status(id string) (Snapshot, error) {
	t, err := q.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ID:         t.id,
		SessionID:  t.sessionID,
		Query:      t.query,
		Status:     t.status,
		Response:   t.response,
		Error:      t.err,
		CreatedAt:  t.createdAt,
		FinishedAt: t.finishedAt,
	}, nil
}

// Events returns the progress log after fromSeq. fromSeq 0 replays
// everything.
func (q *Queue) Events(id string, fromSeq int) ([]Event, error) {
	t, err := q.get(id)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Event
	for _, ev := range t.events {
		if ev.Seq > fromSeq {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Subscribe replays the log after fromSeq and then follows live events.
// The channel closes when the task reaches a terminal status. The returned
// cancel function detaches the subscriber early.
func (q *Queue) Subscribe(id string, fromSeq int) (<-chan Event, func(), error) {
	t, err := q.get(id)
	if err != nil {
		return nil, nil, err
	}

	t.mu.Lock()
	var replay []Event
	for _, ev := range t.events {
		if ev.Seq > fromSeq {
			replay = append(replay, ev)
		}
	}
	ch := make(chan Event, len(replay)+64)
	for _, ev := range replay {
		ch <- ev
	}
	if t.status.Terminal() {
		close(ch)
		t.mu.Unlock()
		return ch, func() {}, nil
	}
	subID := t.nextSub
	t.nextSub++
	t.subs[subID] = ch
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		if c, ok := t.subs[subID]; ok {
			delete(t.subs, subID)
			close(c)
		}
		t.mu.Unlock()
	}
	return ch, cancel, nil
}

// Cancel stops a queued or running task. Cancelling a finished task is a
// no-op; the task keeps its original terminal status.
func (q *Queue) Cancel(id string) error {
	t, err := q.get(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	terminal := t.status.Terminal()
	t.mu.Unlock()
	if terminal {
		return nil
	}
	logging.Tasks("Cancel: task=%s", id)
	t.cancel()
	return nil
}

func (q *Queue) get(id string) (*task, error) {
	q.mu.RLock()
	t, ok := q.tasks[id]
	q.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}

// Len reports how many tasks are retained, finished ones included.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.tasks)
}

func (q *Queue) janitor(interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.baseCtx.Done():
			return
		case <-ticker.C:
			q.sweep()
		}
	}
}

// sweep drops finished tasks past the retention window.
func (q *Queue) sweep() {
	cutoff := q.now().Add(-q.retention)
	var dead []string

	q.mu.RLock()
	for id, t := range q.tasks {
		t.mu.Lock()
		if t.status.Terminal() && !t.finishedAt.IsZero() && t.finishedAt.Before(cutoff) {
			dead = append(dead, id)
		}
		t.mu.Unlock()
	}
	q.mu.RUnlock()

	if len(dead) == 0 {
		return
	}
	q.mu.Lock()
	for _, id := range dead {
		delete(q.tasks, id)
	}
	q.mu.Unlock()
	logging.TasksDebug("sweep: collected %d finished tasks", len(dead))
}
