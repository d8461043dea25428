// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package jobs runs background work on a priority queue with retries.
// One job is in flight at a time: workers that talk to rate-limited
// external services rely on this serialization.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meshintel/opera/internal/event"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DefaultMaxAttempts bounds retries per job.
const DefaultMaxAttempts = 3

// interJobDelay is the pause between job executions.
const interJobDelay = 50 * time.Millisecond

// Job is one queued unit of work. Callers observe jobs through emitted
// events and QueueStatus snapshots; the queue owns the live struct.
type Job struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Data        any       `json:"data"`
	Priority    int       `json:"priority"`
	Status      Status    `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Result      any       `json:"result,omitempty"`
	Err         string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Worker executes jobs of one registered type.
type Worker interface {
	Execute(ctx context.Context, data any, job *Job) (any, error)
}

// WorkerFunc adapts a function to the Worker interface.
type WorkerFunc func(ctx context.Context, data any, job *Job) (any, error)

func (f WorkerFunc) Execute(ctx context.Context, data any, job *Job) (any, error) {
	return f(ctx, data, job)
}

// QueueStatus is a snapshot of queued (not yet finished) work.
type QueueStatus struct {
	Total      int            `json:"total"`
	ByStatus   map[Status]int `json:"by_status"`
	ByType     map[string]int `json:"by_type"`
	Processing bool           `json:"processing"`
}

// Queue is a priority job queue processed by a single worker loop.
type Queue struct {
	emitter event.Emitter
	log     *zap.Logger

	mu         sync.Mutex
	cond       *sync.Cond
	pending    []*Job
	workers    map[string]Worker
	processing bool
	delay      time.Duration
}

// NewQueue returns an idle queue. Events go to em; a nil emitter discards
// them, a nil logger discards logs.
func NewQueue(em event.Emitter, log *zap.Logger) *Queue {
	if em == nil {
		em = event.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	q := &Queue{
		emitter: em,
		log:     log,
		workers: make(map[string]Worker),
		delay:   interJobDelay,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// RegisterWorker binds a worker to a job type. A job whose type has no
// worker fails when it runs.
func (q *Queue) RegisterWorker(jobType string, w Worker) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.workers[jobType] = w
}

// Add enqueues a job and starts the worker loop if it is idle. Higher
// priority values run sooner; equal priorities keep insertion order.
// The returned Job is a snapshot.
func (q *Queue) Add(jobType string, data any, priority int) Job {
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Data:        data,
		Priority:    priority,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   time.Now(),
	}

	q.mu.Lock()
	q.insert(job)
	queueLen := len(q.pending)
	start := !q.processing
	if start {
		q.processing = true
	}
	q.mu.Unlock()

	q.log.Info("job added to queue",
		zap.String("jobId", job.ID),
		zap.String("type", jobType),
		zap.Int("priority", priority),
		zap.Int("queueLength", queueLen))

	if start {
		go q.process()
	}
	return *job
}

// insert places job before the first pending job with a lower priority.
// Caller holds q.mu.
func (q *Queue) insert(job *Job) {
	at := len(q.pending)
	for i, j := range q.pending {
		if j.Priority < job.Priority {
			at = i
			break
		}
	}
	q.pending = append(q.pending, nil)
	copy(q.pending[at+1:], q.pending[at:])
	q.pending[at] = job
}

// process drains the queue one job at a time.
func (q *Queue) process() {
	ctx := context.Background()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 || !q.processing {
			q.processing = false
			q.cond.Broadcast()
			q.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		worker := q.workers[job.Type]
		q.mu.Unlock()

		q.runJob(ctx, job, worker)
		time.Sleep(q.delay)
	}
}

func (q *Queue) runJob(ctx context.Context, job *Job, worker Worker) {
	job.Status = StatusRunning
	job.StartedAt = time.Now()
	job.Attempts++
	q.log.Info("processing job",
		zap.String("jobId", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempts))
	q.emitter.Emit("job:started", *job)

	var result any
	var err error
	if worker == nil {
		err = errNoWorker(job.Type)
	} else {
		result, err = worker.Execute(ctx, job.Data, job)
	}

	if err == nil {
		job.Status = StatusCompleted
		job.CompletedAt = time.Now()
		job.Result = result
		q.log.Info("job completed",
			zap.String("jobId", job.ID),
			zap.String("type", job.Type),
			zap.Duration("duration", job.CompletedAt.Sub(job.StartedAt)))
		q.emitter.Emit("job:completed", *job)
		return
	}

	q.log.Warn("job attempt failed",
		zap.String("jobId", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempts", job.Attempts),
		zap.Int("maxAttempts", job.MaxAttempts),
		zap.Error(err))

	if job.Attempts < job.MaxAttempts {
		// Retry at reduced priority so fresh work is not starved.
		job.Status = StatusPending
		job.Err = ""
		job.Priority--
		q.mu.Lock()
		q.insert(job)
		q.mu.Unlock()
		return
	}

	job.Status = StatusFailed
	job.Err = err.Error()
	job.CompletedAt = time.Now()
	q.log.Error("job failed permanently",
		zap.String("jobId", job.ID),
		zap.String("type", job.Type),
		zap.Error(err))
	q.emitter.Emit("job:failed", *job)
}

type errNoWorker string

func (e errNoWorker) Error() string { return "no worker registered for type: " + string(e) }

// GetStatus returns a snapshot of pending work without mutating state.
func (q *Queue) GetStatus() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := QueueStatus{
		Total:      len(q.pending),
		ByStatus:   make(map[Status]int),
		ByType:     make(map[string]int),
		Processing: q.processing,
	}
	for _, j := range q.pending {
		st.ByStatus[j.Status]++
		st.ByType[j.Type]++
	}
	return st
}

// Clear drops all pending jobs and halts the loop after the in-flight job
// finishes. Used on shutdown.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.processing = false
	q.mu.Unlock()
	q.log.Info("job queue cleared")
}

// Cancel removes a job that is still pending. It reports whether the job
// was found and removed; running or finished jobs cannot be cancelled.
func (q *Queue) Cancel(jobID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, j := range q.pending {
		if j.ID == jobID {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			q.log.Info("job cancelled", zap.String("jobId", jobID))
			return true
		}
	}
	return false
}

// Wait blocks until the worker loop goes idle. Intended for tests and
// orderly shutdown.
func (q *Queue) Wait() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.processing {
		q.cond.Wait()
	}
}
