// Package queue delivers outgoing email from a bounded worker pool so
// request handlers never wait on the mail provider.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/communehq/commune/internal/email"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job statuses
const (
	StatusPending = "pending"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// ErrQueueFull is returned when the buffer is saturated.
var ErrQueueFull = errors.New("mail queue is full")

// ErrStopped is returned after Stop.
var ErrStopped = errors.New("mail queue stopped")

// MailJob is one queued complaint acknowledgement.
type MailJob struct {
	ID          string                `json:"id"`
	Notice      email.ComplaintNotice `json:"-"`
	Status      string                `json:"status"`
	Attempts    int                   `json:"attempts"`
	CreatedAt   time.Time             `json:"created_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// Options tunes a MailQueue.
type Options struct {
	Workers     int
	Buffer      int
	MaxAttempts uint
	// SendTimeout bounds a single delivery attempt.
	SendTimeout time.Duration
	// InitialBackoff is the first retry delay; later delays grow exponentially.
	InitialBackoff time.Duration
}

// DefaultOptions suits a single API instance.
func DefaultOptions() Options {
	return Options{
		Workers:        4,
		Buffer:         100,
		MaxAttempts:    3,
		SendTimeout:    10 * time.Second,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// MailQueue wraps a Sender. It satisfies email.Sender itself, so handlers
// enqueue by calling SendComplaintReceived as usual.
type MailQueue struct {
	next email.Sender
	opts Options

	jobs    chan *MailJob
	results map[string]*MailJob
	stopped bool
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	done chan string
}

var _ email.Sender = (*MailQueue)(nil)

// NewMailQueue creates a queue in front of next. Call Start to run workers.
func NewMailQueue(next email.Sender, opts Options) *MailQueue {
	def := DefaultOptions()
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = def.Buffer
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = def.SendTimeout
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = def.InitialBackoff
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &MailQueue{
		next:    next,
		opts:    opts,
		jobs:    make(chan *MailJob, opts.Buffer),
		results: make(map[string]*MailJob),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan string, opts.Buffer),
	}
}

// Start launches the workers.
func (q *MailQueue) Start() {
	logger.Log.Info("Starting mail queue", zap.Int("workers", q.opts.Workers))
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop lets the workers finish queued jobs until ctx expires, then abandons
// the rest.
func (q *MailQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.stopped {
		q.stopped = true
		close(q.jobs)
	}
	q.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-finished
		return ctx.Err()
	}
}

// SendComplaintReceived queues n for delivery. The ctx of the caller is not
// carried over; delivery outlives the request.
func (q *MailQueue) SendComplaintReceived(_ context.Context, n email.ComplaintNotice) error {
	_, err := q.Submit(n)
	return err
}

// Submit queues n and returns its job record.
func (q *MailQueue) Submit(n email.ComplaintNotice) (*MailJob, error) {
	job := &MailJob{
		ID:        uuid.New().String(),
		Notice:    n,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return nil, ErrStopped
	}
	q.prune()
	q.results[job.ID] = job
	select {
	case q.jobs <- job:
		return job, nil
	default:
		delete(q.results, job.ID)
		metrics.Get().MailJobsTotal.WithLabelValues("dropped").Inc()
		return nil, ErrQueueFull
	}
}

// prune forgets finished jobs once the table has grown well past the buffer.
// Callers hold q.mu.
func (q *MailQueue) prune() {
	if len(q.results) < 10*q.opts.Buffer {
		return
	}
	for id, job := range q.results {
		if job.CompletedAt != nil {
			delete(q.results, id)
		}
	}
}

// Status returns a snapshot of a job.
func (q *MailQueue) Status(id string) (MailJob, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.results[id]
	if !ok {
		return MailJob{}, fmt.Errorf("job %s not found", id)
	}
	return *job, nil
}

// Wait blocks until the job with id finishes or timeout elapses.
func (q *MailQueue) Wait(id string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if job, err := q.Status(id); err == nil && (job.Status == StatusSent || job.Status == StatusFailed) {
			return nil
		}
		select {
		case <-q.done:
		case <-tick.C:
		case <-timer.C:
			return fmt.Errorf("timeout waiting for job %s", id)
		}
	}
}

func (q *MailQueue) worker(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(id, job)
	}
}

func (q *MailQueue) process(workerID int, job *MailJob) {
	q.update(job.ID, func(j *MailJob) { j.Status = StatusSending })

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.opts.InitialBackoff

	_, err := backoff.Retry(q.ctx, func() (struct{}, error) {
		q.update(job.ID, func(j *MailJob) { j.Attempts++ })
		ctx, cancel := context.WithTimeout(q.ctx, q.opts.SendTimeout)
		defer cancel()
		return struct{}{}, q.next.SendComplaintReceived(ctx, job.Notice)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(q.opts.MaxAttempts))

	now := time.Now()
	if err != nil {
		logger.Log.Warn("Failed to deliver email",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID),
			zap.String("complaint_id", job.Notice.ComplaintID),
			zap.Error(err),
		)
		metrics.Get().MailJobsTotal.WithLabelValues(StatusFailed).Inc()
		q.update(job.ID, func(j *MailJob) {
			j.Status = StatusFailed
			j.Error = err.Error()
			j.CompletedAt = &now
		})
	} else {
		metrics.Get().MailJobsTotal.WithLabelValues(StatusSent).Inc()
		q.update(job.ID, func(j *MailJob) {
			j.Status = StatusSent
			j.CompletedAt = &now
		})
	}

	select {
	case q.done <- job.ID:
	default:
	}
}

func (q *MailQueue) update(id string, fn func(*MailJob)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.results[id]; ok {
		fn(job)
	}
}
