package tasks

import (
	"sync"

	"go.uber.org/zap"
)

// Queue runs submitted jobs on a single background worker, decoupled from
// the request that scheduled them. The contract is at most once, best
// effort: a job runs zero or one times, is never retried, and its failure
// is logged and dropped. Submissions while the buffer is full are dropped.
type Queue struct {
	jobs chan job
	log  *zap.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

type job struct {
	name string
	fn   func() error
}

func NewQueue(size int, logger *zap.Logger) *Queue {
	q := &Queue{
		jobs: make(chan job, size),
		log:  logger,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer q.wg.Done()
	for j := range q.jobs {
		if err := j.fn(); err != nil {
			q.log.Error("background task failed", zap.String("task", j.name), zap.Error(err))
		}
	}
}

// Submit enqueues fn without blocking. It reports whether the job was
// accepted; a full buffer drops the job.
func (q *Queue) Submit(name string, fn func() error) bool {
	select {
	case q.jobs <- job{name: name, fn: fn}:
		return true
	default:
		q.log.Warn("background task dropped", zap.String("task", name))
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish. Submit
// must not be called after Close.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}
