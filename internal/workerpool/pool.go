package workerpool

import (
	"context"
	"errors"
	"sync"
)

const (
	poolClosedMessageConstant        = "worker pool is shut down"
	invalidWorkerCountMessageLiteral = "worker count must be positive"
	nilJobMessageConstant            = "job must not be nil"
)

var (
	// ErrPoolClosed indicates a submission after Shutdown.
	ErrPoolClosed = errors.New(poolClosedMessageConstant)
	// ErrInvalidWorkerCount indicates pool construction with a non-positive worker count.
	ErrInvalidWorkerCount = errors.New(invalidWorkerCountMessageLiteral)
	// ErrNilJob indicates a nil job submission.
	ErrNilJob = errors.New(nilJobMessageConstant)
)

// Job is a unit of background work.
type Job func() (any, error)

// Future delivers the outcome of a submitted job exactly once.
type Future struct {
	completed chan struct{}
	jobResult any
	jobError  error
	job       Job
}

// Wait blocks until the job completes or the context expires.
func (future *Future) Wait(executionContext context.Context) (any, error) {
	select {
	case <-future.completed:
		return future.jobResult, future.jobError
	case <-executionContext.Done():
		return nil, executionContext.Err()
	}
}

// Pool runs submitted jobs on a fixed set of workers fed by a bounded queue.
// Shutdown drains the queue; in-flight jobs are never cancelled.
type Pool struct {
	jobQueue      chan *Future
	workersFinish sync.WaitGroup
	stateMutex    sync.RWMutex
	closed        bool
}

// NewPool starts workerCount workers over a queue holding queueCapacity
// pending jobs.
func NewPool(workerCount int, queueCapacity int) (*Pool, error) {
	if workerCount <= 0 {
		return nil, ErrInvalidWorkerCount
	}
	if queueCapacity < 0 {
		queueCapacity = 0
	}

	pool := &Pool{jobQueue: make(chan *Future, queueCapacity)}
	pool.workersFinish.Add(workerCount)
	for workerIndex := 0; workerIndex < workerCount; workerIndex++ {
		go pool.runWorker()
	}
	return pool, nil
}

// Submit enqueues a job and returns its Future. Submission blocks while the
// queue is full and fails with ErrPoolClosed after Shutdown.
func (pool *Pool) Submit(job Job) (*Future, error) {
	if job == nil {
		return nil, ErrNilJob
	}

	pool.stateMutex.RLock()
	defer pool.stateMutex.RUnlock()
	if pool.closed {
		return nil, ErrPoolClosed
	}

	future := &Future{completed: make(chan struct{}), job: job}
	pool.jobQueue <- future
	return future, nil
}

// Shutdown closes the queue and waits until every queued job has run.
// Shutdown is idempotent.
func (pool *Pool) Shutdown() {
	pool.stateMutex.Lock()
	alreadyClosed := pool.closed
	pool.closed = true
	pool.stateMutex.Unlock()

	if !alreadyClosed {
		close(pool.jobQueue)
	}
	pool.workersFinish.Wait()
}

func (pool *Pool) runWorker() {
	defer pool.workersFinish.Done()
	for future := range pool.jobQueue {
		future.jobResult, future.jobError = future.job()
		close(future.completed)
	}
}
