package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
)

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// ErrPoolClosed is returned by Submit after Wait or Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// MaxWorkers is the maximum number of workers allowed in a pool.
const MaxWorkers = math.MaxInt / 2

// Task is a unit of work. A non-nil error is recorded by the pool.
type Task func(ctx context.Context) error

// WorkerPool runs tasks on a fixed number of goroutines and records the first
// task error or recovered panic. After the first failure the pool's context
// is cancelled so queued tasks can bail out early.
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu

	ctx    context.Context
	cancel context.CancelFunc

	errOnce  sync.Once
	firstErr error
}

// NewWorkerPool creates a pool bound to ctx. workers <= 0 means GOMAXPROCS.
func NewWorkerPool(ctx context.Context, workers int) (*WorkerPool, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Prevent overflow in buffer size calculation
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	poolCtx, cancel := context.WithCancel(ctx)
	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, workers*2),
		ctx:       poolCtx,
		cancel:    cancel,
	}

	for i := 0; i < workers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}
	return pool, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

func (wp *WorkerPool) fail(err error) {
	wp.errOnce.Do(func() {
		wp.firstErr = err
		wp.cancel()
	})
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		if wp.ctx.Err() != nil {
			continue // drain
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					wp.fail(fmt.Errorf("task panicked: %v", r))
				}
			}()
			if err := task(wp.ctx); err != nil {
				wp.fail(err)
			}
		}()
	}
}

// Submit queues a task. It blocks while the queue is full and returns
// ErrPoolClosed once Wait or Close has been called.
func (wp *WorkerPool) Submit(task Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.taskQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Close stops accepting tasks and waits for the workers to drain the queue.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait closes the pool and returns the first task error, if any. A cancelled
// parent context is reported when no task failed.
func (wp *WorkerPool) Wait() error {
	wp.Close()
	defer wp.cancel()
	if wp.firstErr != nil {
		return wp.firstErr
	}
	return wp.ctx.Err()
}

// ForEach runs fn for every index in [0, n) on a pool of the given size.
func ForEach(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	pool, err := NewWorkerPool(ctx, workers)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		i := i
		if err := pool.Submit(func(ctx context.Context) error { return fn(ctx, i) }); err != nil {
			break
		}
	}
	return pool.Wait()
}
