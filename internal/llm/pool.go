package llm

import "context"

// WorkerPool bounds the fan-out of independent calls that all share the same
// admission budget. The bucket decides when a call goes out; the pool only
// caps how many are waiting on it at once.
type WorkerPool struct {
	semaphore chan struct{}
}

func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	return &WorkerPool{semaphore: make(chan struct{}, maxWorkers)}
}

// Acquire blocks until a slot is free or the context is canceled.
func (wp *WorkerPool) Acquire(ctx context.Context) error {
	select {
	case wp.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) Release() {
	<-wp.semaphore
}
