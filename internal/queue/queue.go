// Package queue models fire-and-forget background job dispatch. The core
// enqueues and moves on; the contract ends at "enqueued", not "completed".
package queue

import (
	"context"
	"log"
	"sync"
)

// Job is a unit of background work.
type Job interface {
	Name() string
	Handle(ctx context.Context) error
}

// Dispatcher enqueues jobs for asynchronous execution.
type Dispatcher interface {
	Dispatch(job Job)
}

// AsyncDispatcher runs each job on its own goroutine. Failures are logged
// and never propagated to the enqueuing caller.
type AsyncDispatcher struct {
	wg sync.WaitGroup
}

// NewAsyncDispatcher creates a ready-to-use dispatcher.
func NewAsyncDispatcher() *AsyncDispatcher {
	return &AsyncDispatcher{}
}

// Dispatch starts the job in the background and returns immediately.
func (d *AsyncDispatcher) Dispatch(job Job) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := job.Handle(context.Background()); err != nil {
			log.Printf("background job %s failed: %v", job.Name(), err)
		}
	}()
}

// Wait blocks until all dispatched jobs have finished. Used in tests and
// during shutdown.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}
