//go:build windows

// Package worker runs the automation worker (C2): a single
// apartment-threaded actor that serializes every UIA and window call
// the engine makes. UIA's COM proxies are apartment-affine, so every
// call touching them must run on the one OS thread that initialized
// COM; the engine's calls into internal/uia run inside jobs submitted
// to this worker.
package worker

import (
	"context"
	"fmt"

	"github.com/windowspilot/engine/internal/uia"
	"github.com/windowspilot/engine/pkg/logging"
)

// Job is one unit of work submitted to the worker. Fn runs on the
// worker's locked OS thread with exclusive access to client; its
// return value is delivered on the job's private reply channel.
type Job struct {
	fn    func(client *uia.Client) (interface{}, error)
	reply chan result
}

type result struct {
	value interface{}
	err   error
}

// Worker owns the automation thread's single UIA client and the
// bounded inbox feeding it work in FIFO order.
type Worker struct {
	inbox  chan Job
	done   chan struct{}
	log    *logging.Logger
	client *uia.Client
}

// New starts the worker goroutine and blocks until its COM apartment
// is ready or initialization fails.
func New(inboxCapacity int, log *logging.Logger) (*Worker, error) {
	w := &Worker{
		inbox: make(chan Job, inboxCapacity),
		done:  make(chan struct{}),
		log:   log,
	}
	ready := make(chan error, 1)
	go w.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Worker) run(ready chan<- error) {
	client, err := uia.NewClient()
	if err != nil {
		ready <- fmt.Errorf("initializing UIA client: %w", err)
		return
	}
	w.client = client
	ready <- nil
	defer client.Close()
	defer close(w.done)

	for job := range w.inbox {
		w.execute(job)
	}
}

func (w *Worker) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			job.reply <- result{err: fmt.Errorf("automation worker panic: %v", r)}
		}
	}()
	value, err := job.fn(w.client)
	job.reply <- result{value: value, err: err}
}

// Submit enqueues fn and blocks until it has run on the worker thread
// or ctx is cancelled first. Cancellation does not stop fn once it has
// started; the worker has no way to preempt a COM call in flight.
func (w *Worker) Submit(ctx context.Context, fn func(client *uia.Client) (interface{}, error)) (interface{}, error) {
	job := Job{fn: fn, reply: make(chan result, 1)}
	select {
	case w.inbox <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, fmt.Errorf("automation worker stopped")
	}

	select {
	case r := <-job.reply:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new work and waits for the worker goroutine to
// tear down its COM apartment.
func (w *Worker) Close() {
	close(w.inbox)
	<-w.done
}
