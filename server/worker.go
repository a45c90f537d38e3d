package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/minima"
)

// ErrStopped is returned by Do after Stop.
var ErrStopped = errors.New("server: worker stopped")

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*minima.Session) any
	done chan workResult
}

// workResult holds the return value from a session operation.
type workResult struct {
	value any
	err   error
}

// Worker serializes all session access through a single goroutine.
// A symbol table is not safe for concurrent use, and LSP requests
// arrive on their own goroutines.
type Worker struct {
	session  *minima.Session
	requests chan workRequest
	quit     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker around session and starts the processing goroutine.
func NewWorker(session *minima.Session) *Worker {
	w := &Worker{
		session:  session,
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	defer close(w.stopped)
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn against the session, recovering from panics.
func (w *Worker) execute(fn func(*minima.Session) any) (result workResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("worker recovered: %v", r)
			result.err = fmt.Errorf("%v", r)
		}
	}()
	result.value = fn(w.session)
	return result
}

// Do submits fn for execution on the worker goroutine and blocks until it
// completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*minima.Session) any) (any, error) {
	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.stopped:
		return nil, ErrStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.stopped:
		return nil, ErrStopped
	}
}

// Stop shuts down the worker goroutine. Stopping twice is harmless.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	<-w.stopped
}
