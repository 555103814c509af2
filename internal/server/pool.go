package server

import "sync"

// defaultPoolWorkers is the number of goroutines draining the broadcast
// queue.
const defaultPoolWorkers = 4

// taskPool runs submitted functions on a fixed set of workers. Broadcasts
// are queued here so event producers never block on slow clients; shutdown
// waits for the queue to drain before tearing down sessions it may still
// touch.
type taskPool struct {
	tasks   chan func()
	workers sync.WaitGroup
	pending sync.WaitGroup
	once    sync.Once
}

func newTaskPool(workers int) *taskPool {
	if workers < 1 {
		workers = 1
	}

	p := &taskPool{
		tasks: make(chan func(), 64),
	}
	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.worker()
	}
	return p
}

func (p *taskPool) worker() {
	defer p.workers.Done()
	for task := range p.tasks {
		task()
		p.pending.Done()
	}
}

// Submit queues a task. Blocks when the queue is full, which applies
// backpressure to event producers instead of growing without bound.
func (p *taskPool) Submit(task func()) {
	p.pending.Add(1)
	p.tasks <- task
}

// WaitForIdle blocks until every submitted task has finished. Tasks
// submitted while waiting are also waited for.
func (p *taskPool) WaitForIdle() {
	p.pending.Wait()
}

// Close stops the workers after the queue drains. Submit must not be called
// after Close. Safe to call more than once.
func (p *taskPool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.workers.Wait()
}
