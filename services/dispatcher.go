package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Task is a unit of fire-and-forget work.
type Task func(ctx context.Context) error

type job struct {
	name string
	task Task
}

// Dispatcher runs side-effect tasks on a fixed pool of workers. Failures and
// panics are logged and never reach the submitter.
type Dispatcher struct {
	queue   chan job
	timeout time.Duration
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts workers goroutines reading from a queue of the given
// capacity. Each task gets its own context bounded by timeout.
func NewDispatcher(workers, capacity int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	d := &Dispatcher{
		queue:   make(chan job, capacity),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Submit enqueues the task without blocking. It returns false when the queue
// is full or the dispatcher is closed; the task is dropped in that case.
func (d *Dispatcher) Submit(name string, task Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("dispatcher closed, dropping task %s", name)
		return false
	}

	select {
	case d.queue <- job{name: name, task: task}:
		return true
	default:
		log.Printf("dispatcher queue full, dropping task %s", name)
		return false
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for j := range d.queue {
		if err := d.run(j); err != nil {
			log.Printf("task %s failed: %v", j.name, err)
		}
	}
}

func (d *Dispatcher) run(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return j.task(ctx)
}
