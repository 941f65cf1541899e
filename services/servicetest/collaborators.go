package servicetest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"civicpulse-be/services"
)

// Tasks records submitted tasks instead of running them, so tests decide
// when side effects happen.
type Tasks struct {
	mu     sync.Mutex
	names  []string
	queued []services.Task
	Reject bool
}

func (t *Tasks) Submit(name string, task services.Task) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Reject {
		return false
	}
	t.names = append(t.names, name)
	t.queued = append(t.queued, task)
	return true
}

func (t *Tasks) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.names...)
}

// RunAll drains the queue and returns the tasks' errors in order.
func (t *Tasks) RunAll(ctx context.Context) []error {
	t.mu.Lock()
	queued := t.queued
	t.queued = nil
	t.mu.Unlock()

	errs := make([]error, 0, len(queued))
	for _, task := range queued {
		errs = append(errs, task(ctx))
	}
	return errs
}

// Verifier accepts Code for every started email.
type Verifier struct {
	mu       sync.Mutex
	Code     string
	StartErr error
	started  []string
}

func (v *Verifier) Start(_ context.Context, email string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.StartErr != nil {
		return v.StartErr
	}
	v.started = append(v.started, strings.ToLower(email))
	return nil
}

func (v *Verifier) Check(_ context.Context, email, code string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.started {
		if e == strings.ToLower(email) {
			return code == v.Code, nil
		}
	}
	return false, nil
}

func (v *Verifier) Started() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.started...)
}

// Cache is a map-backed services.Cache that ignores TTLs.
type Cache struct {
	mu    sync.Mutex
	items map[string][]byte
	Hits  int
}

func (c *Cache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.Hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *Cache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = map[string][]byte{}
	}
	c.items[key] = raw
	return nil
}
