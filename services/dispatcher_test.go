package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"civicpulse-be/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsTasks(t *testing.T) {
	d := services.NewDispatcher(2, 8, time.Second)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		ok := d.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		})
		require.True(t, ok)
	}
	d.Close()

	assert.Equal(t, int32(5), ran.Load())
}

func TestDispatcherIsolatesFailures(t *testing.T) {
	d := services.NewDispatcher(1, 4, time.Second)

	var after atomic.Bool
	d.Submit("fails", func(context.Context) error { return errors.New("boom") })
	d.Submit("panics", func(context.Context) error { panic("kaboom") })
	d.Submit("after", func(context.Context) error {
		after.Store(true)
		return nil
	})
	d.Close()

	assert.True(t, after.Load(), "worker survives failing and panicking tasks")
}

func TestDispatcherSubmitNeverBlocks(t *testing.T) {
	d := services.NewDispatcher(1, 1, time.Second)
	release := make(chan struct{})
	started := make(chan struct{})

	require.True(t, d.Submit("blocker", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.True(t, d.Submit("queued", func(context.Context) error { return nil }))

	done := make(chan bool)
	go func() { done <- d.Submit("dropped", func(context.Context) error { return nil }) }()
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(release)
	d.Close()
	assert.False(t, d.Submit("late", func(context.Context) error { return nil }))
}

func TestDispatcherTaskTimeout(t *testing.T) {
	d := services.NewDispatcher(1, 1, 20*time.Millisecond)

	var deadline atomic.Bool
	d.Submit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		deadline.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
		return ctx.Err()
	})
	d.Close()

	assert.True(t, deadline.Load())
}
