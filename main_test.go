package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type steps []string

type fakeServer struct{ log *steps }

func (s fakeServer) Shutdown(context.Context) error {
	*s.log = append(*s.log, "server")
	return nil
}

type fakeTasks struct{ log *steps }

func (t fakeTasks) Close() { *t.log = append(*t.log, "tasks") }

func TestShutdownDrainsTasksBeforeClosingStores(t *testing.T) {
	var got steps
	closer := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			got = append(got, name)
			return err
		}
	}

	shutdown(context.Background(), fakeServer{&got}, fakeTasks{&got},
		closer("redis", errors.New("already closed")), closer("mongo", nil))

	assert.Equal(t, steps{"server", "tasks", "redis", "mongo"}, got)
}
