package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdbank/deposit-service/internal/events"
)

type countingRegistrar struct {
	seen int
}

func (r *countingRegistrar) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventDepositInvested, func(context.Context, events.Event) error {
		r.seen++
		return nil
	})
}

func TestStartEventWorkers(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	first, second := &countingRegistrar{}, &countingRegistrar{}

	StartEventWorkers(dispatcher, first, nil, second)
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventDepositInvested}))

	assert.Equal(t, 1, first.seen)
	assert.Equal(t, 1, second.seen)
}

func TestStartEventWorkers_NilDispatcher(t *testing.T) {
	assert.NotPanics(t, func() { StartEventWorkers(nil, &countingRegistrar{}) })
}
