package infrastructure

import (
	"context"
	"testing"

	"cardex/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher captures published events for assertions
type recordingPublisher struct {
	published []events.Event
	err       error
}

func (r *recordingPublisher) Publish(event events.Event) error {
	if r.err != nil {
		return r.err
	}
	r.published = append(r.published, event)
	return nil
}

func TestNATSTransactionalPublisher_FlushAfterCommit(t *testing.T) {
	real := &recordingPublisher{}
	publisher := NewNATSTransactionalPublisher(real)

	event := events.ExchangeStateChangeEvent{
		ExchangeID: 1,
		OldStatus:  "pending",
		NewStatus:  "accepted",
	}

	require.NoError(t, publisher.Publish(event))

	// Nothing leaves before flush
	assert.Empty(t, real.published)

	require.NoError(t, publisher.Flush(context.Background()))
	require.Len(t, real.published, 1)
	assert.Equal(t, event, real.published[0])

	// Flushing again publishes nothing new
	require.NoError(t, publisher.Flush(context.Background()))
	assert.Len(t, real.published, 1)
}

func TestNATSTransactionalPublisher_DiscardOnRollback(t *testing.T) {
	real := &recordingPublisher{}
	publisher := NewNATSTransactionalPublisher(real)

	require.NoError(t, publisher.Publish(events.BalanceChangeEvent{UserID: 1, ChangeAmount: -12}))
	require.NoError(t, publisher.Publish(events.BalanceChangeEvent{UserID: 2, ChangeAmount: 12}))

	publisher.Discard()

	require.NoError(t, publisher.Flush(context.Background()))
	assert.Empty(t, real.published)
}

func TestNATSTransactionalPublisher_FlushPreservesOrder(t *testing.T) {
	real := &recordingPublisher{}
	publisher := NewNATSTransactionalPublisher(real)

	first := events.BalanceChangeEvent{UserID: 1, ChangeAmount: -12}
	second := events.ExchangeCompletedEvent{ExchangeID: 9, CoinAmount: 12}

	require.NoError(t, publisher.Publish(first))
	require.NoError(t, publisher.Publish(second))
	require.NoError(t, publisher.Flush(context.Background()))

	require.Len(t, real.published, 2)
	assert.Equal(t, first, real.published[0])
	assert.Equal(t, second, real.published[1])
}
