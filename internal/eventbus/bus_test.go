package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSub(t *testing.T) {
	bus := New()
	var received []Event

	bus.Subscribe(TopicSummaryDegraded, func(e Event) {
		received = append(received, e)
	})

	bus.Publish(TopicSummaryDegraded, "first")
	bus.Publish(TopicSummaryDegraded, "second")
	bus.Publish(TopicSummaryFolded, "other topic")

	require.Len(t, received, 2)
	assert.Equal(t, "first", received[0].Payload)
	assert.Equal(t, "second", received[1].Payload)
	assert.Equal(t, TopicSummaryDegraded, received[1].Topic)
	assert.False(t, received[0].Timestamp.IsZero())
}

func TestMultipleSubscribersInOrder(t *testing.T) {
	bus := New()
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		bus.Subscribe(TopicConversationReset, func(Event) {
			order = append(order, i)
		})
	}

	bus.Publish(TopicConversationReset, nil)
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestUnsubscribedTopic(t *testing.T) {
	bus := New()
	assert.NotPanics(t, func() {
		bus.Publish(TopicExchangeRecorded, "no subscribers")
	})
}
