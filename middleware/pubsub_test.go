package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubDeliversToSubscribersInOrder(t *testing.T) {
	ps := NewPubSub("ps", 0)
	require.NoError(t, ps.Start(context.Background()))
	defer ps.Stop(context.Background())

	var mu sync.Mutex
	var received []any
	done := make(chan struct{}, 2)
	ps.Subscribe("alert", func(m Message) {
		mu.Lock()
		received = append(received, m.Payload)
		mu.Unlock()
		done <- struct{}{}
	})
	ps.Subscribe("alert", func(m Message) {
		done <- struct{}{}
	})

	ps.Publish("alert", "fire")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "fire", received[0])
}

func TestPubSubPreservesPerSubscriberPublishOrder(t *testing.T) {
	ps := NewPubSub("ps", 0)
	require.NoError(t, ps.Start(context.Background()))
	defer ps.Stop(context.Background())

	var mu sync.Mutex
	var order []int
	done := make(chan struct{}, 3)
	ps.Subscribe("topic", func(m Message) {
		mu.Lock()
		order = append(order, m.Payload.(int))
		mu.Unlock()
		done <- struct{}{}
	})

	for i := 0; i < 3; i++ {
		ps.Publish("topic", i)
	}
	for i := 0; i < 3; i++ {
		<-done
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestPubSubUnsubscribe(t *testing.T) {
	ps := NewPubSub("ps", 0)
	require.NoError(t, ps.Start(context.Background()))
	defer ps.Stop(context.Background())

	called := false
	id := ps.Subscribe("topic", func(m Message) { called = true })
	ps.Unsubscribe("topic", id)
	ps.Publish("topic", "x")
	time.Sleep(20 * time.Millisecond)
	assert.False(t, called)
}
