package web

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewEventHub()
	ch, unsub := hub.Subscribe()
	defer unsub()

	hub.Publish(Event{Type: "turn", Message: "user asked something"})

	e := recvEvent(t, ch)
	require.Equal(t, "turn", e.Type)
	require.Equal(t, "user asked something", e.Message)
	require.NotEmpty(t, e.Time)
}

func TestHubHistoryReplay(t *testing.T) {
	hub := NewEventHub()
	hub.Publish(Event{Type: "turn", Message: "first"})
	hub.Publish(Event{Type: "reply", Message: "second"})

	ch, unsub := hub.Subscribe()
	defer unsub()

	require.Equal(t, "first", recvEvent(t, ch).Message)
	require.Equal(t, "second", recvEvent(t, ch).Message)
}

func TestHubHistoryCapped(t *testing.T) {
	hub := NewEventHub()
	for i := 0; i < historySize+10; i++ {
		hub.Publish(Event{Type: "tool", Message: fmt.Sprintf("call %d", i)})
	}

	hub.mu.Lock()
	backlog := hub.replay()
	hub.mu.Unlock()
	require.Len(t, backlog, historySize)
	require.Equal(t, "call 10", backlog[0].Message)
	require.Equal(t, fmt.Sprintf("call %d", historySize+9), backlog[len(backlog)-1].Message)
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := NewEventHub()
	ch1, unsub1 := hub.Subscribe()
	defer unsub1()
	ch2, unsub2 := hub.Subscribe()
	defer unsub2()

	hub.Publish(Event{Type: "reply", Message: "broadcast"})

	require.Equal(t, "broadcast", recvEvent(t, ch1).Message)
	require.Equal(t, "broadcast", recvEvent(t, ch2).Message)
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewEventHub()
	_, unsub := hub.Subscribe()
	unsub()

	// Publishing after unsubscribe must not panic or block.
	hub.Publish(Event{Type: "turn", Message: "after"})

	hub.mu.Lock()
	n := len(hub.subs)
	hub.mu.Unlock()
	require.Zero(t, n)
}

func TestHubSlowClientDropped(t *testing.T) {
	hub := NewEventHub()
	ch, unsub := hub.Subscribe()
	defer unsub()

	// Fill the subscriber buffer without reading; extra events are dropped
	// rather than blocking Publish.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(Event{Type: "tool", Message: "burst"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow client")
	}
	_ = ch
}
