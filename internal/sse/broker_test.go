package sse

import (
	"strings"
	"testing"
	"time"
)

func recv(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestBrokerSubscribePublish(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "test", Data: map[string]string{"k": "v"}})

	msg := recv(t, ch)
	if !strings.HasPrefix(msg, "event: test\n") {
		t.Errorf("msg = %q", msg)
	}
	if !strings.Contains(msg, `"k":"v"`) {
		t.Errorf("payload missing: %q", msg)
	}
}

func TestBrokerEntityEventEmitsScheduleUpdate(t *testing.T) {
	b := NewBroker(time.Hour) // throttle long enough that only the first fires
	defer b.Close()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishEntityEvent("contact_added", "1")

	first := recv(t, ch)
	if !strings.Contains(first, "event: contact_added\n") || !strings.Contains(first, `"id":"1"`) {
		t.Errorf("entity event = %q", first)
	}
	second := recv(t, ch)
	if !strings.Contains(second, "event: schedule.updated\n") {
		t.Errorf("expected schedule.updated, got %q", second)
	}

	// Within the throttle window only the entity event goes out.
	b.PublishEntityEvent("contact_updated", "1")
	third := recv(t, ch)
	if !strings.Contains(third, "event: contact_updated\n") {
		t.Errorf("entity event = %q", third)
	}
	select {
	case msg := <-ch:
		t.Errorf("unexpected extra event: %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBrokerClientCount(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()

	if n := b.ClientCount(); n != 0 {
		t.Errorf("count = %d", n)
	}
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	if n := b.ClientCount(); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	b.Unsubscribe(ch1)
	if n := b.ClientCount(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	b.Unsubscribe(ch2)
}

func TestBrokerCloseClosesClients(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received data instead of close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client channel not closed")
	}

	// Operations after close are safe no-ops.
	b.Publish(Event{Type: "test"})
	b.PublishEntityEvent("x", "1")
	if n := b.ClientCount(); n != 0 {
		t.Errorf("count after close = %d", n)
	}
	if ch := b.Subscribe(); ch != nil {
		if _, ok := <-ch; ok {
			t.Error("subscribe after close returned open channel")
		}
	}
	b.Close() // idempotent
}
