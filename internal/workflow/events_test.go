package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventHubFetchFiltersAndPages(t *testing.T) {
	hub := NewEventHub(16)
	hub.Publish(Event{Type: EventJobCreated, JobID: "a"})
	hub.Publish(Event{Type: EventJobCreated, JobID: "b"})
	hub.Publish(Event{Type: EventJobStarted, JobID: "a"})

	events, next, err := hub.Fetch(context.Background(), 0, 0, "a", false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 || events[0].Sequence != 1 || events[1].Sequence != 3 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if next != 3 {
		t.Fatalf("next = %d, want 3", next)
	}

	page, next, _ := hub.Fetch(context.Background(), 0, 1, "", false)
	if len(page) != 1 || next != 1 {
		t.Fatalf("expected a single-event page ending at 1, got %d events next %d", len(page), next)
	}
	rest, _, _ := hub.Fetch(context.Background(), next, 0, "", false)
	if len(rest) != 2 {
		t.Fatalf("expected remaining 2 events, got %d", len(rest))
	}
}

func TestEventHubDropsOldestBeyondCapacity(t *testing.T) {
	hub := NewEventHub(3)
	for range 5 {
		hub.Publish(Event{Type: EventFileProgress, JobID: "a"})
	}
	events, _, _ := hub.Fetch(context.Background(), 0, 0, "", false)
	if len(events) != 3 || events[0].Sequence != 3 {
		t.Fatalf("expected sequences 3..5, got %+v", events)
	}
	if hub.LastSequence() != 5 {
		t.Fatalf("last sequence = %d", hub.LastSequence())
	}
}

func TestEventHubFetchWaitsForNextEvent(t *testing.T) {
	hub := NewEventHub(8)
	hub.Publish(Event{Type: EventJobCreated, JobID: "a"})

	go func() {
		time.Sleep(20 * time.Millisecond)
		hub.Publish(Event{Type: EventJobCreated, JobID: "b"})
		hub.Publish(Event{Type: EventJobStarted, JobID: "a"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, next, err := hub.Fetch(ctx, 1, 0, "a", true)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventJobStarted || next != 3 {
		t.Fatalf("unexpected wait result: %+v next %d", events, next)
	}
}

func TestEventHubFetchWaitHonoursContext(t *testing.T) {
	hub := NewEventHub(8)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := hub.Fetch(ctx, 0, 0, "", true)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEventHubSubscribe(t *testing.T) {
	hub := NewEventHub(8)
	onlyA, unsubscribeA := hub.Subscribe("a")
	all, unsubscribeAll := hub.Subscribe("")
	defer unsubscribeAll()

	hub.Publish(Event{Type: EventJobCreated, JobID: "b"})
	hub.Publish(Event{Type: EventJobCreated, JobID: "a"})

	if evt := <-onlyA; evt.JobID != "a" {
		t.Fatalf("filtered subscriber got %+v", evt)
	}
	if evt := <-all; evt.JobID != "b" {
		t.Fatalf("unfiltered subscriber got %+v first", evt)
	}

	unsubscribeA()
	unsubscribeA()
	if _, ok := <-onlyA; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
	hub.Publish(Event{Type: EventJobStarted, JobID: "a"})
}

func TestEventHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewEventHub(8)
	_, unsubscribe := hub.Subscribe("")
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for range subscriberBuffer + 10 {
			hub.Publish(Event{Type: EventFileProgress, JobID: "a"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
}
