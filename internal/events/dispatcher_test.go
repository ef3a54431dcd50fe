package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var received []Event
	dispatcher.Subscribe(EventProviderCreated, func(_ context.Context, event Event) error {
		received = append(received, event)
		return nil
	})

	event := Event{ID: "1", Type: EventProviderCreated, ProviderID: 7}
	if err := dispatcher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(received) != 1 || received[0].ProviderID != 7 {
		t.Fatalf("unexpected delivery: %+v", received)
	}
}

func TestDispatcherIgnoresUnrelatedTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventProviderDeactivated, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventProviderCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if called {
		t.Fatal("handler for another type must not run")
	}
}

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	dispatcher.Subscribe(EventProviderCreated, func(_ context.Context, _ Event) error {
		return errors.New("boom")
	})
	secondRan := false
	dispatcher.Subscribe(EventProviderCreated, func(_ context.Context, _ Event) error {
		secondRan = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventProviderCreated}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !secondRan {
		t.Fatal("later handlers must still run after an error")
	}
}
