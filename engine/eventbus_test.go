package engine

import (
	"context"
	"testing"
	"time"

	"xpkit/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventXPAwarded, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewXPAwarded(core.UserID("u"), "quiz", 1, 1))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventXPAwarded, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewXPAwarded(core.UserID("u"), "quiz", 1, 1))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	unsub := bus.Subscribe(core.EventLevelUp, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewLevelUp("u", 1, 2, 100))
	unsub()
	bus.Publish(context.Background(), core.NewLevelUp("u", 2, 3, 250))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}
