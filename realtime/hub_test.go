package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"xpkit/core"
	"xpkit/engine"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	id, ch := h.Subscribe(1)

	ev := core.NewXPAwarded("bob", "quiz", 10, 10)
	h.Broadcast(context.Background(), ev)

	received := <-ch
	if received.UserID != "bob" || received.Type != core.EventXPAwarded {
		t.Fatalf("unexpected event: %+v", received)
	}

	h.Unsubscribe(id)
	_, ok := <-ch
	if ok {
		t.Fatal("expected channel closed after unsubscribe")
	}
}

func TestHubAttachForwardsBusEvents(t *testing.T) {
	h := NewHub()
	_, ch := h.Subscribe(4)

	bus := engine.NewEventBus(engine.DispatchSync)
	detach := h.Attach(bus)

	bus.Publish(context.Background(), core.NewLevelUp("alice", 1, 2, 110))
	received := <-ch
	if received.Type != core.EventLevelUp || received.NewLevel != 2 {
		t.Fatalf("unexpected event: %+v", received)
	}

	detach()
	bus.Publish(context.Background(), core.NewLevelUp("alice", 2, 3, 250))
	select {
	case ev := <-ch:
		t.Fatalf("expected no event after detach, got %+v", ev)
	default:
	}
}

func TestMarshalJSON(t *testing.T) {
	ev := core.NewStreakMilestone("alice", "daily", 7, 7, "week-warrior")
	b := MarshalJSON(ev)
	var out core.Event
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Badge != "week-warrior" || out.MilestoneDays != 7 {
		t.Fatalf("unexpected event: %+v", out)
	}
}
