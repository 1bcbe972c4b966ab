package sender

import (
	"testing"
	"time"
)

func TestObserverList(t *testing.T) {
	list := NewObserverList()
	a := &eventRecorder{}
	b := &eventRecorder{}
	list.Subscribe(a)
	list.Subscribe(b)
	if list.Len() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", list.Len())
	}

	list.Dispatch(Event{Kind: EventPayloadSent, Rank: 1}, time.Now())
	list.Unsubscribe(a)
	list.Dispatch(Event{Kind: EventPayloadSent, Rank: 2}, time.Now())

	if len(a.events) != 1 || len(b.events) != 2 {
		t.Fatalf("unexpected deliveries: a=%d b=%d", len(a.events), len(b.events))
	}
	if b.events[1].Rank != 2 {
		t.Fatalf("unexpected event %+v", b.events[1])
	}
}

// oneShot 收到第一个事件后自行退订
type oneShot struct {
	list   *ObserverList
	events int
}

func (s *oneShot) OnSenderEvent(Event, time.Time) {
	s.events++
	s.list.Unsubscribe(s)
}

func TestUnsubscribeFromCallback(t *testing.T) {
	list := NewObserverList()
	once := &oneShot{list: list}
	rest := &eventRecorder{}
	list.Subscribe(once)
	list.Subscribe(rest)

	done := make(chan struct{})
	go func() {
		defer close(done)
		list.Dispatch(Event{Kind: EventPayloadSent, Rank: 1}, time.Now())
		list.Dispatch(Event{Kind: EventPayloadSent, Rank: 2}, time.Now())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatch blocked when a subscriber unsubscribed itself")
	}

	if once.events != 1 {
		t.Fatalf("expected a single delivery before unsubscribing, got %d", once.events)
	}
	if len(rest.events) != 2 || list.Len() != 1 {
		t.Fatalf("unexpected state: %d deliveries, %d subscribers", len(rest.events), list.Len())
	}
}

func TestEventKindString(t *testing.T) {
	if EventPayloadGenerated.String() != "PayloadGenerated" {
		t.Fatalf("unexpected name %s", EventPayloadGenerated)
	}
	if EventKind(99).String() != "Unknown" {
		t.Fatalf("unexpected name for unknown kind")
	}
}
