package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInProcessPublishDeliversToSubscriber(t *testing.T) {
	ip := NewInProcess()
	ch, unsub := ip.Subscribe(ChannelSpace, 1)
	defer unsub()

	if err := ip.Publish(context.Background(), ChannelSpace, Event{Action: "created", ID: "s1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Action != "created" || ev.ID != "s1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected the subscriber to receive the published event")
	}
}

func TestInProcessPublishSkipsOtherChannels(t *testing.T) {
	ip := NewInProcess()
	ch, unsub := ip.Subscribe(ChannelSpace, 1)
	defer unsub()

	if err := ip.Publish(context.Background(), ChannelGraph, Event{Action: "created", ID: "g1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case ev := <-ch:
		t.Fatalf("expected no event on ChannelSpace from a ChannelGraph publish, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInProcessPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	ip := NewInProcess()
	ch, unsub := ip.Subscribe(ChannelSpace, 1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			ip.Publish(context.Background(), ChannelSpace, Event{Action: "created", ID: "s1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Publish to drop events on a full buffer rather than block")
	}
	<-ch // drain the one event that made it through
}

func TestInProcessUnsubscribeClosesChannel(t *testing.T) {
	ip := NewInProcess()
	ch, unsub := ip.Subscribe(ChannelUser, 1)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatalf("expected the channel to be closed after unsubscribe")
	}
}

func TestPublishBestEffortSwallowsError(t *testing.T) {
	n := failingNotifier{err: errors.New("boom")}
	// Must not panic and must return promptly even though Publish errors.
	PublishBestEffort(context.Background(), n, ChannelSpace, Event{Action: "created", ID: "s1"})
}

func TestPublishBestEffortNoOpOnNilNotifier(t *testing.T) {
	PublishBestEffort(context.Background(), nil, ChannelSpace, Event{Action: "created", ID: "s1"})
}

type failingNotifier struct{ err error }

func (f failingNotifier) Publish(ctx context.Context, channel Channel, payload Event) error {
	return f.err
}

func TestMarshalEventProducesJSON(t *testing.T) {
	s, err := marshalEvent(Event{Action: "created", ID: "s1", Data: map[string]any{"k": "v"}})
	if err != nil {
		t.Fatalf("marshalEvent: %v", err)
	}
	if s == "" {
		t.Fatalf("expected a non-empty JSON payload")
	}
}
