package notify

import (
	"context"
	"sync"
)

// InProcess fans events out over buffered Go channels, for single-process
// deployments and tests (spec §4.11). It never touches the database, so
// it is the default backend (vgconfig.NotifierInProcess) and what the
// test suite uses in place of a real LISTEN/NOTIFY round trip.
type InProcess struct {
	mu   sync.RWMutex
	subs map[Channel][]chan Event
}

// NewInProcess builds an empty InProcess notifier.
func NewInProcess() *InProcess {
	return &InProcess{subs: make(map[Channel][]chan Event)}
}

// Subscribe registers a new listener on channel, returning a buffered
// channel of Events and an unsubscribe func the caller must eventually
// call to stop the fan-out from blocking on a channel nobody drains.
func (ip *InProcess) Subscribe(channel Channel, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	ip.mu.Lock()
	ip.subs[channel] = append(ip.subs[channel], ch)
	ip.mu.Unlock()

	unsubscribe := func() {
		ip.mu.Lock()
		defer ip.mu.Unlock()
		subs := ip.subs[channel]
		for i, s := range subs {
			if s == ch {
				ip.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, unsubscribe
}

// Publish fans payload out to every current subscriber of channel. A
// subscriber whose buffer is full is skipped rather than blocked on,
// since a slow admin listener must never stall the write path that
// triggered the event.
func (ip *InProcess) Publish(ctx context.Context, channel Channel, payload Event) error {
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	for _, ch := range ip.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}
