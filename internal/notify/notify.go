// Package notify implements C11, the notifier interface both C10's space
// lifecycle and future admin surfaces publish change events through. The
// teacher has no pub/sub of its own (pkg/store/storage.go is a plain
// Storage/Transaction pair with no event hooks), so the Notifier shape
// here follows spec.md §4.11 directly: one small interface, two
// interchangeable backends.
package notify

import (
	"context"
	"encoding/json"
	"log"
)

// Channel names a topic callers publish to and subscribe on. It is a
// closed set (spec §4.11): space/graph/user lifecycle events, plus their
// plural "list changed" counterparts for admin views that cache a listing.
type Channel string

const (
	ChannelSpace  Channel = "space"
	ChannelSpaces Channel = "spaces"
	ChannelGraph  Channel = "graph"
	ChannelGraphs Channel = "graphs"
	ChannelUser   Channel = "user"
	ChannelUsers  Channel = "users"
)

// Event is one published change. Action is free-form ("created",
// "deleted"); ID names the affected resource (a space ID, a graph IRI, a
// username); Data carries any extra fields a subscriber needs without
// a round trip back to the database.
type Event struct {
	Action string         `json:"action"`
	ID     string         `json:"id"`
	Data   map[string]any `json:"data,omitempty"`
}

// Notifier publishes Events on Channels. Publish reports failures to its
// caller; the best-effort policy of spec §7 (a notification failure is
// logged and swallowed rather than failing the write that triggered it)
// is applied by PublishBestEffort, which C10 calls instead of Publish.
type Notifier interface {
	Publish(ctx context.Context, channel Channel, payload Event) error
}

// logAndSwallow is the policy PublishBestEffort applies after a
// Notifier.Publish error: the write already committed, so the event is
// unrecoverable but not fatal.
func logAndSwallow(channel Channel, err error) {
	if err != nil {
		log.Printf("notify: publish on %q failed (swallowed): %v", channel, err)
	}
}

// PublishBestEffort calls n.Publish and logs-and-swallows any error,
// giving C10 a one-line call site that can never fail its caller.
func PublishBestEffort(ctx context.Context, n Notifier, channel Channel, payload Event) {
	if n == nil {
		return
	}
	if err := n.Publish(ctx, channel, payload); err != nil {
		logAndSwallow(channel, err)
	}
}

func marshalEvent(payload Event) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
