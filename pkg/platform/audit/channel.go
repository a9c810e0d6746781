package audit

import (
	"context"
	"fmt"
)

// ChannelEmitter hands events to an in-process worker via a buffered channel.
// Used when no Kafka pipeline is configured (tests, single-node deployments).
type ChannelEmitter struct {
	inbox chan Event
}

func NewChannelEmitter(buffer int) *ChannelEmitter {
	return &ChannelEmitter{inbox: make(chan Event, buffer)}
}

// Inbox exposes the consuming side for a worker.
func (c *ChannelEmitter) Inbox() <-chan Event {
	return c.inbox
}

// Emit enqueues the event. A full inbox fails rather than blocking the
// calling commit path.
func (c *ChannelEmitter) Emit(_ context.Context, event Event) error {
	select {
	case c.inbox <- event:
		return nil
	default:
		return fmt.Errorf("audit inbox full, dropping %s", event.Action)
	}
}
