// Package channel implements the user-facing delivery surfaces. Each
// channel turns platform events into bus.InboundMessage and delivers
// bus.OutboundMessage replies back to the platform.
package channel

import (
	"context"

	"github.com/stellarlinkco/finclaw/internal/bus"
)

// Channel is one delivery surface (telegram, web UI).
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

// BaseChannel carries the shared plumbing: channel name, bus handle, and
// the sender allow-list. An empty allow-list admits everyone.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[string]struct{}
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	allowed := make(map[string]struct{}, len(allowFrom))
	for _, id := range allowFrom {
		if id != "" {
			allowed[id] = struct{}{}
		}
	}
	return BaseChannel{name: name, bus: b, allowFrom: allowed}
}

func (b *BaseChannel) Name() string {
	return b.name
}

// IsAllowed reports whether the sender passes the allow-list.
func (b *BaseChannel) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	_, ok := b.allowFrom[senderID]
	return ok
}
