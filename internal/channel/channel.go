package channel

import (
	"context"

	"github.com/warelinehq/wareline/internal/bus"
)

// Channel is a chat transport: it feeds user turns into the bus and delivers
// replies back out.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Send(msg bus.OutboundMessage) error
	Stop() error
}

// BaseChannel carries the name, bus handle, and sender allowlist shared by
// every transport.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[string]struct{}
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	allowed := make(map[string]struct{}, len(allowFrom))
	for _, id := range allowFrom {
		allowed[id] = struct{}{}
	}
	return BaseChannel{name: name, bus: b, allowFrom: allowed}
}

func (c *BaseChannel) Name() string {
	return c.name
}

// IsAllowed reports whether a sender may talk to this channel. An empty
// allowlist admits everyone.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	_, ok := c.allowFrom[senderID]
	return ok
}
