package bus

import "time"

// InboundMessage is one chat turn arriving from a channel.
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp time.Time
	Metadata  map[string]any
}

// UserKey identifies the conversation owner. Sessions and history are scoped
// per user, not per chat, so two chats of the same user share one
// conversation state.
func (m *InboundMessage) UserKey() string {
	return m.SenderID
}

type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	Metadata map[string]any
}
