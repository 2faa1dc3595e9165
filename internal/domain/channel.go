package domain

import "context"

// InboundMessage is a message received from a channel (user input). The
// channel layer parses bot commands ("/new", "/help") before a message ever
// reaches the agent; only free text arrives here.
type InboundMessage struct {
	ChatID      string
	Content     string
	ChannelName string

	SenderID   string `json:"sender_id,omitempty"`
	SenderName string `json:"sender_name,omitempty"`
	IsMention  bool   `json:"is_mention,omitempty"`
}

// OutboundMessage is a message sent to a channel (agent response).
type OutboundMessage struct {
	ChatID    string
	Content   string
	IsError   bool
	ImageURLs []string
}

// MessageHandler is a callback the channel invokes when it receives input.
type MessageHandler func(ctx context.Context, msg InboundMessage) error

// Channel is the interface for user-facing I/O adapters.
type Channel interface {
	Start(ctx context.Context, handler MessageHandler) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg OutboundMessage) error
	Name() string
}
