package transport

import "context"

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
}

// Notification is a single outbound message for the delivery pipeline.
type Notification struct {
	// Category is a routing label for logs/metrics ("follow", "activity", "trade").
	Category string
	Target   ChatTarget
	Text     string
	Options  *SendOptions
}

// Adapter delivers messages to one messaging platform.
//
// Implementations must be safe for concurrent use; the notifier calls
// SendText from multiple workers.
type Adapter interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}
