package queue

import "context"

// Handler processes one message. A non-nil error negatively acknowledges the
// message; whether it is redelivered depends on the backend.
type Handler func(ctx context.Context, payload []byte) error

// Publisher sends messages to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}

// Subscriber delivers messages from a subject to a handler.
type Subscriber interface {
	Subscribe(subject string, handler Handler) error
	Close() error
}

// Queue is a transport that can do both ends.
type Queue interface {
	Publisher
	Subscriber
}
