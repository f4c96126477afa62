package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("messaging: publisher closed")

// ErrDestinationRequired is returned when the topic or subject is empty.
var ErrDestinationRequired = errors.New("messaging: destination is required")

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte
	// Key is used by Kafka for partitioning and ignored by NATS.
	Key []byte
	// Headers allow duplicate keys.
	Headers []Header
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries what the broker reported back.
type PublishResult struct {
	Destination string
	Timestamp   time.Time
}
