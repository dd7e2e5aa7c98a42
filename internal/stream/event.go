package stream

import (
	"context"
	"time"
)

// EventKind tags an Event
type EventKind int

const (
	EventChunk EventKind = iota
	EventComplete
	EventError
	EventTick
)

func (k EventKind) String() string {
	switch k {
	case EventChunk:
		return "chunk"
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	case EventTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event is a single input to the controller loop. Transports only fill Kind,
// Text and Err; the controller stamps Model and Generation when forwarding.
type Event struct {
	Kind       EventKind
	Text       string // chunk fragment
	Err        string // error message
	Model      string
	Generation string
	At         time.Time // tick time
	timer      uint64
}

// Chunk builds a chunk event
func Chunk(text string) Event { return Event{Kind: EventChunk, Text: text} }

// Complete builds a completion event
func Complete() Event { return Event{Kind: EventComplete} }

// Failure builds an error event
func Failure(msg string) Event { return Event{Kind: EventError, Err: msg} }

// StreamRequest identifies one logical stream on the backend
type StreamRequest struct {
	ConversationID int64
	Brand          string
	Message        string
	Token          string
}

// Transport opens one logical stream per request. The returned channel yields
// chunk events in arrival order, at most one terminal (complete or error)
// event, and is closed afterwards. Cancelling ctx asks the transport to stop
// delivering; implementations must close the channel when ctx is done.
type Transport interface {
	Stream(ctx context.Context, req StreamRequest) (<-chan Event, error)
}
