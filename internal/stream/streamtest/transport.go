package streamtest

import (
	"context"
	"sync"

	"github.com/team-kosa-skynet/morningstar/internal/stream"
)

// Transport hands out Scripted streams that tests drive by hand
type Transport struct {
	mu      sync.Mutex
	opened  map[string][]*Scripted
	OpenErr map[string]error // brand -> error returned by Stream
}

// NewTransport creates an empty scripted transport
func NewTransport() *Transport {
	return &Transport{
		opened:  make(map[string][]*Scripted),
		OpenErr: make(map[string]error),
	}
}

func (t *Transport) Stream(ctx context.Context, req stream.StreamRequest) (<-chan stream.Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.OpenErr[req.Brand]; err != nil {
		return nil, err
	}
	s := &Scripted{
		Request: req,
		ctx:     ctx,
		ch:      make(chan stream.Event, 16),
	}
	t.opened[req.Brand] = append(t.opened[req.Brand], s)

	go func() {
		<-ctx.Done()
		s.close()
	}()
	return s.ch, nil
}

// Opened returns every stream opened for brand, oldest first
func (t *Transport) Opened(brand string) []*Scripted {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Scripted, len(t.opened[brand]))
	copy(out, t.opened[brand])
	return out
}

// Latest returns the newest stream for brand, or nil
func (t *Transport) Latest(brand string) *Scripted {
	opened := t.Opened(brand)
	if len(opened) == 0 {
		return nil
	}
	return opened[len(opened)-1]
}

// Scripted is one stream whose events are pushed by the test
type Scripted struct {
	Request stream.StreamRequest

	ctx    context.Context
	mu     sync.Mutex
	ch     chan stream.Event
	closed bool
}

// Chunk delivers a text fragment; it reports false once the stream is closed
func (s *Scripted) Chunk(text string) bool { return s.send(stream.Chunk(text)) }

// Complete delivers the completion event and closes the stream
func (s *Scripted) Complete() bool {
	ok := s.send(stream.Complete())
	s.close()
	return ok
}

// Fail delivers an error event and closes the stream
func (s *Scripted) Fail(msg string) bool {
	ok := s.send(stream.Failure(msg))
	s.close()
	return ok
}

// Cancelled reports whether the consumer cancelled the stream
func (s *Scripted) Cancelled() bool {
	return s.ctx.Err() != nil
}

func (s *Scripted) send(ev stream.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return false
	}
	s.ch <- ev
	return true
}

func (s *Scripted) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
