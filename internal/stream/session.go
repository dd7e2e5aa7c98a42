package stream

import (
	"time"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// SessionView is a read-only copy of one session, safe to hand to renderers
type SessionView struct {
	Model      models.ModelInfo
	Generation string
	State      State
	Displayed  string
	Buffered   int // runes received so far
	Err        string
}

// session is owned by the controller loop
type session struct {
	model      models.ModelInfo
	generation string
	state      State
	buf        []rune
	reveal     Reveal
	completed  bool
	err        string

	lastTick time.Time
	timer    uint64 // id of the ticker currently driving the reveal, 0 when idle
}

func newSession(model models.ModelInfo, generation string) *session {
	return &session{
		model:      model,
		generation: generation,
		state:      StateStreaming,
	}
}

func (s *session) appendChunk(text string) {
	if s.state.Terminal() || s.completed || text == "" {
		return
	}
	s.buf = append(s.buf, []rune(text)...)
	s.reveal = s.reveal.Grow(len(s.buf))
}

func (s *session) complete() {
	if s.state.Terminal() {
		return
	}
	s.completed = true
	s.settle()
}

// fail freezes whatever arrived so far, revealed at once
func (s *session) fail(msg string) {
	if s.state.Terminal() {
		return
	}
	s.err = msg
	s.reveal.Cursor = len(s.buf)
	s.reveal.Carry = 0
	s.state = StateErrored
}

func (s *session) cancel() {
	if s.state.Terminal() {
		return
	}
	s.state = StateCancelled
}

func (s *session) tick(at time.Time, interval time.Duration) {
	if s.state.Terminal() {
		return
	}
	elapsed := at.Sub(s.lastTick)
	s.lastTick = at
	s.reveal = Advance(s.reveal, elapsed, interval)
	s.settle()
}

// settle evaluates the stop condition after buffer growth has been applied
func (s *session) settle() {
	if s.state.Terminal() || !s.completed {
		return
	}
	if s.reveal.Caught() {
		s.state = StateDone
		return
	}
	s.state = StateFinalizing
}

// wantsTicks reports whether a reveal ticker should be running
func (s *session) wantsTicks() bool {
	return !s.state.Terminal() && !s.reveal.Caught()
}

func (s *session) view() SessionView {
	return SessionView{
		Model:      s.model,
		Generation: s.generation,
		State:      s.state,
		Displayed:  string(s.buf[:s.reveal.Cursor]),
		Buffered:   len(s.buf),
		Err:        s.err,
	}
}
