package stream

import "time"

// Reveal is the typed-reveal cursor of one session, counted in runes
type Reveal struct {
	Cursor int
	Target int
	Carry  time.Duration // elapsed time not yet converted into a step
}

// Grow extends the reveal target; the cursor is kept
func (r Reveal) Grow(target int) Reveal {
	if target > r.Target {
		r.Target = target
	}
	return r
}

// Caught reports whether everything known has been revealed
func (r Reveal) Caught() bool {
	return r.Cursor >= r.Target
}

// Advance moves the cursor one rune per full interval of elapsed time and never
// past Target. A non-positive interval reveals everything at once.
func Advance(r Reveal, elapsed, interval time.Duration) Reveal {
	if interval <= 0 {
		r.Cursor = r.Target
		r.Carry = 0
		return r
	}
	if r.Cursor >= r.Target {
		r.Cursor = r.Target
		r.Carry = 0
		return r
	}
	if elapsed < 0 {
		elapsed = 0
	}

	total := r.Carry + elapsed
	steps := int(total / interval)
	r.Carry = total - time.Duration(steps)*interval
	r.Cursor += steps
	if r.Cursor >= r.Target {
		r.Cursor = r.Target
		r.Carry = 0
	}
	return r
}
