// Package history keeps settled generations in the local DuckDB store.
package history

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/team-kosa-skynet/morningstar/internal/stream"
)

// QueueSize bounds generations waiting to be written
const QueueSize = 16

type writeRequest struct {
	seq        uint64
	generation stream.Generation
	at         time.Time
}

// Option configures a Recorder
type Option func(*Recorder)

// WithLogger sets the recorder logger
func WithLogger(l zerolog.Logger) Option {
	return func(r *Recorder) { r.log = l }
}

// WithNow replaces the timestamp source
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// Recorder writes generations on a single background goroutine and reads
// them back on the caller's
type Recorder struct {
	db       *sql.DB
	log      zerolog.Logger
	now      func() time.Time
	requests chan writeRequest
	done     chan struct{}

	mu        sync.Mutex
	contexts  map[string]context.CancelFunc
	seq       uint64
	discarded uint64 // requests up to this seq are dropped unwritten
	closed    bool
	closeOnce sync.Once
}

// NewRecorder creates a recorder and starts its writer
func NewRecorder(db *sql.DB, opts ...Option) *Recorder {
	r := &Recorder{
		db:       db,
		log:      zerolog.Nop(),
		now:      time.Now,
		requests: make(chan writeRequest, QueueSize),
		done:     make(chan struct{}),
		contexts: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(r)
	}

	go r.processRequests()
	return r
}

// Record queues a settled generation. It never blocks: false means the
// generation was dropped because the recorder is closed or saturated.
// Cancelled-only generations with no text are not worth keeping and are skipped.
func (r *Recorder) Record(g stream.Generation) bool {
	if !worthKeeping(g) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	select {
	case r.requests <- writeRequest{seq: r.seq + 1, generation: g, at: r.now()}:
		r.seq++
		return true
	default:
		r.log.Warn().Str("generation", g.ID).Msg("history queue full, dropping generation")
		return false
	}
}

func worthKeeping(g stream.Generation) bool {
	for _, s := range g.Sessions {
		if s.State != stream.StateCancelled || s.Displayed != "" {
			return true
		}
	}
	return false
}

// CancelAll aborts the writes in flight and drops every generation queued so
// far. Generations recorded afterwards are written as usual.
func (r *Recorder) CancelAll() {
	r.mu.Lock()
	r.discarded = r.seq
	cancels := make([]context.CancelFunc, 0, len(r.contexts))
	for _, cancel := range r.contexts {
		cancels = append(cancels, cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Close stops accepting generations and waits until the queued ones are written
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.requests)
		r.mu.Unlock()
	})
	<-r.done
}

func (r *Recorder) processRequests() {
	defer close(r.done)
	for req := range r.requests {
		err := r.handleRequest(req)
		switch {
		case errors.Is(err, context.Canceled):
			r.log.Debug().Str("generation", req.generation.ID).Msg("generation write cancelled")
		case err != nil:
			r.log.Error().Err(err).Str("generation", req.generation.ID).Msg("failed to record generation")
		}
	}
}

func (r *Recorder) handleRequest(req writeRequest) error {
	id := req.generation.ID
	r.mu.Lock()
	if req.seq <= r.discarded {
		r.mu.Unlock()
		r.log.Debug().Str("generation", id).Msg("dropping cancelled generation")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	r.contexts[id] = cancel
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.contexts, id)
		r.mu.Unlock()
		cancel()
	}()

	return r.write(ctx, req)
}

func (r *Recorder) write(ctx context.Context, req writeRequest) error {
	g := req.generation
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO generations (id, conversation_id, question, created_at) VALUES (?, ?, ?, ?)`,
		g.ID, g.ConversationID, g.Question, req.at.UTC(),
	); err != nil {
		return errors.Wrap(err, "insert generation")
	}

	for i, s := range g.Sessions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (generation_id, position, model_id, model_name, brand, state, content, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			g.ID, i, s.Model.ID, s.Model.Name, s.Model.Brand, s.State.String(), s.Displayed, s.Err,
		); err != nil {
			return errors.Wrapf(err, "insert answer of %s", s.Model.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	r.log.Debug().Str("generation", g.ID).Int("answers", len(g.Sessions)).Msg("generation recorded")
	return nil
}
