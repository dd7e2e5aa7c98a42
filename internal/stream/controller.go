package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

var (
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrNoModels       = errors.New("no model selected")
	ErrNoToken        = errors.New("not logged in")
	ErrNoConversation = errors.New("no conversation")
	ErrClosed         = errors.New("controller is closed")
)

// DefaultRevealInterval is the time between two revealed runes
const DefaultRevealInterval = 20 * time.Millisecond

// Submission is one question sent to a fixed set of models
type Submission struct {
	ConversationID int64
	Token          string
	Question       string
	Models         []models.ModelInfo
}

func (s Submission) validate() error {
	if strings.TrimSpace(s.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(s.Models) == 0 {
		return ErrNoModels
	}
	if s.Token == "" {
		return ErrNoToken
	}
	if s.ConversationID == 0 {
		return ErrNoConversation
	}
	return nil
}

// Generation is the settled outcome of one submission
type Generation struct {
	ID             string
	ConversationID int64
	Question       string
	Sessions       []SessionView
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces the real clock, mostly for tests
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRevealInterval sets the time between two revealed runes
func WithRevealInterval(d time.Duration) Option {
	return func(c *Controller) { c.interval = d }
}

// WithLogger sets the controller logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithSettledHook registers fn to run once every session of a generation is
// terminal. fn runs on the loop goroutine and must not block.
func WithSettledHook(fn func(Generation)) Option {
	return func(c *Controller) { c.onSettled = fn }
}

type requestKind int

const (
	requestStart requestKind = iota
	requestCancelAll
)

type request struct {
	kind       requestKind
	ctx        context.Context
	submission Submission
	reply      chan error
}

type revealTimer struct {
	id     uint64
	ticker Ticker
	stop   chan struct{}
}

// Controller runs every stream of the current generation
type Controller struct {
	transport Transport
	clock     Clock
	interval  time.Duration
	log       zerolog.Logger
	onSettled func(Generation)

	requests  chan request
	inbox     chan Event
	updates   chan struct{}
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	mu    sync.RWMutex
	views []SessionView

	// owned by the loop goroutine
	generation string
	conv       int64
	question   string
	settled    bool
	order      []string
	sessions   map[string]*session
	handles    map[string]context.CancelFunc
	timers     map[string]*revealTimer
	nextTimer  uint64
}

// NewController creates a controller and starts its loop
func NewController(transport Transport, opts ...Option) *Controller {
	c := &Controller{
		transport: transport,
		clock:     RealClock(),
		interval:  DefaultRevealInterval,
		log:       zerolog.Nop(),
		requests:  make(chan request),
		inbox:     make(chan Event, 64),
		updates:   make(chan struct{}, 1),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
		sessions:  make(map[string]*session),
		handles:   make(map[string]context.CancelFunc),
		timers:    make(map[string]*revealTimer),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.run()
	return c
}

// Start cancels the current generation and opens one stream per model. It
// returns once every new session is streaming.
func (c *Controller) Start(ctx context.Context, sub Submission) error {
	if err := sub.validate(); err != nil {
		return err
	}
	return c.do(ctx, request{kind: requestStart, ctx: ctx, submission: sub})
}

// CancelAll cancels every outstanding stream. Safe without active sessions.
func (c *Controller) CancelAll() error {
	return c.do(context.Background(), request{kind: requestCancelAll})
}

func (c *Controller) do(ctx context.Context, req request) error {
	req.reply = make(chan error, 1)
	select {
	case c.requests <- req:
	case <-c.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-c.stopped:
		return ErrClosed
	}
}

// Close tears the controller down: all streams are cancelled, all tickers
// stopped, and the state is frozen. Updates is closed afterwards.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	<-c.stopped
}

// Snapshot returns the sessions of the current generation in selection order
func (c *Controller) Snapshot() []SessionView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SessionView, len(c.views))
	copy(out, c.views)
	return out
}

// Session returns the view for one model of the current generation
func (c *Controller) Session(model string) (SessionView, bool) {
	for _, v := range c.Snapshot() {
		if v.Model.ID == model {
			return v, true
		}
	}
	return SessionView{}, false
}

// Updates signals after every state change; signals are coalesced
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) run() {
	defer close(c.stopped)
	defer close(c.updates)

	for {
		select {
		case req := <-c.requests:
			err := c.handle(req)
			c.publish()
			req.reply <- err
		case ev := <-c.inbox:
			c.apply(ev)
			c.publish()
		case <-c.quit:
			c.teardown()
			return
		}
	}
}

func (c *Controller) handle(req request) error {
	switch req.kind {
	case requestStart:
		c.begin(req.ctx, req.submission)
	case requestCancelAll:
		c.cancelAll()
	}
	return nil
}

func (c *Controller) begin(ctx context.Context, sub Submission) {
	c.cancelAll()

	c.generation = uuid.New().String()
	c.conv = sub.ConversationID
	c.question = sub.Question
	c.settled = false
	c.order = c.order[:0]
	c.sessions = make(map[string]*session, len(sub.Models))

	// the stream outlives the Start call; only its values are kept
	base := context.WithoutCancel(ctx)
	for _, m := range sub.Models {
		if _, dup := c.sessions[m.ID]; dup {
			continue
		}
		c.order = append(c.order, m.ID)
		c.sessions[m.ID] = newSession(m, c.generation)

		streamCtx, cancel := context.WithCancel(base)
		c.handles[m.ID] = cancel
		go c.pump(streamCtx, c.generation, m, StreamRequest{
			ConversationID: sub.ConversationID,
			Brand:          m.Brand,
			Message:        sub.Question,
			Token:          sub.Token,
		})
	}

	c.log.Debug().
		Str("generation", c.generation).
		Int64("conversation", sub.ConversationID).
		Int("models", len(c.order)).
		Msg("generation started")
}

// cancelAll signals every handle, clears both registries and forces every
// session terminal
func (c *Controller) cancelAll() {
	for id, cancel := range c.handles {
		cancel()
		delete(c.handles, id)
	}
	for id := range c.timers {
		c.stopTimer(id)
	}
	for _, s := range c.sessions {
		s.cancel()
	}
	c.checkSettled()
}

// teardown releases every handle and ticker without touching session state
func (c *Controller) teardown() {
	for id, cancel := range c.handles {
		cancel()
		delete(c.handles, id)
	}
	for id := range c.timers {
		c.stopTimer(id)
	}
	c.log.Debug().Str("generation", c.generation).Msg("controller closed")
}

// pump forwards one transport stream into the inbox
func (c *Controller) pump(ctx context.Context, generation string, model models.ModelInfo, req StreamRequest) {
	events, err := c.transport.Stream(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			c.forward(ctx, Event{Kind: EventError, Err: err.Error(), Model: model.ID, Generation: generation})
		}
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					c.forward(ctx, Event{Kind: EventComplete, Model: model.ID, Generation: generation})
				}
				return
			}
			ev.Model = model.ID
			ev.Generation = generation
			if !c.forward(ctx, ev) {
				return
			}
			if ev.Kind == EventComplete || ev.Kind == EventError {
				return
			}
		}
	}
}

func (c *Controller) forward(ctx context.Context, ev Event) bool {
	select {
	case c.inbox <- ev:
		return true
	case <-ctx.Done():
		return false
	case <-c.quit:
		return false
	}
}

func (c *Controller) apply(ev Event) {
	if ev.Generation != c.generation {
		c.log.Debug().
			Str("model", ev.Model).
			Str("kind", ev.Kind.String()).
			Msg("dropping event from superseded generation")
		return
	}
	s, ok := c.sessions[ev.Model]
	if !ok {
		return
	}

	switch ev.Kind {
	case EventChunk:
		s.appendChunk(ev.Text)
	case EventComplete:
		s.complete()
		c.release(ev.Model)
	case EventError:
		c.log.Warn().Str("model", ev.Model).Str("error", ev.Err).Msg("stream failed")
		s.fail(ev.Err)
		c.release(ev.Model)
	case EventTick:
		if ev.timer != s.timer {
			return
		}
		s.tick(ev.At, c.interval)
	}

	c.syncTimer(ev.Model, s)
	c.checkSettled()
}

// release drops the handle of a finished stream
func (c *Controller) release(model string) {
	if cancel, ok := c.handles[model]; ok {
		cancel()
		delete(c.handles, model)
	}
}

// syncTimer keeps exactly one ticker running while a session has text to reveal
func (c *Controller) syncTimer(model string, s *session) {
	if c.interval <= 0 {
		s.reveal = Advance(s.reveal, 0, 0)
		s.settle()
		return
	}
	want := s.wantsTicks()
	_, running := c.timers[model]
	switch {
	case want && !running:
		c.startTimer(model, s)
	case !want && running:
		c.stopTimer(model)
	}
}

func (c *Controller) startTimer(model string, s *session) {
	c.stopTimer(model)

	c.nextTimer++
	t := &revealTimer{
		id:     c.nextTimer,
		ticker: c.clock.NewTicker(c.interval),
		stop:   make(chan struct{}),
	}
	c.timers[model] = t
	s.timer = t.id
	s.lastTick = c.clock.Now()

	go func(generation string) {
		for {
			select {
			case at := <-t.ticker.C():
				ev := Event{Kind: EventTick, Model: model, Generation: generation, At: at, timer: t.id}
				select {
				case c.inbox <- ev:
				case <-t.stop:
					return
				case <-c.quit:
					return
				}
			case <-t.stop:
				return
			case <-c.quit:
				return
			}
		}
	}(c.generation)
}

func (c *Controller) stopTimer(model string) {
	t, ok := c.timers[model]
	if !ok {
		return
	}
	t.ticker.Stop()
	close(t.stop)
	delete(c.timers, model)
	if s, ok := c.sessions[model]; ok && s.timer == t.id {
		s.timer = 0
	}
}

func (c *Controller) checkSettled() {
	if c.settled || len(c.order) == 0 {
		return
	}
	for _, id := range c.order {
		if !c.sessions[id].state.Terminal() {
			return
		}
	}
	c.settled = true

	if c.onSettled == nil {
		return
	}
	gen := Generation{
		ID:             c.generation,
		ConversationID: c.conv,
		Question:       c.question,
		Sessions:       make([]SessionView, 0, len(c.order)),
	}
	for _, id := range c.order {
		gen.Sessions = append(gen.Sessions, c.sessions[id].view())
	}
	c.onSettled(gen)
}

func (c *Controller) publish() {
	views := make([]SessionView, 0, len(c.order))
	for _, id := range c.order {
		views = append(views, c.sessions[id].view())
	}

	c.mu.Lock()
	c.views = views
	c.mu.Unlock()

	select {
	case c.updates <- struct{}{}:
	default:
	}
}
