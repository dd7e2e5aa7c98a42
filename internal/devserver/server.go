// Package devserver is a local stand-in for the portal backend. It serves the
// endpoints the client consumes, keeps everything in memory and replies to chat
// streams with scripted chunks.
package devserver

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// DefaultChunkDelay is the pause between two streamed chunks
const DefaultChunkDelay = 50 * time.Millisecond

// Script is the scripted reply of one brand
type Script struct {
	Chunks []string
	Err    string // sent as an error event after the chunks when set
}

// DefaultScripts answers the default model selection
func DefaultScripts() map[string]Script {
	return map[string]Script{
		"gpt":    {Chunks: []string{"Hi", " there"}},
		"claude": {Chunks: []string{"Hello", ", how can I help?"}},
		"gemini": {Chunks: []string{"Hey", "! ", "Ask me anything."}},
	}
}

// Option configures a Server
type Option func(*Server)

// WithScripts replaces the per-brand stream replies
func WithScripts(scripts map[string]Script) Option {
	return func(s *Server) { s.scripts = scripts }
}

// WithChunkDelay sets the pause between two streamed chunks
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithSecret sets the HMAC secret used to sign tokens
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithTokenTTL sets the lifetime of issued tokens
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithLogger sets the server logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

type account struct {
	member   models.Member
	password string
}

// Server is the in-memory backend
type Server struct {
	engine  *gin.Engine
	scripts map[string]Script
	delay   time.Duration
	secret  []byte
	ttl     time.Duration
	log     zerolog.Logger

	mu            sync.RWMutex
	accounts      map[string]*account // by email
	conversations map[int64]*conversation
	boards        []*models.Board
	comments      []*models.Comment
	news          []models.News
	jobs          []models.Job
	nextID        int64
}

type conversation struct {
	models.Conversation
	owner int64
}

// New creates a seeded server
func New(opts ...Option) *Server {
	s := &Server{
		scripts:       DefaultScripts(),
		delay:         DefaultChunkDelay,
		secret:        []byte("morningstar-dev-secret"),
		ttl:           24 * time.Hour,
		log:           zerolog.Nop(),
		accounts:      make(map[string]*account),
		conversations: make(map[int64]*conversation),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.seed()
	s.engine = s.routes()
	return s
}

// Handler returns the http handler, e.g. for httptest.NewServer
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	v1 := r.Group("/api/v1")
	v1.POST("/members/login", s.login)
	v1.POST("/members/signup", s.signup)
	v1.GET("/boards", s.listBoards)
	v1.GET("/boards/:id", s.getBoard)
	v1.GET("/boards/:id/comments", s.listComments)
	v1.GET("/news", s.listNews)
	v1.GET("/jobs", s.listJobs)
	v1.GET("/leaderboard", s.leaderboard)

	authed := v1.Group("", s.jwtAuth())
	authed.GET("/members/me", s.me)
	authed.POST("/conversations", s.createConversation)
	authed.GET("/conversations", s.listConversations)
	authed.DELETE("/conversations/:id", s.deleteConversation)
	authed.POST("/conversations/:id/stream", s.streamChat)
	authed.POST("/boards", s.createBoard)
	authed.DELETE("/boards/:id", s.deleteBoard)
	authed.POST("/boards/:id/comments", s.createComment)
	authed.DELETE("/comments/:id", s.deleteComment)
	authed.POST("/payments/ready", s.readyPayment)

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

// Run serves on addr until ctx is done or an interrupt arrives
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			s.log.Info().Msg("received interrupt signal, shutting down")
		case <-egCtx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		s.log.Info().Str("addr", addr).Msg("starting dev server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "listen")
		}
		return nil
	})

	return eg.Wait()
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}
