package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/supervisor-agent/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	"github.com/tanpawarit/supervisor-agent/chat"
)

//go:embed templates/index.html
var templatesFS embed.FS

const (
	shutdownTimeout    = 10 * time.Second
	defaultSessionIdle = 2 * time.Hour
)

type Server struct {
	cfg      Config
	runner   chat.Runner
	sessions *sessionStore
	page     *template.Template
	metrics  http.Handler
}

type Option func(*Server)

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func New(runner chat.Runner, cfg Config, opts ...Option) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8501"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = defaultSessionIdle
	}

	page, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		runner:   runner,
		sessions: newSessionStore(),
		page:     page,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return requestLogger(mux)
}

// ListenAndServe blocks until ctx is done or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	done := make(chan struct{})
	defer close(done)
	go s.sessions.janitor(done, s.cfg.SessionIdle, sessionSweepInterval(s.cfg.SessionIdle))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("web ui listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info().Msg("web ui shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func sessionSweepInterval(idle time.Duration) time.Duration {
	return max(idle/4, time.Minute)
}

// converse runs one chat turn against the session history. Turns of one
// session run one at a time. Failed runs are recorded as an apology so the
// conversation stays in order.
func (s *Server) converse(
	ctx context.Context,
	sess *session,
	message string,
	obs contractx.Observer,
) (chat.Message, error) {
	sess.turn.Lock()
	defer sess.turn.Unlock()
	sess.touch(s.sessions.now())
	defer func() { sess.touch(s.sessions.now()) }()

	history := sess.history
	task := chat.BuildTask(history.Lines(), message)
	history.Add(chat.RoleUser, message)

	var runOpts []orchestratorx.RunOption
	if obs != nil {
		runOpts = append(runOpts, orchestratorx.WithObserver(obs))
	}

	res, err := s.runner.Run(ctx, task, runOpts...)
	if err != nil {
		log.Error().Err(err).Msg("chat turn failed")
		return history.Add(chat.RoleAssistant, chat.ErrorAnswer(err)), err
	}

	names := res.Contributors()
	agents := make([]string, 0, len(names))
	for _, name := range names {
		agents = append(agents, string(name))
	}
	return history.Add(chat.RoleAssistant, res.FinalAnswer, agents...), nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the hijacker for websockets.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(started)).
			Msg("http request")
	})
}
