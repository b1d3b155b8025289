package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/vidq/internal/events"
	"github.com/tanq16/vidq/internal/repository"
	"github.com/tanq16/vidq/internal/utils"
)

type TaskStore interface {
	Create(ctx context.Context, task utils.Task) error
	Get(ctx context.Context, id string) (*repository.Video, error)
	List(ctx context.Context, status utils.DownloadStatus) ([]repository.Video, error)
}

type Queue interface {
	Submit(task utils.Task) string
	RequestStop(id string)
}

type Limits interface {
	MaxRunner() int
	SetMaxRunner(n int) error
}

type Server struct {
	addr     string
	tasks    TaskStore
	queue    Queue
	limits   Limits
	bus      events.Subscriber
	gatherer prometheus.Gatherer
}

func New(addr string, tasks TaskStore, queue Queue, limits Limits, bus events.Subscriber, gatherer prometheus.Gatherer) *Server {
	return &Server{
		addr:     addr,
		tasks:    tasks,
		queue:    queue,
		limits:   limits,
		bus:      bus,
		gatherer: gatherer,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tasks", s.handleAdd)
	mux.HandleFunc("GET /api/tasks", s.handleList)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGet)
	mux.HandleFunc("POST /api/tasks/{id}/stop", s.handleStop)
	mux.HandleFunc("GET /api/config/max-runner", s.handleGetLimit)
	mux.HandleFunc("PUT /api/config/max-runner", s.handleSetLimit)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/ws", s.handleSocket)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is cancelled, then shuts down
// gracefully. Request contexts derive from ctx, so event streams end with it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("op", "server/Serve").Msgf("Listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
