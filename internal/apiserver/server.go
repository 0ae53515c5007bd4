// Package apiserver serves command-center sessions over HTTP together with
// Prometheus metrics and the MCP endpoint.
package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/moolen/medidesk/internal/logging"
)

// Options configures the API server. Store is required.
type Options struct {
	Port  int
	Store *Store
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// MCPServer is mounted at MCPPath when set.
	MCPServer *server.MCPServer
}

// Server is the HTTP front end. It implements lifecycle.Component.
type Server struct {
	port      int
	server    *http.Server
	router    *http.ServeMux
	store     *Store
	gatherer  prometheus.Gatherer
	mcpServer *server.MCPServer
	logger    *logging.Logger
	ready     atomic.Bool
}

// New creates the server and registers all routes.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("apiserver: store is required")
	}
	s := &Server{
		port:      opts.Port,
		router:    http.NewServeMux(),
		store:     opts.Store,
		gatherer:  opts.Gatherer,
		mcpServer: opts.MCPServer,
		logger:    logging.GetLogger("apiserver"),
	}
	s.registerHandlers()

	// Writes stay open long enough for ?wait=true on a slow backend.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.accessLog(s.corsMiddleware(s.router))
}

// Start binds the port and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error: %v", err)
		}
	}()
	s.ready.Store(true)
	s.logger.Info("API server listening on %s", ln.Addr())
	return nil
}

// Stop drains HTTP connections and closes all sessions.
func (s *Server) Stop(ctx context.Context) error {
	s.ready.Store(false)
	err := s.server.Shutdown(ctx)
	s.store.Close()
	if err != nil {
		return fmt.Errorf("shutdown API server: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) Name() string {
	return "apiserver"
}

// MarkReady sets the /ready status. Start marks the server ready.
func (s *Server) MarkReady(ready bool) {
	s.ready.Store(ready)
}
