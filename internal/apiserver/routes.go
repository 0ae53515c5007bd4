package apiserver

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MCPPath is where the MCP streamable HTTP endpoint is mounted.
const MCPPath = "/v1/mcp"

func (s *Server) registerHandlers() {
	s.router.HandleFunc("/health", s.withMethod(http.MethodGet, s.handleHealth))
	s.router.HandleFunc("/ready", s.withMethod(http.MethodGet, s.handleReady))
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.HandleFunc("/v1/agents", s.withMethod(http.MethodGet, s.handleListAgents))
	s.router.HandleFunc("/v1/sessions", s.withMethod(http.MethodPost, s.handleCreateSession))
	s.router.HandleFunc("/v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r)
		case http.MethodDelete:
			s.handleDeleteSession(w, r)
		default:
			s.handleMethodNotAllowed(w, r)
		}
	})
	s.router.HandleFunc("/v1/sessions/{id}/credential", s.withMethod(http.MethodPost, s.handleSetCredential))
	s.router.HandleFunc("/v1/sessions/{id}/queries", s.withMethod(http.MethodPost, s.handleSubmitQuery))

	s.registerMCPHandler()
}

func (s *Server) registerMCPHandler() {
	if s.mcpServer == nil {
		s.logger.Debug("MCP server not configured, skipping %s", MCPPath)
		return
	}
	s.router.Handle(MCPPath, server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(MCPPath),
		server.WithStateLess(true),
	))
	s.logger.Info("MCP endpoint registered at %s", MCPPath)
}
