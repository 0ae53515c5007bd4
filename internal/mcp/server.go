// Package mcp exposes the coordinator as MCP tools so other agents can ask
// it where a hospital request belongs.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/moolen/medidesk/internal/agents"
	"github.com/moolen/medidesk/internal/delegation"
	"github.com/moolen/medidesk/internal/logging"
	"github.com/moolen/medidesk/internal/simulator"
)

// Tool is one MCP tool implementation.
type Tool interface {
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

// ServerOptions configures the MCP server.
type ServerOptions struct {
	Classifier delegation.Classifier
	// Credential is the backend key used for every delegate_request call.
	Credential string
	Version    string
	// Simulate defaults to simulator.Simulate.
	Simulate func(agents.Identity, string) string
}

// Server wraps an mcp-go server with the medidesk tools registered.
type Server struct {
	mcpServer *server.MCPServer
	tools     map[string]Tool
	logger    *logging.Logger
}

// NewServer registers list_agents and delegate_request.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Classifier == nil {
		return nil, errors.New("mcp: classifier is required")
	}
	if opts.Simulate == nil {
		opts.Simulate = simulator.Simulate
	}

	s := &Server{
		mcpServer: server.NewMCPServer(
			"medidesk",
			opts.Version,
			server.WithToolCapabilities(false),
			server.WithLogging(),
		),
		tools:  make(map[string]Tool),
		logger: logging.GetLogger("mcp"),
	}

	s.registerTool(
		"list_agents",
		"List the command-center agents: the coordinator and the specialists it delegates to",
		listAgentsTool{},
		map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	)
	s.registerTool(
		"delegate_request",
		"Route a hospital front-desk request to the responsible specialist and return its reply",
		&delegateTool{
			classifier: opts.Classifier,
			credential: opts.Credential,
			simulate:   opts.Simulate,
			logger:     s.logger,
		},
		map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The request in natural language, e.g. 'Cek riwayat lab pasien'",
				},
			},
			"required": []string{"query"},
		},
	)
	return s, nil
}

// MCPServer returns the underlying server for transport wiring.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTool(name, description string, tool Tool, inputSchema map[string]interface{}) {
	s.tools[name] = tool

	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		panic(fmt.Sprintf("schema for tool %s: %v", name, err))
	}
	s.mcpServer.AddTool(mcp.NewToolWithRawSchema(name, description, schemaJSON), s.createToolHandler(name, tool))
}

func (s *Server) createToolHandler(name string, tool Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			s.logger.Debug("Tool %s failed: %v", name, err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		resultJSON, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

type listAgentsTool struct{}

func (listAgentsTool) Execute(context.Context, json.RawMessage) (interface{}, error) {
	return agents.All(), nil
}

// DelegateResult is the delegate_request tool output.
type DelegateResult struct {
	FunctionName string          `json:"function_name"`
	Args         map[string]any  `json:"args"`
	Agent        agents.Identity `json:"agent"`
	Secure       bool            `json:"secure"`
	Response     string          `json:"response"`
}

type delegateInput struct {
	Query string `json:"query"`
}

type delegateTool struct {
	classifier delegation.Classifier
	credential string
	simulate   func(agents.Identity, string) string
	logger     *logging.Logger
}

func (t *delegateTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	var in delegateInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, errors.New("query is empty")
	}
	if t.credential == "" {
		return nil, errors.New("no backend credential configured")
	}

	result := t.classifier.Classify(ctx, t.credential, in.Query)
	if !result.IsDelegation() {
		return nil, fmt.Errorf("delegation failed: %s", result.Message)
	}

	agent := delegation.Resolve(result.FunctionName)
	if !delegation.Known(result.FunctionName) {
		t.logger.Warn("Unrecognized function %q. Falling back to %s.", result.FunctionName, agent.DisplayName())
	}
	return DelegateResult{
		FunctionName: result.FunctionName,
		Args:         result.Args,
		Agent:        agent,
		Secure:       agents.MustGet(agent).Secure,
		Response:     t.simulate(agent, in.Query),
	}, nil
}
