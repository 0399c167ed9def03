// Package mcpserver exposes hoist over the Model Context Protocol.
package mcpserver

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ccworks/hoist/pkg/analyzer/magicstrings"
	"github.com/ccworks/hoist/pkg/config"
)

// resultCacheSize bounds how many solved documents the server remembers.
const resultCacheSize = 256

// Server wraps the MCP server and registers the hoist tools.
type Server struct {
	server  *mcp.Server
	config  *config.Config
	logger  *zap.Logger
	results *lru.Cache[string, *magicstrings.Result]
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration tool calls start from.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.config = cfg
		}
	}
}

// WithLogger sets the diagnostic logger. Stdout carries the protocol, so
// the logger must write elsewhere.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server with all hoist tools registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "hoist",
			Version: version,
		},
		nil,
	)

	// lru.New only fails for a non-positive size.
	results, _ := lru.New[string, *magicstrings.Result](resultCacheSize)

	s := &Server{
		server:  server,
		config:  config.DefaultConfig(),
		logger:  zap.NewNop(),
		results: results,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the hoist tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "hoist_magic_strings",
		Description: describeHoist(),
	}, s.handleHoist)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_magic_strings",
		Description: describeAnalyze(),
	}, s.handleAnalyze)
}
