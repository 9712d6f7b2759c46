package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/esmin/pkg/config"
)

// Server wraps the MCP server and registers the esmin analysis tools.
type Server struct {
	server *mcp.Server
	config *config.Config
}

// Option configures a Server.
type Option func(*Server)

// WithConfig sets the configuration used by every tool call.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		s.config = cfg
	}
}

// NewServer creates a new MCP server with all esmin tools registered.
func NewServer(version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "esmin",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}

	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools adds the analysis tools to the server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "detect_features",
		Description: describeDetectFeatures(),
	}, s.handleDetectFeatures)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "minimum_edition",
		Description: describeMinimumEdition(),
	}, s.handleMinimumEdition)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check_compatibility",
		Description: describeCheckCompatibility(),
	}, s.handleCheckCompatibility)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_catalog",
		Description: describeListCatalog(),
	}, s.handleListCatalog)
}
