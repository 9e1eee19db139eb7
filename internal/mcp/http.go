package mcp

import (
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

const (
	// DefaultEndpointPath is where the streamable-HTTP MCP transport is
	// mounted.
	DefaultEndpointPath = "/mcp"

	// MaxRequestBodyBytes bounds a single tool-call request body.
	MaxRequestBodyBytes = 10 << 20 // 10 MiB

	// DefaultSessionTimeout and DefaultSessionCleanupInterval govern how
	// long an idle streamable-HTTP session is kept and how often expired
	// sessions are swept.
	DefaultSessionTimeout         = 30 * time.Minute
	DefaultSessionCleanupInterval = 5 * time.Minute
)

// HTTPOptions configures Server.HTTPHandler.
type HTTPOptions struct {
	EndpointPath string
	Sessions     *SessionLimits
}

// HTTPHandler builds the full HTTP mux: the MCP streamable-HTTP transport
// plus the GET /health endpoint, with every request body capped at
// MaxRequestBodyBytes.
func (s *Server) HTTPHandler(opts HTTPOptions) http.Handler {
	if opts.EndpointPath == "" {
		opts.EndpointPath = DefaultEndpointPath
	}

	streamable := server.NewStreamableHTTPServer(
		s.mcpServer,
		server.WithEndpointPath(opts.EndpointPath),
	)

	mux := http.NewServeMux()
	mux.Handle(opts.EndpointPath, streamable)
	mux.HandleFunc("GET /health", s.HealthHandler(opts.Sessions))

	return maxBytesMiddleware(mux)
}

// ServeStdio runs the server over stdio, for clients that launch MAGMA as
// a subprocess rather than speaking HTTP to it.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func maxBytesMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodyBytes)
		next.ServeHTTP(w, r)
	})
}
