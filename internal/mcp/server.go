// Package mcp exposes the MAGMA retrieval engine as an MCP tool surface:
// write primitives for each graph, read primitives for each expansion
// strategy, and the two composite tools (subgraph_merge, linearize_context)
// that a client can chain into a full retrieval without round-tripping
// through an LLM classifier.
package mcp

import (
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/moolen/magma/internal/classify"
	"github.com/moolen/magma/internal/facades"
	"github.com/moolen/magma/internal/logging"
	"github.com/moolen/magma/internal/magma"
	"github.com/moolen/magma/internal/metrics"
	"github.com/moolen/magma/internal/store"
	"github.com/moolen/magma/internal/synth"
)

// Options configures a Server. Entity, Semantic, Temporal, Causal, Store
// and Executor are required. CrossLinker, Classifier, Synthesizer and
// Metrics are optional and are only stored on the Server; no registered
// tool or prompt uses them.
type Options struct {
	Version string

	Store       store.Adapter
	Entity      *facades.Entity
	Semantic    *facades.Semantic
	Temporal    *facades.Temporal
	Causal      *facades.Causal
	CrossLinker *facades.CrossLinker
	Executor    *magma.Executor

	Classifier  classify.Classifier
	Synthesizer synth.Synthesizer

	Metrics *metrics.Metrics
}

// Server wraps an mcp-go MCPServer with the MAGMA tool and prompt catalog.
type Server struct {
	mcpServer *server.MCPServer

	store       store.Adapter
	entity      *facades.Entity
	semantic    *facades.Semantic
	temporal    *facades.Temporal
	causal      *facades.Causal
	crosslinker *facades.CrossLinker
	executor    *magma.Executor
	classifier  classify.Classifier
	synthesizer synth.Synthesizer
	metrics     *metrics.Metrics

	logger    *logging.Logger
	startedAt time.Time
}

// NewServer constructs a Server and registers the full tool and prompt
// catalog against the underlying mcp-go server.
func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil || opts.Entity == nil || opts.Semantic == nil ||
		opts.Temporal == nil || opts.Causal == nil || opts.Executor == nil {
		return nil, fmt.Errorf("mcp.NewServer: store, entity, semantic, temporal, causal and executor are required")
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	mcpServer := server.NewMCPServer(
		"MAGMA MCP Server",
		opts.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:   mcpServer,
		store:       opts.Store,
		entity:      opts.Entity,
		semantic:    opts.Semantic,
		temporal:    opts.Temporal,
		causal:      opts.Causal,
		crosslinker: opts.CrossLinker,
		executor:    opts.Executor,
		classifier:  opts.Classifier,
		synthesizer: opts.Synthesizer,
		metrics:     opts.Metrics,
		logger:      logging.GetLogger("mcp.server"),
		startedAt:   time.Now(),
	}

	s.registerTools()
	s.registerPrompts()

	return s, nil
}

// MCPServer returns the underlying mcp-go server for stdio/HTTP transports.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// StartedAt reports when the server finished construction, used by the
// health endpoint's uptime field.
func (s *Server) StartedAt() time.Time { return s.startedAt }

// registerTool registers handler under name with the tool's raw JSON
// schema from rawSchemas, panicking if name has no schema.
func (s *Server) registerTool(name, description string, handler server.ToolHandlerFunc) {
	schema, ok := rawSchemas[name]
	if !ok {
		panic(fmt.Sprintf("mcp: no schema registered for tool %s", name))
	}
	tool := mcp.NewToolWithRawSchema(name, description, []byte(schema))
	s.mcpServer.AddTool(tool, handler)
}

func (s *Server) registerTools() {
	// Management
	s.registerTool("get_statistics", "Return node/relationship counts for every graph", s.handleGetStatistics)
	s.registerTool("clear_graph", "Delete all nodes in one graph, or the entire store", s.handleClearGraph)

	// Write primitives
	s.registerTool("remember", "Store a freeform note as a semantic concept", s.handleRemember)
	s.registerTool("add_entity", "Create an entity-graph node", s.handleAddEntity)
	s.registerTool("link_entities", "Create a relationship between two entities", s.handleLinkEntities)
	s.registerTool("add_event", "Record a point-in-time occurrence", s.handleAddEvent)
	s.registerTool("add_fact", "Record a subject-predicate-object triple valid over an interval", s.handleAddFact)
	s.registerTool("add_causal_link", "Record a cause-effect relationship, creating nodes as needed", s.handleAddCausalLink)
	s.registerTool("add_concept", "Create a semantic concept without requiring a natural-language note", s.handleAddConcept)

	// Retrieval primitives
	s.registerTool("semantic_search", "Vector-search the semantic graph for concepts matching a query", s.handleSemanticSearch)
	s.registerTool("entity_lookup", "Expand the entity graph outward from a set of entity ids", s.handleEntityLookup)
	s.registerTool("temporal_expand", "Collect events and facts for a set of entities within a time window", s.handleTemporalExpand)
	s.registerTool("causal_expand", "Traverse the causal graph upstream/downstream from a set of entities", s.handleCausalExpand)
	s.registerTool("subgraph_merge", "Merge multiple graph views into one ranked, deduplicated subgraph", s.handleSubgraphMerge)
	s.registerTool("linearize_context", "Render a merged subgraph into an intent-appropriate text block", s.handleLinearizeContext)
}

func textResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

func errResult(op string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", op, err))
}

func validationResult(errs argErrors) *mcp.CallToolResult {
	return mcp.NewToolResultError(errs.render())
}

// argumentsOf extracts the call's arguments as a plain map. mcp-go decodes
// the wire JSON into request.Params.Arguments as interface{}; it is a
// map[string]interface{} for every well-formed call.
func argumentsOf(request mcp.CallToolRequest) map[string]interface{} {
	if m, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}
