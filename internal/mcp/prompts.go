package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	explainWhy := mcp.Prompt{
		Name:        "explain_why",
		Description: "Explain why something happened using the causal graph and the full retrieval pipeline",
		Arguments: []mcp.PromptArgument{
			{Name: "subject", Description: "The event, entity or outcome to explain", Required: true},
			{Name: "depth", Description: "Optional causal traversal depth (default 3)", Required: false},
		},
	}
	s.mcpServer.AddPrompt(explainWhy, s.handleExplainWhyPrompt)

	exploreTopic := mcp.Prompt{
		Name:        "explore_topic",
		Description: "Open-ended exploration of a topic across every graph",
		Arguments: []mcp.PromptArgument{
			{Name: "topic", Description: "The subject to explore", Required: true},
			{Name: "focus", Description: "Optional angle to emphasize (e.g. 'timeline', 'relationships')", Required: false},
		},
	}
	s.mcpServer.AddPrompt(exploreTopic, s.handleExploreTopicPrompt)
}

func (s *Server) handleExplainWhyPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	subject := request.Params.Arguments["subject"]
	depth := request.Params.Arguments["depth"]
	if depth == "" {
		depth = "3"
	}

	text := fmt.Sprintf(
		"Explain why %q happened. Start with semantic_search to find the relevant concept, "+
			"then entity_lookup and causal_expand (depth=%s, direction=upstream) from the matched "+
			"entities to gather causes, then subgraph_merge the views and linearize_context with "+
			"intent=WHY before answering. Cite the specific causal links you used.",
		subject, depth,
	)

	return &mcp.GetPromptResult{
		Description: "Causal explanation workflow",
		Messages: []mcp.PromptMessage{
			{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: text}},
		},
	}, nil
}

func (s *Server) handleExploreTopicPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := request.Params.Arguments["topic"]
	focus := request.Params.Arguments["focus"]

	text := fmt.Sprintf(
		"Explore %q broadly. Run semantic_search, then fan out with entity_lookup, "+
			"temporal_expand and causal_expand from whatever entities the search surfaces. "+
			"Merge every view with subgraph_merge and linearize_context with intent=EXPLORE.",
		topic,
	)
	if focus != "" {
		text += fmt.Sprintf(" Emphasize %q in the final answer.", focus)
	}

	return &mcp.GetPromptResult{
		Description: "Open-ended topic exploration workflow",
		Messages: []mcp.PromptMessage{
			{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: text}},
		},
	}, nil
}
