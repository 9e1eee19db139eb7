package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	queryServerURL   string
	queryIntent      string
	queryMaxTokens   int
	queryDepth       int
	queryInteractive bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Run a one-shot or interactive query against a running MAGMA server",
	Long: `query drives the same tool chain an MCP client would: semantic_search
for seeds, entity_lookup/temporal_expand/causal_expand for fan-out,
subgraph_merge to rank and dedupe, and linearize_context to render the
result. It prints every stage's node count so the pipeline's behavior is
visible, not just its final answer.

With --interactive, no question argument is needed: a small REPL keeps a
scrollback of every question and answer so the pipeline can be probed
repeatedly against the same running server.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryServerURL, "server", "http://localhost:8089", "base URL of a running MAGMA server")
	queryCmd.Flags().StringVar(&queryIntent, "intent", "EXPLORE", "one of: WHY, WHEN, WHO, WHAT, EXPLORE")
	queryCmd.Flags().IntVar(&queryMaxTokens, "max-tokens", 4000, "token budget for the linearized answer")
	queryCmd.Flags().IntVar(&queryDepth, "depth", 2, "traversal depth for entity/causal expansion")
	queryCmd.Flags().BoolVar(&queryInteractive, "interactive", false, "open a REPL instead of running a single query")
}

var (
	queryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D4FF"))
	queryStageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

func runQuery(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}
	if queryInteractive {
		return runInteractiveQuery(queryServerURL, queryIntent, queryMaxTokens, queryDepth)
	}
	if len(args) != 1 {
		return fmt.Errorf("query requires exactly one question argument, or --interactive")
	}
	question := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	client := newToolClient(queryServerURL)

	fmt.Println(queryTitleStyle.Render("MAGMA query: ") + question)

	search, err := client.call(ctx, "semantic_search", map[string]interface{}{
		"query": question,
		"limit": 10,
	})
	if err != nil {
		return fmt.Errorf("semantic_search: %w", err)
	}
	matches, _ := search["matches"].([]interface{})
	entityIDs := collectEntityIDs(matches)
	fmt.Println(queryStageStyle.Render(fmt.Sprintf("  semantic_search: %d matches, %d seed entities", len(matches), len(entityIDs))))

	views := []interface{}{wrapView("semantic", matches)}

	if len(entityIDs) > 0 {
		for _, stage := range []struct {
			tool   string
			source string
			args   map[string]interface{}
		}{
			{"entity_lookup", "entity", map[string]interface{}{"entity_ids": entityIDs, "depth": queryDepth}},
			{"temporal_expand", "temporal", map[string]interface{}{"entity_ids": entityIDs}},
			{"causal_expand", "causal", map[string]interface{}{"entity_ids": entityIDs, "direction": "both", "depth": queryDepth}},
		} {
			result, err := client.call(ctx, stage.tool, stage.args)
			if err != nil {
				return fmt.Errorf("%s: %w", stage.tool, err)
			}
			nodes, _ := result["nodes"].([]interface{})
			fmt.Println(queryStageStyle.Render(fmt.Sprintf("  %s: %d nodes", stage.tool, len(nodes))))
			views = append(views, result)
		}
	}

	merged, err := client.call(ctx, "subgraph_merge", map[string]interface{}{"views": views})
	if err != nil {
		return fmt.Errorf("subgraph_merge: %w", err)
	}
	mergedNodes, _ := merged["nodes"].([]interface{})
	fmt.Println(queryStageStyle.Render(fmt.Sprintf("  subgraph_merge: %d nodes", len(mergedNodes))))

	linearized, err := client.call(ctx, "linearize_context", map[string]interface{}{
		"subgraph":   merged,
		"intent":     queryIntent,
		"max_tokens": queryMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("linearize_context: %w", err)
	}

	text, _ := linearized["text"].(string)
	rendered, err := glamour.Render(text, "dark")
	if err != nil {
		fmt.Println(text)
		return nil
	}
	fmt.Println(rendered)
	return nil
}

func collectEntityIDs(matches []interface{}) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, raw := range matches {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		related, _ := m["linked_entity_ids"].([]interface{})
		for _, r := range related {
			id, ok := r.(string)
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func wrapView(source string, matches []interface{}) map[string]interface{} {
	nodes := make([]interface{}, 0, len(matches))
	for _, raw := range matches {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		concept, _ := m["concept"].(map[string]interface{})
		nodes = append(nodes, map[string]interface{}{
			"uuid":  concept["uuid"],
			"data":  concept,
			"score": m["score"],
		})
	}
	return map[string]interface{}{"source": source, "nodes": nodes}
}

// toolClient speaks the MCP streamable-HTTP JSON-RPC 2.0 protocol directly.
// There is no ecosystem MCP client in the example pack to ground a wrapper
// on, so this stays a thin stdlib net/http + encoding/json caller.
type toolClient struct {
	baseURL string
	http    *http.Client
	nextID  int
}

func newToolClient(baseURL string) *toolClient {
	return &toolClient{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type jsonRPCRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type jsonRPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func (c *toolClient) call(ctx context.Context, tool string, arguments map[string]interface{}) (map[string]interface{}, error) {
	c.nextID++
	body := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      c.nextID,
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      tool,
			"arguments": arguments,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rpcResp jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s", rpcResp.Error.Message)
	}

	var result toolCallResult
	if err := json.Unmarshal(rpcResp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tool result: %w", err)
	}
	if result.IsError {
		if len(result.Content) > 0 {
			return nil, fmt.Errorf("%s", result.Content[0].Text)
		}
		return nil, fmt.Errorf("%s failed", tool)
	}
	if len(result.Content) == 0 {
		return map[string]interface{}{}, nil
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &out); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", tool, err)
	}
	return out, nil
}
