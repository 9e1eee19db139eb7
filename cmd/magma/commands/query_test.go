package commands

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonRPCHandler(t *testing.T, result toolCallResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2.0", req.JSONRPC)
		assert.Equal(t, "tools/call", req.Method)

		resultBody, err := json.Marshal(result)
		require.NoError(t, err)
		resp := jsonRPCResponse{Result: resultBody}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestToolClientCallSuccess(t *testing.T) {
	payload, err := json.Marshal(map[string]interface{}{"matches": []interface{}{}})
	require.NoError(t, err)

	ts := httptest.NewServer(jsonRPCHandler(t, toolCallResult{
		Content: []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{{Type: "text", Text: string(payload)}},
	}))
	defer ts.Close()

	client := newToolClient(ts.URL)
	out, err := client.call(t.Context(), "semantic_search", map[string]interface{}{"query": "why"})
	require.NoError(t, err)
	assert.Contains(t, out, "matches")
}

func TestToolClientCallToolError(t *testing.T) {
	ts := httptest.NewServer(jsonRPCHandler(t, toolCallResult{
		IsError: true,
		Content: []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{{Type: "text", Text: "entity_ids: is required"}},
	}))
	defer ts.Close()

	client := newToolClient(ts.URL)
	_, err := client.call(t.Context(), "entity_lookup", map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity_ids: is required")
}

func TestToolClientCallRPCError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]interface{}{"code": -32601, "message": "method not found"},
		})
	}))
	defer ts.Close()

	client := newToolClient(ts.URL)
	_, err := client.call(t.Context(), "unknown_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestCollectEntityIDsDedupes(t *testing.T) {
	matches := []interface{}{
		map[string]interface{}{"linked_entity_ids": []interface{}{"a", "b"}},
		map[string]interface{}{"linked_entity_ids": []interface{}{"b", "c"}},
		map[string]interface{}{"no_entities": true},
	}
	ids := collectEntityIDs(matches)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestWrapView(t *testing.T) {
	matches := []interface{}{
		map[string]interface{}{
			"concept": map[string]interface{}{"uuid": "c1", "name": "checkout-service"},
			"score":   0.9,
		},
	}
	view := wrapView("semantic", matches)
	assert.Equal(t, "semantic", view["source"])
	nodes := view["nodes"].([]interface{})
	require.Len(t, nodes, 1)
	node := nodes[0].(map[string]interface{})
	assert.Equal(t, "c1", node["uuid"])
	assert.Equal(t, 0.9, node["score"])
}
