package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/FalkorDB/falkordb-go/v2"
	"github.com/google/uuid"

	"github.com/moolen/magma/internal/logging"
)

// ClientConfig holds connection settings for the FalkorDB-backed adapter.
type ClientConfig struct {
	Host         string
	Port         int
	Password     string
	GraphName    string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	QueryCacheEnabled  bool
	QueryCacheMemoryMB int64
	QueryCacheTTL      time.Duration
}

// DefaultClientConfig returns sane defaults for local development.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:         "localhost",
		Port:         6379,
		GraphName:    "magma",
		MaxRetries:   3,
		DialTimeout:  30 * time.Second,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		PoolSize:     10,

		QueryCacheEnabled:  true,
		QueryCacheMemoryMB: 64,
		QueryCacheTTL:      2 * time.Minute,
	}
}

// falkorClient implements Adapter against a FalkorDB instance.
type falkorClient struct {
	config ClientConfig
	logger *logging.Logger
	db     *falkordb.FalkorDB
	graph  *falkordb.Graph
}

// NewClient builds an Adapter, wrapping it with a read-query cache when
// configured.
func NewClient(config ClientConfig) Adapter {
	client := &falkorClient{
		config: config,
		logger: logging.GetLogger("store.client"),
	}

	if config.QueryCacheEnabled {
		cacheConfig := QueryCacheConfig{
			MaxMemoryMB: config.QueryCacheMemoryMB,
			TTL:         config.QueryCacheTTL,
			Enabled:     true,
		}

		cached, err := NewCachedAdapter(client, cacheConfig, logging.GetLogger("store.cache"))
		if err != nil {
			client.logger.Warn("failed to create query cache, continuing without caching: %v", err)
			return client
		}
		return cached
	}

	return client
}

func (c *falkorClient) Connect(ctx context.Context) error {
	c.logger.Info("connecting to FalkorDB at %s:%d (graph: %s)", c.config.Host, c.config.Port, c.config.GraphName)

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	connOpts := &falkordb.ConnectionOption{
		Addr:         addr,
		Password:     c.config.Password,
		DialTimeout:  c.config.DialTimeout,
		ReadTimeout:  c.config.ReadTimeout,
		WriteTimeout: c.config.WriteTimeout,
		PoolSize:     c.config.PoolSize,
		MaxRetries:   c.config.MaxRetries,
	}

	db, err := falkordb.FalkorDBNew(connOpts)
	if err != nil {
		return fmt.Errorf("create FalkorDB client: %w", err)
	}
	c.db = db
	c.graph = db.SelectGraph(c.config.GraphName)

	c.logger.Info("connected to FalkorDB")
	return nil
}

func (c *falkorClient) Close() error {
	if c.db != nil && c.db.Conn != nil {
		return c.db.Conn.Close()
	}
	return nil
}

func (c *falkorClient) HealthCheck(ctx context.Context) bool {
	if c.graph == nil {
		return false
	}
	_, err := c.graph.Query("RETURN 1", nil, nil)
	return err == nil
}

func (c *falkorClient) Query(ctx context.Context, q Query) (*QueryResult, error) {
	if c.graph == nil {
		return nil, fmt.Errorf("store: not connected")
	}

	var options *falkordb.QueryOptions
	if q.TimeoutMS > 0 {
		options = falkordb.NewQueryOptions().SetTimeout(q.TimeoutMS)
	}

	start := time.Now()
	result, err := c.graph.Query(q.Text, q.Parameters, options)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	qr := convertResult(result)
	qr.Stats.ExecutionTime = elapsed
	return qr, nil
}

// convertResult turns a FalkorDB QueryResult into named records.
func convertResult(result *falkordb.QueryResult) *QueryResult {
	qr := &QueryResult{Records: []Record{}, Metadata: []string{}}

	var keys []string
	for result.Next() {
		rec := result.Record()
		if keys == nil {
			keys = rec.Keys()
		}
		values := rec.Values()
		row := make(Record, len(keys))
		for i, k := range keys {
			if i < len(values) {
				row[k] = values[i]
			}
		}
		qr.Records = append(qr.Records, row)
	}

	qr.Stats.NodesCreated = result.NodesCreated()
	qr.Stats.NodesDeleted = result.NodesDeleted()
	qr.Stats.RelationshipsCreated = result.RelationshipsCreated()
	qr.Stats.RelationshipsDeleted = result.RelationshipsDeleted()
	qr.Stats.PropertiesSet = result.PropertiesSet()
	qr.Stats.LabelsAdded = result.LabelsAdded()

	return qr
}

func (c *falkorClient) CreateNode(ctx context.Context, label NodeLabel, props map[string]interface{}) (string, error) {
	if !ValidIdentifier(string(label)) {
		return "", fmt.Errorf("store: invalid label %q", label)
	}

	id := uuid.NewString()
	withUUID := make(map[string]interface{}, len(props)+1)
	for k, v := range props {
		withUUID[k] = v
	}
	withUUID["uuid"] = id

	query := fmt.Sprintf("CREATE (n:%s $props)", label)
	_, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"props": withUUID}})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *falkorClient) CreateRelationship(ctx context.Context, fromUUID, toUUID string, relType RelationType, props map[string]interface{}) error {
	if !ValidIdentifier(string(relType)) {
		return fmt.Errorf("store: invalid relation type %q", relType)
	}
	if fromUUID == toUUID {
		return fmt.Errorf("store: self-links are prohibited")
	}

	query := fmt.Sprintf(
		"MATCH (a {uuid: $from}), (b {uuid: $to}) CREATE (a)-[r:%s $props]->(b)",
		relType,
	)
	params := map[string]interface{}{
		"from":  fromUUID,
		"to":    toUUID,
		"props": props,
	}
	_, err := c.Query(ctx, Query{Text: query, Parameters: params})
	return err
}

func (c *falkorClient) UpdateNodeProperties(ctx context.Context, label NodeLabel, id string, props map[string]interface{}) error {
	if !ValidIdentifier(string(label)) {
		return fmt.Errorf("store: invalid label %q", label)
	}

	query := fmt.Sprintf("MATCH (n:%s {uuid: $uuid}) SET n += $props", label)
	_, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"uuid": id, "props": props}})
	return err
}

func (c *falkorClient) DeleteNode(ctx context.Context, uuid string) (bool, error) {
	result, err := c.Query(ctx, Query{
		Text:       "MATCH (n {uuid: $uuid}) DETACH DELETE n",
		Parameters: map[string]interface{}{"uuid": uuid},
	})
	if err != nil {
		return false, err
	}
	return result.Stats.NodesDeleted > 0, nil
}

func (c *falkorClient) FindNodeByUUID(ctx context.Context, label NodeLabel, uuid string) (Record, error) {
	query := fmt.Sprintf("MATCH (n:%s {uuid: $uuid}) RETURN n", label)
	result, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"uuid": uuid}})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	return nodeProperties(result.Records[0]["n"])
}

func (c *falkorClient) FindNodesByLabel(ctx context.Context, label NodeLabel, limit int) ([]Record, error) {
	query := fmt.Sprintf("MATCH (n:%s) RETURN n", label)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	result, err := c.Query(ctx, Query{Text: query})
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(result.Records))
	for _, row := range result.Records {
		props, err := nodeProperties(row["n"])
		if err != nil {
			return nil, err
		}
		records = append(records, props)
	}
	return records, nil
}

func (c *falkorClient) VectorSearch(ctx context.Context, indexName string, vector []float32, topK int) ([]VectorMatch, error) {
	parts := strings.SplitN(indexName, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("store: vector index name must be label.attribute, got %q", indexName)
	}
	label, attr := parts[0], parts[1]

	query := fmt.Sprintf(
		"CALL db.idx.vector.queryNodes(:%s, '%s', $topK, vecf32($vector)) YIELD node, score RETURN node, score",
		label, attr,
	)
	result, err := c.Query(ctx, Query{
		Text: query,
		Parameters: map[string]interface{}{
			"topK":   topK,
			"vector": vector,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	matches := make([]VectorMatch, 0, len(result.Records))
	for _, row := range result.Records {
		props, err := nodeProperties(row["node"])
		if err != nil {
			return nil, err
		}
		score, _ := toFloat64(row["score"])
		uuidVal, _ := props["uuid"].(string)
		matches = append(matches, VectorMatch{NodeUUID: uuidVal, Score: score, Record: props})
	}
	return matches, nil
}

func (c *falkorClient) ClearGraph(ctx context.Context) error {
	_, err := c.Query(ctx, Query{
		Text: "MATCH (n) WHERE any(l IN labels(n) WHERE l STARTS WITH 'S_' OR l STARTS WITH 'E_' OR l STARTS WITH 'T_' OR l STARTS WITH 'C_') DETACH DELETE n",
	})
	return err
}

func (c *falkorClient) GetStatistics(ctx context.Context) (*Statistics, error) {
	nodeCounts, err := c.Query(ctx, Query{Text: "MATCH (n) RETURN labels(n)[0] as label, count(n) as count"})
	if err != nil {
		return nil, fmt.Errorf("store: query node counts: %w", err)
	}

	relCount, err := c.Query(ctx, Query{Text: "MATCH ()-[r]->() RETURN count(r) as count"})
	if err != nil {
		return nil, fmt.Errorf("store: query relationship count: %w", err)
	}

	stats := &Statistics{}
	for _, row := range nodeCounts.Records {
		label, _ := row["label"].(string)
		count, _ := toFloat64(row["count"])
		switch NodeLabel(label) {
		case LabelConcept:
			stats.SemanticNodes = int(count)
		case LabelEntity:
			stats.EntityNodes = int(count)
		case LabelTemporalEvent, LabelTemporalFact:
			stats.TemporalNodes += int(count)
		case LabelCausalNode:
			stats.CausalNodes = int(count)
		}
	}
	if len(relCount.Records) > 0 {
		total, _ := toFloat64(relCount.Records[0]["count"])
		stats.TotalRelationships = int(total)
	}

	return stats, nil
}

func (c *falkorClient) InitializeSchema(ctx context.Context) error {
	c.logger.Info("initializing graph schema for graph: %s", c.config.GraphName)

	indexes := []string{
		"CREATE INDEX FOR (n:S_Concept) ON (n.uuid)",
		"CREATE INDEX FOR (n:S_Concept) ON (n.name)",
		"CREATE INDEX FOR (n:E_Entity) ON (n.uuid)",
		"CREATE INDEX FOR (n:E_Entity) ON (n.name)",
		"CREATE INDEX FOR (n:E_Entity) ON (n.entityType)",
		"CREATE INDEX FOR (n:T_Event) ON (n.uuid)",
		"CREATE INDEX FOR (n:T_Event) ON (n.occurredAt)",
		"CREATE INDEX FOR (n:T_Fact) ON (n.uuid)",
		"CREATE INDEX FOR (n:T_Fact) ON (n.validFrom)",
		"CREATE INDEX FOR (n:C_Node) ON (n.uuid)",
	}
	for _, idx := range indexes {
		if _, err := c.Query(ctx, Query{Text: idx}); err != nil {
			c.logger.Warn("index creation failed (may already exist): %v", err)
		}
	}

	vectorIndex := "CREATE VECTOR INDEX FOR (n:S_Concept) ON (n.embedding) OPTIONS {dimension: 1536, similarityFunction: 'cosine'}"
	if _, err := c.Query(ctx, Query{Text: vectorIndex}); err != nil {
		c.logger.Warn("vector index creation failed (may already exist): %v", err)
	}

	c.logger.Info("schema initialization complete")
	return nil
}

func (c *falkorClient) GetEntityRelationships(ctx context.Context, entityUUID string) ([]EntityRelationship, []EntityRelationship, error) {
	outQuery := fmt.Sprintf(
		"MATCH (a:%s {uuid: $uuid})-[r:%s]->(b:%s) RETURN b.uuid as other, r.relationship_type as relType",
		LabelEntity, RelEntityRelates, LabelEntity,
	)
	outResult, err := c.Query(ctx, Query{Text: outQuery, Parameters: map[string]interface{}{"uuid": entityUUID}})
	if err != nil {
		return nil, nil, fmt.Errorf("query outgoing relationships: %w", err)
	}

	inQuery := fmt.Sprintf(
		"MATCH (a:%s)-[r:%s]->(b:%s {uuid: $uuid}) RETURN a.uuid as other, r.relationship_type as relType",
		LabelEntity, RelEntityRelates, LabelEntity,
	)
	inResult, err := c.Query(ctx, Query{Text: inQuery, Parameters: map[string]interface{}{"uuid": entityUUID}})
	if err != nil {
		return nil, nil, fmt.Errorf("query incoming relationships: %w", err)
	}

	outgoing := make([]EntityRelationship, 0, len(outResult.Records))
	for _, row := range outResult.Records {
		other, _ := row["other"].(string)
		relType, _ := row["relType"].(string)
		outgoing = append(outgoing, EntityRelationship{FromUUID: entityUUID, ToUUID: other, RelationshipType: relType})
	}

	incoming := make([]EntityRelationship, 0, len(inResult.Records))
	for _, row := range inResult.Records {
		other, _ := row["other"].(string)
		relType, _ := row["relType"].(string)
		incoming = append(incoming, EntityRelationship{FromUUID: other, ToUUID: entityUUID, RelationshipType: relType})
	}

	return outgoing, incoming, nil
}

func (c *falkorClient) GetCrossLinksFrom(ctx context.Context, sourceUUID string, linkType CrossLinkType) ([]CrossLink, error) {
	query := fmt.Sprintf(
		"MATCH (a {uuid: $uuid})-[r:%s]->(b) RETURN b.uuid as target, r.createdAt as createdAt",
		linkType,
	)
	result, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"uuid": sourceUUID}})
	if err != nil {
		return nil, fmt.Errorf("query cross-links: %w", err)
	}

	links := make([]CrossLink, 0, len(result.Records))
	for _, row := range result.Records {
		target, _ := row["target"].(string)
		links = append(links, CrossLink{SourceUUID: sourceUUID, TargetUUID: target, LinkType: linkType})
	}
	return links, nil
}

func (c *falkorClient) GetCrossLinksTo(ctx context.Context, targetUUID string, linkType CrossLinkType) ([]CrossLink, error) {
	query := fmt.Sprintf(
		"MATCH (a)-[r:%s]->(b {uuid: $uuid}) RETURN a.uuid as source, r.createdAt as createdAt",
		linkType,
	)
	result, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"uuid": targetUUID}})
	if err != nil {
		return nil, fmt.Errorf("query cross-links: %w", err)
	}

	links := make([]CrossLink, 0, len(result.Records))
	for _, row := range result.Records {
		source, _ := row["source"].(string)
		links = append(links, CrossLink{SourceUUID: source, TargetUUID: targetUUID, LinkType: linkType})
	}
	return links, nil
}

func (c *falkorClient) RemoveCrossLink(ctx context.Context, sourceUUID, targetUUID string, linkType CrossLinkType) (bool, error) {
	query := fmt.Sprintf(
		"MATCH (a {uuid: $from})-[r:%s]->(b {uuid: $to}) DELETE r",
		linkType,
	)
	result, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"from": sourceUUID, "to": targetUUID}})
	if err != nil {
		return false, err
	}
	return result.Stats.RelationshipsDeleted > 0, nil
}

func (c *falkorClient) QueryEventsInRange(ctx context.Context, from, to time.Time, entityUUID string) ([]TemporalEvent, error) {
	var query string
	params := map[string]interface{}{
		"from": from.UnixNano(),
		"to":   to.UnixNano(),
	}
	if entityUUID != "" {
		query = fmt.Sprintf(
			"MATCH (e:%s)-[:%s]->(entity:%s {uuid: $entity}) WHERE e.occurredAt >= $from AND e.occurredAt <= $to RETURN e",
			LabelTemporalEvent, RelXInvolves, LabelEntity,
		)
		params["entity"] = entityUUID
	} else {
		query = fmt.Sprintf(
			"MATCH (e:%s) WHERE e.occurredAt >= $from AND e.occurredAt <= $to RETURN e",
			LabelTemporalEvent,
		)
	}

	result, err := c.Query(ctx, Query{Text: query, Parameters: params})
	if err != nil {
		return nil, fmt.Errorf("query events in range: %w", err)
	}
	return parseTemporalEvents(result.Records, "e")
}

func (c *falkorClient) QueryFactsInRange(ctx context.Context, from, to time.Time) ([]TemporalFact, error) {
	query := fmt.Sprintf(
		"MATCH (f:%s) WHERE f.validFrom <= $to AND (f.validTo IS NULL OR f.validTo >= $from) RETURN f",
		LabelTemporalFact,
	)
	params := map[string]interface{}{"from": from.UnixNano(), "to": to.UnixNano()}
	result, err := c.Query(ctx, Query{Text: query, Parameters: params})
	if err != nil {
		return nil, fmt.Errorf("query facts in range: %w", err)
	}
	return parseTemporalFacts(result.Records, "f")
}

func (c *falkorClient) GetFactsAt(ctx context.Context, instant time.Time) ([]TemporalFact, error) {
	query := fmt.Sprintf(
		"MATCH (f:%s) WHERE f.validFrom <= $at AND (f.validTo IS NULL OR f.validTo >= $at) RETURN f",
		LabelTemporalFact,
	)
	result, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"at": instant.UnixNano()}})
	if err != nil {
		return nil, fmt.Errorf("query facts at instant: %w", err)
	}
	return parseTemporalFacts(result.Records, "f")
}

func (c *falkorClient) GetCausalLinks(ctx context.Context, nodeUUID string, direction string) ([]CausalLink, error) {
	var query string
	switch direction {
	case "upstream":
		query = fmt.Sprintf(
			"MATCH (cause:%s)-[r:%s]->(effect:%s {uuid: $uuid}) RETURN cause.uuid as causeId, effect.uuid as effectId, r.confidence as confidence, r.evidence as evidence",
			LabelCausalNode, RelCausalCauses, LabelCausalNode,
		)
	case "downstream":
		query = fmt.Sprintf(
			"MATCH (cause:%s {uuid: $uuid})-[r:%s]->(effect:%s) RETURN cause.uuid as causeId, effect.uuid as effectId, r.confidence as confidence, r.evidence as evidence",
			LabelCausalNode, RelCausalCauses, LabelCausalNode,
		)
	default:
		return nil, fmt.Errorf("store: invalid causal direction %q", direction)
	}

	result, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"uuid": nodeUUID}})
	if err != nil {
		return nil, fmt.Errorf("query causal links: %w", err)
	}

	links := make([]CausalLink, 0, len(result.Records))
	for _, row := range result.Records {
		causeID, _ := row["causeId"].(string)
		effectID, _ := row["effectId"].(string)
		confidence, _ := toFloat64(row["confidence"])
		evidence, _ := row["evidence"].(string)
		links = append(links, CausalLink{CauseNodeUUID: causeID, EffectNodeUUID: effectID, Confidence: confidence, Evidence: evidence})
	}
	return links, nil
}

func (c *falkorClient) FindCausalNodesByDescription(ctx context.Context, q string) ([]CausalNode, error) {
	query := fmt.Sprintf(
		"MATCH (n:%s) WHERE toLower(n.description) CONTAINS toLower($q) RETURN n",
		LabelCausalNode,
	)
	result, err := c.Query(ctx, Query{Text: query, Parameters: map[string]interface{}{"q": q}})
	if err != nil {
		return nil, fmt.Errorf("find causal nodes by description: %w", err)
	}

	nodes := make([]CausalNode, 0, len(result.Records))
	for _, row := range result.Records {
		props, err := nodeProperties(row["n"])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, causalNodeFromRecord(props))
	}
	return nodes, nil
}

func parseTemporalEvents(records []Record, column string) ([]TemporalEvent, error) {
	events := make([]TemporalEvent, 0, len(records))
	for _, row := range records {
		props, err := nodeProperties(row[column])
		if err != nil {
			return nil, err
		}
		events = append(events, temporalEventFromRecord(props))
	}
	return events, nil
}

func parseTemporalFacts(records []Record, column string) ([]TemporalFact, error) {
	facts := make([]TemporalFact, 0, len(records))
	for _, row := range records {
		props, err := nodeProperties(row[column])
		if err != nil {
			return nil, err
		}
		facts = append(facts, temporalFactFromRecord(props))
	}
	return facts, nil
}

func temporalEventFromRecord(props Record) TemporalEvent {
	e := TemporalEvent{}
	if v, ok := props["uuid"].(string); ok {
		e.UUID = v
	}
	if v, ok := props["description"].(string); ok {
		e.Description = v
	}
	if v, ok := toFloat64(props["occurredAt"]); ok {
		e.OccurredAt = time.Unix(0, int64(v))
	}
	if v, ok := toFloat64(props["duration"]); ok {
		e.Duration = time.Duration(int64(v))
	}
	return e
}

func temporalFactFromRecord(props Record) TemporalFact {
	f := TemporalFact{}
	if v, ok := props["uuid"].(string); ok {
		f.UUID = v
	}
	if v, ok := props["subject"].(string); ok {
		f.Subject = v
	}
	if v, ok := props["predicate"].(string); ok {
		f.Predicate = v
	}
	if v, ok := props["object"].(string); ok {
		f.Object = v
	}
	if v, ok := toFloat64(props["validFrom"]); ok {
		f.ValidFrom = time.Unix(0, int64(v))
	}
	if v, ok := toFloat64(props["validTo"]); ok {
		t := time.Unix(0, int64(v))
		f.ValidTo = &t
	}
	return f
}

func causalNodeFromRecord(props Record) CausalNode {
	n := CausalNode{}
	if v, ok := props["uuid"].(string); ok {
		n.UUID = v
	}
	if v, ok := props["description"].(string); ok {
		n.Description = v
	}
	if v, ok := props["nodeType"].(string); ok {
		n.NodeType = v
	}
	return n
}

// nodeProperties extracts the property map from a FalkorDB node value.
func nodeProperties(v interface{}) (Record, error) {
	if v == nil {
		return nil, fmt.Errorf("store: nil node value")
	}
	switch n := v.(type) {
	case *falkordb.Node:
		props := make(Record, len(n.Properties))
		for k, val := range n.Properties {
			props[k] = val
		}
		return props, nil
	case map[string]interface{}:
		return Record(n), nil
	default:
		// Fall back to a JSON round-trip for exotic driver shapes.
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("store: parse node: %w", err)
		}
		var props Record
		if err := json.Unmarshal(data, &props); err != nil {
			return nil, fmt.Errorf("store: parse node: %w", err)
		}
		return props, nil
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
