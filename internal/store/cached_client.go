package store

import (
	"context"
	"strings"
	"time"

	"github.com/moolen/magma/internal/logging"
)

// CachedAdapter wraps an Adapter with read-query caching. Only Query
// calls whose text carries no write keyword are cached; every other
// operation delegates straight through.
type CachedAdapter struct {
	underlying Adapter
	cache      *QueryCache
	logger     *logging.Logger
}

// NewCachedAdapter wraps client with a read-query LRU cache.
func NewCachedAdapter(client Adapter, config QueryCacheConfig, logger *logging.Logger) (*CachedAdapter, error) {
	cache, err := NewQueryCache(config, logger)
	if err != nil {
		return nil, err
	}

	return &CachedAdapter{underlying: client, cache: cache, logger: logger}, nil
}

func (c *CachedAdapter) Connect(ctx context.Context) error { return c.underlying.Connect(ctx) }
func (c *CachedAdapter) Close() error                      { return c.underlying.Close() }
func (c *CachedAdapter) HealthCheck(ctx context.Context) bool {
	return c.underlying.HealthCheck(ctx)
}

func (c *CachedAdapter) Query(ctx context.Context, q Query) (*QueryResult, error) {
	if isWriteQuery(q.Text) {
		return c.underlying.Query(ctx, q)
	}

	key := MakeQueryKey(q)
	if result, ok := c.cache.Get(key); ok {
		return result, nil
	}

	result, err := c.underlying.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	c.cache.Put(key, result)
	return result, nil
}

func (c *CachedAdapter) CreateNode(ctx context.Context, label NodeLabel, props map[string]interface{}) (string, error) {
	return c.underlying.CreateNode(ctx, label, props)
}

func (c *CachedAdapter) CreateRelationship(ctx context.Context, fromUUID, toUUID string, relType RelationType, props map[string]interface{}) error {
	return c.underlying.CreateRelationship(ctx, fromUUID, toUUID, relType, props)
}

func (c *CachedAdapter) UpdateNodeProperties(ctx context.Context, label NodeLabel, id string, props map[string]interface{}) error {
	return c.underlying.UpdateNodeProperties(ctx, label, id, props)
}

func (c *CachedAdapter) DeleteNode(ctx context.Context, uuid string) (bool, error) {
	return c.underlying.DeleteNode(ctx, uuid)
}

func (c *CachedAdapter) FindNodeByUUID(ctx context.Context, label NodeLabel, uuid string) (Record, error) {
	return c.underlying.FindNodeByUUID(ctx, label, uuid)
}

func (c *CachedAdapter) FindNodesByLabel(ctx context.Context, label NodeLabel, limit int) ([]Record, error) {
	return c.underlying.FindNodesByLabel(ctx, label, limit)
}

func (c *CachedAdapter) VectorSearch(ctx context.Context, indexName string, vector []float32, topK int) ([]VectorMatch, error) {
	return c.underlying.VectorSearch(ctx, indexName, vector, topK)
}

func (c *CachedAdapter) ClearGraph(ctx context.Context) error {
	c.cache.Clear()
	return c.underlying.ClearGraph(ctx)
}

func (c *CachedAdapter) GetStatistics(ctx context.Context) (*Statistics, error) {
	return c.underlying.GetStatistics(ctx)
}

func (c *CachedAdapter) InitializeSchema(ctx context.Context) error {
	return c.underlying.InitializeSchema(ctx)
}

// CacheStats exposes the wrapped cache's effectiveness counters.
func (c *CachedAdapter) CacheStats() QueryCacheStats {
	return c.cache.Stats()
}

func (c *CachedAdapter) GetEntityRelationships(ctx context.Context, entityUUID string) ([]EntityRelationship, []EntityRelationship, error) {
	return c.underlying.GetEntityRelationships(ctx, entityUUID)
}

func (c *CachedAdapter) GetCrossLinksFrom(ctx context.Context, sourceUUID string, linkType CrossLinkType) ([]CrossLink, error) {
	return c.underlying.GetCrossLinksFrom(ctx, sourceUUID, linkType)
}

func (c *CachedAdapter) GetCrossLinksTo(ctx context.Context, targetUUID string, linkType CrossLinkType) ([]CrossLink, error) {
	return c.underlying.GetCrossLinksTo(ctx, targetUUID, linkType)
}

func (c *CachedAdapter) RemoveCrossLink(ctx context.Context, sourceUUID, targetUUID string, linkType CrossLinkType) (bool, error) {
	return c.underlying.RemoveCrossLink(ctx, sourceUUID, targetUUID, linkType)
}

func (c *CachedAdapter) QueryEventsInRange(ctx context.Context, from, to time.Time, entityUUID string) ([]TemporalEvent, error) {
	return c.underlying.QueryEventsInRange(ctx, from, to, entityUUID)
}

func (c *CachedAdapter) QueryFactsInRange(ctx context.Context, from, to time.Time) ([]TemporalFact, error) {
	return c.underlying.QueryFactsInRange(ctx, from, to)
}

func (c *CachedAdapter) GetFactsAt(ctx context.Context, instant time.Time) ([]TemporalFact, error) {
	return c.underlying.GetFactsAt(ctx, instant)
}

func (c *CachedAdapter) GetCausalLinks(ctx context.Context, nodeUUID string, direction string) ([]CausalLink, error) {
	return c.underlying.GetCausalLinks(ctx, nodeUUID, direction)
}

func (c *CachedAdapter) FindCausalNodesByDescription(ctx context.Context, q string) ([]CausalNode, error) {
	return c.underlying.FindCausalNodesByDescription(ctx, q)
}

func isWriteQuery(query string) bool {
	upper := strings.ToUpper(strings.TrimSpace(query))
	for _, keyword := range []string{"CREATE", "MERGE", "DELETE", "SET", "REMOVE"} {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	return false
}
