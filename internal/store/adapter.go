package store

import (
	"context"
	"time"
)

// Query is a Cypher-like statement with named parameters, mirroring the
// teacher's GraphQuery shape.
type Query struct {
	Text       string
	Parameters map[string]interface{}
	TimeoutMS  int
}

// Adapter is the storage contract every graph facade is built against.
// The only implementation shipped here is the FalkorDB-backed Client, but
// facades never depend on FalkorDB directly so a fake can stand in for
// tests.
type Adapter interface {
	// Connect establishes the underlying connection.
	Connect(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error

	// Query runs a Cypher-like statement and returns named records.
	Query(ctx context.Context, q Query) (*QueryResult, error)

	// CreateNode creates a single node with the given label and
	// properties, returning its generated uuid.
	CreateNode(ctx context.Context, label NodeLabel, props map[string]interface{}) (string, error)

	// CreateRelationship creates an edge of the given type between two
	// nodes identified by uuid.
	CreateRelationship(ctx context.Context, fromUUID, toUUID string, relType RelationType, props map[string]interface{}) error

	// UpdateNodeProperties merges props into an existing node's property
	// set, overwriting any key already present.
	UpdateNodeProperties(ctx context.Context, label NodeLabel, uuid string, props map[string]interface{}) error

	// DeleteNode removes a node (and detaches its edges) by uuid,
	// reporting whether a node was actually found and removed.
	DeleteNode(ctx context.Context, uuid string) (bool, error)

	// FindNodeByUUID retrieves a single node's properties by uuid.
	FindNodeByUUID(ctx context.Context, label NodeLabel, uuid string) (Record, error)

	// FindNodesByLabel retrieves up to limit nodes carrying label (limit
	// <= 0 means unbounded).
	FindNodesByLabel(ctx context.Context, label NodeLabel, limit int) ([]Record, error)

	// VectorSearch runs a similarity search over the named vector index.
	VectorSearch(ctx context.Context, indexName string, vector []float32, topK int) ([]VectorMatch, error)

	// ClearGraph removes every node whose label carries one of the
	// S_/E_/T_/C_ prefixes, used for scope-wide resets (tests, demos).
	ClearGraph(ctx context.Context) error

	// GetStatistics returns per-graph node counts plus total relationship
	// count.
	GetStatistics(ctx context.Context) (*Statistics, error)

	// HealthCheck reports whether the backing store is reachable.
	HealthCheck(ctx context.Context) bool

	// InitializeSchema creates the indexes (including the vector index)
	// the facades rely on.
	InitializeSchema(ctx context.Context) error

	// GetEntityRelationships returns both the outgoing and incoming
	// E_RELATES edges touching the given entity.
	GetEntityRelationships(ctx context.Context, entityUUID string) (outgoing, incoming []EntityRelationship, err error)

	// GetCrossLinksFrom returns the cross-links of linkType whose source
	// is sourceUUID.
	GetCrossLinksFrom(ctx context.Context, sourceUUID string, linkType CrossLinkType) ([]CrossLink, error)

	// GetCrossLinksTo returns the cross-links of linkType whose target is
	// targetUUID.
	GetCrossLinksTo(ctx context.Context, targetUUID string, linkType CrossLinkType) ([]CrossLink, error)

	// RemoveCrossLink deletes the cross-link of linkType between
	// sourceUUID and targetUUID, reporting whether one was found.
	RemoveCrossLink(ctx context.Context, sourceUUID, targetUUID string, linkType CrossLinkType) (bool, error)

	// QueryEventsInRange returns TemporalEvents with occurredAt in
	// [from, to]. If entityUUID is non-empty, results are restricted to
	// events linked to that entity via X_INVOLVES.
	QueryEventsInRange(ctx context.Context, from, to time.Time, entityUUID string) ([]TemporalEvent, error)

	// QueryFactsInRange returns TemporalFacts whose validity interval
	// overlaps [from, to].
	QueryFactsInRange(ctx context.Context, from, to time.Time) ([]TemporalFact, error)

	// GetFactsAt returns TemporalFacts valid at the given instant
	// (validFrom <= instant and (validTo is nil or validTo >= instant)).
	GetFactsAt(ctx context.Context, instant time.Time) ([]TemporalFact, error)

	// GetCausalLinks returns the C_CAUSES edges touching nodeUUID in the
	// given direction: "upstream" returns links where nodeUUID is the
	// effect, "downstream" returns links where nodeUUID is the cause.
	GetCausalLinks(ctx context.Context, nodeUUID string, direction string) ([]CausalLink, error)

	// FindCausalNodesByDescription returns causal nodes whose description
	// case-insensitively contains q.
	FindCausalNodesByDescription(ctx context.Context, q string) ([]CausalNode, error)
}
