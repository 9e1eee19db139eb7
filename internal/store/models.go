package store

import "time"

// NodeLabel is a store-level node label. Labels are restricted to
// identifier characters and clear-by-scope relies on the S_/E_/T_/C_
// prefix convention.
type NodeLabel string

const (
	LabelConcept       NodeLabel = "S_Concept"
	LabelEntity        NodeLabel = "E_Entity"
	LabelTemporalEvent NodeLabel = "T_Event"
	LabelTemporalFact  NodeLabel = "T_Fact"
	LabelCausalNode    NodeLabel = "C_Node"
)

// RelationType is a store-level relationship type.
type RelationType string

const (
	RelEntityRelates RelationType = "E_RELATES"
	RelCausalCauses  RelationType = "C_CAUSES"

	RelXRepresents RelationType = "X_REPRESENTS"
	RelXInvolves   RelationType = "X_INVOLVES"
	RelXRefersTo   RelationType = "X_REFERS_TO"
	RelXAffects    RelationType = "X_AFFECTS"
)

// GraphSource names one of the four co-resident graphs, used as the
// discriminator for GraphView/ScoredNode.views.
type GraphSource string

const (
	SourceSemantic GraphSource = "semantic"
	SourceEntity   GraphSource = "entity"
	SourceTemporal GraphSource = "temporal"
	SourceCausal   GraphSource = "causal"
)

// Concept is a semantic-graph node: a named, optionally embedded idea.
type Concept struct {
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Entity is an entity-graph node.
type Entity struct {
	UUID       string            `json:"uuid"`
	Name       string            `json:"name"`
	EntityType string            `json:"entityType"`
	Properties map[string]string `json:"properties,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// EntityRelationship is an E_RELATES edge between two entities.
type EntityRelationship struct {
	FromUUID         string `json:"fromUuid"`
	ToUUID           string `json:"toUuid"`
	RelationshipType string `json:"relationshipType"`
}

// TemporalEvent is a point-in-time occurrence.
type TemporalEvent struct {
	UUID        string        `json:"uuid"`
	Description string        `json:"description"`
	OccurredAt  time.Time     `json:"occurredAt"`
	Duration    time.Duration `json:"duration,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// TemporalFact is a subject-predicate-object triple valid over an interval.
type TemporalFact struct {
	UUID      string     `json:"uuid"`
	Subject   string     `json:"subject"`
	Predicate string     `json:"predicate"`
	Object    string     `json:"object"`
	ValidFrom time.Time  `json:"validFrom"`
	ValidTo   *time.Time `json:"validTo,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CausalNode is a node in the causal graph.
type CausalNode struct {
	UUID        string    `json:"uuid"`
	Description string    `json:"description"`
	NodeType    string    `json:"nodeType"` // cause, effect, event, ...
	CreatedAt   time.Time `json:"createdAt"`
}

// CausalLink is a directed C_CAUSES edge.
type CausalLink struct {
	CauseNodeUUID  string    `json:"causeNodeUuid"`
	EffectNodeUUID string    `json:"effectNodeUuid"`
	Confidence     float64   `json:"confidence"`
	Evidence       string    `json:"evidence,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CrossLinkType enumerates the fixed cross-graph lookup relationships.
type CrossLinkType string

const (
	CrossLinkRepresents CrossLinkType = "X_REPRESENTS" // Concept -> Entity
	CrossLinkInvolves   CrossLinkType = "X_INVOLVES"   // TemporalEvent -> Entity
	CrossLinkRefersTo   CrossLinkType = "X_REFERS_TO"  // CausalNode -> TemporalEvent
	CrossLinkAffects    CrossLinkType = "X_AFFECTS"    // CausalNode -> Entity
)

// CrossLink is an edge linking two of the four graphs.
type CrossLink struct {
	SourceUUID string        `json:"sourceUuid"`
	TargetUUID string        `json:"targetUuid"`
	LinkType   CrossLinkType `json:"linkType"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Record is a generic row of named column values returned by Query.
type Record map[string]interface{}

// QueryResult is the generic response shape of the storage adapter's
// query operation: named records plus column metadata.
type QueryResult struct {
	Records  []Record
	Metadata []string
	Stats    QueryStats
}

// QueryStats mirrors the statistics FalkorDB reports for a Cypher query.
type QueryStats struct {
	NodesCreated         int
	NodesDeleted         int
	RelationshipsCreated int
	RelationshipsDeleted int
	PropertiesSet        int
	LabelsAdded          int
	ExecutionTime        time.Duration
}

// VectorMatch is one hit from a vector similarity search.
type VectorMatch struct {
	NodeUUID string
	Score    float64
	Record   Record
}

// Statistics summarizes per-label node/edge counts across the four graphs.
type Statistics struct {
	SemanticNodes     int
	EntityNodes       int
	TemporalNodes     int
	CausalNodes       int
	TotalRelationships int
}
