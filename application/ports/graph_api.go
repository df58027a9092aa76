package ports

import (
	"context"
)

// ThreatScenarioRecord is a bulk-load record: one threat scenario with its
// nested technique references
type ThreatScenarioRecord struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Techniques  []TechniqueRecord `json:"techniques"`
}

// TechniqueRecord is a technique nested inside a bulk-load record
type TechniqueRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
}

// SearchResult is one node matched by the free-text search. Search never
// returns links.
type SearchResult struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// NeighborNode is a node returned by a neighborhood expansion
type NeighborNode struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Labels      []string `json:"labels"`
	Description string   `json:"description,omitempty"`
}

// NeighborLink is a link returned by a neighborhood expansion
type NeighborLink struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Relationship string `json:"relationship"`
}

// Neighborhood is the immediate surroundings of an expanded node
type Neighborhood struct {
	Nodes []NeighborNode `json:"nodes"`
	Links []NeighborLink `json:"links"`
}

// CreatedThreatScenario is the backend's acknowledgement of a created entity
type CreatedThreatScenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GraphAPI is the port to the remote graph backend. The five operations map
// one-to-one onto its REST endpoints; implementations translate transport
// failures into pkg/errors network errors and never partially succeed.
type GraphAPI interface {
	// ThreatScenarios fetches the bulk threat-scenario list with nested
	// technique references (GET /threat_scenarios)
	ThreatScenarios(ctx context.Context) ([]ThreatScenarioRecord, error)

	// Search finds nodes by free-text query, optionally restricted to the
	// given group labels (GET /search)
	Search(ctx context.Context, query string, types []string) ([]SearchResult, error)

	// RelatedNodes fetches a node's immediate neighborhood (GET /related_nodes)
	RelatedNodes(ctx context.Context, nodeID string) (Neighborhood, error)

	// CreateThreatScenario creates a new threat-scenario entity
	// (POST /threat_scenarios)
	CreateThreatScenario(ctx context.Context, name, description string) (CreatedThreatScenario, error)

	// CreateRelationship creates a typed, directed relationship between two
	// existing nodes (POST /create_relationship)
	CreateRelationship(ctx context.Context, sourceID, targetID, relationship string) error
}
