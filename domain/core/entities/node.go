package entities

import (
	"threatmosaic/domain/core/valueobjects"
)

// Node is a graph entity known to the client. Nodes are flat value records
// rather than rich aggregates: the backend owns all entity semantics and the
// client only synchronizes attribute snapshots.
//
// Description and ExternalID are optional: the bulk initial load omits them
// and only expansion-sourced payloads carry them, so merges must never let a
// staler, sparser payload blank out a previously fetched value.
type Node struct {
	ID          valueobjects.NodeID    `json:"id"`
	Name        string                 `json:"name"`
	Group       valueobjects.NodeGroup `json:"group"`
	Description string                 `json:"description,omitempty"`
	ExternalID  string                 `json:"externalId,omitempty"`

	// Expanded marks that this node's neighborhood has already been fetched.
	// Owned by the expansion tracker; never taken from incoming payloads.
	Expanded bool `json:"expanded"`
}

// MergedWith returns the node that results from an incoming payload for the
// same id landing on top of this one. The incoming attributes win, except:
//   - Expanded is always preserved from the existing record
//   - optional attributes are never overwritten by absence
func (n Node) MergedWith(incoming Node) Node {
	merged := incoming
	merged.Expanded = n.Expanded
	if merged.Description == "" {
		merged.Description = n.Description
	}
	if merged.ExternalID == "" {
		merged.ExternalID = n.ExternalID
	}
	return merged
}

// WithExpanded returns a copy of the node with the expansion flag set
func (n Node) WithExpanded(expanded bool) Node {
	n.Expanded = expanded
	return n
}
