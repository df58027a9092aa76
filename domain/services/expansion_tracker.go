package services

import (
	"threatmosaic/domain/core/aggregates"
	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
)

// ExpansionTracker decides whether a node's neighborhood still needs to be
// fetched, making expansion idempotent across duplicate double-clicks and the
// re-entrant expansions issued by the creation flow.
//
// The flag is set only after a fetched neighborhood has merged successfully;
// marking before the fetch would permanently suppress retry after a failure.
type ExpansionTracker struct{}

// NewExpansionTracker creates an expansion tracker
func NewExpansionTracker() *ExpansionTracker {
	return &ExpansionTracker{}
}

// ShouldFetch reports whether the node's neighborhood has not been fetched yet
func (t *ExpansionTracker) ShouldFetch(node entities.Node) bool {
	return !node.Expanded
}

// MarkExpanded returns a snapshot with the node's flag set. Pure; no-op when
// the id is absent from the snapshot.
func (t *ExpansionTracker) MarkExpanded(state aggregates.GraphState, id valueobjects.NodeID) aggregates.GraphState {
	return state.MarkExpanded(id)
}
