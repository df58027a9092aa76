package services

import (
	"threatmosaic/domain/core/aggregates"
	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
)

// FilteredGraph is the derived, read-only view handed to the renderer. It has
// no identity of its own: it is always recomputable from a (GraphState,
// Visibility) pair and must never be mutated in place.
type FilteredGraph struct {
	Nodes []entities.Node `json:"nodes"`
	Links []entities.Link `json:"links"`
}

// NewFilteredGraph returns an empty view with non-nil slices so the renderer
// always receives arrays, never null
func NewFilteredGraph() FilteredGraph {
	return FilteredGraph{Nodes: []entities.Node{}, Links: []entities.Link{}}
}

// VisibilityFilter derives the renderable subgraph from the canonical state
// and the user's group-visibility configuration. Stateless and pure.
type VisibilityFilter struct{}

// NewVisibilityFilter creates a visibility filter
func NewVisibilityFilter() *VisibilityFilter {
	return &VisibilityFilter{}
}

// Filter recomputes the renderable view. A node is included when its group is
// not explicitly hidden; a link is included only when both of its endpoints
// are included, so rendered links never dangle. Output order follows the
// snapshot's sorted iteration, keeping frames stable across recomputes.
func (f *VisibilityFilter) Filter(state aggregates.GraphState, visibility valueobjects.Visibility) FilteredGraph {
	view := NewFilteredGraph()

	included := make(map[valueobjects.NodeID]bool, state.NodeCount())
	for _, node := range state.Nodes() {
		if !visibility.Visible(node.Group) {
			continue
		}
		included[node.ID] = true
		view.Nodes = append(view.Nodes, node)
	}

	for _, link := range state.Links() {
		if !included[link.Source] || !included[link.Target] {
			continue
		}
		view.Links = append(view.Links, link)
	}

	return view
}
