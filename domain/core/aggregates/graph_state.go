package aggregates

import (
	"sort"

	"threatmosaic/domain/core/entities"
	"threatmosaic/domain/core/valueobjects"
)

// GraphState is the canonical, deduplicated snapshot of every node and link
// known to the client. Snapshots are immutable: every mutation returns a new
// value, so callers replace their reference and concurrent readers never see
// a half-applied merge.
//
// Invariants:
//   - exactly one node per id; later merges update attributes, never duplicate
//   - exactly one link per ordered (source, target) pair
//   - links may reference node ids not (yet) present in the node map
type GraphState struct {
	nodes   map[valueobjects.NodeID]entities.Node
	links   map[valueobjects.LinkKey]entities.Link
	version uint64
}

// NewGraphState creates an empty snapshot
func NewGraphState() GraphState {
	return GraphState{
		nodes: make(map[valueobjects.NodeID]entities.Node),
		links: make(map[valueobjects.LinkKey]entities.Link),
	}
}

// Replace builds a fresh snapshot from the given entities, discarding the
// receiver entirely. Initial load and search are "go to a fresh view", not
// "augment the current view"; expansion flags on previous nodes are dropped
// with them. Duplicate ids within the input collapse, last occurrence wins.
func (s GraphState) Replace(nodes []entities.Node, links []entities.Link) GraphState {
	next := GraphState{
		nodes:   make(map[valueobjects.NodeID]entities.Node, len(nodes)),
		links:   make(map[valueobjects.LinkKey]entities.Link, len(links)),
		version: s.version + 1,
	}
	for _, node := range nodes {
		if node.ID.IsZero() {
			continue
		}
		next.nodes[node.ID] = node
	}
	for _, link := range links {
		if link.Source.IsZero() || link.Target.IsZero() {
			continue
		}
		if _, exists := next.links[link.Key()]; exists {
			continue
		}
		next.links[link.Key()] = link
	}
	return next
}

// Merge combines an incoming partial subgraph into the snapshot and returns
// the result. Pure: the receiver is not mutated.
//
// Node policy: insert when absent; when present, replace attributes while
// preserving the expansion flag and any optional attribute the incoming
// payload omits (entities.Node.MergedWith).
//
// Link policy: first write wins per (source, target) key, which makes a
// duplicated expansion, or two expansions with overlapping results, a no-op
// for links already held.
func (s GraphState) Merge(nodes []entities.Node, links []entities.Link) GraphState {
	next := s.clone()
	next.version = s.version + 1

	for _, incoming := range nodes {
		if incoming.ID.IsZero() {
			continue
		}
		if existing, ok := next.nodes[incoming.ID]; ok {
			next.nodes[incoming.ID] = existing.MergedWith(incoming)
		} else {
			next.nodes[incoming.ID] = incoming
		}
	}

	for _, link := range links {
		if link.Source.IsZero() || link.Target.IsZero() {
			continue
		}
		if _, exists := next.links[link.Key()]; exists {
			continue
		}
		next.links[link.Key()] = link
	}

	return next
}

// MarkExpanded returns a snapshot with the expansion flag set on one node.
// No-op when the id is absent (the node may have been replaced away by a
// search that raced the expansion).
func (s GraphState) MarkExpanded(id valueobjects.NodeID) GraphState {
	node, ok := s.nodes[id]
	if !ok || node.Expanded {
		return s
	}
	next := s.clone()
	next.version = s.version + 1
	next.nodes[id] = node.WithExpanded(true)
	return next
}

// Node retrieves a node by id
func (s GraphState) Node(id valueobjects.NodeID) (entities.Node, bool) {
	node, ok := s.nodes[id]
	return node, ok
}

// HasNode checks if a node exists in the snapshot
func (s GraphState) HasNode(id valueobjects.NodeID) bool {
	_, ok := s.nodes[id]
	return ok
}

// Link retrieves a link by its endpoint pair
func (s GraphState) Link(key valueobjects.LinkKey) (entities.Link, bool) {
	link, ok := s.links[key]
	return link, ok
}

// Nodes returns all nodes sorted by id for deterministic iteration
func (s GraphState) Nodes() []entities.Node {
	nodes := make([]entities.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Links returns all links sorted by key for deterministic iteration
func (s GraphState) Links() []entities.Link {
	links := make([]entities.Link, 0, len(s.links))
	for _, link := range s.links {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		return links[i].Target < links[j].Target
	})
	return links
}

// NodeCount returns the number of nodes in the snapshot
func (s GraphState) NodeCount() int {
	return len(s.nodes)
}

// LinkCount returns the number of links in the snapshot
func (s GraphState) LinkCount() int {
	return len(s.links)
}

// Version returns the snapshot's monotonically increasing version. Useful as
// a cheap cache key for derived views.
func (s GraphState) Version() uint64 {
	return s.version
}

// Equal reports whether two snapshots hold the same node and link sets,
// ignoring version
func (s GraphState) Equal(other GraphState) bool {
	if len(s.nodes) != len(other.nodes) || len(s.links) != len(other.links) {
		return false
	}
	for id, node := range s.nodes {
		if got, ok := other.nodes[id]; !ok || got != node {
			return false
		}
	}
	for key, link := range s.links {
		if got, ok := other.links[key]; !ok || got != link {
			return false
		}
	}
	return true
}

func (s GraphState) clone() GraphState {
	next := GraphState{
		nodes: make(map[valueobjects.NodeID]entities.Node, len(s.nodes)),
		links: make(map[valueobjects.LinkKey]entities.Link, len(s.links)),
	}
	for id, node := range s.nodes {
		next.nodes[id] = node
	}
	for key, link := range s.links {
		next.links[key] = link
	}
	return next
}
